package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/repute/internal/adapters/repository"
	"github.com/okian/repute/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := setup(ctx)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		sqlStore, ok := store.(*repository.SQLStore)
		if !ok {
			logger.Get().Info(ctx, "store driver has no schema", logger.String("store_driver", cfg.StoreDriver))
			return nil
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
		logger.Get().Info(ctx, "schema up to date", logger.String("store_driver", cfg.StoreDriver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
