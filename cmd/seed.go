package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/repute/internal/seed"
	"github.com/okian/repute/pkg/json"
)

var seedCfg seed.Config

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write synthetic debate sections and news events to the store",
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

		st, err := seed.New(seedCfg).Run(ctx, store)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCfg.Officials, "officials", 50, "number of distinct officials")
	seedCmd.Flags().IntVar(&seedCfg.Sections, "sections", 200, "number of debate sections")
	seedCmd.Flags().IntVar(&seedCfg.Events, "events", 100, "number of news events")
	seedCmd.Flags().Uint64Var(&seedCfg.Seed, "seed", 1, "random seed")
	rootCmd.AddCommand(seedCmd)
}
