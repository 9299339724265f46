package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/pkg/json"
)

var debateCmd = &cobra.Command{
	Use:   "debate",
	Short: "Process pending debate sections once and exit",
	RunE:  runJob(service.JobDebate),
}

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Classify pending news events once and exit",
	RunE:  runJob(service.JobIntake),
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify due promises once and exit",
	RunE:  runJob(service.JobVerify),
}

func init() {
	rootCmd.AddCommand(debateCmd)
	rootCmd.AddCommand(intakeCmd)
	rootCmd.AddCommand(verifyCmd)
}

// runJob builds a one-shot command that prints the run summary as JSON.
func runJob(job string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return execJob(ctx, a.svc, job, cmd)
	}
}

func execJob(ctx context.Context, svc *service.Service, job string, cmd *cobra.Command) error {
	summary, err := svc.Run(ctx, job)
	out, mErr := json.MarshalIndent(summary, "", "  ")
	if mErr != nil {
		return fmt.Errorf("encode summary: %w", mErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if err != nil {
		return fmt.Errorf("%s: %w", job, err)
	}
	return nil
}
