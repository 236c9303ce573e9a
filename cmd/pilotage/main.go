package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pilotage-service/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:   "pilotage",
		Short: "Freight invoice reconciliation and margin control",
		Long: `pilotage reconciles sales invoices with forwarder, customs and carrier
cost documents, scores each shipment for financial risk and reports margins
across the portfolio.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logging.NewLogger(cmd.ErrOrStderr(), level, logFormat))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	cmd.AddCommand(reconcileCmd())
	cmd.AddCommand(rulesCmd())
	return cmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received interrupt signal, shutting down")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
