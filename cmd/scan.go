package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScanCmd creates the 'scan' subcommand: one synchronous sweep over
// the wishlist, then exit.
func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single wishlist scan and exit",
		RunE:  runScanCommand,
	}
}

func runScanCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := a.scanner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("scan interrupted", zap.String("scan_id", report.ScanID))
			return nil
		}
		return fmt.Errorf("run scan: %w", err)
	}

	a.logger.Info("scan finished",
		zap.String("scan_id", report.ScanID),
		zap.Int("total", report.Total),
		zap.Int("observed", report.Observed),
		zap.Int("alerts", report.Alerts),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return nil
}
