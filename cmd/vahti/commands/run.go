package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yairfalse/vahti/internal/app"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start watching the configured targets",
		Long: `Capture a baseline of every target, then poll them on the configured
interval until interrupted.

Startup fails if any target cannot be fetched once. After that, fetch and
delivery failures are logged and the loop keeps running.

EXAMPLES:
  vahti run                              # Use ./vahti.yaml or env vars
  vahti run --config /etc/vahti/prod.yaml
  VAHTI_INTERVAL_SECONDS=60 vahti run    # Override via environment
  vahti run --log-format json            # Structured logs for collectors`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.NewAppFactory().Create(cfg, Version)
	if err != nil {
		return err
	}

	// Graceful shutdown on Ctrl+C and SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}
