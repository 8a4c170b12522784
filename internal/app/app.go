// Package app wires configuration, fetchers, notifiers and the watcher
// into a runnable service.
package app

import (
	"context"
	"errors"

	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/notifier"
	"github.com/yairfalse/vahti/internal/watcher"
	"github.com/yairfalse/vahti/pkg/config"
)

type App struct {
	config   *config.Config
	logger   logger.Logger
	notifier *notifier.Multi
	watcher  *watcher.Watcher
}

// Run blocks until ctx is cancelled. Cancellation is a clean stop and
// returns nil; anything else is fatal.
func (a *App) Run(ctx context.Context) error {
	a.logger.WithFields(map[string]interface{}{
		"channels":  a.notifier.Channels(),
		"heartbeat": a.config.Heartbeat.Enabled,
	}).Info("Notification channels ready")

	err := a.watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.WithFields(a.watcher.GetStatus()).Info("Watcher stopped")
		return nil
	}
	return err
}

// Logger returns the configured logger
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Watcher returns the underlying watcher
func (a *App) Watcher() *watcher.Watcher {
	return a.watcher
}

// Channels returns the configured notification channel names
func (a *App) Channels() []string {
	return a.notifier.Channels()
}
