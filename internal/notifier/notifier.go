// Package notifier delivers subject/body messages to the configured recipients.
package notifier

import (
	"context"
	"errors"

	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/logger"
)

// Notifier sends one message to a fixed recipient list
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Channel is a named Notifier, the name shows up in logs and errors
type Channel struct {
	Name     string
	Notifier Notifier
}

// Multi fans a message out to several channels. A send counts as delivered
// when at least one channel accepted it; failures on the other channels are
// logged.
type Multi struct {
	channels []Channel
	log      logger.Logger
}

// NewMulti creates a Multi notifier
func NewMulti(log logger.Logger, channels ...Channel) *Multi {
	if log == nil {
		log = logger.NewNop()
	}
	return &Multi{channels: channels, log: log}
}

// Channels returns the channel names in send order
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name)
	}
	return names
}

// Send implements Notifier
func (m *Multi) Send(ctx context.Context, subject, body string) error {
	if len(m.channels) == 0 {
		return vahtierrors.New(vahtierrors.ErrorTypeDelivery, "no notification channels configured")
	}

	var errs []error
	delivered := 0

	for _, ch := range m.channels {
		if err := ch.Notifier.Send(ctx, subject, body); err != nil {
			errs = append(errs, vahtierrors.DeliveryError(ch.Name, err))
			continue
		}
		delivered++
		m.log.WithField("channel", ch.Name).Debug("notification delivered")
	}

	if delivered == 0 {
		return errors.Join(errs...)
	}

	for _, err := range errs {
		m.log.Error("notification channel failed", err)
	}

	return nil
}
