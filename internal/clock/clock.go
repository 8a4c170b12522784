// Package clock abstracts wall-clock time so scheduling can be tested.
package clock

import (
	"context"
	"sync"
	"time"

	benclock "github.com/benbjohnson/clock"
)

// Clock tells the time and sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

var system = benclock.New()

// Real is the system clock
type Real struct{}

func (Real) Now() time.Time { return system.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	t := system.Timer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake drives a benbjohnson/clock Mock. Sleep returns immediately and
// advances the mock by d, so a loop runs through simulated hours instantly.
type Fake struct {
	mock *benclock.Mock

	mu     sync.Mutex
	sleeps []time.Duration
}

// NewFake creates a Fake clock starting at t
func NewFake(t time.Time) *Fake {
	m := benclock.NewMock()
	m.Set(t)
	return &Fake{mock: m}
}

func (f *Fake) Now() time.Time { return f.mock.Now() }

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()

	f.mock.Add(d)
	return nil
}

// Set moves the clock to t
func (f *Fake) Set(t time.Time) { f.mock.Set(t) }

// Advance moves the clock forward by d
func (f *Fake) Advance(d time.Duration) { f.mock.Add(d) }

// Mock exposes the underlying mock for timers and tickers
func (f *Fake) Mock() *benclock.Mock { return f.mock }

// Sleeps returns every duration passed to Sleep so far
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}
