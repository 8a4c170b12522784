package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/vahti/internal/clock"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/fetcher"
	"github.com/yairfalse/vahti/internal/heartbeat"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/notifier"
	"github.com/yairfalse/vahti/internal/snapshot"
)

const (
	// MinInterval is the shortest accepted poll interval
	MinInterval = 5 * time.Second

	defaultFetchTimeout = 20 * time.Second
	notifyTimeout       = time.Minute
	previewLength       = 80
)

// Config holds configuration for the watcher. It is copied at construction
// and never changes afterwards.
type Config struct {
	Targets          []string
	Interval         time.Duration
	FetchTimeout     time.Duration
	HeartbeatEnabled bool
	HeartbeatHour    int
	Location         *time.Location
	Subject          string
	DeploymentNotice bool
}

// Watcher polls every target on a fixed cadence, notifies once per cycle
// about the targets whose content changed, and sends a daily heartbeat.
// All state is owned by the goroutine running Start.
type Watcher struct {
	cfg       Config
	fetcher   fetcher.Fetcher
	notifier  notifier.Notifier
	clock     clock.Clock
	log       logger.Logger
	store     *snapshot.Store
	heartbeat *heartbeat.Scheduler

	deployPending bool
	iterations    int
	lastIteration time.Time
}

// IterationResult describes what one cycle did
type IterationResult struct {
	Changed       []string
	Failed        []string
	Notified      bool
	HeartbeatSent bool
	DeploySent    bool
	Errors        []error
}

// Option customises a Watcher
type Option func(*Watcher)

// WithClock replaces the system clock
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger replaces the default logger
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// New creates a new watcher
func New(cfg Config, f fetcher.Fetcher, n notifier.Notifier, opts ...Option) (*Watcher, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target is required")
	}
	if cfg.Interval < MinInterval {
		return nil, fmt.Errorf("minimum watch interval is 5 seconds")
	}
	if f == nil || n == nil {
		return nil, fmt.Errorf("fetcher and notifier are required")
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Subject == "" {
		cfg.Subject = "Watched page update"
	}
	cfg.Targets = append([]string(nil), cfg.Targets...)

	w := &Watcher{
		cfg:      cfg,
		fetcher:  f,
		notifier: n,
		clock:    clock.Real{},
		log:      logger.NewNop(),
		store:    snapshot.NewStore(),
	}
	if cfg.HeartbeatEnabled {
		w.heartbeat = heartbeat.NewScheduler(cfg.HeartbeatHour, cfg.Location)
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start captures the baseline and then loops until ctx is cancelled. It
// returns a fatal error if the baseline cannot be captured, and ctx.Err()
// on shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.WithFields(map[string]interface{}{
		"targets":  len(w.cfg.Targets),
		"interval": w.cfg.Interval.String(),
	}).Info("Multi-page monitor started")

	if err := w.Capture(ctx); err != nil {
		return err
	}

	w.deployPending = w.cfg.DeploymentNotice

	for {
		w.RunOnce(ctx)

		if err := w.clock.Sleep(ctx, w.cfg.Interval); err != nil {
			w.log.Info("Watch mode stopped")
			return err
		}
	}
}

// Capture fetches every target once to seed the snapshot store. Any failure
// is fatal: without a baseline for each target changes cannot be detected.
func (w *Watcher) Capture(ctx context.Context) error {
	for _, target := range w.cfg.Targets {
		content, err := w.fetch(ctx, target)
		if err != nil {
			return vahtierrors.StartupFetchError(target, err)
		}

		w.store.Set(target, content, w.clock.Now())
		w.log.WithFields(map[string]interface{}{
			"target": target,
			"bytes":  len(content),
		}).Debug("baseline captured")
	}

	w.log.WithField("targets", w.store.Len()).Info("Initial pages captured")
	return nil
}

// RunOnce runs the heartbeat, poll and notify phases once. Each phase is
// isolated: a failure or panic in one is logged and the next still runs.
func (w *Watcher) RunOnce(ctx context.Context) IterationResult {
	var res IterationResult

	now := w.clock.Now()
	w.iterations++
	w.lastIteration = now

	w.log.WithField("iteration", w.iterations).Info("Checking pages")

	w.guard(&res, "heartbeat", func() { w.heartbeatPhase(ctx, now, &res) })
	w.guard(&res, "poll", func() { w.pollPhase(ctx, &res) })
	w.guard(&res, "notify", func() { w.notifyPhase(ctx, &res) })

	return res
}

func (w *Watcher) guard(res *IterationResult, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := vahtierrors.IterationError(r)
			res.Errors = append(res.Errors, err)
			w.log.WithField("phase", phase).Error("Iteration phase aborted", err)
		}
	}()
	fn()
}

func (w *Watcher) heartbeatPhase(ctx context.Context, now time.Time, res *IterationResult) {
	heartbeatDue := w.heartbeat != nil && w.heartbeat.IsDue(now)

	if w.deployPending {
		subject, body := deploymentMessage(now.In(w.cfg.Location), w.cfg.Targets, w.cfg.Interval)
		if err := w.send(ctx, subject, body); err != nil {
			res.Errors = append(res.Errors, err)
			w.log.Error("Deployment notice failed", err)
		} else {
			w.deployPending = false
			res.DeploySent = true
			w.log.Info("Deployment notice sent")

			// the notice already proves liveness for today
			if heartbeatDue {
				w.heartbeat.MarkSent(now)
				heartbeatDue = false
			}
		}
	}

	if !heartbeatDue {
		return
	}

	subject, body := heartbeatMessage(now.In(w.cfg.Location), len(w.cfg.Targets), w.cfg.Interval)
	if err := w.send(ctx, subject, body); err != nil {
		res.Errors = append(res.Errors, err)
		w.log.Error("Heartbeat failed, retrying next cycle", err)
		return
	}

	w.heartbeat.MarkSent(now)
	res.HeartbeatSent = true
	w.log.WithField("date", w.heartbeat.LastSent()).Info("Heartbeat sent")
}

func (w *Watcher) pollPhase(ctx context.Context, res *IterationResult) {
	for _, target := range w.cfg.Targets {
		if ctx.Err() != nil {
			return
		}
		w.guard(res, "poll", func() { w.pollTarget(ctx, target, res) })
	}
}

func (w *Watcher) pollTarget(ctx context.Context, target string, res *IterationResult) {
	log := w.log.WithField("target", target)

	content, err := w.fetch(ctx, target)
	if err != nil {
		fetchErr := vahtierrors.FetchError(target, err)
		res.Failed = append(res.Failed, target)
		res.Errors = append(res.Errors, fetchErr)
		log.Error("Fetch failed, keeping previous snapshot", fetchErr)
		return
	}

	log.WithFields(map[string]interface{}{
		"bytes":   len(content),
		"preview": preview(content, previewLength),
	}).Debug("fetched")

	if !w.store.Observe(target, content, w.clock.Now()) {
		log.Info("unchanged")
		return
	}

	res.Changed = append(res.Changed, target)
	log.WithField("bytes", len(content)).Info("changed")
}

func (w *Watcher) notifyPhase(ctx context.Context, res *IterationResult) {
	if len(res.Changed) == 0 {
		return
	}

	subject, body := changeMessage(w.cfg.Subject, res.Changed)
	if err := w.send(ctx, subject, body); err != nil {
		res.Errors = append(res.Errors, err)
		w.log.WithField("changed", res.Changed).Error("Change notification failed", err)
		return
	}

	res.Notified = true
	w.log.WithField("changed", res.Changed).Info("Changes detected, notification sent")
}

func (w *Watcher) fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()
	return w.fetcher.Fetch(ctx, target)
}

func (w *Watcher) send(ctx context.Context, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	err := w.notifier.Send(ctx, subject, body)
	if err != nil && !vahtierrors.IsType(err, vahtierrors.ErrorTypeDelivery) {
		err = vahtierrors.DeliveryError("notifier", err)
	}
	return err
}

// Snapshot returns a copy of the stored content for target
func (w *Watcher) Snapshot(target string) ([]byte, bool) {
	return w.store.Get(target)
}

// GetStatus returns current watcher status
func (w *Watcher) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"active":     w.iterations > 0,
		"interval":   w.cfg.Interval.String(),
		"targets":    append([]string(nil), w.cfg.Targets...),
		"iterations": w.iterations,
		"captured":   w.store.Len(),
	}

	if !w.lastIteration.IsZero() {
		status["last_iteration"] = w.lastIteration
	}

	if w.heartbeat != nil {
		status["heartbeat_hour"] = w.heartbeat.Hour()
		status["last_heartbeat"] = w.heartbeat.LastSent()
	}

	return status
}
