package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/vahti/internal/clock"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/notifier"
	"github.com/yairfalse/vahti/pkg/config"
)

type webhookSink struct {
	mu       sync.Mutex
	payloads []notifier.WebhookPayload
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p notifier.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
}

func (s *webhookSink) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.payloads {
		out = append(out, p.Subject)
	}
	return out
}

func testConfig(target, webhook string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Targets = []string{target}
	cfg.Webhook.URL = webhook
	cfg.Heartbeat.Enabled = false
	return cfg
}

func TestFactory_Create(t *testing.T) {
	cfg := testConfig("https://example.com", "https://hooks.example.com/x")
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Username = "watcher@example.com"
	cfg.Recipients = []string{"ops@example.com"}

	a, err := NewAppFactory().WithOutput(&bytes.Buffer{}).Create(cfg, "test")
	require.NoError(t, err)

	assert.Equal(t, []string{"smtp", "webhook"}, a.Channels())
	assert.NotNil(t, a.Watcher())
	assert.NotNil(t, a.Logger())
}

func TestFactory_InvalidLogLevel(t *testing.T) {
	cfg := testConfig("https://example.com", "https://hooks.example.com/x")
	cfg.Logging.Level = "loud"

	_, err := NewAppFactory().WithOutput(&bytes.Buffer{}).Create(cfg, "test")
	assert.Error(t, err)
}

func TestApp_RunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits int32
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		switch {
		case n <= 2:
			w.Write([]byte("original"))
		default:
			w.Write([]byte("updated"))
		}
		if n == 4 {
			cancel()
		}
	}))
	defer page.Close()

	sink := &webhookSink{}
	hook := httptest.NewServer(sink)
	defer hook.Close()

	cfg := testConfig(page.URL, hook.URL)
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	var logs bytes.Buffer

	a, err := NewAppFactory().WithOutput(&logs).WithClock(clk).Create(cfg, "test")
	require.NoError(t, err)

	require.NoError(t, a.Run(ctx), "cancellation is a clean stop")

	assert.Equal(t, []string{"vahti started", config.DefaultSubject}, sink.subjects())
	assert.Contains(t, logs.String(), "Initial pages captured")
	assert.Contains(t, logs.String(), "Watcher stopped")
	assert.Equal(t, []time.Duration{cfg.Interval(), cfg.Interval()}, clk.Sleeps())
}

func TestApp_RunStartupFailure(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer page.Close()

	cfg := testConfig(page.URL, "https://hooks.example.com/x")
	a, err := NewAppFactory().WithOutput(&bytes.Buffer{}).WithClock(clock.NewFake(time.Now())).Create(cfg, "test")
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 69, vahtierrors.GetExitCode(err))
}
