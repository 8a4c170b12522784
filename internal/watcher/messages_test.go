package watcher

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChangeMessage(t *testing.T) {
	subject, body := changeMessage("Watched page update", []string{targetA, targetB})

	assert.Equal(t, "Watched page update", subject)
	assert.Equal(t, "The following pages have changed:\n\n- "+targetA+"\n- "+targetB+"\n\nCheck them immediately!", body)
}

func TestHeartbeatMessage(t *testing.T) {
	now := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	subject, body := heartbeatMessage(now, 3, 5*time.Minute)

	assert.Equal(t, "vahti heartbeat: still watching", subject)
	assert.Contains(t, body, "Time: 2026-05-01 07:00:00 UTC\n")
	assert.Contains(t, body, "Watched targets: 3\n")
	assert.Contains(t, body, "Check interval: 5m0s\n")
}

func TestHeartbeatMessage_LocalZone(t *testing.T) {
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		t.Skip("tzdata not available")
	}
	_, body := heartbeatMessage(time.Date(2026, 1, 15, 7, 0, 0, 0, helsinki), 1, time.Hour)

	assert.Contains(t, body, "Time: 2026-01-15 07:00:00 EET")
	assert.Contains(t, body, "Check interval: 1h0m0s")
}

func TestDeploymentMessage(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)
	subject, body := deploymentMessage(now, []string{targetA}, 5*time.Minute)

	assert.Equal(t, "vahti started", subject)
	assert.True(t, strings.HasPrefix(body, "vahti started at 2026-05-01 12:30:00 UTC and is watching 1 targets every 5m0s"))
	assert.Contains(t, body, "- "+targetA+"\n")
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    string
	}{
		{"short", "hello", 10, "hello"},
		{"whitespace flattened", "a\n\n  b\tc", 10, "a b c"},
		{"truncated", "abcdefghij", 4, "abcd..."},
		{"multibyte", "äöåäöå", 3, "äöå..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview([]byte(tt.content), tt.n))
		})
	}
}
