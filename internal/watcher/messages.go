package watcher

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

func changeMessage(subject string, changed []string) (string, string) {
	var sb strings.Builder
	sb.WriteString("The following pages have changed:\n\n")
	for _, target := range changed {
		sb.WriteString("- ")
		sb.WriteString(target)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCheck them immediately!")
	return subject, sb.String()
}

func heartbeatMessage(now time.Time, targets int, interval time.Duration) (string, string) {
	subject := "vahti heartbeat: still watching"
	body := fmt.Sprintf("vahti is running.\n\nTime: %s\nWatched targets: %d\nCheck interval: %s\n",
		now.Format("2006-01-02 15:04:05 MST"), targets, interval)
	return subject, body
}

func deploymentMessage(now time.Time, targets []string, interval time.Duration) (string, string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vahti started at %s and is watching %d targets every %s:\n\n",
		now.Format("2006-01-02 15:04:05 MST"), len(targets), interval)
	for _, target := range targets {
		sb.WriteString("- ")
		sb.WriteString(target)
		sb.WriteString("\n")
	}
	return "vahti started", sb.String()
}

// preview flattens whitespace and cuts content to at most n runes for log lines
func preview(content []byte, n int) string {
	flat := strings.Join(strings.Fields(string(content)), " ")
	if utf8.RuneCountInString(flat) <= n {
		return flat
	}

	runes := []rune(flat)
	return string(runes[:n]) + "..."
}
