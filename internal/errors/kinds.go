package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
)

// ConfigError creates a configuration error with guidance
func ConfigError(format string, args ...interface{}) *VahtiError {
	return New(ErrorTypeConfiguration, fmt.Sprintf(format, args...)).
		WithSolutions(
			"Check the config file passed with --config (or ./vahti.yaml)",
			"Environment variables use the VAHTI_ prefix, e.g. VAHTI_SMTP_HOST",
		).
		WithHelp("vahti check-config")
}

// StartupFetchError wraps a failed initial capture. Without a baseline for
// every target the watcher cannot tell changes apart, so this is fatal.
func StartupFetchError(target string, err error) *VahtiError {
	vErr := Wrap(ErrorTypeStartup, err, "initial capture failed").WithTarget(target)

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		vErr.WithCause("request timed out")
		vErr.WithSolutions("Raise fetch_timeout_seconds or check that the site is up")
	case isDNSError(err):
		vErr.WithCause("host could not be resolved")
		vErr.WithSolutions("Check the target URL for typos")
	default:
		vErr.WithSolutions(
			"Open the URL in a browser to confirm it is reachable",
			"Remove the target from the config if it is no longer needed",
		)
	}

	return vErr.WithHelp("vahti check-config")
}

// FetchError wraps a per-cycle fetch failure for one target
func FetchError(target string, err error) *VahtiError {
	vErr := Wrap(ErrorTypeFetch, err, "fetch failed").WithTarget(target)
	if stderrors.Is(err, context.DeadlineExceeded) {
		vErr.WithCause("request timed out")
	}
	return vErr
}

// DeliveryError wraps a failed notification send on one channel
func DeliveryError(channel string, err error) *VahtiError {
	return Wrap(ErrorTypeDelivery, err, "notification not delivered").WithTarget(channel)
}

// IterationError wraps anything that escaped a loop iteration, including
// recovered panics.
func IterationError(recovered interface{}) *VahtiError {
	if err, ok := recovered.(error); ok {
		return Wrap(ErrorTypeIteration, err, "iteration aborted")
	}
	return New(ErrorTypeIteration, "iteration aborted").WithCause(fmt.Sprint(recovered))
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	return strings.Contains(err.Error(), "no such host")
}
