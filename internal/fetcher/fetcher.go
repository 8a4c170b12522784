// Package fetcher retrieves the full current content of a watch target.
//
// Targets are URLs. http and https are fetched with a plain GET, s3://,
// gs:// and azblob:// read a single object from the matching cloud storage
// service, k8s:// reads a ConfigMap. The Router picks the backend from the
// URL scheme.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
)

// ErrTooLarge is returned when content exceeds the configured size cap.
// Truncated content would hide changes past the cap, so it is never returned.
var ErrTooLarge = errors.New("content too large")

// Fetcher returns the full content of a target or an error. Implementations
// must honour ctx cancellation and deadlines.
type Fetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, target string) ([]byte, error)

func (f Func) Fetch(ctx context.Context, target string) ([]byte, error) {
	return f(ctx, target)
}

// Factory builds a Fetcher on first use. Cloud backends resolve credentials
// here, so a configuration without such targets never touches them.
type Factory func(ctx context.Context) (Fetcher, error)

// Router dispatches on URL scheme.
type Router struct {
	mu        sync.Mutex
	factories map[string]Factory
	fetchers  map[string]Fetcher
}

// NewRouter creates an empty Router
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]Factory),
		fetchers:  make(map[string]Fetcher),
	}
}

// Handle registers a ready Fetcher for the given schemes
func (r *Router) Handle(f Fetcher, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scheme := range schemes {
		r.fetchers[scheme] = f
	}
}

// HandleLazy registers a Factory for a scheme. A failed build is retried on
// the next Fetch for that scheme.
func (r *Router) HandleLazy(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = factory
}

// Fetch implements Fetcher
func (r *Router) Fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}

	f, err := r.fetcherFor(ctx, u.Scheme)
	if err != nil {
		return nil, err
	}

	return f.Fetch(ctx, target)
}

func (r *Router) fetcherFor(ctx context.Context, scheme string) (Fetcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.fetchers[scheme]; ok {
		return f, nil
	}

	factory, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("no fetcher for scheme %q", scheme)
	}

	f, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("init %s fetcher: %w", scheme, err)
	}
	r.fetchers[scheme] = f

	return f, nil
}

// readLimited reads all of r, failing with ErrTooLarge once more than max
// bytes arrive.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("response exceeds %d bytes: %w", max, ErrTooLarge)
	}
	return body, nil
}

// splitObjectURL turns s3://bucket/path/key into bucket and key.
func splitObjectURL(target string) (bucket, key string, err error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("parse target: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("target %q has no bucket", target)
	}

	key = u.Path
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	if key == "" {
		return "", "", fmt.Errorf("target %q has no object key", target)
	}

	return u.Host, key, nil
}
