// Package snapshot holds the last observed content of every watch target.
//
// Store is not safe for concurrent use. The watch loop is its only reader
// and writer.
package snapshot

import (
	"bytes"
	"time"
)

// Snapshot is the last observed content of one target
type Snapshot struct {
	Content    []byte
	ObservedAt time.Time
	ChangedAt  time.Time
}

// Store maps target to Snapshot
type Store struct {
	entries map[string]*Snapshot
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{entries: make(map[string]*Snapshot)}
}

// Get returns a copy of the stored content for target
func (s *Store) Get(target string) ([]byte, bool) {
	snap, ok := s.entries[target]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), snap.Content...), true
}

// Set overwrites the entry for target. The store keeps its own copy of content.
func (s *Store) Set(target string, content []byte, at time.Time) {
	s.entries[target] = &Snapshot{
		Content:    append([]byte(nil), content...),
		ObservedAt: at,
		ChangedAt:  at,
	}
}

// Observe compares content with the stored entry and overwrites it when they
// differ. It reports whether the target changed. A target without an entry
// counts as changed.
func (s *Store) Observe(target string, content []byte, at time.Time) bool {
	snap, ok := s.entries[target]
	if !ok {
		s.Set(target, content, at)
		return true
	}

	snap.ObservedAt = at
	if bytes.Equal(snap.Content, content) {
		return false
	}

	snap.Content = append([]byte(nil), content...)
	snap.ChangedAt = at
	return true
}

// Info returns the timestamps for target without exposing its content
func (s *Store) Info(target string) (observedAt, changedAt time.Time, ok bool) {
	snap, ok := s.entries[target]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return snap.ObservedAt, snap.ChangedAt, true
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}
