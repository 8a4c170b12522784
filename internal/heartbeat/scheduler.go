// Package heartbeat decides when the daily liveness message is due.
package heartbeat

import (
	"time"
)

// Scheduler allows at most one heartbeat per calendar date, and only once
// the local hour has reached the threshold. Dates are evaluated in the
// scheduler's location.
type Scheduler struct {
	hour     int
	loc      *time.Location
	lastSent string // YYYY-MM-DD, "" until the first successful send
}

// NewScheduler creates a Scheduler. A nil location means UTC.
func NewScheduler(hour int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{hour: hour, loc: loc}
}

// IsDue reports whether a heartbeat should be sent at now
func (s *Scheduler) IsDue(now time.Time) bool {
	local := now.In(s.loc)
	if local.Hour() < s.hour {
		return false
	}
	return s.lastSent != dateKey(local)
}

// MarkSent records a successful send. Call it only after delivery succeeded,
// so a failed send stays due.
func (s *Scheduler) MarkSent(now time.Time) {
	s.lastSent = dateKey(now.In(s.loc))
}

// LastSent returns the date of the last successful heartbeat, or "" if none
func (s *Scheduler) LastSent() string {
	return s.lastSent
}

// Hour returns the threshold hour
func (s *Scheduler) Hour() int {
	return s.hour
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
