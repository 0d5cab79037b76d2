package service

import (
	"sync"
	"time"
)

// sessionWindow is the default casting window for in-process runs.
const sessionWindow = 24 * time.Hour

// ElectionSession is the time window in which votes may be cast. A session
// can be scheduled to open later, so casting is refused both before the polls
// open and after they close; validation and combining are unaffected, since
// those phases run on shares that already exist.
type ElectionSession struct {
	opensAt  time.Time
	closesAt time.Time
	closed   bool
	mu       sync.RWMutex
}

// NewElectionSession opens the polls immediately for the given duration.
func NewElectionSession(duration time.Duration) *ElectionSession {
	return NewScheduledSession(time.Now(), duration)
}

// NewScheduledSession opens the polls at opensAt for the given duration.
func NewScheduledSession(opensAt time.Time, duration time.Duration) *ElectionSession {
	return &ElectionSession{
		opensAt:  opensAt,
		closesAt: opensAt.Add(duration),
	}
}

func (s *ElectionSession) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	return !s.closed && !now.Before(s.opensAt) && now.Before(s.closesAt)
}

// Remaining reports how long the polls stay open. Zero before the scheduled
// opening and after the close.
func (s *ElectionSession) Remaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	now := time.Now()
	if now.Before(s.opensAt) || !now.Before(s.closesAt) {
		return 0
	}
	return s.closesAt.Sub(now)
}

// End closes the polls early, whatever the schedule says.
func (s *ElectionSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
