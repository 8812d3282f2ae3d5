package shuttle

import (
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long a Service stays up without calls
const DefaultIdleTimeout = 10 * time.Second

// State is the lifecycle state of a Service
type State int

const (
	StateActive State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stopTimer is the part of *time.Timer the idle lifecycle needs
type stopTimer interface {
	Stop() bool
}

// afterFunc schedules f after d
type afterFunc func(d time.Duration, f func()) stopTimer

func realAfterFunc(d time.Duration, f func()) stopTimer {
	return time.AfterFunc(d, f)
}

// renewLocked cancels the pending stop and schedules a new one.
// Caller holds s.mu.
func (s *Service) renewLocked() error {
	if s.state == StateStopped {
		return ErrStopped
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.deadline = s.now().Add(s.timeout)
	s.timer = s.after(s.timeout, func() { s.expire(gen) })
	return nil
}

// expire runs when a scheduled stop fires. A firing whose generation was
// superseded by a later renewal is ignored.
func (s *Service) expire(gen uint64) {
	s.mu.Lock()
	if s.state != StateActive || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.timer = nil
	s.mu.Unlock()

	s.log.Info("Shuttle idle, stopping", zap.Duration("timeout", s.timeout))
	s.metrics.InstanceStopped(true)

	// Owner runs without s.mu so it may call back into the Service
	if s.owner != nil {
		s.owner.NotifyShuttleStopped()
	}
}

// Close stops the Service without notifying the owner. It is used when the
// host tears the service down itself.
func (s *Service) Close() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.log.Info("Shuttle closed")
	s.metrics.InstanceStopped(false)
}

// State returns the current lifecycle state
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Deadline returns when the Service stops unless another call arrives.
// It is the zero time once stopped.
func (s *Service) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return time.Time{}
	}
	return s.deadline
}

// Timeout returns the configured idle timeout
func (s *Service) Timeout() time.Duration {
	return s.timeout
}
