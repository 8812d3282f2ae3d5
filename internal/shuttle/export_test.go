package shuttle

import (
	"sync"
	"time"
)

// FakeClock drives the idle timer by hand
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) afterFunc(d time.Duration, f func()) stopTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every timer that came due,
// including ones that were already stopped when fireStopped is set.
func (c *FakeClock) advance(d time.Duration, fireStopped bool) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.at.After(c.now) {
			kept = append(kept, t)
			continue
		}
		if !t.stopped || fireStopped {
			t.stopped = true
			due = append(due, t.f)
		}
	}
	c.timers = kept
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

func (c *FakeClock) Advance(d time.Duration) { c.advance(d, false) }

// AdvanceRacing also fires stopped timers, as a real timer can when Stop
// loses the race with an expiring AfterFunc.
func (c *FakeClock) AdvanceRacing(d time.Duration) { c.advance(d, true) }

// Pending counts scheduled timers that have neither fired nor been stopped
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func WithClock(c *FakeClock) Option {
	return func(s *Service) {
		s.after = c.afterFunc
		s.now = c.Now
	}
}
