package frame

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler fires a frame only when Frame is called.
type ManualScheduler struct {
	queue
	clock Clock
}

// NewManualScheduler stamps frames with clock's time, or the zero time when
// clock is nil.
func NewManualScheduler(clock Clock) *ManualScheduler {
	return &ManualScheduler{clock: clock}
}

func (s *ManualScheduler) Frame() {
	var now time.Time
	if s.clock != nil {
		now = s.clock.Now()
	}
	s.run(now)
}

// ManualClock is a Clock whose time only moves through Add.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Add advances the clock by d and fires every timer that came due, in
// deadline order. Timers run without the clock lock held.
func (c *ManualClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, rest []*manualTimer
	for _, t := range c.timers {
		if !t.at.After(c.now) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Timers is the number of timers not yet fired or stopped.
func (c *ManualClock) Timers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	fn    func()
}

func (t *manualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Run advances clock by total in steps of interval, firing one frame on s
// after each step.
func Run(c *ManualClock, s *ManualScheduler, total, interval time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += interval {
		step := min(interval, total-elapsed)
		c.Add(step)
		s.Frame()
	}
}
