// Package frame provides per-frame callbacks and one-shot timers, with
// manual implementations for deterministic tests.
package frame

import (
	"sync"
	"time"
)

// ID identifies a pending frame request.
type ID uint64

// Scheduler runs each requested callback once, on the next frame.
type Scheduler interface {
	Request(fn func(now time.Time)) ID
	Cancel(id ID)
}

type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func SystemClock() Clock { return systemClock{} }

type request struct {
	id        ID
	fn        func(time.Time)
	cancelled bool
}

// queue is the request bookkeeping shared by the ticker and manual
// schedulers.
type queue struct {
	mu      sync.Mutex
	next    ID
	pending []*request
	byID    map[ID]*request
}

func (q *queue) Request(fn func(now time.Time)) ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.byID == nil {
		q.byID = make(map[ID]*request)
	}
	q.next++
	r := &request{id: q.next, fn: fn}
	q.pending = append(q.pending, r)
	q.byID[r.id] = r
	return r.id
}

func (q *queue) Cancel(id ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.byID[id]; ok {
		r.cancelled = true
		delete(q.byID, id)
	}
}

// Pending is the number of callbacks waiting for the next frame.
func (q *queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byID)
}

// run fires the callbacks that were pending when it was called. Callbacks
// requested during the run wait for the next one.
func (q *queue) run(now time.Time) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, r := range batch {
		q.mu.Lock()
		skip := r.cancelled
		delete(q.byID, r.id)
		q.mu.Unlock()
		if !skip {
			r.fn(now)
		}
	}
}

// TickerScheduler fires frames at a fixed rate from its own goroutine.
type TickerScheduler struct {
	queue
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewTickerScheduler starts a scheduler running rate frames per second.
func NewTickerScheduler(rate int) *TickerScheduler {
	if rate <= 0 {
		rate = 60
	}
	s := &TickerScheduler{
		ticker: time.NewTicker(time.Second / time.Duration(rate)),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *TickerScheduler) loop() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.ticker.C:
			s.run(now)
		}
	}
}

func (s *TickerScheduler) Close() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

// Loop re-requests fn on every frame until stopped.
type Loop struct {
	s  Scheduler
	fn func(now time.Time)

	mu      sync.Mutex
	id      ID
	stopped bool
}

// Start schedules fn for the next frame and every frame after it. The
// returned handle is the only way to end the loop.
func Start(s Scheduler, fn func(now time.Time)) *Loop {
	l := &Loop{s: s, fn: fn}
	l.mu.Lock()
	l.id = s.Request(l.tick)
	l.mu.Unlock()
	return l
}

func (l *Loop) tick(now time.Time) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.fn(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stopped {
		l.id = l.s.Request(l.tick)
	}
}

// Stop cancels the pending frame. A tick already running completes but does
// not reschedule. Safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.s.Cancel(l.id)
}
