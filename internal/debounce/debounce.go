// Package debounce coalesces rapid triggers into one delayed action.
//
// Every Trigger invalidates the pending token and schedules a new one, so only the
// last action scheduled within the quiet period runs. Timers come from a Scheduler so
// hosts and tests can substitute their own clock.
package debounce

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently triggered action once the delay passes without
// another trigger
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	sched   Scheduler
	token   uint64
	timer   Timer
	pending func()
}

// New creates a Debouncer. A nil scheduler uses the runtime timer.
func New(delay time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Debouncer{delay: delay, sched: sched}
}

// Delay returns the quiet period
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger cancels any pending action and schedules f
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.token++
	token := d.token
	d.pending = f
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.fire(token)
	})
}

// fire runs the pending action if token is still current. A timer that could not be
// stopped in time finds a newer token and does nothing.
func (d *Debouncer) fire(token uint64) {
	d.mu.Lock()
	if token != d.token || d.pending == nil {
		d.mu.Unlock()
		return
	}
	f := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	f()
}

// Flush runs the pending action immediately. It reports whether anything ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.token++
	f := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	f()
	return true
}

// Cancel drops the pending action without running it
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.token++
	d.pending = nil
	d.timer = nil
}

// Pending reports whether an action is waiting to run
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
