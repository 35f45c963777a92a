// Package debounce coalesces bursts of triggers into a single deferred run.
//
// A Debouncer is a two-state machine:
//
//	Idle --Trigger--> Pending(deadline)
//	Pending --Trigger--> Pending(new deadline)   (old timer cancelled)
//	Pending --timer fires--> Idle                (action runs once)
//	Pending --Cancel--> Idle                     (action dropped)
//	any --Stop--> stopped                        (further triggers ignored)
//
// Timers come from a Clock so tests can drive time by hand.
package debounce

import (
	"sync"
	"time"
)

// State is the debouncer's scheduling state.
type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred calls.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock backed by time.AfterFunc.
var RealClock Clock = realClock{}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(d *Debouncer) { d.clock = c }
}

// Debouncer defers action until no Trigger has arrived for delay.
type Debouncer struct {
	mu       sync.Mutex
	clock    Clock
	delay    time.Duration
	action   func()
	state    State
	deadline time.Time
	timer    Timer
	gen      uint64
	stopped  bool
	runs     uint64
}

// New returns an idle Debouncer that runs action delay after the last Trigger.
func New(delay time.Duration, action func(), opts ...Option) *Debouncer {
	d := &Debouncer{
		clock:  RealClock,
		delay:  delay,
		action: action,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Trigger records new input. A pending run is cancelled and rescheduled
// delay from now. It returns false once the debouncer is stopped.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.state = Pending
	d.deadline = d.clock.Now().Add(d.delay)
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
	return true
}

// Cancel drops a pending run. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop cancels any pending run and makes further Triggers no-ops. Call it on
// teardown so the action never runs after its consumer is gone.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Flush runs a pending action now instead of waiting for the deadline. It
// reports whether anything ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.state != Pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.runs++
	d.mu.Unlock()
	d.action()
	return true
}

// State returns the current state and, when pending, the deadline.
func (d *Debouncer) State() (State, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.deadline
}

// Runs counts how many times the action has been started.
func (d *Debouncer) Runs() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

func (d *Debouncer) cancelLocked() bool {
	if d.state != Pending {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.state = Idle
	d.deadline = time.Time{}
	return true
}

// fire runs the action if gen is still the latest schedule. A timer that
// lost a race with Trigger or Cancel sees a newer generation and does
// nothing.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || d.state != Pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.state = Idle
	d.deadline = time.Time{}
	d.timer = nil
	d.runs++
	d.mu.Unlock()
	d.action()
}
