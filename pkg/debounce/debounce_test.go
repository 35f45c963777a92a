package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBurstRunsOnce(t *testing.T) {
	clk := NewFakeClock(epoch)
	var runs int
	var ranAt time.Time
	d := New(300*time.Millisecond, func() {
		runs++
		ranAt = clk.Now()
	}, WithClock(clk))

	// Five keystrokes, 50ms apart: all inside 200ms.
	for i := 0; i < 5; i++ {
		if i > 0 {
			clk.Advance(50 * time.Millisecond)
		}
		d.Trigger()
	}
	last := clk.Now()

	clk.Advance(299 * time.Millisecond)
	if runs != 0 {
		t.Fatalf("ran %d times before the quiet period ended", runs)
	}
	clk.Advance(time.Millisecond)
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	if got := ranAt.Sub(last); got != 300*time.Millisecond {
		t.Errorf("ran %v after last keystroke, want 300ms", got)
	}

	clk.Advance(time.Second)
	if runs != 1 {
		t.Errorf("runs = %d after idle second, want 1", runs)
	}
	if d.Runs() != 1 {
		t.Errorf("Runs() = %d, want 1", d.Runs())
	}
}

func TestStateTransitions(t *testing.T) {
	clk := NewFakeClock(epoch)
	d := New(400*time.Millisecond, func() {}, WithClock(clk))

	if s, _ := d.State(); s != Idle {
		t.Fatalf("initial state = %v, want idle", s)
	}

	d.Trigger()
	s, deadline := d.State()
	if s != Pending || !deadline.Equal(epoch.Add(400*time.Millisecond)) {
		t.Fatalf("after Trigger: %v %v", s, deadline)
	}

	clk.Advance(100 * time.Millisecond)
	d.Trigger()
	if _, deadline := d.State(); !deadline.Equal(epoch.Add(500 * time.Millisecond)) {
		t.Errorf("deadline not reset: %v", deadline)
	}
	if clk.Pending() != 1 {
		t.Errorf("live timers = %d, want 1 (old timer cancelled)", clk.Pending())
	}

	clk.Advance(400 * time.Millisecond)
	if s, dl := d.State(); s != Idle || !dl.IsZero() {
		t.Errorf("after fire: %v %v, want idle", s, dl)
	}
}

func TestCancel(t *testing.T) {
	clk := NewFakeClock(epoch)
	var runs int
	d := New(300*time.Millisecond, func() { runs++ }, WithClock(clk))

	if d.Cancel() {
		t.Error("Cancel on idle reported a pending run")
	}
	d.Trigger()
	if !d.Cancel() {
		t.Error("Cancel on pending reported nothing pending")
	}
	clk.Advance(time.Second)
	if runs != 0 {
		t.Errorf("runs = %d after Cancel, want 0", runs)
	}

	// Still usable after Cancel.
	d.Trigger()
	clk.Advance(time.Second)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestStopIsTeardown(t *testing.T) {
	clk := NewFakeClock(epoch)
	var runs int
	d := New(300*time.Millisecond, func() { runs++ }, WithClock(clk))

	d.Trigger()
	d.Stop()
	clk.Advance(time.Second)
	if runs != 0 {
		t.Errorf("action ran after Stop")
	}
	if d.Trigger() {
		t.Error("Trigger after Stop should report false")
	}
	clk.Advance(time.Second)
	if runs != 0 {
		t.Errorf("action ran after Stop")
	}
}

func TestFlush(t *testing.T) {
	clk := NewFakeClock(epoch)
	var runs int
	d := New(300*time.Millisecond, func() { runs++ }, WithClock(clk))

	if d.Flush() {
		t.Error("Flush on idle ran the action")
	}
	d.Trigger()
	if !d.Flush() {
		t.Error("Flush on pending did not run")
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	clk.Advance(time.Second)
	if runs != 1 {
		t.Errorf("cancelled timer still fired: runs = %d", runs)
	}
}

func TestStaleTimerIgnored(t *testing.T) {
	clk := NewFakeClock(epoch)
	var runs int
	d := New(300*time.Millisecond, func() { runs++ }, WithClock(clk))

	d.Trigger()
	stale := d.gen
	d.Trigger()
	d.fire(stale)
	if runs != 0 {
		t.Errorf("stale fire ran the action")
	}
	clk.Advance(300 * time.Millisecond)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestRealClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	done := make(chan struct{}, 1)
	d := New(100*time.Millisecond, func() {
		runs.Add(1)
		done <- struct{}{}
	})

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced action never ran")
	}
	time.Sleep(150 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
	d.Stop()
}

func TestStopBeforeRealFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	d := New(10*time.Millisecond, func() { runs.Add(1) })
	d.Trigger()
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("action ran after Stop")
	}
}
