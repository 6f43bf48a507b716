package eventloop

import (
	"testing"
	"time"
)

func TestLoop_New(t *testing.T) {
	l := New()
	if l == nil {
		t.Fatal("New returned nil")
	}
	if l.HasPendingTasks() {
		t.Error("new loop should have no pending tasks")
	}
}

func TestLoop_SetTimeout_Fires(t *testing.T) {
	l := New()
	fired := false
	l.SetTimeout(5*time.Millisecond, func() { fired = true })
	if !l.HasPendingTasks() {
		t.Error("should have pending tasks after SetTimeout")
	}
	deadline := time.Now().Add(200 * time.Millisecond)
	for !fired && time.Now().Before(deadline) {
		l.Tick()
		time.Sleep(time.Millisecond)
	}
	if !fired {
		t.Fatal("timer never fired")
	}
	if l.HasPendingTasks() {
		t.Error("one-shot timer should not leave pending tasks after firing")
	}
}

func TestLoop_ClearTimer_PreventsFiring(t *testing.T) {
	l := New()
	fired := false
	timer := l.SetTimeout(5*time.Millisecond, func() { fired = true })
	l.ClearTimer(timer.ID)
	time.Sleep(20 * time.Millisecond)
	l.Tick()
	if fired {
		t.Error("cleared timer should not fire")
	}
}

func TestLoop_SetInterval_RepeatsAndClears(t *testing.T) {
	l := New()
	count := 0
	var timer *Timer
	timer = l.SetInterval(2*time.Millisecond, func() {
		count++
		if count >= 3 {
			l.ClearTimer(timer.ID)
		}
	})
	deadline := time.Now().Add(200 * time.Millisecond)
	for count < 3 && time.Now().Before(deadline) {
		l.Tick()
		time.Sleep(time.Millisecond)
	}
	if count < 3 {
		t.Fatalf("interval fired %d times, want at least 3", count)
	}
}

func TestLoop_NestingClamp_ClampsShortDelay(t *testing.T) {
	l := New()
	l.nestingLevel = timerNestingClampDepth // simulate being deep inside nested timer callbacks
	timer := l.schedule(time.Millisecond, 0, func() {})
	if time.Until(timer.deadline) < timerNestingClampDelay-time.Millisecond {
		t.Errorf("delay not clamped at nesting depth %d: deadline in %v, want >= ~%v", l.nestingLevel, time.Until(timer.deadline), timerNestingClampDelay)
	}
}

func TestLoop_DrainMicrotasks_RunsNestedEnqueues(t *testing.T) {
	l := New()
	order := []int{}
	l.EnqueueMicrotask(func() {
		order = append(order, 1)
		l.EnqueueMicrotask(func() { order = append(order, 2) })
	})
	l.DrainMicrotasks()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("microtask order = %v, want [1 2]", order)
	}
}

func TestLoop_RunImmediates_FIFO(t *testing.T) {
	l := New()
	var order []int
	l.SetImmediate(func() { order = append(order, 1) })
	l.SetImmediate(func() { order = append(order, 2) })
	l.RunImmediates()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("immediate order = %v, want [1 2]", order)
	}
}

func TestLoop_Unref_DoesNotCountAsPending(t *testing.T) {
	l := New()
	timer := l.SetTimeout(time.Hour, func() {})
	timer.Unref()
	if l.HasPendingTasks() {
		t.Error("unrefed timer should not count as a pending task")
	}
}

func TestLoop_PendingAsyncOps(t *testing.T) {
	l := New()
	l.AddPendingAsyncOp()
	if !l.HasPendingTasks() {
		t.Error("pending async op should count as a pending task")
	}
	l.RemovePendingAsyncOp()
	if l.HasPendingTasks() {
		t.Error("pending task count should drop to zero after op completes")
	}
}
