// Package eventloop implements the cooperative single-threaded scheduler
// that drives timers, immediates, microtasks, and pending host I/O between
// VM suspensions (spec.md §4.4). Host I/O itself (HTTP accept, filesystem)
// may run on its own goroutines, but every callback it produces is only
// ever invoked on the loop's single "JS thread" goroutine.
package eventloop

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Callback is a JS-visible function invocation deferred to a tick of the
// loop. The interpreter-calling glue lives in the owning engine; the loop
// itself only schedules and fires opaque callbacks.
type Callback func()

// timerNestingClampDepth and timerNestingClampDelay implement the HTML5
// nesting clamp (spec.md §4.4, §8 testable property 3): a new timer's
// nesting level is the scheduling callback's depth + 1, and a timer whose
// level exceeds 5 (i.e. one scheduled from a callback at depth 5 or more)
// is clamped to a minimum 4ms delay regardless of the requested delay.
const (
	timerNestingClampDepth = 5
	timerNestingClampDelay = 4 * time.Millisecond
)

// Timer mirrors spec.md §3.3's Timer record: identity, deadline, optional
// repeat interval, cancellation/ref flags are atomic so a callback can
// safely inspect its own timer's state mid-fire, and the nesting level it
// was scheduled at.
type Timer struct {
	ID           uint64
	DebugID      string // stable uuid for debug_snapshot() / async-op tracing
	deadline     time.Time
	interval     time.Duration
	callback     Callback
	cancelled    atomic.Bool
	refed        atomic.Bool
	nestingLevel int
}

// Immediate mirrors spec.md §3.3's Immediate record: FIFO, no deadline.
type Immediate struct {
	ID        uint64
	DebugID   string
	callback  Callback
	cancelled atomic.Bool
	refed     atomic.Bool
}

// timerHeap is a min-heap over Timer entries ordered by deadline. Stale
// entries (cancelled, or superseded by a reschedule) are filtered on pop
// rather than removed from the heap eagerly, per spec.md §3.3.
type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)         { *h = append(*h, x.(*Timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Loop is the single-runtime event loop: timer heap, immediate FIFO,
// microtask and job queues, and a pending-async-op counter for
// has_pending_tasks (spec.md §4.4, §3.3).
type Loop struct {
	mu sync.Mutex

	timers     timerHeap
	byID       map[uint64]*Timer
	immediates []*Immediate
	nextID     uint64

	microtasks []Callback
	jobs       []Callback

	pendingAsyncOps int64 // atomic, counts refed in-flight host ops (fetch, fs, etc.)

	nestingLevel int // current timer-callback nesting depth; 0 when idle

	start time.Time // for performance.now()
}

// New creates an empty Loop.
func New() *Loop {
	return &Loop{
		byID:  make(map[uint64]*Timer),
		start: monotonicNow(),
	}
}

func monotonicNow() time.Time { return time.Now() }

// Now returns milliseconds since the loop was created, backing
// performance.now() (the otter package's New wires this into
// internal/intrinsics via Runtime.SetClock).
func (l *Loop) Now() float64 {
	return float64(monotonicNow().Sub(l.start)) / float64(time.Millisecond)
}

// SetTimeout schedules a one-shot timer, clamping the delay per the HTML5
// nesting rule when called from inside a deeply-nested timer callback.
func (l *Loop) SetTimeout(delay time.Duration, cb Callback) *Timer {
	return l.schedule(delay, 0, cb)
}

// SetInterval schedules a repeating timer; interval is clamped to a 1ms
// floor the same way the teacher's RegisterTimer clamps to 10ms, adapted
// down since this loop's resolution is the Go timer's, not a worker pool
// tick.
func (l *Loop) SetInterval(delay time.Duration, cb Callback) *Timer {
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return l.schedule(delay, delay, cb)
}

func (l *Loop) schedule(delay, interval time.Duration, cb Callback) *Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	level := l.nestingLevel + 1
	if level > timerNestingClampDepth && delay < timerNestingClampDelay {
		delay = timerNestingClampDelay
	}
	l.nextID++
	t := &Timer{
		ID:           l.nextID,
		DebugID:      uuid.NewString(),
		deadline:     monotonicNow().Add(delay),
		interval:     interval,
		callback:     cb,
		nestingLevel: level,
	}
	t.refed.Store(true)
	l.byID[t.ID] = t
	heap.Push(&l.timers, t)
	return t
}

// ClearTimer cancels a timer or interval. A timer cancelled from within its
// own callback is still observed as cancelled afterward and is not
// rescheduled (spec.md §4.4 "Refed/unrefed").
func (l *Loop) ClearTimer(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.byID[id]; ok {
		t.cancelled.Store(true)
		delete(l.byID, id)
	}
}

// SetImmediate enqueues a FIFO immediate callback.
func (l *Loop) SetImmediate(cb Callback) *Immediate {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	im := &Immediate{ID: l.nextID, DebugID: uuid.NewString(), callback: cb}
	im.refed.Store(true)
	l.immediates = append(l.immediates, im)
	return im
}

func (l *Loop) ClearImmediate(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, im := range l.immediates {
		if im.ID == id {
			im.cancelled.Store(true)
		}
	}
}

// Unref marks a timer/immediate as not keeping the loop alive.
func (t *Timer) Unref()     { t.refed.Store(false) }
func (t *Timer) Ref()       { t.refed.Store(true) }
func (im *Immediate) Unref() { im.refed.Store(false) }
func (im *Immediate) Ref()   { im.refed.Store(true) }

// EnqueueMicrotask adds a microtask (promise reaction) to the microtask
// queue, drained to empty before any timer/immediate/IO dispatch runs
// (spec.md §4.4 step 3).
func (l *Loop) EnqueueMicrotask(cb Callback) {
	l.mu.Lock()
	l.microtasks = append(l.microtasks, cb)
	l.mu.Unlock()
}

// EnqueueJob adds a JS job (spec.md §3.3 "Job — a JS callable enqueued via
// the job queue, executed during microtask draining"); jobs and
// microtasks drain together, FIFO, in enqueue order relative to each
// other's queue.
func (l *Loop) EnqueueJob(cb Callback) {
	l.mu.Lock()
	l.jobs = append(l.jobs, cb)
	l.mu.Unlock()
}

// DrainMicrotasks runs every queued microtask and job to a fixed point: a
// microtask enqueuing another microtask extends the same drain
// (spec.md §4.4 "Ordering guarantees" and §8 testable property 5).
func (l *Loop) DrainMicrotasks() {
	for {
		l.mu.Lock()
		if len(l.microtasks) == 0 && len(l.jobs) == 0 {
			l.mu.Unlock()
			return
		}
		mts := l.microtasks
		jobs := l.jobs
		l.microtasks = nil
		l.jobs = nil
		l.mu.Unlock()

		for _, cb := range mts {
			cb()
		}
		for _, cb := range jobs {
			cb()
		}
	}
}

// AddPendingAsyncOp/RemovePendingAsyncOp track in-flight host operations
// (fetch, fs, storage) for has_pending_tasks (spec.md §3.3).
func (l *Loop) AddPendingAsyncOp()    { atomic.AddInt64(&l.pendingAsyncOps, 1) }
func (l *Loop) RemovePendingAsyncOp() { atomic.AddInt64(&l.pendingAsyncOps, -1) }

// HasPendingTasks reports whether the loop must keep running: any refed,
// uncancelled timer or immediate, any pending refed async op, or any
// queued microtask/job (spec.md §8 testable property 7).
func (l *Loop) HasPendingTasks() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.microtasks) > 0 || len(l.jobs) > 0 {
		return true
	}
	for _, im := range l.immediates {
		if !im.cancelled.Load() && im.refed.Load() {
			return true
		}
	}
	for _, t := range l.byID {
		if !t.cancelled.Load() && t.refed.Load() {
			return true
		}
	}
	return atomic.LoadInt64(&l.pendingAsyncOps) > 0
}

// RunReadyTimers pops every timer whose deadline has passed and is not
// stale, invoking each (spec.md §4.4 step 4); microtasks are drained after
// each individual timer fires, not just once at the end, since a timer's
// callback may schedule work a later timer in the same pass depends on.
func (l *Loop) RunReadyTimers() {
	now := monotonicNow()
	for {
		l.mu.Lock()
		if l.timers.Len() == 0 {
			l.mu.Unlock()
			return
		}
		next := l.timers[0]
		if next.deadline.After(now) {
			l.mu.Unlock()
			return
		}
		heap.Pop(&l.timers)
		if next.cancelled.Load() {
			l.mu.Unlock()
			continue
		}
		if _, stillCurrent := l.byID[next.ID]; !stillCurrent {
			l.mu.Unlock()
			continue
		}
		prevLevel := l.nestingLevel
		l.nestingLevel = next.nestingLevel
		if next.interval > 0 {
			next.deadline = now.Add(next.interval)
			heap.Push(&l.timers, next)
		} else {
			delete(l.byID, next.ID)
		}
		l.mu.Unlock()

		next.callback()
		l.DrainMicrotasks()

		l.mu.Lock()
		l.nestingLevel = prevLevel
		l.mu.Unlock()
	}
}

// RunImmediates runs one FIFO pass over currently-queued immediates
// (spec.md §4.4 step 5); immediates scheduled during this pass run on the
// next tick, not this one.
func (l *Loop) RunImmediates() {
	l.mu.Lock()
	batch := l.immediates
	l.immediates = nil
	l.mu.Unlock()

	for _, im := range batch {
		if im.cancelled.Load() {
			continue
		}
		im.callback()
		l.DrainMicrotasks()
	}
}

// NextDeadline returns the earliest pending timer deadline, if any, used
// by the owning runtime to size its poll/sleep between ticks.
func (l *Loop) NextDeadline() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.cancelled.Load() {
			heap.Pop(&l.timers)
			continue
		}
		return t.deadline, true
	}
	return time.Time{}, false
}

// Tick runs one full pass: drain microtasks, run ready timers (which
// themselves drain microtasks per-fire), run one immediates pass
// (spec.md §4.4 steps 3-5). There is no separate host I/O (HTTP/WS)
// dispatch step: host work reaches the loop only as jobs or microtasks
// (the otter package's async extension ops complete through EnqueueJob).
func (l *Loop) Tick() {
	l.DrainMicrotasks()
	l.RunReadyTimers()
	l.RunImmediates()
}
