// Package otter is the embeddable JavaScript runtime described by
// spec.md: a register-based bytecode VM (internal/vm) driven by a
// cooperative event loop (internal/eventloop), with semantics supplied
// by internal/intrinsics and native capabilities exposed through
// internal/extension. Runtime is the single-script façade; Engine pools
// Runtimes the way the teacher's Engine pools QuickJS VMs per site.
package otter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/otterjs/otter/internal/bytecode"
	"github.com/otterjs/otter/internal/compiler"
	"github.com/otterjs/otter/internal/eventloop"
	"github.com/otterjs/otter/internal/extension"
	"github.com/otterjs/otter/internal/hostops"
	"github.com/otterjs/otter/internal/intrinsics"
	"github.com/otterjs/otter/internal/value"
	"github.com/otterjs/otter/internal/vm"
)

// Runtime is one JS execution environment: one global object, one
// bytecode interpreter, one event loop, one capability bundle. Not safe
// for concurrent use — matches spec.md §5's single-threaded-VM model.
type Runtime struct {
	config Config
	rt     *intrinsics.Runtime
	interp *vm.Interpreter
	loop   *eventloop.Loop
	caps   Capabilities

	// interrupted is the atomic interrupt flag spec.md §5/§6.1 mandates: a
	// host watchdog goroutine (or Interrupt(), called from any goroutine)
	// sets it while the VM dispatch loop polls it every
	// vm.interruptPollInterval instructions, so it must be race-free
	// without a lock.
	interrupted atomic.Bool
	timerProto  *value.Object
	awaitStates map[*value.Object]*awaitState
	extensions  *extension.Registry

	wsMu    sync.Mutex
	wsConns map[string]*hostops.Conn
}

// Config bundles the knobs a single Runtime is constructed with.
type Config struct {
	Capabilities Capabilities
	EngineConfig EngineConfig

	// DataDir is where host ops that need durable local state (the
	// gorm/sqlite-backed storage op category, spec.md §4.6 "Other ops...
	// behind capability checks") keep their files. Defaults to an
	// os.TempDir subdirectory when empty.
	DataDir string
}

// New constructs a Runtime with a fresh global object and event loop. The
// capability bundle defaults to NoCapabilities() until cfg.Capabilities
// is set.
func New(cfg Config) *Runtime {
	r := &Runtime{
		config: cfg,
		rt:     intrinsics.New(),
		loop:   eventloop.New(),
		caps:   cfg.Capabilities,
	}
	r.interp = vm.New(r.rt)
	r.interp.SetInterruptFlag(&r.interrupted)
	r.rt.SetClock(r.loop.Now)
	r.rt.SetCallbackInvoker(r.invokeCallback)
	r.rt.SetMicrotaskEnqueuer(func(cb func()) { r.loop.EnqueueMicrotask(cb) })
	r.installTimers()
	if err := r.RegisterExtension(r.hostExtension()); err != nil {
		// The host extension's JS preamble is static and controlled by
		// this package, never script input, so a failure here means a
		// bug in otter itself, not a misbehaving script — panicking
		// matches how the teacher's setupKV/setupStorage treat a failed
		// registerGoFunc during VM construction (returned up as a fatal
		// pool-creation error rather than something eval-time code deals with).
		panic(fmt.Sprintf("otter: installing host extension: %v", err))
	}
	return r
}

// Capabilities returns the bundle this Runtime was constructed with.
func (r *Runtime) Capabilities() Capabilities { return r.caps }

// Loop exposes the underlying event loop so embedders can schedule
// timers, microtasks, and I/O completions against it; no package in this
// module calls it.
func (r *Runtime) Loop() *eventloop.Loop { return r.loop }

// Global returns the runtime's global object, for extension installers
// to add host ops to.
func (r *Runtime) Global() *value.Object { return r.rt.Global() }

// Intrinsics returns the underlying vm.Host implementation, giving
// embedders direct access to GetProp/Call/etc.
func (r *Runtime) Intrinsics() *intrinsics.Runtime { return r.rt }

// Interrupt requests that the currently running (or next) eval stop at
// its next safe point: spec.md §5/§6.1's interrupt flag, polled by the VM
// dispatch loop every vm.interruptPollInterval instructions (so a tight
// `while (true) {}` aborts within that bound even with no await point),
// by the await-driving loop between event loop ticks, and by
// startWatchdog's wall-clock timer. Safe to call from any goroutine.
func (r *Runtime) Interrupt() { r.interrupted.Store(true) }

func (r *Runtime) clearInterrupt() { r.interrupted.Store(false) }

// compile parses and lowers src to bytecode, enforcing MaxScriptSizeKB.
func (r *Runtime) compile(src, sourceURL string) (*bytecode.Module, error) {
	limit := r.config.EngineConfig.MaxScriptSizeKB
	if limit > 0 && len(src) > limit*1024 {
		return nil, &CompileError{Message: fmt.Sprintf("script exceeds %d KB limit", limit)}
	}
	mod, err := compiler.Compile(src, sourceURL)
	if err != nil {
		if ce, ok := err.(*compiler.CompileError); ok {
			return nil, &CompileError{Line: ce.Line, Message: ce.Message, Cause: ce}
		}
		return nil, &CompileError{Message: err.Error(), Cause: err}
	}
	return mod, nil
}

// EvalSync compiles and runs src to completion, driving the event loop
// (timers/microtasks/immediates) until the script's top-level promise (if
// any) settles and no pending tasks remain, or ctx is done. It returns the
// completion value of the top-level script.
func (r *Runtime) EvalSync(ctx context.Context, src, sourceURL string) (value.Value, error) {
	r.clearInterrupt()
	defer r.startWatchdog()()
	mod, err := r.compile(src, sourceURL)
	if err != nil {
		return value.Undefined, err
	}
	r.rt.SetModule(mod)

	res := r.interp.RunFunction(mod.Main(), value.Undefined, nil, nil)
	result, err := r.drive(ctx, res)
	if err != nil {
		return value.Undefined, err
	}

	for r.loop.HasPendingTasks() {
		if r.interrupted.Load() {
			return result, r.interruptedErr()
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		next, ok := r.loop.NextDeadline()
		if ok {
			if d := time.Until(next); d > 0 {
				time.Sleep(minDuration(d, 5*time.Millisecond))
			}
		}
		r.loop.Tick()
	}
	return result, nil
}

// Eval compiles and runs src, but returns as soon as the top-level
// synchronous execution completes or suspends on its first await,
// without draining the event loop to completion — for embedders that
// drive the loop themselves (e.g. an HTTP server's request handler
// calling back into a long-lived Runtime).
func (r *Runtime) Eval(ctx context.Context, src, sourceURL string) (value.Value, error) {
	r.clearInterrupt()
	defer r.startWatchdog()()
	mod, err := r.compile(src, sourceURL)
	if err != nil {
		return value.Undefined, err
	}
	r.rt.SetModule(mod)
	res := r.interp.RunFunction(mod.Main(), value.Undefined, nil, nil)
	return r.drive(ctx, res)
}

// startWatchdog implements spec.md §5's "host-owned watchdog sets the
// interrupt flag after a wall-clock deadline": if EngineConfig.
// ExecutionTimeoutMS is set, a timer fires Interrupt() from its own
// goroutine after that deadline, which the VM dispatch loop (polling the
// same atomic flag every interruptPollInterval instructions) and the
// await-driving loop below both observe without any per-iteration
// time.Now() bookkeeping of their own. The returned func cancels the
// watchdog; callers must defer it so a fast eval doesn't leave a stray
// timer that fires into a reused, pooled Runtime.
func (r *Runtime) startWatchdog() func() {
	ms := r.config.EngineConfig.ExecutionTimeoutMS
	if ms <= 0 {
		return func() {}
	}
	timer := time.AfterFunc(time.Duration(ms)*time.Millisecond, r.Interrupt)
	return func() { timer.Stop() }
}

// drive resolves an ExecResult, pumping the event loop while a top-level
// await is suspended on a timer/job rather than an already-settled value
// (spec.md §5.3 "suspend/resume model"). Awaiting a Promise subscribes to
// its settlement instead of resuming with the (still-pending) Promise
// object itself; any other awaited value is first wrapped in a Promise
// resolved with it, so it too resumes only after the event loop has run
// that Promise's reaction microtask, matching real await's "always at
// least one microtask tick" behavior.
func (r *Runtime) drive(ctx context.Context, res vm.ExecResult) (value.Value, error) {
	for res.Kind == vm.ResultSuspended {
		if r.interrupted.Load() {
			return value.Undefined, r.interruptedErr()
		}
		if err := ctx.Err(); err != nil {
			return value.Undefined, err
		}

		awaited := res.Suspend.Awaited()
		if !intrinsics.IsPromise(awaited) {
			p, resolve, _ := r.rt.NewPromise()
			resolve(awaited)
			awaited = p
		}
		settled, rejected, ok := r.awaitSettle(awaited)
		for !ok {
			if r.interrupted.Load() {
				return value.Undefined, r.interruptedErr()
			}
			if err := ctx.Err(); err != nil {
				return value.Undefined, err
			}
			r.loop.Tick()
			settled, rejected, ok = r.awaitSettle(awaited)
		}

		if rejected {
			res = r.interp.Resume(res.Suspend, value.Undefined, &vm.ThrownValue{Value: settled})
		} else {
			res = r.interp.Resume(res.Suspend, settled, nil)
		}
	}
	switch res.Kind {
	case vm.ResultComplete:
		return res.Value, nil
	case vm.ResultError:
		return value.Undefined, renderRuntimeError(res.Err)
	default:
		return value.Undefined, fmt.Errorf("otter: unexpected execution result")
	}
}

// awaitSettle polls whether an awaited value has settled: a non-Promise
// value settles (fulfilled) the first time it's checked; a Promise
// settles once subscribed and its reaction has fired. ok is false while a
// Promise is still pending.
func (r *Runtime) awaitSettle(awaited value.Value) (result value.Value, rejected bool, ok bool) {
	if !intrinsics.IsPromise(awaited) {
		return awaited, false, true
	}
	state := r.awaitStateFor(awaited)
	if !state.done {
		return value.Undefined, false, false
	}
	return state.value, state.rejected, true
}

type awaitState struct {
	done     bool
	rejected bool
	value    value.Value
}

// awaitStates tracks in-flight awaits by the promise object identity so
// repeated polling from the drive loop doesn't double-subscribe.
func (r *Runtime) awaitStateFor(awaited value.Value) *awaitState {
	if r.awaitStates == nil {
		r.awaitStates = map[*value.Object]*awaitState{}
	}
	obj := awaited.AsObject()
	st, ok := r.awaitStates[obj]
	if ok {
		if st.done {
			delete(r.awaitStates, obj)
		}
		return st
	}
	st = &awaitState{}
	r.awaitStates[obj] = st
	r.rt.Subscribe(awaited,
		func(v value.Value) { st.done, st.value = true, v },
		func(v value.Value) { st.done, st.rejected, st.value = true, true, v },
	)
	return st
}

func renderRuntimeError(err error) error {
	if errors.Is(err, vm.ErrInterrupted) {
		return &RuntimeError{ScriptValue: "Execution interrupted (timeout)", Cause: err}
	}
	if tv, ok := err.(*vm.ThrownValue); ok {
		return &RuntimeError{ScriptValue: value.ToStringNoThrow(tv.Value), Cause: err}
	}
	return &RuntimeError{ScriptValue: err.Error(), Cause: err}
}

// interruptedErr returns the error both the outer event-loop-draining loops (which
// only get a chance to check between loop ticks) and the VM's own
// dispatch-loop polling (internal/vm.ErrInterrupted, checked mid-script)
// report, so both paths produce the same spec.md §7 wording regardless of
// which one notices first.
func (r *Runtime) interruptedErr() error {
	return renderRuntimeError(vm.ErrInterrupted)
}

// invokeCallback re-enters the bytecode interpreter for a script-defined
// closure invoked from a builtin higher-order function (Array.prototype.
// map and the other array methods, Map/Set forEach, Promise executors and
// reactions, and Proxy traps). Native callees
// still go through intrinsics.Runtime.Call.
func (r *Runtime) invokeCallback(fn, this value.Value, args []value.Value) (value.Value, error) {
	if !value.IsCallable(fn) {
		return value.Undefined, r.rt.ThrowTypeError("%s is not a function", value.ToStringNoThrow(fn))
	}
	obj := fn.AsObject()
	if obj.Func.IsNative {
		return r.rt.Call(fn, this, args)
	}
	mod := r.rt.Module()
	if mod == nil || obj.Func.ModuleFuncIndex >= len(mod.Functions) {
		return value.Undefined, r.rt.ThrowTypeError("closure references an unknown function")
	}
	target := mod.Functions[obj.Func.ModuleFuncIndex]
	res := r.interp.RunFunction(target, this, args, obj.Func.Upvalues)
	// A callback invoked from a builtin (Array.prototype.map's per-element
	// call, a Promise reaction, a timer) has no ambient context.Context, so
	// suspensions here drive against a background context with no deadline
	// or cancellation; the outer Eval/EvalSync call still enforces its own
	// deadline around the code path that reached this callback.
	result, err := r.drive(context.Background(), res)
	if err != nil {
		if re, ok := err.(*RuntimeError); ok {
			return value.Undefined, re.Cause
		}
		return value.Undefined, err
	}
	return result, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
