package otter

import (
	"fmt"
	"os"
	"time"

	"github.com/otterjs/otter/internal/eventloop"
	"github.com/otterjs/otter/internal/value"
)

// installTimers wires setTimeout/setInterval/clearTimeout/clearInterval
// and setImmediate/clearImmediate onto the global object, backed by
// r.loop (spec.md §4.4 "Timers"). This is the minimal slice of
// internal/hostops' timer op category that every Runtime needs regardless
// of which other host ops an embedder enables — unlike fetch/fs/ws, timers
// are not capability-gated (spec.md §4.7 lists read/write/env/net/spawn,
// not timers, among the gated categories).
func (r *Runtime) installTimers() {
	g := r.rt.Global()
	fn := r.rt.Intrinsics()
	proto := r.functionProto()

	register := func(name string, f value.NativeFunc) {
		g.DefineOwn(value.StringKey(name), value.DataProperty(
			value.ObjectValue(value.NewNativeFunction(proto, name, f)), value.AttrsData))
	}

	register("setTimeout", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return r.scheduleTimer(args, false)
	})
	register("setInterval", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return r.scheduleTimer(args, true)
	})
	register("clearTimeout", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		r.clearTimerArg(args)
		return value.Undefined, nil
	})
	register("clearInterval", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		r.clearTimerArg(args)
		return value.Undefined, nil
	})
	register("setImmediate", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 || !value.IsCallable(args[0]) {
			return value.Undefined, fn.ThrowTypeError("setImmediate requires a function argument")
		}
		callee := args[0]
		extra := append([]value.Value(nil), args[1:]...)
		im := r.loop.SetImmediate(func() { r.fireCallback(callee, extra) })
		return value.NumberFromInt64(int64(im.ID)), nil
	})
	register("clearImmediate", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) > 0 && args[0].IsNumber() {
			r.loop.ClearImmediate(uint64(args[0].AsFloat64()))
		}
		return value.Undefined, nil
	})
}

func (r *Runtime) functionProto() *value.Object {
	// Function.prototype isn't separately exposed by intrinsics.Runtime
	// today; native functions only need a callable-shaped proto object,
	// which any object satisfies since Call/Construct key off Class, not
	// off identity with a particular prototype. Cached on Runtime rather
	// than stashed as a global so it never leaks into for-in/Object.keys
	// enumeration of globalThis.
	if r.timerProto == nil {
		r.timerProto = value.NewObject(nil)
	}
	return r.timerProto
}

func (r *Runtime) scheduleTimer(args []value.Value, repeat bool) (value.Value, error) {
	fn := r.rt.Intrinsics()
	if len(args) == 0 || !value.IsCallable(args[0]) {
		return value.Undefined, fn.ThrowTypeError("%s requires a function argument", timerName(repeat))
	}
	callee := args[0]
	delayMS := 0.0
	if len(args) > 1 && args[1].IsNumber() {
		delayMS = args[1].AsFloat64()
	}
	if delayMS < 0 {
		delayMS = 0
	}
	extra := append([]value.Value(nil), args[2:]...)
	delay := time.Duration(delayMS * float64(time.Millisecond))

	var t *eventloop.Timer
	if repeat {
		t = r.loop.SetInterval(delay, func() { r.fireCallback(callee, extra) })
	} else {
		t = r.loop.SetTimeout(delay, func() { r.fireCallback(callee, extra) })
	}
	return value.NumberFromInt64(int64(t.ID)), nil
}

func (r *Runtime) clearTimerArg(args []value.Value) {
	if len(args) > 0 && args[0].IsNumber() {
		r.loop.ClearTimer(uint64(args[0].AsFloat64()))
	}
}

func timerName(repeat bool) string {
	if repeat {
		return "setInterval"
	}
	return "setTimeout"
}

// fireCallback invokes a timer/immediate callback; an uncaught exception
// from inside a timer is reported to console.error rather than aborting
// the loop, matching Node/browser "unhandled error in timer" behavior.
func (r *Runtime) fireCallback(callee value.Value, args []value.Value) {
	if _, err := r.invokeCallback(callee, value.Undefined, args); err != nil {
		r.reportUncaught(err)
	}
}

func (r *Runtime) reportUncaught(err error) {
	msg := renderRuntimeError(err).Error()
	fmt.Fprintln(os.Stderr, msg)
}
