package intrinsics

import (
	"github.com/otterjs/otter/internal/value"
	"github.com/otterjs/otter/internal/vm"
)

// installPromise installs the Promise constructor and prototype
// (then/catch/finally) plus the static resolve/reject/all/race/
// allSettled helpers; Promise.any is not installed (spec.md §3.4
// "Promise — monotonic pending ->
// fulfilled|rejected state machine" and §4.4's await integration).
func installPromise(r *Runtime) {
	proto := r.protos.Promise
	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(
			value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsData))
	}

	method("then", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		p := ctx.This.AsObject()
		if p == nil || p.Promise == nil {
			return value.Undefined, r.ThrowTypeError("Promise.prototype.then called on a non-Promise")
		}
		var onFulfilled, onRejected value.Value
		if len(args) > 0 {
			onFulfilled = args[0]
		}
		if len(args) > 1 {
			onRejected = args[1]
		}
		return value.ObjectValue(r.promiseThen(p, onFulfilled, onRejected)), nil
	})
	method("catch", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		p := ctx.This.AsObject()
		if p == nil || p.Promise == nil {
			return value.Undefined, r.ThrowTypeError("Promise.prototype.catch called on a non-Promise")
		}
		var onRejected value.Value
		if len(args) > 0 {
			onRejected = args[0]
		}
		return value.ObjectValue(r.promiseThen(p, value.Undefined, onRejected)), nil
	})
	method("finally", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		p := ctx.This.AsObject()
		if p == nil || p.Promise == nil {
			return value.Undefined, r.ThrowTypeError("Promise.prototype.finally called on a non-Promise")
		}
		var onFinally value.Value
		if len(args) > 0 {
			onFinally = args[0]
		}
		wrapFulfil := r.newNative("", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
			if value.IsCallable(onFinally) {
				if _, err := r.invokeCallback(onFinally, value.Undefined, nil); err != nil {
					return value.Undefined, err
				}
			}
			return arg(a, 0), nil
		})
		wrapReject := r.newNative("", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
			if value.IsCallable(onFinally) {
				if _, err := r.invokeCallback(onFinally, value.Undefined, nil); err != nil {
					return value.Undefined, err
				}
			}
			return value.Undefined, &rejection{arg(a, 0)}
		})
		return value.ObjectValue(r.promiseThen(p, value.ObjectValue(wrapFulfil), value.ObjectValue(wrapReject))), nil
	})

	ctor := value.NewNativeFunction(r.protos.Function, "Promise", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Promise constructor cannot be invoked without 'new'")
		}
		executor := arg(args, 0)
		if !value.IsCallable(executor) {
			return value.Undefined, r.ThrowTypeError("Promise resolver is not a function")
		}
		p := r.newPromise()
		resolveFn := r.newNative("", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
			r.resolvePromise(p, arg(a, 0))
			return value.Undefined, nil
		})
		rejectFn := r.newNative("", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
			r.rejectPromise(p, arg(a, 0))
			return value.Undefined, nil
		})
		if _, err := r.invokeCallback(executor, value.Undefined, []value.Value{value.ObjectValue(resolveFn), value.ObjectValue(rejectFn)}); err != nil {
			r.rejectPromise(p, errorValueOf(err))
		}
		return value.ObjectValue(p), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("resolve"), value.DataProperty(value.ObjectValue(r.newNative("resolve", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
		v := arg(a, 0)
		if v.IsObject() && v.AsObject() != nil && v.AsObject().Promise != nil {
			return v, nil
		}
		p := r.newPromise()
		r.resolvePromise(p, v)
		return value.ObjectValue(p), nil
	})), value.AttrsData))
	ctor.DefineOwn(value.StringKey("reject"), value.DataProperty(value.ObjectValue(r.newNative("reject", func(_ *value.NativeContext, a []value.Value) (value.Value, error) {
		p := r.newPromise()
		r.rejectPromise(p, arg(a, 0))
		return value.ObjectValue(p), nil
	})), value.AttrsData))
	ctor.DefineOwn(value.StringKey("all"), value.DataProperty(value.ObjectValue(r.newNative("all", r.promiseAll)), value.AttrsData))
	ctor.DefineOwn(value.StringKey("allSettled"), value.DataProperty(value.ObjectValue(r.newNative("allSettled", r.promiseAllSettled)), value.AttrsData))
	ctor.DefineOwn(value.StringKey("race"), value.DataProperty(value.ObjectValue(r.newNative("race", r.promiseRace)), value.AttrsData))

	r.SetGlobal("Promise", value.ObjectValue(ctor))
}

// IsPromise reports whether v is a Promise instance.
func IsPromise(v value.Value) bool {
	return v.IsObject() && v.AsObject() != nil && v.AsObject().Promise != nil
}

// Subscribe attaches settle callbacks to a promise value for the owning
// engine's await driver (otter.Runtime.drive): resolving immediately via
// a microtask if p has already settled, otherwise queuing until
// resolve/reject is called. Panics if v is not a Promise; callers must
// guard with IsPromise first.
func (r *Runtime) Subscribe(v value.Value, onFulfil, onReject func(value.Value)) {
	r.subscribe(v.AsObject(), onFulfil, onReject)
}

func (r *Runtime) newNative(name string, fn value.NativeFunc) *value.Object {
	return value.NewNativeFunction(r.protos.Function, name, fn)
}

func (r *Runtime) newPromise() *value.Object {
	p := value.NewObject(r.protos.Promise)
	p.Class = value.ClassPromise
	p.Promise = &value.PromiseState{Status: value.PromisePending}
	return p
}

// rejection is a sentinel error carrying a JS value, used internally to
// propagate a finally() handler's rejection without going through
// vm.ThrownValue (no VM frame is involved here, only Go-level plumbing
// between promiseThen's reaction and resolvePromise/rejectPromise).
type rejection struct{ value.Value }

func (rejection) Error() string { return "promise rejection" }

func errorValueOf(err error) value.Value {
	if rv, ok := err.(*rejection); ok {
		return rv.Value
	}
	if tv, ok := err.(*vm.ThrownValue); ok {
		return tv.Value
	}
	return value.String(value.Intern(err.Error()))
}

// resolvePromise transitions a pending promise to fulfilled, or chains
// onto resolution's own then() if resolution is itself a thenable
// (spec.md §3.4's resolution procedure, simplified to Promise-shaped
// thenables only — arbitrary duck-typed thenables are not chased).
func (r *Runtime) resolvePromise(p *value.Object, resolution value.Value) {
	if p.Promise.Status != value.PromisePending {
		return
	}
	if resolution.IsObject() && resolution.AsObject() == p {
		r.rejectPromise(p, r.newError("TypeError", "chaining cycle detected for promise"))
		return
	}
	if resolution.IsObject() && resolution.AsObject() != nil && resolution.AsObject().Promise != nil {
		inner := resolution.AsObject()
		r.subscribe(inner, func(v value.Value) { r.resolvePromise(p, v) }, func(v value.Value) { r.rejectPromise(p, v) })
		return
	}
	p.Promise.Status = value.PromiseFulfilled
	p.Promise.Result = resolution
	reactions := p.Promise.OnFulfil
	p.Promise.OnFulfil = nil
	p.Promise.OnReject = nil
	for _, cb := range reactions {
		cb := cb
		r.enqueueMicrotask(func() { cb(resolution) })
	}
}

func (r *Runtime) rejectPromise(p *value.Object, reason value.Value) {
	if p.Promise.Status != value.PromisePending {
		return
	}
	p.Promise.Status = value.PromiseRejected
	p.Promise.Result = reason
	reactions := p.Promise.OnReject
	p.Promise.OnFulfil = nil
	p.Promise.OnReject = nil
	for _, cb := range reactions {
		cb := cb
		r.enqueueMicrotask(func() { cb(reason) })
	}
}

// subscribe attaches settle callbacks to p, firing immediately (via a
// microtask) if p has already settled.
func (r *Runtime) subscribe(p *value.Object, onFulfil, onReject func(value.Value)) {
	switch p.Promise.Status {
	case value.PromiseFulfilled:
		v := p.Promise.Result
		r.enqueueMicrotask(func() { onFulfil(v) })
	case value.PromiseRejected:
		p.Promise.Handled = true
		v := p.Promise.Result
		r.enqueueMicrotask(func() { onReject(v) })
	default:
		p.Promise.OnFulfil = append(p.Promise.OnFulfil, onFulfil)
		p.Promise.OnReject = append(p.Promise.OnReject, onReject)
	}
}

// promiseThen implements then/catch's shared reaction-chaining logic:
// create a new promise, subscribe handlers to p that run the appropriate
// callback and resolve/reject the chained promise with its outcome.
func (r *Runtime) promiseThen(p *value.Object, onFulfilled, onRejected value.Value) *value.Object {
	chained := r.newPromise()
	runHandler := func(handler value.Value, v value.Value, isReject bool) {
		if !value.IsCallable(handler) {
			if isReject {
				r.rejectPromise(chained, v)
			} else {
				r.resolvePromise(chained, v)
			}
			return
		}
		result, err := r.invokeCallback(handler, value.Undefined, []value.Value{v})
		if err != nil {
			if rv, ok := err.(*rejection); ok {
				r.rejectPromise(chained, rv.Value)
				return
			}
			r.rejectPromise(chained, errorValueOf(err))
			return
		}
		r.resolvePromise(chained, result)
	}
	r.subscribe(p,
		func(v value.Value) { runHandler(onFulfilled, v, false) },
		func(v value.Value) { p.Promise.Handled = true; runHandler(onRejected, v, true) },
	)
	return chained
}

func (r *Runtime) promiseAll(_ *value.NativeContext, args []value.Value) (value.Value, error) {
	return r.promiseCombinator(args, combinatorAll)
}

func (r *Runtime) promiseAllSettled(_ *value.NativeContext, args []value.Value) (value.Value, error) {
	return r.promiseCombinator(args, combinatorAllSettled)
}

func (r *Runtime) promiseRace(_ *value.NativeContext, args []value.Value) (value.Value, error) {
	return r.promiseCombinator(args, combinatorRace)
}

type combinatorMode uint8

const (
	combinatorAll combinatorMode = iota
	combinatorAllSettled
	combinatorRace
)

// promiseCombinator implements Promise.all/allSettled/race over an
// iterable (here: an array-shaped object, since internal/value has no
// generic iterator protocol yet — tracked as a follow-up for arbitrary
// iterables).
func (r *Runtime) promiseCombinator(args []value.Value, mode combinatorMode) (value.Value, error) {
	items := arg(args, 0)
	out := r.newPromise()
	if !items.IsObject() || !items.AsObject().IsArray {
		r.rejectPromise(out, r.newError("TypeError", "argument is not an array"))
		return value.ObjectValue(out), nil
	}
	arr := items.AsObject()
	n := int(arr.Length)
	if n == 0 {
		if mode == combinatorRace {
			return value.ObjectValue(out), nil // never settles, matches spec
		}
		r.resolvePromise(out, value.ObjectValue(value.NewArray(r.protos.Array, 0)))
		return value.ObjectValue(out), nil
	}
	results := make([]value.Value, n)
	remaining := n
	for i := 0; i < n; i++ {
		i := i
		var v value.Value
		if d, ok := arr.GetOwn(value.IndexKey(uint32(i))); ok {
			v = d.Value
		}
		settle := func(val value.Value, rejected bool) {
			switch mode {
			case combinatorRace:
				if rejected {
					r.rejectPromise(out, val)
				} else {
					r.resolvePromise(out, val)
				}
			case combinatorAllSettled:
				entry := value.NewObject(r.protos.Object)
				if rejected {
					entry.DefineOwn(value.StringKey("status"), value.DataProperty(value.String(value.Intern("rejected")), value.AttrsData))
					entry.DefineOwn(value.StringKey("reason"), value.DataProperty(val, value.AttrsData))
				} else {
					entry.DefineOwn(value.StringKey("status"), value.DataProperty(value.String(value.Intern("fulfilled")), value.AttrsData))
					entry.DefineOwn(value.StringKey("value"), value.DataProperty(val, value.AttrsData))
				}
				results[i] = value.ObjectValue(entry)
				remaining--
				if remaining == 0 {
					r.resolvePromise(out, r.newValueArray(results))
				}
			default: // combinatorAll
				if rejected {
					r.rejectPromise(out, val)
					return
				}
				results[i] = val
				remaining--
				if remaining == 0 {
					r.resolvePromise(out, r.newValueArray(results))
				}
			}
		}
		if v.IsObject() && v.AsObject() != nil && v.AsObject().Promise != nil {
			r.subscribe(v.AsObject(),
				func(val value.Value) { settle(val, false) },
				func(val value.Value) { settle(val, true) },
			)
		} else {
			settle(v, false)
		}
	}
	return value.ObjectValue(out), nil
}
