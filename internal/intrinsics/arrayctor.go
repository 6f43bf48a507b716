package intrinsics

import "github.com/otterjs/otter/internal/value"

// installArrayCtor installs the Array constructor, Array.isArray, and the
// common Array.prototype methods used by ordinary scripts (push/pop/slice/
// map/filter/forEach/join/indexOf/includes). Higher-order methods invoke
// the callback via invokeCallback: Runtime.Call by default, which only
// dispatches native functions directly, or the r.callback hook the owning
// engine installs with SetCallbackInvoker, which delegates bytecode
// closures to Interpreter.RunFunction (see runtime.go in the otter package).
func installArrayCtor(r *Runtime) {
	ctor := value.NewNativeFunction(r.protos.Function, "Array", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 1 && args[0].IsNumber() {
			return value.ObjectValue(value.NewArray(r.protos.Array, int(args[0].AsFloat64()))), nil
		}
		return r.newValueArray(args), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(r.protos.Array), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("isArray"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "isArray", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(v.IsObject() && v.AsObject() != nil && v.AsObject().IsArray), nil
	})), value.AttrsBuiltinMethod))
	ctor.DefineOwn(value.StringKey("from"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "from", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		if !src.IsObject() || src.AsObject() == nil {
			return r.newValueArray(nil), nil
		}
		n := int(src.AsObject().Length)
		vals := make([]value.Value, n)
		for i := 0; i < n; i++ {
			v, _ := r.GetElem(src, value.NumberFromInt64(int64(i)))
			vals[i] = v
		}
		return r.newValueArray(vals), nil
	})), value.AttrsBuiltinMethod))

	proto := r.protos.Array
	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}

	method("push", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil {
			return value.Undefined, nil
		}
		for _, a := range args {
			o.DefineOwn(value.IndexKey(o.Length), value.DataProperty(a, value.AttrsData))
		}
		return value.NumberFromInt64(int64(o.Length)), nil
	})

	method("pop", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil || o.Length == 0 {
			return value.Undefined, nil
		}
		d, _ := o.GetOwn(value.IndexKey(o.Length - 1))
		o.DefineOwn(value.StringKey("length"), value.DataProperty(value.NumberFromInt64(int64(o.Length-1)), value.AttrsData))
		if d != nil {
			return d.Value, nil
		}
		return value.Undefined, nil
	})

	method("shift", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil || o.Length == 0 {
			return value.Undefined, nil
		}
		first, _ := o.GetOwn(value.IndexKey(0))
		for i := uint32(1); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			if d != nil {
				o.DefineOwn(value.IndexKey(i-1), value.DataProperty(d.Value, value.AttrsData))
			}
		}
		o.DefineOwn(value.StringKey("length"), value.DataProperty(value.NumberFromInt64(int64(o.Length-1)), value.AttrsData))
		if first != nil {
			return first.Value, nil
		}
		return value.Undefined, nil
	})

	method("slice", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil {
			return r.newValueArray(nil), nil
		}
		start, end := sliceBounds(args, int(o.Length))
		var out []value.Value
		for i := start; i < end; i++ {
			d, _ := o.GetOwn(value.IndexKey(uint32(i)))
			if d != nil {
				out = append(out, d.Value)
			} else {
				out = append(out, value.Undefined)
			}
		}
		return r.newValueArray(out), nil
	})

	method("concat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		var out []value.Value
		if o != nil {
			for i := uint32(0); i < o.Length; i++ {
				d, _ := o.GetOwn(value.IndexKey(i))
				out = append(out, d.Value)
			}
		}
		for _, a := range args {
			if a.IsObject() && a.AsObject() != nil && a.AsObject().IsArray {
				ao := a.AsObject()
				for i := uint32(0); i < ao.Length; i++ {
					d, _ := ao.GetOwn(value.IndexKey(i))
					out = append(out, d.Value)
				}
			} else {
				out = append(out, a)
			}
		}
		return r.newValueArray(out), nil
	})

	method("join", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		sep := ","
		if len(args) > 0 && !args[0].IsUndefined() {
			sep = value.ToStringNoThrow(args[0])
		}
		if o == nil {
			return value.String(value.Intern("")), nil
		}
		parts := make([]string, o.Length)
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			if d != nil && !d.Value.IsNullish() {
				parts[i] = r.toStringCoerce(d.Value)
			}
		}
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += sep
			}
			out += p
		}
		return value.String(value.Intern(out)), nil
	})

	method("indexOf", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		target := arg(args, 0)
		if o == nil {
			return value.Int32(-1), nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			if d != nil && value.StrictEquals(d.Value, target) {
				return value.NumberFromInt64(int64(i)), nil
			}
		}
		return value.Int32(-1), nil
	})

	method("includes", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		target := arg(args, 0)
		if o == nil {
			return value.False, nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			if d != nil && (value.StrictEquals(d.Value, target) || value.SameValue(d.Value, target)) {
				return value.True, nil
			}
		}
		return value.False, nil
	})

	method("reverse", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil {
			return ctx.This, nil
		}
		n := o.Length
		for i := uint32(0); i < n/2; i++ {
			a, _ := o.GetOwn(value.IndexKey(i))
			b, _ := o.GetOwn(value.IndexKey(n - 1 - i))
			var av, bv value.Value
			if a != nil {
				av = a.Value
			}
			if b != nil {
				bv = b.Value
			}
			o.DefineOwn(value.IndexKey(i), value.DataProperty(bv, value.AttrsData))
			o.DefineOwn(value.IndexKey(n-1-i), value.DataProperty(av, value.AttrsData))
		}
		return ctx.This, nil
	})

	// forEach/map/filter/find/some/every invoke a callback; calling a
	// bytecode closure requires the VM dispatch loop, so these call through
	// Runtime.callback, a hook the owning engine fills in with a real
	// closure-invoking Call (the otter package's New wires it at startup).
	method("forEach", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return value.Undefined, nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			if _, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})

	method("map", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return r.newValueArray(nil), nil
		}
		out := make([]value.Value, o.Length)
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			out[i] = res
		}
		return r.newValueArray(out), nil
	})

	method("filter", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return r.newValueArray(nil), nil
		}
		var out []value.Value
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			if res.ToBoolean() {
				out = append(out, v)
			}
		}
		return r.newValueArray(out), nil
	})

	method("find", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return value.Undefined, nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			if res.ToBoolean() {
				return v, nil
			}
		}
		return value.Undefined, nil
	})

	method("some", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return value.False, nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			if res.ToBoolean() {
				return value.True, nil
			}
		}
		return value.False, nil
	})

	method("every", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return value.True, nil
		}
		for i := uint32(0); i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, ctx.This, []value.Value{v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			if !res.ToBoolean() {
				return value.False, nil
			}
		}
		return value.True, nil
	})

	method("reduce", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		cb := arg(args, 0)
		if o == nil {
			return value.Undefined, r.ThrowTypeError("Reduce of empty array with no initial value")
		}
		i := uint32(0)
		var acc value.Value
		if len(args) > 1 {
			acc = args[1]
		} else {
			if o.Length == 0 {
				return value.Undefined, r.ThrowTypeError("Reduce of empty array with no initial value")
			}
			d, _ := o.GetOwn(value.IndexKey(0))
			acc = d.Value
			i = 1
		}
		for ; i < o.Length; i++ {
			d, _ := o.GetOwn(value.IndexKey(i))
			var v value.Value
			if d != nil {
				v = d.Value
			}
			res, err := r.invokeCallback(cb, value.Undefined, []value.Value{acc, v, value.NumberFromInt64(int64(i)), ctx.This})
			if err != nil {
				return value.Undefined, err
			}
			acc = res
		}
		return acc, nil
	})

	r.SetGlobal("Array", value.ObjectValue(ctor))
}

// invokeCallback is Runtime.Call by default (native functions only); the
// owning engine (the otter package) sets r.callback to route through the
// VM's Interpreter so user-defined (bytecode) callbacks work too.
func (r *Runtime) invokeCallback(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	if r.callback != nil {
		return r.callback(fn, this, args)
	}
	return r.Call(fn, this, args)
}

func thisArray(ctx *value.NativeContext) *value.Object {
	if !ctx.This.IsObject() {
		return nil
	}
	return ctx.This.AsObject()
}

func sliceBounds(args []value.Value, length int) (int, int) {
	start, end := 0, length
	if len(args) > 0 && args[0].IsNumber() {
		start = normalizeIndex(int(args[0].AsFloat64()), length)
	}
	if len(args) > 1 && args[1].IsNumber() {
		end = normalizeIndex(int(args[1].AsFloat64()), length)
	}
	if end < start {
		end = start
	}
	return start, end
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}
