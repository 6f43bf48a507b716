package intrinsics

import "github.com/otterjs/otter/internal/value"

// sameValueZero is SameValue except +0 equals -0 (the key-equality
// algorithm Map/Set/WeakMap/WeakSet use, distinct from both === and
// SameValue — spec.md §2 names Map/Set/WeakMap/WeakSet as required
// intrinsics without further detail, so this follows the ES algorithm).
func sameValueZero(a, b value.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.AsFloat64(), b.AsFloat64()
		return af == bf || (af != af && bf != bf) // NaN equals NaN
	}
	return value.SameValue(a, b)
}

type mapEntry struct {
	key, val value.Value
}

func mapEntries(o *value.Object) []*mapEntry {
	v, ok := o.GetInternalSlot("entries")
	if !ok {
		return nil
	}
	return v.([]*mapEntry)
}

func setMapEntries(o *value.Object, entries []*mapEntry) { o.SetInternalSlot("entries", entries) }

func findEntry(entries []*mapEntry, key value.Value) *mapEntry {
	for _, e := range entries {
		if sameValueZero(e.key, key) {
			return e
		}
	}
	return nil
}

// installMapCtor installs Map with get/set/has/delete/clear/forEach and a
// live `size` accessor, backed by an insertion-ordered slice in the
// object's internal slot bag rather than a Go map so object/NaN keys work
// under SameValueZero equality without a comparable-key constraint.
func installMapCtor(r *Runtime) {
	proto := r.protos.Map
	ctor := value.NewNativeFunction(r.protos.Function, "Map", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Constructor Map requires 'new'")
		}
		o := value.NewObject(proto)
		o.Class = value.ClassMap
		setMapEntries(o, nil)
		if init := arg(args, 0); init.IsObject() && init.AsObject() != nil {
			src := init.AsObject()
			for i := 0; i < int(src.Length); i++ {
				pair, _ := r.GetElem(init, value.NumberFromInt64(int64(i)))
				k, _ := r.GetElem(pair, value.NumberFromInt64(0))
				v, _ := r.GetElem(pair, value.NumberFromInt64(1))
				entries := mapEntries(o)
				if e := findEntry(entries, k); e != nil {
					e.val = v
				} else {
					setMapEntries(o, append(entries, &mapEntry{k, v}))
				}
			}
		}
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))

	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	method("set", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		k, v := arg(args, 0), arg(args, 1)
		entries := mapEntries(o)
		if e := findEntry(entries, k); e != nil {
			e.val = v
		} else {
			setMapEntries(o, append(entries, &mapEntry{k, v}))
		}
		return ctx.This, nil
	})
	method("get", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if e := findEntry(mapEntries(thisArray(ctx)), arg(args, 0)); e != nil {
			return e.val, nil
		}
		return value.Undefined, nil
	})
	method("has", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Bool(findEntry(mapEntries(thisArray(ctx)), arg(args, 0)) != nil), nil
	})
	method("delete", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		entries := mapEntries(o)
		for i, e := range entries {
			if sameValueZero(e.key, arg(args, 0)) {
				setMapEntries(o, append(entries[:i:i], entries[i+1:]...))
				return value.True, nil
			}
		}
		return value.False, nil
	})
	method("clear", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		setMapEntries(thisArray(ctx), nil)
		return value.Undefined, nil
	})
	method("forEach", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for _, e := range mapEntries(thisArray(ctx)) {
			if _, err := r.invokeCallback(cb, ctx.This, []value.Value{e.val, e.key, ctx.This}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	sizeGetter := value.NewNativeFunction(r.protos.Function, "get size", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.NumberFromInt64(int64(len(mapEntries(thisArray(ctx))))), nil
	})
	proto.DefineOwn(value.StringKey("size"), value.AccessorProperty(sizeGetter, nil, value.Attrs{Enumerable: false, Configurable: true}))

	r.SetGlobal("Map", value.ObjectValue(ctor))
}

// installSetCtor installs Set, sharing Map's entry-slice representation
// with val left equal to key (spec.md §2).
func installSetCtor(r *Runtime) {
	proto := r.protos.Set
	ctor := value.NewNativeFunction(r.protos.Function, "Set", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Constructor Set requires 'new'")
		}
		o := value.NewObject(proto)
		o.Class = value.ClassSet
		setMapEntries(o, nil)
		if init := arg(args, 0); init.IsObject() && init.AsObject() != nil {
			src := init.AsObject()
			for i := 0; i < int(src.Length); i++ {
				v, _ := r.GetElem(init, value.NumberFromInt64(int64(i)))
				entries := mapEntries(o)
				if findEntry(entries, v) == nil {
					setMapEntries(o, append(entries, &mapEntry{v, v}))
				}
			}
		}
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))

	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	method("add", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		v := arg(args, 0)
		if findEntry(mapEntries(o), v) == nil {
			setMapEntries(o, append(mapEntries(o), &mapEntry{v, v}))
		}
		return ctx.This, nil
	})
	method("has", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Bool(findEntry(mapEntries(thisArray(ctx)), arg(args, 0)) != nil), nil
	})
	method("delete", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		entries := mapEntries(o)
		for i, e := range entries {
			if sameValueZero(e.key, arg(args, 0)) {
				setMapEntries(o, append(entries[:i:i], entries[i+1:]...))
				return value.True, nil
			}
		}
		return value.False, nil
	})
	method("clear", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		setMapEntries(thisArray(ctx), nil)
		return value.Undefined, nil
	})
	method("forEach", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for _, e := range mapEntries(thisArray(ctx)) {
			if _, err := r.invokeCallback(cb, ctx.This, []value.Value{e.val, e.key, ctx.This}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	sizeGetter := value.NewNativeFunction(r.protos.Function, "get size", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.NumberFromInt64(int64(len(mapEntries(thisArray(ctx))))), nil
	})
	proto.DefineOwn(value.StringKey("size"), value.AccessorProperty(sizeGetter, nil, value.Attrs{Enumerable: false, Configurable: true}))

	r.SetGlobal("Set", value.ObjectValue(ctor))
}

// installWeakMapCtor installs WeakMap with the same get/set/has/delete
// surface as Map but object-only keys and no size/forEach/iteration
// (spec.md §2); this model has no GC-observable weakness since the
// entries are stored through the same setMapEntries slot a Map uses, so
// they are retained like a Map until explicitly deleted — documented
// as a known simplification rather than faked iteration semantics.
func installWeakMapCtor(r *Runtime) {
	proto := r.protos.WeakMap
	ctor := value.NewNativeFunction(r.protos.Function, "WeakMap", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Constructor WeakMap requires 'new'")
		}
		o := value.NewObject(proto)
		o.Class = value.ClassWeakMap
		setMapEntries(o, nil)
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	requireObjectKey := func(r *Runtime, k value.Value) error {
		if !k.IsObject() || k.AsObject() == nil {
			return r.ThrowTypeError("Invalid value used as weak map key")
		}
		return nil
	}
	method("set", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		k := arg(args, 0)
		if err := requireObjectKey(r, k); err != nil {
			return value.Undefined, err
		}
		o := thisArray(ctx)
		v := arg(args, 1)
		if e := findEntry(mapEntries(o), k); e != nil {
			e.val = v
		} else {
			setMapEntries(o, append(mapEntries(o), &mapEntry{k, v}))
		}
		return ctx.This, nil
	})
	method("get", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if e := findEntry(mapEntries(thisArray(ctx)), arg(args, 0)); e != nil {
			return e.val, nil
		}
		return value.Undefined, nil
	})
	method("has", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Bool(findEntry(mapEntries(thisArray(ctx)), arg(args, 0)) != nil), nil
	})
	method("delete", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		entries := mapEntries(o)
		for i, e := range entries {
			if sameValueZero(e.key, arg(args, 0)) {
				setMapEntries(o, append(entries[:i:i], entries[i+1:]...))
				return value.True, nil
			}
		}
		return value.False, nil
	})
	r.SetGlobal("WeakMap", value.ObjectValue(ctor))
}

// installWeakSetCtor installs WeakSet, object-only, same simplification
// noted on installWeakMapCtor.
func installWeakSetCtor(r *Runtime) {
	proto := r.protos.WeakSet
	ctor := value.NewNativeFunction(r.protos.Function, "WeakSet", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Constructor WeakSet requires 'new'")
		}
		o := value.NewObject(proto)
		o.Class = value.ClassWeakSet
		setMapEntries(o, nil)
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	method("add", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsObject() || v.AsObject() == nil {
			return value.Undefined, r.ThrowTypeError("Invalid value used in weak set")
		}
		o := thisArray(ctx)
		if findEntry(mapEntries(o), v) == nil {
			setMapEntries(o, append(mapEntries(o), &mapEntry{v, v}))
		}
		return ctx.This, nil
	})
	method("has", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Bool(findEntry(mapEntries(thisArray(ctx)), arg(args, 0)) != nil), nil
	})
	method("delete", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		entries := mapEntries(o)
		for i, e := range entries {
			if sameValueZero(e.key, arg(args, 0)) {
				setMapEntries(o, append(entries[:i:i], entries[i+1:]...))
				return value.True, nil
			}
		}
		return value.False, nil
	})
	r.SetGlobal("WeakSet", value.ObjectValue(ctor))
}
