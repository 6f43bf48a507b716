package intrinsics

import "github.com/otterjs/otter/internal/value"

// installObjectCtor installs the Object constructor and its static methods
// (keys/values/entries/assign/freeze/create), plus hasOwnProperty/toString
// on Object.prototype (spec.md §3.5).
func installObjectCtor(r *Runtime) {
	ctor := value.NewNativeFunction(r.protos.Function, "Object", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) > 0 && args[0].IsObject() {
			return args[0], nil
		}
		return value.ObjectValue(value.NewObject(r.protos.Object)), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(r.protos.Object), value.AttrsPermanent))

	ctor.DefineOwn(value.StringKey("keys"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "keys", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return r.newStringArray(ownEnumerableStringKeys(arg(args, 0))), nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("values"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "values", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		keys := ownEnumerableStringKeys(o)
		vals := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := r.GetProp(o, k)
			vals[i] = v
		}
		return r.newValueArray(vals), nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("entries"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "entries", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		keys := ownEnumerableStringKeys(o)
		vals := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := r.GetProp(o, k)
			pair := value.NewArray(r.protos.Array, 2)
			pair.DefineOwn(value.IndexKey(0), value.DataProperty(value.String(value.Intern(k)), value.AttrsData))
			pair.DefineOwn(value.IndexKey(1), value.DataProperty(v, value.AttrsData))
			vals[i] = value.ObjectValue(pair)
		}
		return r.newValueArray(vals), nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("assign"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "assign", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Undefined, r.ThrowTypeError("Cannot convert undefined or null to object")
		}
		target := args[0]
		for _, src := range args[1:] {
			for _, k := range ownEnumerableStringKeys(src) {
				v, _ := r.GetProp(src, k)
				if err := r.SetProp(target, k, v); err != nil {
					return value.Undefined, err
				}
			}
		}
		return target, nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("freeze"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "freeze", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		if o.IsObject() && o.AsObject() != nil {
			o.AsObject().Frozen = true
			o.AsObject().Sealed = true
			o.AsObject().Extensible = false
		}
		return o, nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("isFrozen"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "isFrozen", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		return value.Bool(!o.IsObject() || o.AsObject() == nil || o.AsObject().Frozen), nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("create"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "create", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		var proto *value.Object
		if len(args) > 0 && args[0].IsObject() {
			proto = args[0].AsObject()
		}
		return value.ObjectValue(value.NewObject(proto)), nil
	})), value.AttrsBuiltinMethod))

	ctor.DefineOwn(value.StringKey("getPrototypeOf"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "getPrototypeOf", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		if o.IsObject() && o.AsObject() != nil && o.AsObject().Proto != nil {
			return value.ObjectValue(o.AsObject().Proto), nil
		}
		return value.Null, nil
	})), value.AttrsBuiltinMethod))

	r.protos.Object.DefineOwn(value.StringKey("hasOwnProperty"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "hasOwnProperty", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if !ctx.This.IsObject() || ctx.This.AsObject() == nil {
			return value.False, nil
		}
		key := value.ToPropertyKey(arg(args, 0))
		_, ok := ctx.This.AsObject().GetOwn(key)
		return value.Bool(ok), nil
	})), value.AttrsBuiltinMethod))

	r.protos.Object.DefineOwn(value.StringKey("toString"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(value.ToStringNoThrow(ctx.This))), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("Object", value.ObjectValue(ctor))
}

func ownEnumerableStringKeys(v value.Value) []string {
	if !v.IsObject() || v.AsObject() == nil {
		return nil
	}
	o := v.AsObject()
	var out []string
	for _, k := range o.OwnKeys() {
		switch k.Kind {
		case value.KeyIndex:
			d, ok := o.GetOwn(k)
			if ok && d.Attrs.Enumerable {
				out = append(out, formatIndex(k.Idx))
			}
		case value.KeyString:
			d, ok := o.GetOwn(k)
			if ok && d.Attrs.Enumerable {
				out = append(out, k.Str)
			}
		}
	}
	return out
}

func formatIndex(i uint32) string {
	return value.ToStringNoThrow(value.NumberFromInt64(int64(i)))
}

func (r *Runtime) newStringArray(strs []string) value.Value {
	arr := value.NewArray(r.protos.Array, len(strs))
	for i, s := range strs {
		arr.DefineOwn(value.IndexKey(uint32(i)), value.DataProperty(value.String(value.Intern(s)), value.AttrsData))
	}
	return value.ObjectValue(arr)
}

func (r *Runtime) newValueArray(vals []value.Value) value.Value {
	arr := value.NewArray(r.protos.Array, len(vals))
	for i, v := range vals {
		arr.DefineOwn(value.IndexKey(uint32(i)), value.DataProperty(v, value.AttrsData))
	}
	return value.ObjectValue(arr)
}
