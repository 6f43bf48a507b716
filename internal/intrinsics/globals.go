package intrinsics

import (
	"math"
	"strconv"
	"strings"

	"github.com/otterjs/otter/internal/value"
)

// installGlobalFuncs installs the free global functions (parseInt,
// parseFloat, isNaN, isFinite), globalThis, and the String/Number/Boolean
// wrapper constructors used mainly for their coercion behavior when called
// without `new` (spec.md §3.5).
func installGlobalFuncs(r *Runtime) {
	r.SetGlobal("globalThis", value.ObjectValue(r.global))
	r.SetGlobal("undefined", value.Undefined)
	r.SetGlobal("NaN", value.Number(math.NaN()))
	r.SetGlobal("Infinity", value.Number(math.Inf(1)))

	r.SetGlobal("parseInt", value.ObjectValue(value.NewNativeFunction(r.protos.Function, "parseInt", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := strings.TrimSpace(value.ToStringNoThrow(arg(args, 0)))
		radix := 10
		if len(args) > 1 && args[1].IsNumber() {
			if rx := int(args[1].AsFloat64()); rx != 0 {
				radix = rx
			}
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg, s = true, s[1:]
		} else if strings.HasPrefix(s, "+") {
			s = s[1:]
		}
		if (radix == 16 || radix == 10) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			s = s[2:]
			radix = 16
		}
		end := 0
		for end < len(s) && isRadixDigit(s[end], radix) {
			end++
		}
		if end == 0 {
			return value.Number(math.NaN()), nil
		}
		n, err := strconv.ParseInt(s[:end], radix, 64)
		if err != nil {
			return value.Number(math.NaN()), nil
		}
		if neg {
			n = -n
		}
		return value.NumberFromInt64(n), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("parseFloat", value.ObjectValue(value.NewNativeFunction(r.protos.Function, "parseFloat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := strings.TrimSpace(value.ToStringNoThrow(arg(args, 0)))
		end := len(s)
		for i := 1; i <= len(s); i++ {
			if _, err := strconv.ParseFloat(s[:i], 64); err == nil {
				end = i
			} else if i > 1 {
				break
			}
		}
		f, err := strconv.ParseFloat(s[:end], 64)
		if err != nil {
			return value.Number(math.NaN()), nil
		}
		return value.Number(f), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("isNaN", value.ObjectValue(value.NewNativeFunction(r.protos.Function, "isNaN", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		f := r.toNumber(arg(args, 0))
		return value.Bool(math.IsNaN(f)), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("isFinite", value.ObjectValue(value.NewNativeFunction(r.protos.Function, "isFinite", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		f := r.toNumber(arg(args, 0))
		return value.Bool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	})), value.AttrsBuiltinMethod))

	installStringCtor(r)
	installNumberCtor(r)
	installBooleanCtor(r)
}

func isRadixDigit(c byte, radix int) bool {
	var v int
	switch {
	case c >= '0' && c <= '9':
		v = int(c - '0')
	case c >= 'a' && c <= 'z':
		v = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		v = int(c-'A') + 10
	default:
		return false
	}
	return v < radix
}

func installStringCtor(r *Runtime) {
	ctor := value.NewNativeFunction(r.protos.Function, "String", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String(value.Intern("")), nil
		}
		return value.String(value.Intern(r.toStringCoerce(args[0]))), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(r.protos.String), value.AttrsPermanent))

	proto := r.protos.String
	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	method("charAt", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := []rune(value.ToStringNoThrow(ctx.This))
		i := int(r.toNumber(arg(args, 0)))
		if i < 0 || i >= len(s) {
			return value.String(value.Intern("")), nil
		}
		return value.String(value.Intern(string(s[i]))), nil
	})
	method("toUpperCase", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(strings.ToUpper(value.ToStringNoThrow(ctx.This)))), nil
	})
	method("toLowerCase", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(strings.ToLower(value.ToStringNoThrow(ctx.This)))), nil
	})
	method("trim", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(strings.TrimSpace(value.ToStringNoThrow(ctx.This)))), nil
	})
	method("split", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := value.ToStringNoThrow(ctx.This)
		if len(args) == 0 || args[0].IsUndefined() {
			return r.newStringArray([]string{s}), nil
		}
		sep := value.ToStringNoThrow(args[0])
		var parts []string
		if sep == "" {
			for _, c := range s {
				parts = append(parts, string(c))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		return r.newStringArray(parts), nil
	})
	method("slice", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		runes := []rune(value.ToStringNoThrow(ctx.This))
		start, end := sliceBounds(args, len(runes))
		return value.String(value.Intern(string(runes[start:end]))), nil
	})
	method("indexOf", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := value.ToStringNoThrow(ctx.This)
		needle := value.ToStringNoThrow(arg(args, 0))
		return value.NumberFromInt64(int64(strings.Index(s, needle))), nil
	})
	method("includes", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := value.ToStringNoThrow(ctx.This)
		needle := value.ToStringNoThrow(arg(args, 0))
		return value.Bool(strings.Contains(s, needle)), nil
	})
	method("replace", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := value.ToStringNoThrow(ctx.This)
		from := value.ToStringNoThrow(arg(args, 0))
		to := value.ToStringNoThrow(arg(args, 1))
		return value.String(value.Intern(strings.Replace(s, from, to, 1))), nil
	})
	method("repeat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		s := value.ToStringNoThrow(ctx.This)
		n := int(r.toNumber(arg(args, 0)))
		if n < 0 {
			return value.Undefined, r.ThrowTypeError("Invalid count value")
		}
		return value.String(value.Intern(strings.Repeat(s, n))), nil
	})
	method("toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(value.ToStringNoThrow(ctx.This))), nil
	})
	method("concat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		sb := value.ToStringNoThrow(ctx.This)
		for _, a := range args {
			sb += value.ToStringNoThrow(a)
		}
		return value.String(value.Intern(sb)), nil
	})

	r.SetGlobal("String", value.ObjectValue(ctor))
}

func installNumberCtor(r *Runtime) {
	ctor := value.NewNativeFunction(r.protos.Function, "Number", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Int32(0), nil
		}
		return value.Number(r.toNumber(args[0])), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(r.protos.Number), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("isInteger"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "isInteger", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return value.False, nil
		}
		f := v.AsFloat64()
		return value.Bool(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)), nil
	})), value.AttrsBuiltinMethod))
	ctor.DefineOwn(value.StringKey("parseFloat"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "parseFloat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(parseNumericString(value.ToStringNoThrow(arg(args, 0)))), nil
	})), value.AttrsBuiltinMethod))
	ctor.DefineOwn(value.StringKey("MAX_SAFE_INTEGER"), value.DataProperty(value.Number(9007199254740991), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("MIN_SAFE_INTEGER"), value.DataProperty(value.Number(-9007199254740991), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("EPSILON"), value.DataProperty(value.Number(2.220446049250313e-16), value.AttrsPermanent))

	r.protos.Number.DefineOwn(value.StringKey("toFixed"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toFixed", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		f := r.toNumber(ctx.This)
		digits := int(r.toNumber(arg(args, 0)))
		return value.String(value.Intern(strconv.FormatFloat(f, 'f', digits, 64))), nil
	})), value.AttrsBuiltinMethod))
	r.protos.Number.DefineOwn(value.StringKey("toString"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		f := r.toNumber(ctx.This)
		if len(args) > 0 && args[0].IsNumber() {
			radix := int(args[0].AsFloat64())
			if radix != 10 {
				return value.String(value.Intern(strconv.FormatInt(int64(f), radix))), nil
			}
		}
		return value.String(value.Intern(value.ToStringNoThrow(ctx.This))), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("Number", value.ObjectValue(ctor))
}

func installBooleanCtor(r *Runtime) {
	ctor := value.NewNativeFunction(r.protos.Function, "Boolean", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Bool(arg(args, 0).ToBoolean()), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(r.protos.Boolean), value.AttrsPermanent))
	r.SetGlobal("Boolean", value.ObjectValue(ctor))
}
