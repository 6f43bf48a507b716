package intrinsics

import (
	"math"

	"github.com/otterjs/otter/internal/value"
)

// installMath installs the Math namespace object (spec.md §3.5 built-ins).
func installMath(r *Runtime) {
	m := value.NewObject(r.protos.Object)
	m.DefineOwn(value.StringKey("PI"), value.DataProperty(value.Number(math.Pi), value.AttrsPermanent))
	m.DefineOwn(value.StringKey("E"), value.DataProperty(value.Number(math.E), value.AttrsPermanent))
	m.DefineOwn(value.StringKey("LN2"), value.DataProperty(value.Number(math.Ln2), value.AttrsPermanent))
	m.DefineOwn(value.StringKey("LN10"), value.DataProperty(value.Number(math.Log(10)), value.AttrsPermanent))
	m.DefineOwn(value.StringKey("SQRT2"), value.DataProperty(value.Number(math.Sqrt2), value.AttrsPermanent))

	unary := map[string]func(float64) float64{
		"abs": math.Abs, "floor": math.Floor, "ceil": math.Ceil, "trunc": math.Trunc,
		"sqrt": math.Sqrt, "cbrt": math.Cbrt, "sin": math.Sin, "cos": math.Cos,
		"tan": math.Tan, "asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
		"sinh": math.Sinh, "cosh": math.Cosh, "tanh": math.Tanh, "log": math.Log,
		"log2": math.Log2, "log10": math.Log10, "exp": math.Exp,
		"sign": func(f float64) float64 {
			switch {
			case math.IsNaN(f):
				return math.NaN()
			case f > 0:
				return 1
			case f < 0:
				return -1
			default:
				return f
			}
		},
		"round": func(f float64) float64 { return math.Floor(f + 0.5) },
	}
	for name, fn := range unary {
		f := fn
		m.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			return value.Number(f(r.toNumber(arg(args, 0)))), nil
		})), value.AttrsBuiltinMethod))
	}

	m.DefineOwn(value.StringKey("pow"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "pow", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(math.Pow(r.toNumber(arg(args, 0)), r.toNumber(arg(args, 1)))), nil
	})), value.AttrsBuiltinMethod))

	m.DefineOwn(value.StringKey("atan2"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "atan2", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(math.Atan2(r.toNumber(arg(args, 0)), r.toNumber(arg(args, 1)))), nil
	})), value.AttrsBuiltinMethod))

	m.DefineOwn(value.StringKey("max"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "max", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(-1)), nil
		}
		best := math.Inf(-1)
		for _, a := range args {
			f := r.toNumber(a)
			if math.IsNaN(f) {
				return value.Number(math.NaN()), nil
			}
			if f > best {
				best = f
			}
		}
		return value.Number(best), nil
	})), value.AttrsBuiltinMethod))

	m.DefineOwn(value.StringKey("min"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "min", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(math.Inf(1)), nil
		}
		best := math.Inf(1)
		for _, a := range args {
			f := r.toNumber(a)
			if math.IsNaN(f) {
				return value.Number(math.NaN()), nil
			}
			if f < best {
				best = f
			}
		}
		return value.Number(best), nil
	})), value.AttrsBuiltinMethod))

	m.DefineOwn(value.StringKey("random"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "random", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(mathRandomSource()), nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("Math", value.ObjectValue(m))
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}
