package intrinsics

import (
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/otterjs/otter/internal/value"
)

// dateSlot is the internal-slot key holding a Date's time value: epoch
// milliseconds as a float64, matching spec.md §2's Date semantics (NaN
// for an Invalid Date) rather than a Go time.Time, which has no NaN.
const dateSlot = "timestamp"

func dateOf(o *value.Object) float64 {
	v, ok := o.GetInternalSlot(dateSlot)
	if !ok {
		return 0
	}
	return v.(float64)
}

func setDate(o *value.Object, ms float64) { o.SetInternalSlot(dateSlot, ms) }

func msToTime(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// installDateCtor installs `new Date(...)`, `Date.now()`, and the
// getter/toString family, formatting via github.com/ncruces/go-strftime
// instead of hand-rolling strftime-style layout parsing (spec.md §2 names
// Date as a required intrinsic; the DOMAIN STACK wires this specific
// library to back it).
func installDateCtor(r *Runtime) {
	proto := r.protos.Date
	ctor := value.NewNativeFunction(r.protos.Function, "Date", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.String(value.Intern(formatDate(float64(time.Now().UnixMilli()), "%a %b %d %Y %H:%M:%S GMT+0000"))), nil
		}
		o := value.NewObject(proto)
		o.Class = value.ClassDate
		switch len(args) {
		case 0:
			setDate(o, float64(time.Now().UnixMilli()))
		case 1:
			if args[0].IsString() {
				t, err := time.Parse(time.RFC3339, args[0].AsString().Value())
				if err != nil {
					setDate(o, nan())
				} else {
					setDate(o, float64(t.UnixMilli()))
				}
			} else {
				setDate(o, r.toNumber(args[0]))
			}
		default:
			get := func(i int, def int) int {
				if i < len(args) {
					return int(r.toNumber(args[i]))
				}
				return def
			}
			y, mo, d := get(0, 1970), get(1, 0), get(2, 1)
			h, mi, s, msPart := get(3, 0), get(4, 0), get(5, 0), get(6, 0)
			t := time.Date(y, time.Month(mo+1), d, h, mi, s, msPart*1e6, time.UTC)
			setDate(o, float64(t.UnixMilli()))
		}
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("now"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "now", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.NumberFromInt64(time.Now().UnixMilli()), nil
	})), value.AttrsBuiltinMethod))
	r.SetGlobal("Date", value.ObjectValue(ctor))

	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}
	field := func(name string, get func(time.Time) int) {
		method(name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			o := thisArray(ctx)
			ms := dateOf(o)
			if ms != ms { // NaN
				return value.Number(nan()), nil
			}
			return value.NumberFromInt64(int64(get(msToTime(ms)))), nil
		})
	}
	field("getFullYear", func(t time.Time) int { return t.Year() })
	field("getMonth", func(t time.Time) int { return int(t.Month()) - 1 })
	field("getDate", func(t time.Time) int { return t.Day() })
	field("getDay", func(t time.Time) int { return int(t.Weekday()) })
	field("getHours", func(t time.Time) int { return t.Hour() })
	field("getMinutes", func(t time.Time) int { return t.Minute() })
	field("getSeconds", func(t time.Time) int { return t.Second() })
	field("getMilliseconds", func(t time.Time) int { return t.Nanosecond() / 1e6 })
	field("getUTCFullYear", func(t time.Time) int { return t.Year() })
	field("getUTCMonth", func(t time.Time) int { return int(t.Month()) - 1 })
	field("getUTCDate", func(t time.Time) int { return t.Day() })
	field("getUTCHours", func(t time.Time) int { return t.Hour() })

	method("getTime", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(dateOf(thisArray(ctx))), nil
	})
	method("valueOf", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Number(dateOf(thisArray(ctx))), nil
	})
	method("setTime", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		ms := r.toNumber(arg(args, 0))
		setDate(o, ms)
		return value.Number(ms), nil
	})
	method("toISOString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		ms := dateOf(thisArray(ctx))
		if ms != ms {
			return value.Undefined, r.ThrowTypeError("Invalid time value")
		}
		return value.String(value.Intern(formatDate(ms, "%Y-%m-%dT%H:%M:%S.000Z"))), nil
	})
	method("toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		ms := dateOf(thisArray(ctx))
		if ms != ms {
			return value.String(value.Intern("Invalid Date")), nil
		}
		return value.String(value.Intern(formatDate(ms, "%a %b %d %Y %H:%M:%S GMT+0000"))), nil
	})
	method("toDateString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(formatDate(dateOf(thisArray(ctx)), "%a %b %d %Y"))), nil
	})
	method("toJSON", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.String(value.Intern(formatDate(dateOf(thisArray(ctx)), "%Y-%m-%dT%H:%M:%S.000Z"))), nil
	})
}

// formatDate renders epoch milliseconds via strftime.Format, matching
// how github.com/ncruces/go-strftime/internal layouts are expressed
// (percent-directives rather than Go's reference-time layout strings).
func formatDate(ms float64, layout string) string {
	if ms != ms {
		return "Invalid Date"
	}
	out, err := strftime.Format(layout, msToTime(ms))
	if err != nil {
		return msToTime(ms).Format(time.RFC1123)
	}
	return out
}

func nan() float64 {
	var zero float64
	return zero / zero
}
