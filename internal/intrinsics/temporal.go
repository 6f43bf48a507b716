package intrinsics

import (
	"fmt"
	"time"

	"github.com/otterjs/otter/internal/value"
)

// installTemporal installs a minimal Temporal namespace covering
// Temporal.Now.instant() (an object carrying epochMilliseconds) and
// Temporal.Now.plainDateISO(), and a PlainDate with
// field accessors and toString, the slice of the proposal scripts
// realistically touch (spec.md §2 names Temporal among baseline
// intrinsics alongside Date/Intl; full calendar-system support is out of
// scope, same carve-out as Intl's locale tables).
func installTemporal(r *Runtime) {
	temporal := value.NewObject(r.protos.Object)

	plainDateProto := value.NewObject(r.protos.Object)
	plainDateCtor := value.NewNativeFunction(r.protos.Function, "PlainDate", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		y := int(r.toNumber(arg(args, 0)))
		mo := int(r.toNumber(arg(args, 1)))
		d := int(r.toNumber(arg(args, 2)))
		return value.ObjectValue(newPlainDate(plainDateProto, y, mo, d)), nil
	})
	plainDateCtor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(plainDateProto), value.AttrsPermanent))
	plainField := func(name string, get func(time.Time) int) {
		getter := value.NewNativeFunction(r.protos.Function, "get "+name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			return value.NumberFromInt64(int64(get(plainDateTime(thisArray(ctx))))), nil
		})
		plainDateProto.DefineOwn(value.StringKey(name), value.AccessorProperty(getter, nil, value.Attrs{Enumerable: false, Configurable: true}))
	}
	plainField("year", func(t time.Time) int { return t.Year() })
	plainField("month", func(t time.Time) int { return int(t.Month()) })
	plainField("day", func(t time.Time) int { return t.Day() })
	plainField("dayOfWeek", func(t time.Time) int { return int(t.Weekday()) })
	plainDateProto.DefineOwn(value.StringKey("toString"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		t := plainDateTime(thisArray(ctx))
		return value.String(value.Intern(fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day()))), nil
	})), value.AttrsBuiltinMethod))
	plainDateProto.DefineOwn(value.StringKey("add"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "add", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		t := plainDateTime(thisArray(ctx))
		dur := arg(args, 0)
		days := 0
		if v, err := r.GetProp(dur, "days"); err == nil && v.IsNumber() {
			days = int(v.AsFloat64())
		}
		years, months := 0, 0
		if v, err := r.GetProp(dur, "years"); err == nil && v.IsNumber() {
			years = int(v.AsFloat64())
		}
		if v, err := r.GetProp(dur, "months"); err == nil && v.IsNumber() {
			months = int(v.AsFloat64())
		}
		next := t.AddDate(years, months, days)
		return value.ObjectValue(newPlainDate(plainDateProto, next.Year(), int(next.Month()), next.Day())), nil
	})), value.AttrsBuiltinMethod))
	temporal.DefineOwn(value.StringKey("PlainDate"), value.DataProperty(value.ObjectValue(plainDateCtor), value.AttrsData))

	now := value.NewObject(r.protos.Object)
	now.DefineOwn(value.StringKey("instant"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "instant", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		inst := value.NewObject(r.protos.Object)
		inst.DefineOwn(value.StringKey("epochMilliseconds"), value.DataProperty(value.NumberFromInt64(time.Now().UnixMilli()), value.AttrsPermanent))
		return value.ObjectValue(inst), nil
	})), value.AttrsBuiltinMethod))
	now.DefineOwn(value.StringKey("plainDateISO"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "plainDateISO", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		t := time.Now().UTC()
		return value.ObjectValue(newPlainDate(plainDateProto, t.Year(), int(t.Month()), t.Day())), nil
	})), value.AttrsBuiltinMethod))
	temporal.DefineOwn(value.StringKey("Now"), value.DataProperty(value.ObjectValue(now), value.AttrsData))

	r.SetGlobal("Temporal", value.ObjectValue(temporal))
}

func newPlainDate(proto *value.Object, y, mo, d int) *value.Object {
	o := value.NewObject(proto)
	o.SetInternalSlot("plaindate", time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC))
	return o
}

func plainDateTime(o *value.Object) time.Time {
	v, ok := o.GetInternalSlot("plaindate")
	if !ok {
		return time.Time{}
	}
	return v.(time.Time)
}
