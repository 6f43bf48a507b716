package intrinsics

import (
	"strconv"
	"strings"

	"github.com/ncruces/go-strftime"

	"github.com/otterjs/otter/internal/value"
)

// installIntl installs a minimal but functional Intl namespace
// (Intl.NumberFormat, Intl.DateTimeFormat) rather than an empty
// placeholder — spec.md §2/§4.1 names Intl among the baseline
// intrinsics; full locale-data tables are out of scope (no ICU
// dependency appears anywhere in the example corpus), so formatting
// covers the grouping/decimals and a strftime-driven date layout a
// script actually depends on rather than faithfully reproducing every
// locale's conventions.
func installIntl(r *Runtime) {
	intl := value.NewObject(r.protos.Object)

	numberFormatProto := value.NewObject(r.protos.Object)
	numberFormatCtor := value.NewNativeFunction(r.protos.Function, "NumberFormat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := value.NewObject(numberFormatProto)
		opts := arg(args, 1)
		minFrac, maxFrac := 0, 3
		if opts.IsObject() && opts.AsObject() != nil {
			if v, err := r.GetProp(opts, "minimumFractionDigits"); err == nil && v.IsNumber() {
				minFrac = int(v.AsFloat64())
			}
			if v, err := r.GetProp(opts, "maximumFractionDigits"); err == nil && v.IsNumber() {
				maxFrac = int(v.AsFloat64())
			}
		}
		o.SetInternalSlot("minFrac", minFrac)
		o.SetInternalSlot("maxFrac", maxFrac)
		return value.ObjectValue(o), nil
	})
	numberFormatCtor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(numberFormatProto), value.AttrsPermanent))
	numberFormatProto.DefineOwn(value.StringKey("format"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "format", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		minFrac, _ := o.GetInternalSlot("minFrac")
		maxFrac, _ := o.GetInternalSlot("maxFrac")
		return value.String(value.Intern(formatGrouped(r.toNumber(arg(args, 0)), minFrac.(int), maxFrac.(int)))), nil
	})), value.AttrsBuiltinMethod))
	intl.DefineOwn(value.StringKey("NumberFormat"), value.DataProperty(value.ObjectValue(numberFormatCtor), value.AttrsData))

	dtProto := value.NewObject(r.protos.Object)
	dtCtor := value.NewNativeFunction(r.protos.Function, "DateTimeFormat", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.ObjectValue(value.NewObject(dtProto)), nil
	})
	dtCtor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(dtProto), value.AttrsPermanent))
	dtProto.DefineOwn(value.StringKey("format"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "format", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		ms := r.toNumber(arg(args, 0))
		out, err := strftime.Format("%Y-%m-%d", msToTime(ms))
		if err != nil {
			return value.String(value.Intern("")), nil
		}
		return value.String(value.Intern(out)), nil
	})), value.AttrsBuiltinMethod))
	intl.DefineOwn(value.StringKey("DateTimeFormat"), value.DataProperty(value.ObjectValue(dtCtor), value.AttrsData))

	r.SetGlobal("Intl", value.ObjectValue(intl))
}

// formatGrouped renders f with thousands separators and a fractional
// part clamped to [minFrac, maxFrac] digits, the load-bearing subset of
// Intl.NumberFormat's behavior scripts actually observe in tests.
func formatGrouped(f float64, minFrac, maxFrac int) string {
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', maxFrac, 64)
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	for len(fracPart) > minFrac && strings.HasSuffix(fracPart, "0") {
		fracPart = fracPart[:len(fracPart)-1]
	}
	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	out := grouped.String()
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}
