package value

import (
	"math"
	"strconv"
)

// formatNumber implements the common subset of ECMAScript Number::toString
// needed for property-key canonicalization and debug output: integral
// values print without a decimal point, NaN/Infinity print their literal
// names, and finite non-integral values use Go's shortest round-trip form.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if signbit(f) {
			return "0" // ToString(-0) is "0" per spec, unlike SameValue
		}
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// ToStringNoThrow coerces a primitive Value to its string form without
// invoking any user-defined toString/valueOf (this package cannot call
// into the VM). Objects
// fall back to a generic placeholder.
func ToStringNoThrow(v Value) string {
	switch v.Kind() {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt32:
		return strconv.FormatInt(int64(v.AsInt32()), 10)
	case KindNumber:
		return formatNumber(v.AsFloat64())
	case KindString:
		return v.AsString().Value()
	case KindBigInt:
		return v.AsBigInt().String()
	case KindSymbol:
		return "Symbol(" + v.AsSymbol().Description + ")"
	case KindObject:
		obj := v.AsObject()
		if obj != nil && obj.IsArray {
			return "[object Array]"
		}
		return "[object Object]"
	}
	return ""
}
