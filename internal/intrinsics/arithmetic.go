package intrinsics

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/otterjs/otter/internal/bytecode"
	"github.com/otterjs/otter/internal/value"
)

// BinaryOp implements the arithmetic/comparison opcodes the compiler emits
// for JS binary operators (spec.md §4.1, §4.8). String concatenation wins
// `+` whenever either operand is a string; everything else follows ToNumber
// coercion the way the teacher's numeric-tower helpers do.
func (r *Runtime) BinaryOp(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		if a.IsString() || b.IsString() {
			return value.String(value.Intern(r.toStringCoerce(a) + r.toStringCoerce(b))), nil
		}
		if a.IsBigInt() && b.IsBigInt() {
			return value.BigInt(new(big.Int).Add(a.AsBigInt(), b.AsBigInt())), nil
		}
		return value.Number(r.toNumber(a) + r.toNumber(b)), nil
	case bytecode.OpSub:
		if a.IsBigInt() && b.IsBigInt() {
			return value.BigInt(new(big.Int).Sub(a.AsBigInt(), b.AsBigInt())), nil
		}
		return value.Number(r.toNumber(a) - r.toNumber(b)), nil
	case bytecode.OpMul:
		if a.IsBigInt() && b.IsBigInt() {
			return value.BigInt(new(big.Int).Mul(a.AsBigInt(), b.AsBigInt())), nil
		}
		return value.Number(r.toNumber(a) * r.toNumber(b)), nil
	case bytecode.OpDiv:
		return value.Number(r.toNumber(a) / r.toNumber(b)), nil
	case bytecode.OpMod:
		return value.Number(math.Mod(r.toNumber(a), r.toNumber(b))), nil
	case bytecode.OpPow:
		if a.IsBigInt() && b.IsBigInt() {
			return value.BigInt(new(big.Int).Exp(a.AsBigInt(), b.AsBigInt(), nil)), nil
		}
		return value.Number(math.Pow(r.toNumber(a), r.toNumber(b))), nil
	case bytecode.OpBitAnd:
		return value.Int32(toInt32(r.toNumber(a)) & toInt32(r.toNumber(b))), nil
	case bytecode.OpBitOr:
		return value.Int32(toInt32(r.toNumber(a)) | toInt32(r.toNumber(b))), nil
	case bytecode.OpBitXor:
		return value.Int32(toInt32(r.toNumber(a)) ^ toInt32(r.toNumber(b))), nil
	case bytecode.OpShl:
		return value.Int32(toInt32(r.toNumber(a)) << (uint32(toInt32(r.toNumber(b))) & 31)), nil
	case bytecode.OpShr:
		return value.Int32(toInt32(r.toNumber(a)) >> (uint32(toInt32(r.toNumber(b))) & 31)), nil
	case bytecode.OpUShr:
		ua := uint32(toInt32(r.toNumber(a)))
		return value.NumberFromInt64(int64(ua >> (uint32(toInt32(r.toNumber(b))) & 31))), nil
	case bytecode.OpEq:
		return value.Bool(r.looseEquals(a, b)), nil
	case bytecode.OpNotEq:
		return value.Bool(!r.looseEquals(a, b)), nil
	case bytecode.OpStrictEq:
		return value.Bool(value.StrictEquals(a, b)), nil
	case bytecode.OpStrictNotEq:
		return value.Bool(!value.StrictEquals(a, b)), nil
	case bytecode.OpLt:
		return r.compare(a, b, func(x, y float64) bool { return x < y }, func(x, y string) bool { return x < y })
	case bytecode.OpLte:
		return r.compare(a, b, func(x, y float64) bool { return x <= y }, func(x, y string) bool { return x <= y })
	case bytecode.OpGt:
		return r.compare(a, b, func(x, y float64) bool { return x > y }, func(x, y string) bool { return x > y })
	case bytecode.OpGte:
		return r.compare(a, b, func(x, y float64) bool { return x >= y }, func(x, y string) bool { return x >= y })
	}
	return value.Undefined, r.ThrowTypeError("unsupported binary opcode %v", op)
}

func (r *Runtime) compare(a, b value.Value, numCmp func(x, y float64) bool, strCmp func(x, y string) bool) (value.Value, error) {
	if a.IsString() && b.IsString() {
		return value.Bool(strCmp(a.AsString().Value(), b.AsString().Value())), nil
	}
	x, y := r.toNumber(a), r.toNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return value.False, nil
	}
	return value.Bool(numCmp(x, y)), nil
}

// UnaryOp implements typeof/!/unary-minus/~/++/-- (spec.md §4.1).
func (r *Runtime) UnaryOp(op bytecode.Opcode, a value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpTypeOf:
		return value.String(value.Intern(a.TypeOf())), nil
	case bytecode.OpNeg:
		if a.IsBigInt() {
			return value.BigInt(new(big.Int).Neg(a.AsBigInt())), nil
		}
		return value.Number(-r.toNumber(a)), nil
	case bytecode.OpNot:
		return value.Bool(!a.ToBoolean()), nil
	case bytecode.OpBitNot:
		return value.Int32(^toInt32(r.toNumber(a))), nil
	case bytecode.OpInc:
		return r.BinaryOp(bytecode.OpAdd, a, value.Int32(1))
	case bytecode.OpDec:
		return r.BinaryOp(bytecode.OpSub, a, value.Int32(1))
	}
	return value.Undefined, r.ThrowTypeError("unsupported unary opcode %v", op)
}

// toNumber implements ToNumber for the primitive kinds. Objects are not
// coerced through valueOf/toString: an empty array becomes 0, a
// one-element array converts its element, and any other object is NaN.
func (r *Runtime) toNumber(v value.Value) float64 {
	switch v.Kind() {
	case value.KindUndefined:
		return math.NaN()
	case value.KindNull:
		return 0
	case value.KindBool:
		if v.AsBool() {
			return 1
		}
		return 0
	case value.KindInt32, value.KindNumber:
		return v.AsFloat64()
	case value.KindString:
		return parseNumericString(v.AsString().Value())
	case value.KindBigInt:
		f, _ := new(big.Float).SetInt(v.AsBigInt()).Float64()
		return f
	case value.KindObject:
		if v.AsObject() != nil && v.AsObject().IsArray && v.AsObject().Length <= 1 {
			if v.AsObject().Length == 0 {
				return 0
			}
			el, _ := v.AsObject().GetOwn(value.IndexKey(0))
			if el != nil {
				return r.toNumber(el.Value)
			}
		}
	}
	return math.NaN()
}

func parseNumericString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (r *Runtime) toStringCoerce(v value.Value) string {
	if v.IsObject() {
		o := v.AsObject()
		if o != nil && o.IsArray {
			parts := make([]string, o.Length)
			for i := uint32(0); i < o.Length; i++ {
				if d, ok := o.GetOwn(value.IndexKey(i)); ok && !d.Value.IsNullish() {
					parts[i] = r.toStringCoerce(d.Value)
				}
			}
			return strings.Join(parts, ",")
		}
	}
	return value.ToStringNoThrow(v)
}

func (r *Runtime) looseEquals(a, b value.Value) bool {
	if a.Kind() == b.Kind() {
		return value.StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	if a.IsNumber() && b.IsString() {
		return a.AsFloat64() == r.toNumber(b)
	}
	if a.IsString() && b.IsNumber() {
		return r.toNumber(a) == b.AsFloat64()
	}
	if a.IsBool() {
		return r.looseEquals(value.NumberFromInt64(boolToInt(a.AsBool())), b)
	}
	if b.IsBool() {
		return r.looseEquals(a, value.NumberFromInt64(boolToInt(b.AsBool())))
	}
	if (a.IsNumber() || a.IsString()) && b.IsObject() {
		return r.looseEquals(a, value.String(value.Intern(r.toStringCoerce(b))))
	}
	if a.IsObject() && (b.IsNumber() || b.IsString()) {
		return r.looseEquals(value.String(value.Intern(r.toStringCoerce(a))), b)
	}
	return false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(int64(f))
}
