// Package value implements the tagged value and object model of spec.md
// §3: primitives plus heap references, property descriptors/attributes,
// arrays, strings with interning, symbols, bigints, promises, and proxies.
package value

import "math/big"

// Kind discriminates a Value's representation (spec.md §3.1).
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt32
	KindNumber
	KindString
	KindBigInt
	KindSymbol
	KindObject
)

// Value is a compact tagged value. int32 and number are both semantically
// "Number" — int32 is a representational fast path (spec.md §3.1); use
// AsFloat64 to treat them uniformly.
type Value struct {
	kind Kind
	b    bool
	i32  int32
	num  float64
	str  *InternedString
	big  *big.Int
	sym  *Symbol
	obj  *Object
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool, b: false}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int32 returns an int32-tagged Number (spec.md §8 boundary: 2^31-1 and
// -2^31 stay int32-tagged; 2^31 must go through Number instead).
func Int32(i int32) Value { return Value{kind: KindInt32, i32: i} }

// Number returns an f64-tagged Number, used for non-integral values and
// magnitudes outside the int32 range.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// NumberFromInt64 chooses the int32 fast path when the value fits.
func NumberFromInt64(i int64) Value {
	if i >= -2147483648 && i <= 2147483647 {
		return Int32(int32(i))
	}
	return Number(float64(i))
}

func String(s *InternedString) Value { return Value{kind: KindString, str: s} }

func BigInt(b *big.Int) Value { return Value{kind: KindBigInt, big: b} }

func SymbolValue(s *Symbol) Value { return Value{kind: KindSymbol, sym: s} }

// ObjectValue wraps a heap object as a Value; a nil object coerces to
// Undefined so callers don't need a separate nil check at every call site.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Undefined
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind == KindUndefined || v.kind == KindNull }
func (v Value) IsBool() bool      { return v.kind == KindBool }
func (v Value) IsNumber() bool    { return v.kind == KindInt32 || v.kind == KindNumber }
func (v Value) IsInt32() bool     { return v.kind == KindInt32 }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsBigInt() bool    { return v.kind == KindBigInt }
func (v Value) IsSymbol() bool    { return v.kind == KindSymbol }
func (v Value) IsObject() bool    { return v.kind == KindObject }

func (v Value) AsBool() bool { return v.b }

// AsFloat64 returns the numeric value regardless of int32/number tagging.
// For a value that is not a Number it returns 0, so callers check
// IsNumber first.
func (v Value) AsFloat64() float64 {
	if v.kind == KindInt32 {
		return float64(v.i32)
	}
	return v.num
}

func (v Value) AsInt32() int32 { return v.i32 }

func (v Value) AsString() *InternedString { return v.str }

func (v Value) AsBigInt() *big.Int { return v.big }

func (v Value) AsSymbol() *Symbol { return v.sym }

func (v Value) AsObject() *Object { return v.obj }

// TypeOf implements the `typeof` operator (spec.md §3.6 TypeOf instruction).
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBool:
		return "boolean"
	case KindInt32, KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		if v.obj != nil && v.obj.Class == ClassFunction {
			return "function"
		}
		return "object"
	}
	return "undefined"
}

// ToBoolean implements ECMAScript ToBoolean coercion.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt32:
		return v.i32 != 0
	case KindNumber:
		return v.num != 0 && !isNaN(v.num)
	case KindString:
		return v.str != nil && len(v.str.Value()) > 0
	case KindBigInt:
		return v.big != nil && v.big.Sign() != 0
	case KindSymbol, KindObject:
		return true
	}
	return false
}

func isNaN(f float64) bool { return f != f }

// SameValue implements the ES SameValue algorithm: NaN equals NaN, and
// +0 is distinct from -0 (spec.md §4.8, §8 testable property 8).
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		// int32 vs number representing the same mathematical value are
		// still SameValue-equal, since both are semantically "Number".
		if a.IsNumber() && b.IsNumber() {
			return sameNumber(a.AsFloat64(), b.AsFloat64())
		}
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt32:
		return a.i32 == b.i32
	case KindNumber:
		return sameNumber(a.num, b.num)
	case KindString:
		return a.str != nil && b.str != nil && a.str.Value() == b.str.Value()
	case KindBigInt:
		return a.big != nil && b.big != nil && a.big.Cmp(b.big) == 0
	case KindSymbol:
		return a.sym == b.sym
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

func sameNumber(x, y float64) bool {
	if isNaN(x) && isNaN(y) {
		return true
	}
	if x == 0 && y == 0 {
		// distinguish +0 from -0 via 1/x sign
		return signbit(x) == signbit(y)
	}
	return x == y
}

func signbit(f float64) bool { return f < 0 || (f == 0 && 1/f < 0) }

// StrictEquals implements `===`: like SameValue but +0 == -0 and
// NaN !== NaN, matching JS semantics (distinct from SameValue).
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return a.AsFloat64() == b.AsFloat64()
		}
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt32:
		return a.i32 == b.i32
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str != nil && b.str != nil && a.str.Value() == b.str.Value()
	case KindBigInt:
		return a.big != nil && b.big != nil && a.big.Cmp(b.big) == 0
	case KindSymbol:
		return a.sym == b.sym
	case KindObject:
		return a.obj == b.obj
	}
	return false
}
