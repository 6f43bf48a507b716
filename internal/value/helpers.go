package value

// NewNativeFunction wraps a Go function as a callable Function object.
func NewNativeFunction(proto *Object, name string, fn NativeFunc) *Object {
	o := NewObject(proto)
	o.Class = ClassFunction
	o.Func = &FunctionData{Name: name, IsNative: true, Native: fn}
	o.DefineOwn(StringKey("name"), DataProperty(String(staticIntern(name)), AttrsFunctionLength))
	return o
}

// IsCallable reports whether v is a Function object (native or closure).
func IsCallable(v Value) bool {
	return v.IsObject() && v.AsObject() != nil && v.AsObject().Class == ClassFunction
}

// ToPropertyKey coerces a Value used as a computed property key into a
// PropertyKey, canonicalizing numeric-string indices (spec.md §3.2).
func ToPropertyKey(v Value) PropertyKey {
	switch {
	case v.IsSymbol():
		return SymbolKey(v.AsSymbol())
	case v.IsString():
		return StringKey(v.AsString().Value())
	case v.IsNumber():
		f := v.AsFloat64()
		if f >= 0 && f == float64(uint32(f)) {
			return IndexKey(uint32(f))
		}
		return StringKey(formatNumber(f))
	default:
		return StringKey(ToStringNoThrow(v))
	}
}

// staticIntern is a tiny fallback intern used by packages that construct
// Values without access to a shared InternTable (e.g. naming native
// functions at registration time, before a runtime-wide table exists).
func staticIntern(s string) *InternedString {
	return globalStaticTable.Intern(s)
}

var globalStaticTable = NewInternTable()

// Intern exposes the package-wide static intern table for callers (mainly
// intrinsics setup) that do not carry a runtime-scoped table reference.
func Intern(s string) *InternedString { return staticIntern(s) }
