package value

// PropertyKeyKind discriminates the three PropertyKey shapes (spec.md §3.2).
type PropertyKeyKind uint8

const (
	KeyString PropertyKeyKind = iota
	KeyIndex
	KeySymbol
)

// PropertyKey is a map key: a string, a canonical array index, or a symbol.
// Integer-indexed string keys that parse as valid array indices canonicalize
// to KeyIndex (spec.md §3.2).
type PropertyKey struct {
	Kind PropertyKeyKind
	Str  string
	Idx  uint32
	Sym  *Symbol
}

func StringKey(s string) PropertyKey {
	if idx, ok := ParseArrayIndex(s); ok {
		return PropertyKey{Kind: KeyIndex, Idx: idx}
	}
	return PropertyKey{Kind: KeyString, Str: s}
}

func IndexKey(i uint32) PropertyKey { return PropertyKey{Kind: KeyIndex, Idx: i} }

func SymbolKey(s *Symbol) PropertyKey { return PropertyKey{Kind: KeySymbol, Sym: s} }

// ParseArrayIndex reports whether s is the canonical decimal form of a
// uint32 less than 2^32-1 (valid array index per spec.md §3.2); "00" is
// explicitly rejected since it does not canonicalize (stays a string key).
func ParseArrayIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
		if n >= 1<<32-1 {
			return 0, false
		}
	}
	return uint32(n), true
}

// AsMapKey returns a Go-comparable representation suitable for use as a
// map key in Object's property table.
func (k PropertyKey) AsMapKey() any {
	switch k.Kind {
	case KeyIndex:
		return k.Idx
	case KeySymbol:
		return k.Sym
	default:
		return k.Str
	}
}

// Attrs are the three boolean property attributes (spec.md §3.2).
type Attrs struct {
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// Semantic attribute profiles (spec.md §3.3).
var (
	AttrsData            = Attrs{Writable: true, Enumerable: true, Configurable: true}
	AttrsBuiltinMethod    = Attrs{Writable: true, Enumerable: false, Configurable: true}
	AttrsFunctionLength   = Attrs{Writable: false, Enumerable: false, Configurable: true}
	AttrsPermanent        = Attrs{Writable: false, Enumerable: false, Configurable: false}
	AttrsConstructorLink  = Attrs{Writable: true, Enumerable: false, Configurable: false}
)

// DescriptorKind discriminates Data / Accessor / Deleted descriptors.
type DescriptorKind uint8

const (
	DescData DescriptorKind = iota
	DescAccessor
	DescDeleted
)

// PropertyDescriptor is one entry of an object's property table
// (spec.md §3.2).
type PropertyDescriptor struct {
	Kind  DescriptorKind
	Value Value
	Get   *Object // nil if absent
	Set   *Object // nil if absent
	Attrs Attrs
}

func DataProperty(v Value, attrs Attrs) PropertyDescriptor {
	return PropertyDescriptor{Kind: DescData, Value: v, Attrs: attrs}
}

func AccessorProperty(get, set *Object, attrs Attrs) PropertyDescriptor {
	return PropertyDescriptor{Kind: DescAccessor, Get: get, Set: set, Attrs: attrs}
}

// Class names used as Object.Class, standing in for "internal slot bag"
// discrimination between ordinary objects and specialized exotic objects
// (spec.md §3.2 internal-slot bag).
const (
	ClassObject      = "Object"
	ClassArray       = "Array"
	ClassFunction    = "Function"
	ClassPromise     = "Promise"
	ClassProxy       = "Proxy"
	ClassRegExp      = "RegExp"
	ClassTypedArray  = "TypedArray"
	ClassArrayBuffer = "ArrayBuffer"
	ClassDataView    = "DataView"
	ClassDate        = "Date"
	ClassError       = "Error"
	ClassMap         = "Map"
	ClassSet         = "Set"
	ClassWeakMap     = "WeakMap"
	ClassWeakSet     = "WeakSet"
)

// Object is the uniform heap object shape (spec.md §3.2). Arrays, functions,
// promises, proxies, regexes and typed arrays are all Objects distinguished
// by Class plus fields relevant to that class; "internal-slot bag" state
// that must not appear in ownKeys() lives in the typed fields below rather
// than in Props.
type Object struct {
	Class      string
	Proto      *Object
	Extensible bool
	Sealed     bool
	Frozen     bool

	props    map[any]*PropertyDescriptor
	keyOrder []PropertyKey // insertion order, for ownKeys()

	// Array internal slots (spec.md §3.2: "length mirrors max-Index+1").
	IsArray bool
	dense   []Value // dense 0..len(dense) backing store when no holes
	Length  uint32

	// Function internal slots.
	Func *FunctionData

	// Promise internal slots.
	Promise *PromiseState

	// Proxy internal slots.
	ProxyTarget  *Object
	ProxyHandler *Object
	ProxyRevoked *bool

	// Free-form internal slot bag for intrinsics (Date timestamp, Temporal
	// fields, RegExp source/flags, typed-array backing buffer, etc.) —
	// never enumerable via ownKeys (spec.md §3.2).
	Internal map[string]any
}

// NewObject allocates a plain extensible object with the given prototype.
func NewObject(proto *Object) *Object {
	return &Object{
		Class:      ClassObject,
		Proto:      proto,
		Extensible: true,
		props:      make(map[any]*PropertyDescriptor),
		Internal:   make(map[string]any),
	}
}

// NewArray allocates an array object with a dense backing store of the
// given initial length.
func NewArray(proto *Object, length int) *Object {
	o := NewObject(proto)
	o.Class = ClassArray
	o.IsArray = true
	o.dense = make([]Value, length)
	for i := range o.dense {
		o.dense[i] = Undefined
	}
	o.Length = uint32(length)
	return o
}

// GetInternalSlot fetches free-form internal state never exposed to ownKeys.
func (o *Object) GetInternalSlot(name string) (any, bool) {
	v, ok := o.Internal[name]
	return v, ok
}

// SetInternalSlot stores free-form internal state.
func (o *Object) SetInternalSlot(name string, v any) {
	if o.Internal == nil {
		o.Internal = make(map[string]any)
	}
	o.Internal[name] = v
}

// GetOwn returns the own property descriptor for key, consulting the dense
// array backing store first when applicable.
func (o *Object) GetOwn(key PropertyKey) (*PropertyDescriptor, bool) {
	if o.IsArray {
		if key.Kind == KeyIndex && key.Idx < uint32(len(o.dense)) {
			d := DataProperty(o.dense[key.Idx], AttrsData)
			return &d, true
		}
		if key.Kind == KeyString && key.Str == "length" {
			d := DataProperty(NumberFromInt64(int64(o.Length)), Attrs{Writable: true})
			return &d, true
		}
	}
	d, ok := o.props[key.AsMapKey()]
	if !ok || d == nil || d.Kind == DescDeleted {
		return nil, false
	}
	return d, true
}

// DefineOwn installs (or overwrites) an own property. Array dense-index
// writes past the current length grow the array and update Length.
func (o *Object) DefineOwn(key PropertyKey, desc PropertyDescriptor) {
	if o.IsArray {
		if key.Kind == KeyIndex {
			o.growDenseTo(key.Idx + 1)
			o.dense[key.Idx] = desc.Value
			return
		}
		if key.Kind == KeyString && key.Str == "length" {
			if desc.Value.IsNumber() {
				o.setArrayLength(uint32(desc.Value.AsFloat64()))
			}
			return
		}
	}
	if o.props == nil {
		o.props = make(map[any]*PropertyDescriptor)
	}
	mk := key.AsMapKey()
	if _, existed := o.props[mk]; !existed {
		o.keyOrder = append(o.keyOrder, key)
	}
	d := desc
	o.props[mk] = &d
}

func (o *Object) growDenseTo(n uint32) {
	if n <= uint32(len(o.dense)) {
		if n > o.Length {
			o.Length = n
		}
		return
	}
	grown := make([]Value, n)
	copy(grown, o.dense)
	for i := len(o.dense); i < int(n); i++ {
		grown[i] = Undefined
	}
	o.dense = grown
	o.Length = n
}

func (o *Object) setArrayLength(n uint32) {
	if int(n) < len(o.dense) {
		o.dense = o.dense[:n]
	} else if int(n) > len(o.dense) {
		o.growDenseTo(n)
	}
	o.Length = n
}

// Delete removes an own property (or array element, resetting it to a
// hole-as-undefined since this model keeps arrays dense).
func (o *Object) Delete(key PropertyKey) bool {
	if o.IsArray && key.Kind == KeyIndex {
		if key.Idx < uint32(len(o.dense)) {
			o.dense[key.Idx] = Undefined
		}
		return true
	}
	mk := key.AsMapKey()
	if _, ok := o.props[mk]; !ok {
		return false
	}
	delete(o.props, mk)
	for i, k := range o.keyOrder {
		if k.AsMapKey() == mk {
			o.keyOrder = append(o.keyOrder[:i], o.keyOrder[i+1:]...)
			break
		}
	}
	return true
}

// OwnKeys returns own property keys in spec order: dense array indices
// ascending, then string keys in insertion order, then symbol keys in
// insertion order (approximation of ES [[OwnPropertyKeys]] ordering).
func (o *Object) OwnKeys() []PropertyKey {
	var indices, strs, syms []PropertyKey
	if o.IsArray {
		for i := range o.dense {
			indices = append(indices, IndexKey(uint32(i)))
		}
	}
	for _, k := range o.keyOrder {
		switch k.Kind {
		case KeyIndex:
			indices = append(indices, k)
		case KeyString:
			strs = append(strs, k)
		case KeySymbol:
			syms = append(syms, k)
		}
	}
	out := make([]PropertyKey, 0, len(indices)+len(strs)+len(syms))
	out = append(out, indices...)
	out = append(out, strs...)
	out = append(out, syms...)
	return out
}

// Lookup walks the prototype chain for a readable property (own, then
// Proto, ...), returning the descriptor and the object it was found on
// (needed so accessor getters can be invoked with the correct receiver
// distinct from where the descriptor lives).
func (o *Object) Lookup(key PropertyKey) (*PropertyDescriptor, *Object, bool) {
	cur := o
	for cur != nil {
		if d, ok := cur.GetOwn(key); ok {
			return d, cur, true
		}
		cur = cur.Proto
	}
	return nil, nil, false
}

// FunctionData holds the callable internal slots for Class==ClassFunction.
type FunctionData struct {
	Name     string
	IsNative bool
	Native   NativeFunc
	// Closure fields, meaningful when !IsNative.
	ModuleFuncIndex int
	Upvalues        []*Value // captured cells, shared with the defining frame
	This            *Object  // bound receiver, if any (Function.prototype.bind)
	IsConstructor   bool
}

// NativeContext is passed to native functions (spec.md §4.3 "NativeContext").
type NativeContext struct {
	This      Value
	NewTarget *Object // non-nil when invoked via `new`
}

// NativeFunc is a host-implemented callable's Go signature.
type NativeFunc func(ctx *NativeContext, args []Value) (Value, error)

// PromiseStatus mirrors spec.md §3.4's monotonic state machine.
type PromiseStatus uint8

const (
	PromisePending PromiseStatus = iota
	PromiseFulfilled
	PromiseRejected
)

// PromiseState holds a promise's internal slots.
type PromiseState struct {
	Status   PromiseStatus
	Result   Value
	OnFulfil []func(Value)
	OnReject []func(Value)
	Handled  bool
}
