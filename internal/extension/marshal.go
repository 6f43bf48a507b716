package extension

import (
	"fmt"

	"github.com/otterjs/otter/internal/value"
)

// Marshal limits (spec.md §4.7 "JSON<->Value marshalling depth>=512,
// element/property count>=5000 are rejected rather than silently
// truncated"). These are the minimums the bridge must accept; they bound
// the walk below to keep a hostile or buggy script from recursing the
// host process into a stack overflow.
const (
	MaxDepth = 512
	MaxCount = 5000
)

// ErrTooDeep/ErrTooLarge are returned by ToJSON/FromJSON when a value
// exceeds the marshalling limits.
var (
	ErrTooDeep  = fmt.Errorf("extension: value exceeds marshalling depth limit (%d)", MaxDepth)
	ErrTooLarge = fmt.Errorf("extension: value exceeds marshalling element/property count limit (%d)", MaxCount)
)

// Getter is the slice of intrinsics.Runtime this package needs to walk a
// Value tree without importing internal/intrinsics: property reads only
// (array-ness and length are read straight off the value.Object),
// satisfied structurally by *intrinsics.Runtime at the call site in
// otter/extensions.go.
type Getter interface {
	GetProp(v value.Value, key string) (value.Value, error)
}

// ToJSON walks a script Value into plain `any` data (map[string]any,
// []any, string, float64, bool, nil) suitable for a Sync/Async op's JSON
// ABI, enforcing MaxDepth/MaxCount (spec.md §4.7).
func ToJSON(g Getter, v value.Value) (any, error) {
	count := 0
	return toJSON(g, v, 0, &count)
}

func toJSON(g Getter, v value.Value, depth int, count *int) (any, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	*count++
	if *count > MaxCount {
		return nil, ErrTooLarge
	}
	switch {
	case v.IsUndefined(), v.IsNull():
		return nil, nil
	case v.IsBool():
		return v.AsBool(), nil
	case v.IsNumber():
		return v.AsFloat64(), nil
	case v.IsString():
		return v.AsString().Value(), nil
	case v.IsObject():
		o := v.AsObject()
		if o == nil {
			return nil, nil
		}
		if o.IsArray {
			out := make([]any, 0, o.Length)
			for i := uint32(0); i < o.Length; i++ {
				elem, err := g.GetProp(v, fmt.Sprintf("%d", i))
				if err != nil {
					return nil, err
				}
				ev, err := toJSON(g, elem, depth+1, count)
				if err != nil {
					return nil, err
				}
				out = append(out, ev)
			}
			return out, nil
		}
		out := make(map[string]any, len(o.OwnKeys()))
		for _, key := range o.OwnKeys() {
			if key.Kind != value.KeyString {
				continue
			}
			fv, err := g.GetProp(v, key.Str)
			if err != nil {
				return nil, err
			}
			jv, err := toJSON(g, fv, depth+1, count)
			if err != nil {
				return nil, err
			}
			out[key.Str] = jv
		}
		return out, nil
	default:
		return nil, nil
	}
}

// Setter is the companion of Getter for FromJSON's object/array
// construction.
type Setter interface {
	SetProp(v value.Value, key string, val value.Value) error
	NewObject() value.Value
	NewArray(n int) value.Value
}

// FromJSON rebuilds a script Value from plain JSON-ABI data, enforcing the
// same MaxDepth/MaxCount limits as ToJSON so a malicious or buggy host op
// can't hand the VM an unbounded structure either.
func FromJSON(s Setter, data any) (value.Value, error) {
	count := 0
	return fromJSON(s, data, 0, &count)
}

func fromJSON(s Setter, data any, depth int, count *int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Undefined, ErrTooDeep
	}
	*count++
	if *count > MaxCount {
		return value.Undefined, ErrTooLarge
	}
	switch d := data.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(d), nil
	case float64:
		return value.Number(d), nil
	case int:
		return value.NumberFromInt64(int64(d)), nil
	case string:
		return value.String(value.Intern(d)), nil
	case []any:
		arr := s.NewArray(len(d))
		for i, elem := range d {
			ev, err := fromJSON(s, elem, depth+1, count)
			if err != nil {
				return value.Undefined, err
			}
			if err := s.SetProp(arr, fmt.Sprintf("%d", i), ev); err != nil {
				return value.Undefined, err
			}
		}
		return arr, nil
	case map[string]any:
		obj := s.NewObject()
		for k, elem := range d {
			ev, err := fromJSON(s, elem, depth+1, count)
			if err != nil {
				return value.Undefined, err
			}
			if err := s.SetProp(obj, k, ev); err != nil {
				return value.Undefined, err
			}
		}
		return obj, nil
	default:
		return value.Undefined, fmt.Errorf("extension: unsupported JSON-ABI type %T", data)
	}
}
