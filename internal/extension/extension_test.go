package extension

import (
	"errors"
	"testing"

	"github.com/otterjs/otter/internal/value"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	ext := New("kv")
	ext.AddOp(OpDecl{Name: "__kv_get", Kind: OpSync, Capability: "write"})
	reg.Register(ext)

	got, ok := reg.Lookup("kv")
	if !ok {
		t.Fatal("expected to find registered extension by name")
	}
	if got.ID == "" {
		t.Error("expected New() to stamp a non-empty ID")
	}
	if len(got.Ops) != 1 || got.Ops[0].Name != "__kv_get" {
		t.Fatalf("got Ops=%v, want one op named __kv_get", got.Ops)
	}
	if len(reg.Extensions()) != 1 {
		t.Errorf("Extensions() = %d entries, want 1", len(reg.Extensions()))
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("expected Lookup of unregistered name to fail")
	}
}

func TestExtension_PutStateAndState(t *testing.T) {
	ext := New("storage")
	if _, ok := ext.State("conn"); ok {
		t.Fatal("expected State to report absent before any PutState")
	}
	ext.PutState("conn", 42)
	v, ok := ext.State("conn")
	if !ok || v.(int) != 42 {
		t.Fatalf("State(conn) = %v, %v, want 42, true", v, ok)
	}
}

func TestExtension_TwoDistinctExtensionsGetDistinctIDs(t *testing.T) {
	a, b := New("a"), New("b")
	if a.ID == b.ID {
		t.Error("expected distinct uuids for distinct extensions")
	}
}

// fakeObjTree is a minimal Getter/Setter pair operating directly on
// internal/value.Object (no prototype chain, no intrinsics.Runtime
// involved) so ToJSON/FromJSON can be exercised without pulling in
// internal/intrinsics, which this package does not import (only the root
// otter package, in otter/extensions.go, imports both).
type fakeObjTree struct{}

func (fakeObjTree) GetProp(v value.Value, key string) (value.Value, error) {
	o := v.AsObject()
	if o == nil {
		return value.Undefined, errors.New("not an object")
	}
	desc, ok := o.GetOwn(value.StringKey(key))
	if !ok {
		return value.Undefined, nil
	}
	return desc.Value, nil
}

func (fakeObjTree) SetProp(v value.Value, key string, val value.Value) error {
	o := v.AsObject()
	if o == nil {
		return errors.New("not an object")
	}
	o.DefineOwn(value.StringKey(key), value.DataProperty(val, value.AttrsData))
	return nil
}

func (fakeObjTree) NewObject() value.Value {
	return value.ObjectValue(value.NewObject(nil))
}

func (fakeObjTree) NewArray(n int) value.Value {
	o := value.NewObject(nil)
	o.IsArray = true
	o.Length = uint32(n)
	return value.ObjectValue(o)
}

func TestToJSON_Primitives(t *testing.T) {
	g := fakeObjTree{}
	cases := []struct {
		name string
		in   value.Value
		want any
	}{
		{"undefined", value.Undefined, nil},
		{"null", value.Null, nil},
		{"true", value.True, true},
		{"number", value.NumberFromInt64(7), float64(7)},
		{"string", value.String(value.Intern("hi")), "hi"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ToJSON(g, c.in)
			if err != nil {
				t.Fatalf("ToJSON error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %#v, want %#v", got, c.want)
			}
		})
	}
}

func TestToJSON_ObjectAndArray(t *testing.T) {
	g := fakeObjTree{}
	arr := g.NewArray(2)
	_ = g.SetProp(arr, "0", value.NumberFromInt64(1))
	_ = g.SetProp(arr, "1", value.NumberFromInt64(2))

	obj := g.NewObject()
	_ = g.SetProp(obj, "items", arr)
	_ = g.SetProp(obj, "name", value.String(value.Intern("widget")))

	got, err := ToJSON(g, obj)
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map[string]any", got)
	}
	if m["name"] != "widget" {
		t.Errorf("name = %v, want widget", m["name"])
	}
	items, ok := m["items"].([]any)
	if !ok || len(items) != 2 || items[0] != float64(1) || items[1] != float64(2) {
		t.Errorf("items = %#v, want [1 2]", m["items"])
	}
}

func TestFromJSON_RoundTripsThroughToJSON(t *testing.T) {
	g := fakeObjTree{}
	data := map[string]any{
		"count": float64(3),
		"tags":  []any{"a", "b"},
		"ok":    true,
		"empty": nil,
	}
	v, err := FromJSON(g, data)
	if err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	back, err := ToJSON(g, v)
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}
	m, ok := back.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map[string]any", back)
	}
	if m["count"] != float64(3) || m["ok"] != true || m["empty"] != nil {
		t.Errorf("round-tripped scalar fields = %#v", m)
	}
	tags, ok := m["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %#v, want [a b]", m["tags"])
	}
}

func TestToJSON_RejectsExcessiveDepth(t *testing.T) {
	g := fakeObjTree{}
	// Build a chain deeper than MaxDepth by nesting objects under "next".
	root := g.NewObject()
	cur := root
	for i := 0; i < MaxDepth+5; i++ {
		next := g.NewObject()
		_ = g.SetProp(cur, "next", next)
		cur = next
	}
	_, err := ToJSON(g, root)
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("got err=%v, want ErrTooDeep", err)
	}
}

func TestToJSON_RejectsExcessiveCount(t *testing.T) {
	g := fakeObjTree{}
	arr := g.NewArray(MaxCount + 10)
	for i := 0; i < MaxCount+10; i++ {
		_ = g.SetProp(arr, itoa(i), value.NumberFromInt64(int64(i)))
	}
	_, err := ToJSON(g, arr)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got err=%v, want ErrTooLarge", err)
	}
}

func TestFromJSON_RejectsExcessiveCount(t *testing.T) {
	g := fakeObjTree{}
	big := make([]any, MaxCount+10)
	for i := range big {
		big[i] = float64(i)
	}
	_, err := FromJSON(g, big)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got err=%v, want ErrTooLarge", err)
	}
}

func TestFromJSON_RejectsUnsupportedType(t *testing.T) {
	g := fakeObjTree{}
	_, err := FromJSON(g, make(chan int))
	if err == nil {
		t.Fatal("expected an error for an unsupported JSON-ABI type")
	}
}

func itoa(i int) string {
	// Avoid pulling in strconv purely for a handful of test indices.
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
