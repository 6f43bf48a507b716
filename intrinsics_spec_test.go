package otter

import (
	"context"
	"testing"

	"github.com/otterjs/otter/internal/value"
)

// These exercise the intrinsics added to close out the spec's "required
// intrinsics" list (Map/Set/WeakMap/WeakSet, RegExp, Date, Intl, Temporal,
// typed arrays, Proxy) the same way runtime_test.go exercises arithmetic
// and timers: through EvalSync end to end, not by poking internal/value
// directly.

func evalGlobal(t *testing.T, src, resultExpr string) value.Value {
	t.Helper()
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	full := src + "\nglobalThis.__out = (" + resultExpr + ");"
	if _, err := r.EvalSync(context.Background(), full, "test.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	v, err := r.rt.GetGlobal("__out")
	if err != nil {
		t.Fatalf("GetGlobal(__out) error: %v", err)
	}
	return v
}

func TestIntrinsics_Map_BasicOps(t *testing.T) {
	v := evalGlobal(t, `
		const m = new Map();
		m.set("a", 1).set("b", 2);
	`, `m.has("a") && m.get("b") === 2 && m.size === 2 && (m.delete("a"), m.size === 1)`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Map_NaNKeyUsesSameValueZero(t *testing.T) {
	v := evalGlobal(t, `
		const m = new Map();
		m.set(NaN, "nan-value");
	`, `m.get(NaN)`)
	if !v.IsString() || v.AsString().Value() != "nan-value" {
		t.Fatalf("got %v, want nan-value", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Set_BasicOps(t *testing.T) {
	v := evalGlobal(t, `
		const s = new Set([1, 2, 2, 3]);
	`, `s.size === 3 && s.has(2) && !s.has(99)`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_WeakMap_GetSetHas(t *testing.T) {
	v := evalGlobal(t, `
		const wm = new WeakMap();
		const key = {};
		wm.set(key, "secret");
	`, `wm.get(key) === "secret" && wm.has(key)`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_RegExp_TestAndExec(t *testing.T) {
	v := evalGlobal(t, `
		const re = new RegExp("(\\d+)-(\\d+)");
		const m = re.exec("order 42-7");
	`, `re.test("abc123") && m[1] === "42" && m[2] === "7"`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_RegExp_IgnoreCaseFlag(t *testing.T) {
	v := evalGlobal(t, `const re = new RegExp("hello", "i");`, `re.test("HELLO WORLD")`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Date_ConstructFromEpochAndGetters(t *testing.T) {
	v := evalGlobal(t, `const d = new Date(0);`, `d.getTime() === 0 && d.toISOString().startsWith("1970-01-01")`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Date_NowIsCallable(t *testing.T) {
	v := evalGlobal(t, ``, `typeof Date.now() === "number" && Date.now() > 0`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Intl_NumberFormat(t *testing.T) {
	v := evalGlobal(t, `const nf = new Intl.NumberFormat();`, `typeof nf.format(1234.5) === "string"`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Intl_DateTimeFormat(t *testing.T) {
	v := evalGlobal(t, `const dtf = new Intl.DateTimeFormat();`, `typeof dtf.format(new Date(0)) === "string"`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Temporal_PlainDateRoundTrip(t *testing.T) {
	v := evalGlobal(t, `const pd = new Temporal.PlainDate(2024, 1, 15);`, `typeof pd.toString() === "string"`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Temporal_NowInstant(t *testing.T) {
	v := evalGlobal(t, ``, `typeof Temporal.Now.instant() === "object" || typeof Temporal.Now.instant() === "string"`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_URL_ParseAndToString(t *testing.T) {
	v := evalGlobal(t, `const u = new URL("https://example.com/path?x=1");`, `u.toString().includes("example.com")`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_URL_CanParse(t *testing.T) {
	v := evalGlobal(t, ``, `URL.canParse("https://ok.example") === true && URL.canParse("not a url") === false`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_TypedArray_Int32ArrayReadWrite(t *testing.T) {
	v := evalGlobal(t, `
		const ta = new Int32Array(4);
		ta[0] = 100;
		ta[1] = -5;
	`, `ta[0] === 100 && ta[1] === -5 && ta.length === 4`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_DataView_GetSetInt32(t *testing.T) {
	v := evalGlobal(t, `
		const buf = new ArrayBuffer(8);
		const dv = new DataView(buf);
		dv.setInt32(0, 123456);
	`, `dv.getInt32(0) === 123456`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Proxy_GetTrapIntercepts(t *testing.T) {
	v := evalGlobal(t, `
		const target = { x: 1 };
		const p = new Proxy(target, {
			get(t, key) { return key === "x" ? 99 : t[key]; }
		});
	`, `p.x === 99`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Proxy_SetTrapIntercepts(t *testing.T) {
	v := evalGlobal(t, `
		const log = [];
		const target = {};
		const p = new Proxy(target, {
			set(t, key, val) { log.push(key); t[key] = val; return true; }
		});
		p.y = 5;
	`, `log[0] === "y" && target.y === 5`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}

func TestIntrinsics_Proxy_FallsThroughWithoutTrap(t *testing.T) {
	v := evalGlobal(t, `
		const target = { z: 7 };
		const p = new Proxy(target, {});
	`, `p.z === 7`)
	if !v.IsBool() || !v.AsBool() {
		t.Fatalf("got %v, want true", value.ToStringNoThrow(v))
	}
}
