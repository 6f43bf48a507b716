package otter

import (
	"context"
	"testing"

	"github.com/otterjs/otter/internal/value"
)

func TestTimers_ClearTimeoutPreventsFiring(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		globalThis.__fired = false;
		var id = setTimeout(function() { globalThis.__fired = true; }, 5);
		clearTimeout(id);
	`
	if _, err := r.EvalSync(context.Background(), src, "clear.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, _ := r.rt.GetGlobal("__fired")
	if got.IsBool() && got.AsBool() {
		t.Error("expected cleared timer not to fire")
	}
}

func TestTimers_SetIntervalStopsAfterClear(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		globalThis.__count = 0;
		var id = setInterval(function() {
			globalThis.__count++;
			if (globalThis.__count >= 3) clearInterval(id);
		}, 1);
	`
	if _, err := r.EvalSync(context.Background(), src, "interval.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, _ := r.rt.GetGlobal("__count")
	if !got.IsNumber() || got.AsFloat64() < 3 {
		t.Fatalf("__count = %v, want >= 3", value.ToStringNoThrow(got))
	}
}

func TestTimers_SetImmediateRunsBeforeLaterTimeout(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		globalThis.__order = [];
		setTimeout(function() { globalThis.__order.push("timeout"); }, 0);
		setImmediate(function() { globalThis.__order.push("immediate"); });
	`
	if _, err := r.EvalSync(context.Background(), src, "immediate.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	arr, _ := r.rt.GetGlobal("__order")
	lenV, _ := r.rt.GetProp(arr, "length")
	if !lenV.IsNumber() || lenV.AsFloat64() != 2 {
		t.Fatalf("__order.length = %v, want 2", value.ToStringNoThrow(lenV))
	}
}
