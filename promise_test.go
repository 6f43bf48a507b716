package otter

import (
	"context"
	"testing"

	"github.com/otterjs/otter/internal/value"
)

func TestRuntime_EvalSync_TopLevelAwaitResolvedValue(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		var p = new Promise(function(resolve) { resolve(42); });
		await p;
	`
	v, err := r.EvalSync(context.Background(), src, "await.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if !v.IsNumber() || v.AsFloat64() != 42 {
		t.Fatalf("got %v, want 42", value.ToStringNoThrow(v))
	}
}

func TestRuntime_EvalSync_AwaitSettlesAfterTimer(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		var p = new Promise(function(resolve) {
			setTimeout(function() { resolve("done"); }, 5);
		});
		await p;
	`
	v, err := r.EvalSync(context.Background(), src, "await-timer.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if got := value.ToStringNoThrow(v); got != "done" {
		t.Fatalf("got %q, want %q", got, "done")
	}
}

func TestRuntime_EvalSync_AwaitRejectionThrows(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		var p = new Promise(function(_, reject) { reject(new Error("boom")); });
		await p;
	`
	_, err := r.EvalSync(context.Background(), src, "await-reject.js")
	if err == nil {
		t.Fatal("expected an error")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got %T, want *RuntimeError", err)
	}
	if re.ScriptValue == "" {
		t.Error("expected a non-empty ScriptValue describing the rejection")
	}
}

func TestRuntime_EvalSync_ThenChainRunsAsMicrotask(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		globalThis.__order = [];
		Promise.resolve(1).then(function(v) {
			globalThis.__order.push("then:" + v);
		});
		globalThis.__order.push("sync");
	`
	if _, err := r.EvalSync(context.Background(), src, "then.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	arr, _ := r.rt.GetGlobal("__order")
	lenV, _ := r.rt.GetProp(arr, "length")
	if !lenV.IsNumber() || lenV.AsFloat64() != 2 {
		t.Fatalf("__order.length = %v, want 2", value.ToStringNoThrow(lenV))
	}
	first, _ := r.rt.GetElem(arr, value.NumberFromInt64(0))
	if value.ToStringNoThrow(first) != "sync" {
		t.Errorf("__order[0] = %q, want %q (the synchronous push must run before the microtask)", value.ToStringNoThrow(first), "sync")
	}
	second, _ := r.rt.GetElem(arr, value.NumberFromInt64(1))
	if value.ToStringNoThrow(second) != "then:1" {
		t.Errorf("__order[1] = %q, want %q", value.ToStringNoThrow(second), "then:1")
	}
}

func TestRuntime_EvalSync_PromiseAllResolvesInOrder(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		var results;
		Promise.all([
			Promise.resolve(1),
			new Promise(function(resolve) { setTimeout(function() { resolve(2); }, 5); }),
			3
		]).then(function(v) { results = v; });
	`
	if _, err := r.EvalSync(context.Background(), src, "all.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	results, _ := r.rt.GetGlobal("results")
	lenV, _ := r.rt.GetProp(results, "length")
	if !lenV.IsNumber() || lenV.AsFloat64() != 3 {
		t.Fatalf("results.length = %v, want 3", value.ToStringNoThrow(lenV))
	}
	for i, want := range []float64{1, 2, 3} {
		got, _ := r.rt.GetElem(results, value.NumberFromInt64(int64(i)))
		if !got.IsNumber() || got.AsFloat64() != want {
			t.Errorf("results[%d] = %v, want %v", i, value.ToStringNoThrow(got), want)
		}
	}
}

func TestRuntime_EvalSync_AsyncFunctionAwaitsBeforeReturning(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		async function delayed(v) {
			await new Promise(function(resolve) { setTimeout(resolve, 5); });
			return v * 2;
		}
		delayed(21);
	`
	v, err := r.EvalSync(context.Background(), src, "async-fn.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if !v.IsNumber() || v.AsFloat64() != 42 {
		t.Fatalf("got %v, want 42", value.ToStringNoThrow(v))
	}
}
