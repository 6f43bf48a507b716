package otter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/otterjs/otter/internal/value"
)

func TestRuntime_EvalSync_Arithmetic(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	v, err := r.EvalSync(context.Background(), "1 + 2 * 3", "test.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if !v.IsNumber() || v.AsFloat64() != 7 {
		t.Fatalf("got %v, want 7", value.ToStringNoThrow(v))
	}
}

func TestRuntime_EvalSync_ThrowSurfacesAsRuntimeError(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	_, err := r.EvalSync(context.Background(), "null.x", "test.js")
	if err == nil {
		t.Fatal("expected an error")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got %T, want *RuntimeError", err)
	}
	if !strings.Contains(re.ScriptValue, "TypeError") {
		t.Errorf("ScriptValue = %q, want it to mention TypeError", re.ScriptValue)
	}
}

func TestRuntime_EvalSync_CompileErrorOnBadSyntax(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	_, err := r.EvalSync(context.Background(), "{{{", "test.js")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("got %T, want *CompileError", err)
	}
}

func TestRuntime_EvalSync_ScriptSizeLimit(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxScriptSizeKB = 1
	r := New(Config{EngineConfig: cfg})
	huge := strings.Repeat("1+1;\n", 1000)
	_, err := r.EvalSync(context.Background(), huge, "big.js")
	if err == nil {
		t.Fatal("expected a script-size compile error")
	}
}

func TestRuntime_EvalSync_SetTimeoutDrainsLoop(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	src := `
		globalThis.__result = 0;
		setTimeout(function() { globalThis.__result = 42; }, 1);
	`
	_, err := r.EvalSync(context.Background(), src, "timers.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, err := r.rt.GetGlobal("__result")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	if !got.IsNumber() || got.AsFloat64() != 42 {
		t.Fatalf("__result = %v, want 42", value.ToStringNoThrow(got))
	}
}

func TestRuntime_EvalSync_RespectsContextCancellation(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	src := `setInterval(function() {}, 1000);`
	_, err := r.EvalSync(ctx, src, "forever.js")
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestRuntime_Interrupt_AbortsTightInfiniteLoop(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	time.AfterFunc(50*time.Millisecond, r.Interrupt)
	done := make(chan error, 1)
	go func() {
		_, err := r.EvalSync(context.Background(), "while (true) {}", "forever.js")
		done <- err
	}()
	select {
	case err := <-done:
		re, ok := err.(*RuntimeError)
		if !ok {
			t.Fatalf("got %T, want *RuntimeError", err)
		}
		if !strings.Contains(re.ScriptValue, "interrupted") {
			t.Errorf("ScriptValue = %q, want it to mention interrupted", re.ScriptValue)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EvalSync did not return after Interrupt()")
	}
}

func TestRuntime_ExecutionTimeoutMS_AbortsTightInfiniteLoop(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ExecutionTimeoutMS = 50
	r := New(Config{EngineConfig: cfg})
	done := make(chan error, 1)
	go func() {
		_, err := r.EvalSync(context.Background(), "while (true) {}", "forever.js")
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an execution-timeout error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EvalSync did not return after the watchdog deadline")
	}
}

func TestRuntime_DebugSnapshot(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	if _, err := r.EvalSync(context.Background(), "1;", "snap.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	snap := r.DebugSnapshot()
	if snap.SourceURL != "snap.js" {
		t.Errorf("SourceURL = %q, want snap.js", snap.SourceURL)
	}
	if snap.FunctionCount < 1 {
		t.Errorf("FunctionCount = %d, want >= 1", snap.FunctionCount)
	}
}
