package otter

import (
	"context"
	"strings"
	"testing"

	"github.com/otterjs/otter/internal/extension"
	"github.com/otterjs/otter/internal/value"
)

func TestRegisterExtension_SyncOpRoundTrips(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	ext := extension.New("math")
	ext.AddOp(extension.OpDecl{
		Name: "__double",
		Kind: extension.OpSync,
		Sync: func(args []any) (any, error) {
			n, _ := args[0].(float64)
			return n * 2, nil
		},
	})
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	v, err := r.EvalSync(context.Background(), "__double(21)", "test.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if !v.IsNumber() || v.AsFloat64() != 42 {
		t.Fatalf("got %v, want 42", value.ToStringNoThrow(v))
	}
}

func TestRegisterExtension_AsyncOpResolves(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	ext := extension.New("async-math")
	ext.AddOp(extension.OpDecl{
		Name: "__asyncDouble",
		Kind: extension.OpAsync,
		Async: func(args []any) <-chan extension.AsyncResult {
			ch := make(chan extension.AsyncResult, 1)
			n, _ := args[0].(float64)
			go func() { ch <- extension.AsyncResult{Value: n * 2} }()
			return ch
		},
	})
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	src := `
		globalThis.__result = undefined;
		__asyncDouble(10).then(function(v) { globalThis.__result = v; });
	`
	if _, err := r.EvalSync(context.Background(), src, "test.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, err := r.rt.GetGlobal("__result")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	if !got.IsNumber() || got.AsFloat64() != 20 {
		t.Fatalf("__result = %v, want 20", value.ToStringNoThrow(got))
	}
}

func TestRegisterExtension_AsyncOpRejects(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	ext := extension.New("async-fail")
	ext.AddOp(extension.OpDecl{
		Name: "__asyncFail",
		Kind: extension.OpAsync,
		Async: func(args []any) <-chan extension.AsyncResult {
			ch := make(chan extension.AsyncResult, 1)
			go func() { ch <- extension.AsyncResult{Err: errString("boom")} }()
			return ch
		},
	})
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	src := `
		globalThis.__caught = "";
		__asyncFail().catch(function(e) { globalThis.__caught = String(e); });
	`
	if _, err := r.EvalSync(context.Background(), src, "test.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, err := r.rt.GetGlobal("__caught")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	if !got.IsString() || !strings.Contains(got.AsString().Value(), "boom") {
		t.Fatalf("__caught = %v, want it to mention boom", value.ToStringNoThrow(got))
	}
}

func TestRegisterExtension_CapabilityDeniedSurfacesAsThrow(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()}) // NoCapabilities by default
	ext := extension.New("gated")
	ext.AddOp(extension.OpDecl{
		Name:       "__readSomething",
		Kind:       extension.OpSync,
		Capability: "read",
		Sync: func(args []any) (any, error) {
			return "should not run", nil
		},
	})
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	_, err := r.EvalSync(context.Background(), `__readSomething("/etc/passwd")`, "test.js")
	if err == nil {
		t.Fatal("expected the capability check to deny the call")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got %T, want *RuntimeError", err)
	}
	if !strings.Contains(re.ScriptValue, "permission denied") {
		t.Errorf("ScriptValue = %q, want it to mention permission denied", re.ScriptValue)
	}
}

func TestRegisterExtension_CapabilityAllowedRuns(t *testing.T) {
	r := New(Config{
		EngineConfig: DefaultEngineConfig(),
		Capabilities: Capabilities{ReadPaths: []string{"/data/*"}},
	})
	ext := extension.New("gated")
	ext.AddOp(extension.OpDecl{
		Name:       "__readSomething",
		Kind:       extension.OpSync,
		Capability: "read",
		Sync: func(args []any) (any, error) {
			return "ran", nil
		},
	})
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	v, err := r.EvalSync(context.Background(), `__readSomething("/data/file.txt")`, "test.js")
	if err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	if !v.IsString() || v.AsString().Value() != "ran" {
		t.Fatalf("got %v, want ran", value.ToStringNoThrow(v))
	}
}

func TestRegisterExtension_JSPreambleEvaluates(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	ext := extension.New("with-js")
	ext.JS = `globalThis.__fromExtension = 7;`
	if err := r.RegisterExtension(ext); err != nil {
		t.Fatalf("RegisterExtension error: %v", err)
	}
	v, err := r.rt.GetGlobal("__fromExtension")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	if !v.IsNumber() || v.AsFloat64() != 7 {
		t.Fatalf("got %v, want 7", value.ToStringNoThrow(v))
	}
}

func TestCapabilityOK_UnknownCategoryIsDenied(t *testing.T) {
	r := New(Config{
		EngineConfig: DefaultEngineConfig(),
		Capabilities: Capabilities{ReadPaths: []string{"*"}, WritePaths: []string{"*"}, EnvKeys: []string{"*"}, NetHosts: []string{"*"}, SpawnCmds: []string{"*"}},
	})
	if r.capabilityOK("bogus-category", "anything") {
		t.Error("expected an unrecognized capability category to be denied even with every real capability granted")
	}
}

func TestCapabilityOK_EmptyCategoryIsUngated(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()}) // NoCapabilities
	if !r.capabilityOK("", "anything") {
		t.Error("expected an empty capability category to be ungated")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
