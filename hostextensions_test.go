package otter

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otterjs/otter/internal/value"
)

func TestHostExtension_FsWriteReadRoundTripsWithCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.txt")
	r := New(Config{
		EngineConfig: DefaultEngineConfig(),
		Capabilities: Capabilities{ReadPaths: []string{dir + "/*"}, WritePaths: []string{dir + "/*"}},
		DataDir:      dir,
	})
	payload := base64.StdEncoding.EncodeToString([]byte("hello from script"))
	src := fmt.Sprintf(`__otter_fs_write_file(%q, %q);`, path, payload)
	if _, err := r.EvalSync(context.Background(), src, "test.js"); err != nil {
		t.Fatalf("write EvalSync error: %v", err)
	}

	v, err := r.EvalSync(context.Background(), fmt.Sprintf(`__otter_fs_read_file(%q)`, path), "test.js")
	if err != nil {
		t.Fatalf("read EvalSync error: %v", err)
	}
	if !v.IsString() {
		t.Fatalf("got %T, want a base64 string", value.ToStringNoThrow(v))
	}
	decoded, err := base64.StdEncoding.DecodeString(v.AsString().Value())
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if string(decoded) != "hello from script" {
		t.Errorf("got %q, want hello from script", decoded)
	}
}

func TestHostExtension_FsReadDeniedWithoutCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nope.txt")
	r := New(Config{EngineConfig: DefaultEngineConfig()}) // NoCapabilities
	_, err := r.EvalSync(context.Background(), fmt.Sprintf(`__otter_fs_read_file(%q)`, path), "test.js")
	if err == nil {
		t.Fatal("expected fs read to be denied without the read capability")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got %T, want *RuntimeError", err)
	}
	if !strings.Contains(re.ScriptValue, "permission denied") {
		t.Errorf("ScriptValue = %q, want it to mention permission denied", re.ScriptValue)
	}
}

func TestHostExtension_CompressDecompressRoundTrip(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()})
	payload := base64.StdEncoding.EncodeToString([]byte("compress me please, compress me please"))
	src := fmt.Sprintf(`
		globalThis.__compressed = __otter_compress("gzip", %q);
		globalThis.__roundtrip = __otter_decompress("gzip", globalThis.__compressed);
	`, payload)
	if _, err := r.EvalSync(context.Background(), src, "test.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, err := r.rt.GetGlobal("__roundtrip")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.AsString().Value())
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if string(decoded) != "compress me please, compress me please" {
		t.Errorf("got %q, want original payload back", decoded)
	}
}

func TestHostExtension_StorageGetPutWithCapability(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{
		EngineConfig: DefaultEngineConfig(),
		Capabilities: Capabilities{WritePaths: []string{"*"}},
		DataDir:      dir,
	})
	src := `
		__otter_storage_put("ns", "key1", "value1", 0);
		globalThis.__stored = __otter_storage_get("ns", "key1");
	`
	if _, err := r.EvalSync(context.Background(), src, "test.js"); err != nil {
		t.Fatalf("EvalSync error: %v", err)
	}
	got, err := r.rt.GetGlobal("__stored")
	if err != nil {
		t.Fatalf("GetGlobal error: %v", err)
	}
	if !got.IsString() || got.AsString().Value() != "value1" {
		t.Fatalf("got %v, want value1", value.ToStringNoThrow(got))
	}
}

func TestHostExtension_StorageDeniedWithoutCapability(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()}) // NoCapabilities
	_, err := r.EvalSync(context.Background(), `__otter_storage_put("ns", "k", "v", 0)`, "test.js")
	if err == nil {
		t.Fatal("expected storage put to be denied without the write capability")
	}
}

func TestHostExtension_WsDialDeniedWithoutNetCapability(t *testing.T) {
	r := New(Config{EngineConfig: DefaultEngineConfig()}) // NoCapabilities: net denied
	// capabilityOK denies before __otter_ws_dial's async goroutine ever
	// starts, so bindOp throws the PermissionDeniedError synchronously —
	// the call itself fails rather than returning a promise to .catch.
	_, err := r.EvalSync(context.Background(), `__otter_ws_dial("ws://127.0.0.1:1/nope")`, "test.js")
	if err == nil {
		t.Fatal("expected ws dial to be denied without the net capability")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got %T, want *RuntimeError", err)
	}
	if !strings.Contains(re.ScriptValue, "permission denied") {
		t.Errorf("ScriptValue = %q, want it to mention permission denied", re.ScriptValue)
	}
}
