package hostops

import (
	"os"
	"path/filepath"
	"testing"
)

type fakeCaps struct {
	read, write []string
}

func (c fakeCaps) CanRead(path string) bool  { return contains(c.read, path) }
func (c fakeCaps) CanWrite(path string) bool { return contains(c.write, path) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestReadFile_DeniedWithoutCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(path, []byte("shh"), 0o644); err != nil {
		t.Fatalf("setup WriteFile: %v", err)
	}
	_, err := ReadFile(fakeCaps{}, path)
	if err == nil {
		t.Fatal("expected a permission error when CanRead denies")
	}
}

func TestReadFile_AllowedRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup WriteFile: %v", err)
	}
	caps := fakeCaps{read: []string{filepath.Clean(path)}}
	data, err := ReadFile(caps, path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want hello", data)
	}
}

func TestReadFile_RejectsOversizeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	big := make([]byte, maxReadBytes+1)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("setup WriteFile: %v", err)
	}
	caps := fakeCaps{read: []string{filepath.Clean(path)}}
	if _, err := ReadFile(caps, path); err == nil {
		t.Fatal("expected an error for a file over maxReadBytes")
	}
}

func TestWriteFile_DeniedWithoutCapability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := WriteFile(fakeCaps{}, path, []byte("x"), 0); err == nil {
		t.Fatal("expected a permission error when CanWrite denies")
	}
}

func TestWriteFile_CreatesParentDirsAndDefaultsPerm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.txt")
	caps := fakeCaps{write: []string{filepath.Clean(path)}}
	if err := WriteFile(caps, path, []byte("payload"), 0); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after WriteFile: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want payload", got)
	}
}

func TestStat_DeniedAndAllowed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, _, err := Stat(fakeCaps{}, path); err == nil {
		t.Fatal("expected Stat to be denied without CanRead")
	}
	size, isDir, err := Stat(fakeCaps{read: []string{filepath.Clean(path)}}, path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if size != 5 || isDir {
		t.Errorf("got size=%d isDir=%v, want 5 false", size, isDir)
	}
}

func TestRemove_DeniedAndAllowed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := Remove(fakeCaps{}, path); err == nil {
		t.Fatal("expected Remove to be denied without CanWrite")
	}
	if err := Remove(fakeCaps{write: []string{filepath.Clean(path)}}, path); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to be gone after Remove")
	}
}
