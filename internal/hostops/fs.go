// Package hostops implements the thin host-interface bindings spec.md's
// package layout lists for internal/hostops: filesystem/path access,
// HTTP server management, WebSocket client/server framing,
// buffer/compression codecs, and durable storage, which the otter package
// installs as global functions (spec.md §4.6/§4.7). Only the fs functions
// (ReadFile, WriteFile, Stat, Remove) check capabilities here; the path,
// buffer, compression, HTTP, WebSocket and storage functions do no
// capability check of their own. Exported functions return plain Go
// values (strings, byte slices, errors, and handle types such as *Server,
// *Conn and *Store); none of these functions touch internal/value
// directly, keeping this package free of any dependency back on the VM.
package hostops

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxReadBytes bounds a single fs.readFile the way the teacher bounds a
// single R2 object / KV value (storage.go's maxObjectSize, kv.go's
// maxKVValueSize) rather than let one script hold the host process's
// entire address space hostage.
const maxReadBytes = 16 * 1024 * 1024

// Capabilities is the minimal capability predicate fs.go needs. otter.
// Capabilities satisfies this structurally, without an adapter type, so
// this package never imports the root otter package (which itself
// imports hostops) and no import cycle forms.
type Capabilities interface {
	CanRead(path string) bool
	CanWrite(path string) bool
}

// ReadFile reads path as a capability-gated op. The caller (otter's op
// installer) is expected to have already denied the call if caps.CanRead
// returned false; ReadFile re-checks so the capability is enforced at the
// point of actual filesystem access too, not only at dispatch.
func ReadFile(caps Capabilities, path string) ([]byte, error) {
	clean := filepath.Clean(path)
	if !caps.CanRead(clean) {
		return nil, fmt.Errorf("hostops: read denied for %q", clean)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("hostops: stat %q: %w", clean, err)
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("hostops: %q exceeds max read size %d bytes", clean, maxReadBytes)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("hostops: read %q: %w", clean, err)
	}
	return data, nil
}

// WriteFile writes data to path as a capability-gated op, creating parent
// directories the way os.MkdirAll does for the teacher's D1 database
// directory (d1.go's OpenD1Database).
func WriteFile(caps Capabilities, path string, data []byte, perm os.FileMode) error {
	clean := filepath.Clean(path)
	if !caps.CanWrite(clean) {
		return fmt.Errorf("hostops: write denied for %q", clean)
	}
	if len(data) > maxReadBytes {
		return fmt.Errorf("hostops: write of %d bytes to %q exceeds max %d", len(data), clean, maxReadBytes)
	}
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("hostops: creating directory for %q: %w", clean, err)
		}
	}
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(clean, data, perm); err != nil {
		return fmt.Errorf("hostops: write %q: %w", clean, err)
	}
	return nil
}

// Stat reports size/mode/isDir for path, gated on CanRead the same way
// ReadFile is — a script that can't read a file's contents shouldn't be
// able to probe its existence or size either.
func Stat(caps Capabilities, path string) (size int64, isDir bool, err error) {
	clean := filepath.Clean(path)
	if !caps.CanRead(clean) {
		return 0, false, fmt.Errorf("hostops: stat denied for %q", clean)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return 0, false, fmt.Errorf("hostops: stat %q: %w", clean, err)
	}
	return info.Size(), info.IsDir(), nil
}

// Remove deletes path, gated on CanWrite.
func Remove(caps Capabilities, path string) error {
	clean := filepath.Clean(path)
	if !caps.CanWrite(clean) {
		return fmt.Errorf("hostops: remove denied for %q", clean)
	}
	if err := os.Remove(clean); err != nil {
		return fmt.Errorf("hostops: remove %q: %w", clean, err)
	}
	return nil
}
