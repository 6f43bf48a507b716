package hostops

import "path/filepath"

// Join, Dir, Base, Ext back the `path`-module ops spec.md's package
// layout lists alongside fs — pure path-string manipulation, never gated
// by a capability since no filesystem access occurs.
func Join(parts ...string) string { return filepath.Join(parts...) }

func Dir(path string) string { return filepath.Dir(path) }

func Base(path string) string { return filepath.Base(path) }

func Ext(path string) string { return filepath.Ext(path) }

// IsAbs reports whether path is absolute.
func IsAbs(path string) bool { return filepath.IsAbs(path) }
