package value

import (
	"sync"
	"unicode/utf16"
)

// InternedString is a UTF-16 code-unit buffer with an optional UTF-8 cache
// (spec.md §3.1). Interning is idempotent: two interns of equal content
// return the same handle, so handle equality implies content equality.
type InternedString struct {
	units []uint16
	utf8  string
	once  sync.Once
}

// Value returns the UTF-8 projection of the string, computed lazily and
// cached. Lone surrogates are preserved losslessly on the UTF-16 side;
// the UTF-8 cache uses the replacement character for unpaired surrogates
// (callers that need lossless round-tripping, e.g. JSON.stringify, should
// use Units() directly per spec.md §8 "UTF-16 strings round-trip...").
func (s *InternedString) Value() string {
	s.once.Do(func() {
		s.utf8 = string(utf16.Decode(s.units))
	})
	return s.utf8
}

// Units returns the raw UTF-16 code units backing the string.
func (s *InternedString) Units() []uint16 { return s.units }

// Len returns the string length in UTF-16 code units (JS .length semantics).
func (s *InternedString) Len() int { return len(s.units) }

// InternTable interns strings by UTF-8 content so repeated literals and
// property keys share one handle.
type InternTable struct {
	mu    sync.Mutex
	byStr map[string]*InternedString
}

// NewInternTable creates an empty table.
func NewInternTable() *InternTable {
	return &InternTable{byStr: make(map[string]*InternedString)}
}

// Intern returns the canonical handle for s, allocating one on first use.
func (t *InternTable) Intern(s string) *InternedString {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byStr[s]; ok {
		return existing
	}
	is := &InternedString{units: utf16.Encode([]rune(s))}
	is.utf8 = s
	t.byStr[s] = is
	return is
}

// InternUnits interns a string given directly as UTF-16 units (used when a
// lone surrogate must be preserved exactly, e.g. JSON round-trips).
func (t *InternTable) InternUnits(units []uint16) *InternedString {
	s := string(utf16.Decode(units))
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byStr[s]; ok && equalUnits(existing.units, units) {
		return existing
	}
	is := &InternedString{units: append([]uint16(nil), units...)}
	// Do not cache a lossy utf8 projection under the plain string key if
	// it contains unpaired surrogates; still index by the lossy string so
	// lookups by content succeed for the common (valid UTF-16) case.
	t.byStr[s] = is
	return is
}

func equalUnits(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
