package value

import "sync/atomic"

// Symbol carries an identity id; equality is by id (spec.md §3.1).
type Symbol struct {
	id          uint64
	Description string
}

var symbolCounter atomic.Uint64

// NewSymbol allocates a fresh symbol with the given description.
func NewSymbol(description string) *Symbol {
	return &Symbol{id: symbolCounter.Add(1), Description: description}
}

// ID returns the symbol's identity, used for equality and as a map key
// substitute where PropertyKey.Sym carries the pointer directly.
func (s *Symbol) ID() uint64 { return s.id }

// Well-known symbols, preallocated once (spec.md §3.1).
var (
	SymIterator      = NewSymbol("Symbol.iterator")
	SymAsyncIterator = NewSymbol("Symbol.asyncIterator")
	SymToStringTag   = NewSymbol("Symbol.toStringTag")
	SymHasInstance   = NewSymbol("Symbol.hasInstance")
	SymToPrimitive   = NewSymbol("Symbol.toPrimitive")
)
