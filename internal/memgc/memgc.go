// Package memgc provides reference-counted heap handles plus a mark-bit
// set (via github.com/bits-and-blooms/bitset). No other package in this
// module imports it: runtime values are ordinary Go pointers left to Go's
// own collector. spec.md §9 allows any representation that keeps a handle
// alive as long as it is reachable from the interpreter stack, intrinsics
// tables, microtask closures, pending-promise callbacks, extension state,
// or host channels. Heap.Collect drops only slabs whose refcount is zero
// and whose mark bit is clear; it does no tracing, so slabs that hold
// each other in a reference cycle keep nonzero refcounts and are never
// dropped.
package memgc

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// GcRef is a shared handle to a heap-allocated T. Cloning a GcRef bumps the
// refcount; Drop decrements it. It never frees T itself. Heap.Collect
// walks nothing on its own: the caller marks its root set with Heap.Mark,
// and Collect drops the slabs that are unmarked with a zero refcount.
type GcRef[T any] struct {
	slab *slab[T]
}

type slab[T any] struct {
	value T
	rc    int32
	id    uint64
	live  atomic.Bool
}

// NewRef allocates a fresh handle with refcount 1 and registers it with h
// so Heap.Collect can consider it during mark/sweep.
func NewRef[T any](h *Heap, v T) GcRef[T] {
	s := &slab[T]{value: v, rc: 1, id: h.nextID()}
	s.live.Store(true)
	h.register(s.id, func() bool { return atomic.LoadInt32(&s.rc) > 0 })
	return GcRef[T]{slab: s}
}

// Get returns the referenced value.
func (r GcRef[T]) Get() *T {
	if r.slab == nil {
		return nil
	}
	return &r.slab.value
}

// Valid reports whether the handle points at a live slab.
func (r GcRef[T]) Valid() bool { return r.slab != nil }

// Clone increments the refcount and returns an equal handle.
func (r GcRef[T]) Clone() GcRef[T] {
	if r.slab != nil {
		atomic.AddInt32(&r.slab.rc, 1)
	}
	return r
}

// Drop decrements the refcount. It does not immediately free memory —
// Go's own collector owns the backing allocation once no GcRef or mark
// root reaches it; Drop only updates the refcount Heap.Collect consults.
func (r GcRef[T]) Drop() {
	if r.slab != nil {
		atomic.AddInt32(&r.slab.rc, -1)
	}
}

// ID returns a stable identity for the underlying slab, used for
// SameValue/identity comparisons and the GC mark bitset index.
func (r GcRef[T]) ID() uint64 {
	if r.slab == nil {
		return 0
	}
	return r.slab.id
}

// livenessProbe reports whether a tracked slab is still reachable by a
// refcount or an explicit mark.
type livenessProbe func() bool

// Heap tracks every allocated slab's liveness probe and a mark bitset that
// the caller fills through Mark (spec.md §9).
type Heap struct {
	counter atomic.Uint64
	marks   *bitset.BitSet
	probes  map[uint64]livenessProbe
}

// NewHeap creates an empty heap with room for an initial mark-bitset
// capacity; it grows automatically as more objects are allocated.
func NewHeap() *Heap {
	return &Heap{
		marks:  bitset.New(4096),
		probes: make(map[uint64]livenessProbe),
	}
}

func (h *Heap) nextID() uint64 { return h.counter.Add(1) }

func (h *Heap) register(id uint64, probe livenessProbe) {
	h.probes[id] = probe
}

// Mark sets the mark bit for a slab ID, used by a root-set walker before
// Collect runs.
func (h *Heap) Mark(id uint64) {
	h.marks.Set(uint(id))
}

// ResetMarks clears all mark bits at the start of a mark/sweep pass.
func (h *Heap) ResetMarks() {
	h.marks.ClearAll()
}

// Collect drops bookkeeping for slabs that are neither refcounted-alive
// nor marked; it returns the number of slabs reclaimed. The Go runtime
// reclaims the actual memory once this package's own map no longer
// references the slab.
func (h *Heap) Collect() int {
	reclaimed := 0
	for id, probe := range h.probes {
		if probe() || h.marks.Test(uint(id)) {
			continue
		}
		delete(h.probes, id)
		reclaimed++
	}
	return reclaimed
}

// Live reports how many slabs the heap is currently tracking.
func (h *Heap) Live() int { return len(h.probes) }
