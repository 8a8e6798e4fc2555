// Package heap implements spec.md §4.1: allocate, track and reclaim
// arbitrary-sized objects behind stable handles that survive
// relocation. Grounded on the teacher's internal/memory package (a
// handle-indexed "what's live, what belongs to whom" tracker), whose
// ListProcesses/GetProcessInfo/GetMemoryStats shape is repurposed here
// from process forensics to block forensics: ListBlocks and Stats.
package heap

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"a68core/internal/ast"
)

// Block is one heap-resident object. Payload is left as an opaque Go
// value — spec.md's Non-goals explicitly disclaim preserving the
// in-memory layout of descriptors, so a Block stores whatever
// higher-level value (a row descriptor, a struct field array, a
// multi-precision digit vector) the caller asked to allocate.
type Block struct {
	Mode    *ast.Mode
	Bytes   int
	Payload ast.Value
	Live    bool

	// Gen is bumped every time a handle is recycled from the free list,
	// so a Ref captured before a sweep can never alias the block a
	// reused handle now names (Deref and Sweep both check it against
	// ast.Ref.Gen).
	Gen uint64
}

// Heap is the handle table plus free list.
type Heap struct {
	blocks   []*Block // index 0 is never used; handle 0 means "no block"
	free     []uint64
	protect  map[uint64]int // handle -> protect refcount
	sema     int            // garbage_sema inhibit counter
	maxBytes int
	used     int
}

// New creates a heap with a soft byte budget (0 = unbounded, bounded
// only by available memory). Allocate fails with ErrOutOfCore as soon
// as a request would take the heap past budget; it does not run a
// Sweep first.
func New(budget int) *Heap {
	return &Heap{
		blocks:   make([]*Block, 1, 64),
		protect:  make(map[uint64]int),
		maxBytes: budget,
	}
}

// ErrOutOfCore is the fatal out-of-core error from spec.md §7.
type ErrOutOfCore struct {
	Requested int
	Used      int
	Budget    int
}

func (e *ErrOutOfCore) Error() string {
	return fmt.Sprintf("out of core: requested %s, heap already holds %s of a %s budget",
		humanize.Bytes(uint64(e.Requested)), humanize.Bytes(uint64(e.Used)), humanize.Bytes(uint64(e.Budget)))
}

// Allocate reserves bytes for mode and returns a fresh Ref naming the
// new block (spec.md: "allocate(mode, bytes) → REF").
func (h *Heap) Allocate(mode *ast.Mode, bytes int, payload ast.Value) (ast.Ref, error) {
	if h.maxBytes > 0 && h.used+bytes > h.maxBytes {
		return ast.Ref{}, &ErrOutOfCore{Requested: bytes, Used: h.used, Budget: h.maxBytes}
	}
	var handle uint64
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.blocks[handle].Gen++
		h.blocks[handle].Mode = mode
		h.blocks[handle].Bytes = bytes
		h.blocks[handle].Payload = payload
		h.blocks[handle].Live = true
	} else {
		handle = uint64(len(h.blocks))
		h.blocks = append(h.blocks, &Block{
			Mode: mode, Bytes: bytes, Payload: payload, Live: true,
		})
	}
	h.used += bytes
	return ast.Ref{Segment: ast.SegHeap, Handle: handle, Gen: h.blocks[handle].Gen}, nil
}

// Deref resolves ref to its current Block, recomputing from the handle
// table rather than trusting any cached pointer — spec.md's invariant
// that "addresses derived via base(handle)+offset are recomputed on
// each use". A stale generation (one pointing at a handle already
// reused after a sweep) is reported as a nil-access error.
func (h *Heap) Deref(ref ast.Ref) (*Block, error) {
	if ref.Segment != ast.SegHeap || ref.IsNil() {
		return nil, fmt.Errorf("accessing nil")
	}
	if ref.Handle == 0 || int(ref.Handle) >= len(h.blocks) {
		return nil, fmt.Errorf("accessing nil")
	}
	b := h.blocks[ref.Handle]
	if !b.Live || b.Gen != ref.Gen {
		return nil, fmt.Errorf("accessing nil: stale reference to reclaimed block")
	}
	return b, nil
}

// Protect adds ref's block to the protect set: it survives sweeps
// regardless of reachability, for use while a composite is under
// construction and partial results must not be reclaimed.
func (h *Heap) Protect(ref ast.Ref) {
	if ref.Segment == ast.SegHeap && ref.Handle != 0 {
		h.protect[ref.Handle]++
	}
}

// Unprotect removes one protect-count from ref's block.
func (h *Heap) Unprotect(ref ast.Ref) {
	if ref.Segment != ast.SegHeap || ref.Handle == 0 {
		return
	}
	if n := h.protect[ref.Handle]; n <= 1 {
		delete(h.protect, ref.Handle)
	} else {
		h.protect[ref.Handle] = n - 1
	}
}

// UpGarbageSema raises the inhibit counter, suppressing sweeps during
// a critical section that transiently breaks invariants (e.g. a
// partially built row, per spec.md §4.4's deep-copy discipline).
func (h *Heap) UpGarbageSema() { h.sema++ }

// DownGarbageSema lowers the inhibit counter.
func (h *Heap) DownGarbageSema() {
	if h.sema > 0 {
		h.sema--
	}
}

// SweepInhibited reports whether a Sweep call would currently be a
// no-op because of an open critical section.
func (h *Heap) SweepInhibited() bool { return h.sema > 0 }

// Tracer lets a Sweep caller walk a heap-resident payload to find any
// further Refs it embeds (struct fields, row elements, union variants).
// Supplied by internal/rows and internal/eval, which know the mode-
// directed traversal rules; internal/heap stays ignorant of mode
// shapes beyond "does this payload hold more refs".
type Tracer func(payload ast.Value, mark func(ast.Ref))

// Sweep marks from root_set (frame/eval stack cells plus the protect
// set) and reclaims unmarked handles. It is a stop-the-world pass: the
// evaluator must not be mid-mutation of any heap block when calling
// this (the garbage_sema discipline enforces that). Sweep silently
// returns without reclaiming anything if the inhibit counter is
// raised.
func (h *Heap) Sweep(roots []ast.Cell, trace Tracer) {
	if h.sema > 0 {
		return
	}
	marked := make(map[uint64]bool, len(h.blocks))
	var markRef func(ast.Ref)
	markRef = func(r ast.Ref) {
		if r.Segment != ast.SegHeap || r.Handle == 0 || r.Handle >= uint64(len(h.blocks)) {
			return
		}
		if marked[r.Handle] {
			return
		}
		b := h.blocks[r.Handle]
		if !b.Live || b.Gen != r.Gen {
			return
		}
		marked[r.Handle] = true
		if trace != nil {
			trace(b.Payload, markRef)
		}
	}

	for handle := range h.protect {
		if handle < uint64(len(h.blocks)) && h.blocks[handle].Live {
			marked[handle] = true
			if trace != nil {
				trace(h.blocks[handle].Payload, markRef)
			}
		}
	}
	for _, c := range roots {
		if ref, ok := c.V.(ast.Ref); ok {
			markRef(ref)
		}
		if trace != nil {
			trace(c.V, markRef)
		}
	}

	for handle := uint64(1); handle < uint64(len(h.blocks)); handle++ {
		b := h.blocks[handle]
		if !b.Live {
			continue
		}
		if !marked[handle] {
			h.used -= b.Bytes
			b.Live = false
			b.Payload = nil
			b.Bytes = 0
			h.free = append(h.free, handle)
		}
	}
}

// Stats summarizes current heap occupancy for diagnostics, the way the
// teacher's GetMemoryStats reports runtime.MemStats.
type Stats struct {
	LiveBlocks int
	UsedBytes  int
	Budget     int
	Free       int
}

func (h *Heap) Stats() Stats {
	live := 0
	for _, b := range h.blocks[1:] {
		if b.Live {
			live++
		}
	}
	return Stats{LiveBlocks: live, UsedBytes: h.used, Budget: h.maxBytes, Free: len(h.free)}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d live blocks, %s used", s.LiveBlocks, humanize.Bytes(uint64(s.UsedBytes)))
}

// ListBlocks returns handles of every live block whose mode satisfies
// pred, mirroring the teacher's FindProcessByName predicate-search
// shape.
func (h *Heap) ListBlocks(pred func(*ast.Mode) bool) []uint64 {
	var out []uint64
	for handle := uint64(1); handle < uint64(len(h.blocks)); handle++ {
		b := h.blocks[handle]
		if b.Live && (pred == nil || pred(b.Mode)) {
			out = append(out, handle)
		}
	}
	return out
}
