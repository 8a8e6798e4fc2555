// Package rows implements spec.md §4.4: row (array) descriptors,
// slicing, FLEX rowing, concatenation and deep copy/assign. Grounded
// in shape on the teacher's internal/memory/types.go Array (a flat
// []Value with the library functions built around it), enriched with
// algol68g's descriptor/tuple/shift/span model from
// original_source/source/stowed.c since the teacher's Array has no
// multi-dimension bookkeeping at all.
package rows

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/heap"
)

// Tuple is one dimension's bookkeeping: bounds, stride, shift, plus a
// transient iteration cursor (spec.md §3).
type Tuple struct {
	Lower, Upper int
	Span         int
	Shift        int
	K            int // iteration cursor slot; Iterator (iter.go) keeps its own cursors and does not use K
}

// Count returns upper-lower+1, the dimension's element count (0 if
// empty, i.e. Upper < Lower).
func (t Tuple) Count() int {
	if t.Upper < t.Lower {
		return 0
	}
	return t.Upper - t.Lower + 1
}

// Descriptor is the array header + tuples from spec.md §3. It lives in
// a heap block (so a ast.Ref can name it); Backing names a second heap
// block holding the flat element Cells.
type Descriptor struct {
	Dims        int
	ElemMode    *ast.Mode
	SliceOffset int
	FieldOffset int
	Backing     ast.Ref // REF to a []ast.Cell block
	Tuples      []Tuple

	// Flex is true for FLEX ROW descriptors: ROW_SIZE may change on
	// assignment (spec.md §3: "A row is transient if it refers to a
	// FLEX array").
	Flex bool
	// TransientOwner is the frame ID that allocated this descriptor,
	// used by the scope checker / runtime store check to reject
	// storing a transient row into a name that outlives it.
	TransientOwner uint64
}

// GetRowSize returns the product of (upper-lower+1) across tuples,
// zero if any dimension is empty (spec.md §4.4).
func GetRowSize(tuples []Tuple) int {
	size := 1
	for _, t := range tuples {
		c := t.Count()
		if c == 0 {
			return 0
		}
		size *= c
	}
	return size
}

// Bound declares one dimension's inclusive [Lower, Upper] bounds at
// construction time.
type Bound struct{ Lower, Upper int }

// New allocates a fresh descriptor and its backing element block for
// bounds, with every element cell left uninitialised.
func New(h *heap.Heap, elemMode *ast.Mode, flex bool, bounds []Bound, ownerFrame uint64) (ast.Ref, *Descriptor, error) {
	tuples := make([]Tuple, len(bounds))
	span := 1
	for i := len(bounds) - 1; i >= 0; i-- {
		b := bounds[i]
		tuples[i] = Tuple{Lower: b.Lower, Upper: b.Upper, Span: span, Shift: b.Lower}
		span *= tuples[i].Count()
	}
	size := GetRowSize(tuples)

	backingCells := make([]ast.Cell, size)
	backingMode := &ast.Mode{Tag: ast.ModeRow, SubMode: elemMode, Dimensions: 1}
	backingRef, err := h.Allocate(backingMode, size, backingCells)
	if err != nil {
		return ast.Ref{}, nil, err
	}

	d := &Descriptor{
		Dims:           len(bounds),
		ElemMode:       elemMode,
		Backing:        backingRef,
		Tuples:         tuples,
		Flex:           flex,
		TransientOwner: ownerFrame,
	}
	descMode := elemMode
	if flex {
		descMode = &ast.Mode{Tag: ast.ModeFlexRow, SubMode: elemMode, Dimensions: len(bounds)}
	} else {
		descMode = &ast.Mode{Tag: ast.ModeRow, SubMode: elemMode, Dimensions: len(bounds)}
	}
	ref, err := h.Allocate(descMode, 0, d)
	if err != nil {
		return ast.Ref{}, nil, err
	}
	return ref, d, nil
}

// Load resolves ref to its Descriptor, erroring per spec.md's "nil
// access" / out-of-bounds taxonomy on a bad reference.
func Load(h *heap.Heap, ref ast.Ref) (*Descriptor, error) {
	b, err := h.Deref(ref)
	if err != nil {
		return nil, err
	}
	d, ok := b.Payload.(*Descriptor)
	if !ok {
		return nil, fmt.Errorf("not a row descriptor")
	}
	return d, nil
}

// Backing resolves a descriptor's backing element block to its flat
// cell slice.
func Backing(h *heap.Heap, d *Descriptor) ([]ast.Cell, error) {
	b, err := h.Deref(d.Backing)
	if err != nil {
		return nil, err
	}
	cells, ok := b.Payload.([]ast.Cell)
	if !ok {
		return nil, fmt.Errorf("corrupt row backing block")
	}
	return cells, nil
}

// ErrOutOfBounds is spec.md §7's "Out of bounds" error for subscripts.
type ErrOutOfBounds struct {
	Dim          int
	Index        int
	Lower, Upper int
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("subscript %d out of bounds [%d:%d] in dimension %d", e.Index, e.Lower, e.Upper, e.Dim)
}

// ElementSlot computes the flat backing-array slot for a multi-index,
// per the address formula in spec.md §3:
//
//	slot = (Σ span_k·(i_k−shift_k)) + slice_offset
//
// bounds-checking every subscript against [lower,upper] first.
func ElementSlot(d *Descriptor, indices []int) (int, error) {
	if len(indices) != d.Dims {
		return 0, fmt.Errorf("expected %d subscripts, got %d", d.Dims, len(indices))
	}
	slot := d.SliceOffset
	for k, i := range indices {
		t := d.Tuples[k]
		if i < t.Lower || i > t.Upper {
			return 0, &ErrOutOfBounds{Dim: k, Index: i, Lower: t.Lower, Upper: t.Upper}
		}
		slot += t.Span * (i - t.Shift)
	}
	return slot, nil
}

// Index bounds-checks indices and returns a pointer to the addressed
// Cell in the backing block, per spec.md's "Slice" dispatch category.
func Index(h *heap.Heap, ref ast.Ref, indices []int) (*ast.Cell, error) {
	d, err := Load(h, ref)
	if err != nil {
		return nil, err
	}
	slot, err := ElementSlot(d, indices)
	if err != nil {
		return nil, err
	}
	cells, err := Backing(h, d)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(cells) {
		return nil, &ErrOutOfBounds{Index: slot, Upper: len(cells) - 1}
	}
	return &cells[slot], nil
}
