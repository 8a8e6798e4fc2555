package rows

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/heap"
)

// Trimmer describes one dimension of a slice expression: either a
// single index (collapsing that dimension) or a [lower:upper] trim
// (keeping the dimension with adjusted bounds).
type Trimmer struct {
	IsIndex bool
	Index   int
	Lower   int
	Upper   int
	HasLower bool
	HasUpper bool
}

// Slice bounds-checks each trimmer against ref's descriptor and
// produces a new descriptor sharing the same backing block but with
// adjusted shift/span/bounds (spec.md §4.4: "multi-dim slice with
// trimmers produces a new descriptor with adjusted shift/span/bounds").
// Dimensions collapsed by a plain index drop out of the result.
func Slice(h *heap.Heap, ref ast.Ref, trimmers []Trimmer, ownerFrame uint64) (ast.Ref, *Descriptor, error) {
	src, err := Load(h, ref)
	if err != nil {
		return ast.Ref{}, nil, err
	}
	if len(trimmers) != src.Dims {
		return ast.Ref{}, nil, fmt.Errorf("expected %d trimmers, got %d", src.Dims, len(trimmers))
	}

	sliceOffset := src.SliceOffset
	var newTuples []Tuple
	for k, tr := range trimmers {
		t := src.Tuples[k]
		if tr.IsIndex {
			if tr.Index < t.Lower || tr.Index > t.Upper {
				return ast.Ref{}, nil, &ErrOutOfBounds{Dim: k, Index: tr.Index, Lower: t.Lower, Upper: t.Upper}
			}
			sliceOffset += t.Span * (tr.Index - t.Shift)
			continue
		}
		lower, upper := t.Lower, t.Upper
		if tr.HasLower {
			lower = tr.Lower
		}
		if tr.HasUpper {
			upper = tr.Upper
		}
		if lower < t.Lower || upper > t.Upper {
			if !(upper < lower) { // an empty trim is always legal
				return ast.Ref{}, nil, &ErrOutOfBounds{Dim: k, Index: lower, Lower: t.Lower, Upper: t.Upper}
			}
		}
		sliceOffset += t.Span * (lower - t.Shift)
		newTuples = append(newTuples, Tuple{
			Lower: lower, Upper: upper, Span: t.Span, Shift: lower,
		})
	}

	d := &Descriptor{
		Dims:           len(newTuples),
		ElemMode:       src.ElemMode,
		SliceOffset:    sliceOffset,
		FieldOffset:    src.FieldOffset,
		Backing:        src.Backing,
		Tuples:         newTuples,
		Flex:           src.Flex,
		TransientOwner: ownerFrame,
	}
	var mode *ast.Mode
	if d.Dims == 0 {
		mode = src.ElemMode
	} else if src.Flex {
		mode = &ast.Mode{Tag: ast.ModeFlexRow, SubMode: src.ElemMode, Dimensions: d.Dims}
	} else {
		mode = &ast.Mode{Tag: ast.ModeRow, SubMode: src.ElemMode, Dimensions: d.Dims}
	}
	newRef, err := h.Allocate(mode, 0, d)
	if err != nil {
		return ast.Ref{}, nil, err
	}
	return newRef, d, nil
}

// Rowing implements the A → []A coercion (spec.md §4.4: "Rowing").
// onesided creates a 1-element descriptor over value itself
// (ROW_OF_ROW semantics): a fresh backing block holding exactly value.
func Rowing(h *heap.Heap, elemMode *ast.Mode, value ast.Cell, ownerFrame uint64) (ast.Ref, error) {
	ref, d, err := New(h, elemMode, true, []Bound{{Lower: 1, Upper: 1}}, ownerFrame)
	if err != nil {
		return ast.Ref{}, err
	}
	cells, err := Backing(h, d)
	if err != nil {
		return ast.Ref{}, err
	}
	cells[0] = value
	return ref, nil
}

// RowRow wraps an existing row descriptor in one more outer dimension
// of extent 1 (the ROW_ROW case: source is itself a row).
func RowRow(h *heap.Heap, rowMode *ast.Mode, src ast.Ref, ownerFrame uint64) (ast.Ref, error) {
	return Rowing(h, rowMode, ast.Of(src), ownerFrame)
}
