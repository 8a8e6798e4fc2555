package rows

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/heap"
)

// Concatenate implements spec.md §4.4's collateral-display
// concatenation: given n stack-resident rows of the same shape in
// their non-outermost dimensions, allocate a new descriptor with outer
// dimension [1:n] and inner dimensions taken from (and required equal
// across) the inputs. An empty collateral yields a vacuum descriptor
// with [1:0] outer and [1:0] inner, per spec.md's boundary-behavior
// scenario.
func Concatenate(h *heap.Heap, elemMode *ast.Mode, rows []ast.Ref, ownerFrame uint64) (ast.Ref, error) {
	n := len(rows)
	if n == 0 {
		outer := Bound{Lower: 1, Upper: 0}
		inner := Bound{Lower: 1, Upper: 0}
		ref, _, err := New(h, elemMode, false, []Bound{outer, inner}, ownerFrame)
		return ref, err
	}

	first, err := Load(h, rows[0])
	if err != nil {
		return ast.Ref{}, err
	}
	innerBounds := make([]Bound, first.Dims)
	for i, t := range first.Tuples {
		innerBounds[i] = Bound{Lower: t.Lower, Upper: t.Upper}
	}

	allBounds := append([]Bound{{Lower: 1, Upper: n}}, innerBounds...)
	ref, dest, err := New(h, elemMode, false, allBounds, ownerFrame)
	if err != nil {
		return ast.Ref{}, err
	}
	destCells, err := Backing(h, dest)
	if err != nil {
		return ast.Ref{}, err
	}

	innerSize := GetRowSize(first.Tuples)
	for i, rref := range rows {
		d, err := Load(h, rref)
		if err != nil {
			return ast.Ref{}, err
		}
		if d.Dims != first.Dims {
			return ast.Ref{}, fmt.Errorf("different bounds: collateral element %d has %d dimensions, expected %d", i, d.Dims, first.Dims)
		}
		for k, t := range d.Tuples {
			if t.Count() != innerBounds[k].Upper-innerBounds[k].Lower+1 {
				return ast.Ref{}, fmt.Errorf("different bounds: collateral element %d dimension %d shape mismatch", i, k)
			}
		}
		srcCells, err := Backing(h, d)
		if err != nil {
			return ast.Ref{}, err
		}
		copy(destCells[i*innerSize:(i+1)*innerSize], srcCells[d.SliceOffset:d.SliceOffset+innerSize])
	}
	return ref, nil
}
