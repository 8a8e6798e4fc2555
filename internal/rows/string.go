package rows

import (
	"a68core/internal/ast"
	"a68core/internal/heap"
)

// charMode is the shared CHAR mode used when materializing a string as
// a [1:n] CHAR row.
var charMode = &ast.Mode{Tag: ast.ModeChar, Size: 1}

// FromGoString converts a native byte string into a [1:n] CHAR
// descriptor (spec.md §4.4: "STRING ≡ FLEX [] CHAR... allocates a
// descriptor [1:n] CHAR").
func FromGoString(h *heap.Heap, s string, ownerFrame uint64) (ast.Ref, error) {
	runes := []rune(s)
	ref, d, err := New(h, charMode, true, []Bound{{Lower: 1, Upper: len(runes)}}, ownerFrame)
	if err != nil {
		return ast.Ref{}, err
	}
	cells, err := Backing(h, d)
	if err != nil {
		return ast.Ref{}, err
	}
	for i, r := range runes {
		cells[i] = ast.Of(r)
	}
	return ref, nil
}

// ToGoString scans lower_bound..upper_bound of a CHAR row descriptor
// back into a native string (spec.md §4.4: "the reverse scans
// lower_bound..upper_bound"). A zero-length string has ROW_SIZE == 0
// and returns "".
func ToGoString(h *heap.Heap, ref ast.Ref) (string, error) {
	d, err := Load(h, ref)
	if err != nil {
		return "", err
	}
	cells, err := Backing(h, d)
	if err != nil {
		return "", err
	}
	size := GetRowSize(d.Tuples)
	out := make([]rune, 0, size)
	for i := 0; i < size; i++ {
		c := cells[d.SliceOffset+i]
		if r, ok := c.V.(rune); ok {
			out = append(out, r)
		} else if ch, ok := c.V.(byte); ok {
			out = append(out, rune(ch))
		}
	}
	return string(out), nil
}
