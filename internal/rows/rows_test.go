package rows

import (
	"testing"

	"a68core/internal/ast"
	"a68core/internal/heap"
)

func newTestHeap() *heap.Heap { return heap.New(0) }

func TestNewAndElementSlotAddressing(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	ref, d, err := New(h, intMode, false, []Bound{{Lower: 1, Upper: 3}, {Lower: 1, Upper: 2}}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cells, err := Backing(h, d)
	if err != nil {
		t.Fatalf("Backing failed: %v", err)
	}
	if len(cells) != 6 {
		t.Fatalf("backing size = %d, want 6", len(cells))
	}

	slot, err := ElementSlot(d, []int{2, 2})
	if err != nil {
		t.Fatalf("ElementSlot failed: %v", err)
	}
	cells[slot] = ast.Of(int64(99))

	loaded, err := Load(h, ref)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	again, _ := Backing(h, loaded)
	if again[slot].V.(int64) != 99 {
		t.Errorf("round-tripped value = %v, want 99", again[slot].V)
	}
}

func TestElementSlotOutOfBounds(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	_, d, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 3}}, 0)

	if _, err := ElementSlot(d, []int{4}); err == nil {
		t.Fatal("expected ErrOutOfBounds for a subscript past the upper bound")
	} else if _, ok := err.(*ErrOutOfBounds); !ok {
		t.Errorf("error type = %T, want *ErrOutOfBounds", err)
	}
}

func TestSliceTrimAndIndex(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	ref, d, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 5}}, 0)
	cells, _ := Backing(h, d)
	for i := range cells {
		cells[i] = ast.Of(int64(i + 1))
	}

	// [2:4] trim keeps dimension, shrinks bounds.
	sliced, sd, err := Slice(h, ref, []Trimmer{{HasLower: true, Lower: 2, HasUpper: true, Upper: 4}}, 0)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if sd.Tuples[0].Count() != 3 {
		t.Errorf("sliced dimension count = %d, want 3", sd.Tuples[0].Count())
	}
	cell, err := Index(h, sliced, []int{2})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if cell.V.(int64) != 2 {
		t.Errorf("sliced element at index 2 = %v, want 2 (original element 2)", cell.V)
	}

	// a plain index collapses the dimension entirely.
	_, collapsed, err := Slice(h, ref, []Trimmer{{IsIndex: true, Index: 3}}, 0)
	if err != nil {
		t.Fatalf("Slice (index) failed: %v", err)
	}
	if collapsed.Dims != 0 {
		t.Errorf("indexing every dimension should leave Dims=0, got %d", collapsed.Dims)
	}
}

func TestTransientRowRejectsStoreIntoOlderFrame(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	_, flexDesc, _ := New(h, intMode, true, []Bound{{Lower: 1, Upper: 1}}, 5)

	if !IsTransient(flexDesc) {
		t.Fatal("a FLEX descriptor must report IsTransient")
	}
	// destFrameLevel (1, an outer/older frame) < ownerFrameLevel (5) is
	// the spec's "value does not outlive destination" violation.
	if err := CheckStore(flexDesc, 5, 1); err == nil {
		t.Fatal("expected a transient-store error storing into an older frame")
	} else if err.Error() != "attempt to store transient name" {
		t.Errorf("error text = %q, want the exact spec diagnostic", err.Error())
	}

	if err := CheckStore(flexDesc, 5, 9); err != nil {
		t.Errorf("storing into a younger (or equal) frame must be legal, got %v", err)
	}
}

func TestNonTransientRowNeverRejected(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	d := &Descriptor{Flex: false, TransientOwner: 5}
	if IsTransient(d) {
		t.Fatal("a non-FLEX descriptor must not report IsTransient")
	}
	if err := CheckStore(d, 5, 0); err != nil {
		t.Errorf("a non-transient row is always storable, got %v", err)
	}
	_ = intMode
}

func TestFromGoStringRoundTrip(t *testing.T) {
	h := newTestHeap()
	ref, err := FromGoString(h, "hello", 0)
	if err != nil {
		t.Fatalf("FromGoString failed: %v", err)
	}
	back, err := ToGoString(h, ref)
	if err != nil {
		t.Fatalf("ToGoString failed: %v", err)
	}
	if back != "hello" {
		t.Errorf("round-trip = %q, want %q", back, "hello")
	}
}

func TestFromGoStringEmpty(t *testing.T) {
	h := newTestHeap()
	ref, err := FromGoString(h, "", 0)
	if err != nil {
		t.Fatalf("FromGoString failed: %v", err)
	}
	back, err := ToGoString(h, ref)
	if err != nil {
		t.Fatalf("ToGoString failed: %v", err)
	}
	if back != "" {
		t.Errorf("empty string round-trip = %q, want empty", back)
	}
}

func TestConcatenateEmptyCollateralIsVacuum(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	ref, err := Concatenate(h, intMode, nil, 0)
	if err != nil {
		t.Fatalf("Concatenate(nil) failed: %v", err)
	}
	d, err := Load(h, ref)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if d.Tuples[0].Count() != 0 || d.Tuples[1].Count() != 0 {
		t.Errorf("empty collateral must yield [1:0][1:0], got %+v", d.Tuples)
	}
}

func TestConcatenateStacksRowsAsOuterDimension(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	r1, d1, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 2}}, 0)
	c1, _ := Backing(h, d1)
	c1[0], c1[1] = ast.Of(int64(10)), ast.Of(int64(20))

	r2, d2, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 2}}, 0)
	c2, _ := Backing(h, d2)
	c2[0], c2[1] = ast.Of(int64(30)), ast.Of(int64(40))

	ref, err := Concatenate(h, intMode, []ast.Ref{r1, r2}, 0)
	if err != nil {
		t.Fatalf("Concatenate failed: %v", err)
	}
	d, _ := Load(h, ref)
	if d.Dims != 2 {
		t.Fatalf("concatenated Dims = %d, want 2", d.Dims)
	}
	cell, err := Index(h, ref, []int{2, 1})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if cell.V.(int64) != 30 {
		t.Errorf("element [2,1] = %v, want 30", cell.V)
	}
}

func TestDeepCopyIsIndependentOfSource(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	rowMode := &ast.Mode{Tag: ast.ModeRow, SubMode: intMode, Dimensions: 1}
	ref, d, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 3}}, 0)
	cells, _ := Backing(h, d)
	cells[0], cells[1], cells[2] = ast.Of(int64(1)), ast.Of(int64(2)), ast.Of(int64(3))

	cpCell, err := DeepCopy(h, rowMode, ast.Of(ref), 0)
	if err != nil {
		t.Fatalf("DeepCopy failed: %v", err)
	}
	cpRef := cpCell.V.(ast.Ref)
	if cpRef == ref {
		t.Fatal("DeepCopy must allocate a distinct backing block")
	}

	// mutate the original; the copy must be unaffected.
	cells[0] = ast.Of(int64(999))

	cpDesc, _ := Load(h, cpRef)
	cpCells, _ := Backing(h, cpDesc)
	if cpCells[0].V.(int64) != 1 {
		t.Errorf("copy's element 0 = %v, want 1 (independent of source mutation)", cpCells[0].V)
	}
}

func TestDeepAssignFlexReallocatesToSourceExtent(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	flexMode := &ast.Mode{Tag: ast.ModeFlexRow, SubMode: intMode, Dimensions: 1}

	destRef, _, _ := New(h, intMode, true, []Bound{{Lower: 1, Upper: 1}}, 0)
	srcRef, srcDesc, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 4}}, 0)
	srcCells, _ := Backing(h, srcDesc)
	for i := range srcCells {
		srcCells[i] = ast.Of(int64(i + 1))
	}

	if err := DeepAssign(h, flexMode, destRef, ast.Of(srcRef), 0); err != nil {
		t.Fatalf("DeepAssign failed: %v", err)
	}
	destDesc, _ := Load(h, destRef)
	if destDesc.Tuples[0].Count() != 4 {
		t.Errorf("FLEX destination count after assign = %d, want 4", destDesc.Tuples[0].Count())
	}
	destCells, _ := Backing(h, destDesc)
	if destCells[3].V.(int64) != 4 {
		t.Errorf("destCells[3] = %v, want 4", destCells[3].V)
	}
}

func TestDeepAssignNonFlexRejectsShapeMismatch(t *testing.T) {
	h := newTestHeap()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	rowMode := &ast.Mode{Tag: ast.ModeRow, SubMode: intMode, Dimensions: 1}

	destRef, _, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 3}}, 0)
	srcRef, _, _ := New(h, intMode, false, []Bound{{Lower: 1, Upper: 4}}, 0)

	err := DeepAssign(h, rowMode, destRef, ast.Of(srcRef), 0)
	if err == nil {
		t.Fatal("expected ErrDifferentBounds assigning mismatched shapes into a non-FLEX destination")
	}
	if _, ok := err.(*ErrDifferentBounds); !ok {
		t.Errorf("error type = %T, want *ErrDifferentBounds", err)
	}
}

func TestIteratorRowMajorOrderWithCarry(t *testing.T) {
	d := &Descriptor{
		Dims: 2,
		Tuples: []Tuple{
			{Lower: 1, Upper: 2, Span: 2, Shift: 1},
			{Lower: 1, Upper: 2, Span: 1, Shift: 1},
		},
	}
	it := NewIterator(d)
	var got [][]int
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, idx)
	}
	want := [][]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}}
	if len(got) != len(want) {
		t.Fatalf("iterated %d indices, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i][0] != want[i][0] || got[i][1] != want[i][1] {
			t.Errorf("index %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIteratorEmptyDescriptorYieldsNothing(t *testing.T) {
	d := &Descriptor{Dims: 1, Tuples: []Tuple{{Lower: 1, Upper: 0}}}
	it := NewIterator(d)
	if _, ok := it.Next(); ok {
		t.Error("an empty (zero-size) descriptor must yield no indices")
	}
}
