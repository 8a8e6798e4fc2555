package ast

import "testing"

func TestModeString(t *testing.T) {
	tests := []struct {
		name string
		mode *Mode
		want string
	}{
		{"int", &Mode{Tag: ModeInt}, "INT"},
		{"struct", &Mode{Tag: ModeStruct}, "STRUCT"},
		{"flex row", &Mode{Tag: ModeFlexRow}, "FLEX ROW"},
		{"named overrides tag", NewName(&Mode{Tag: ModeRow}, "[1:3] INT"), "[1:3] INT"},
		{"nil mode", nil, "<nil mode>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModeIs(t *testing.T) {
	m := &Mode{Tag: ModeLong}
	if !m.Is(ModeInt, ModeLong) {
		t.Error("Is should match one of several tags")
	}
	if m.Is(ModeReal, ModeBool) {
		t.Error("Is should not match unrelated tags")
	}
}

func TestModeElementMode(t *testing.T) {
	elem := &Mode{Tag: ModeInt}
	sliced := &Mode{Tag: ModeRow}
	row1 := &Mode{Tag: ModeRow, Dimensions: 1, SubMode: elem}
	row2 := &Mode{Tag: ModeRow, Dimensions: 2, SubMode: elem, SliceMode: sliced}

	if got := row1.ElementMode(); got != elem {
		t.Errorf("1-dim ElementMode should be SubMode, got %v", got)
	}
	if got := row2.ElementMode(); got != sliced {
		t.Errorf("multi-dim ElementMode should be SliceMode, got %v", got)
	}
}

func TestCellInitialisation(t *testing.T) {
	u := UninitCell()
	if u.IsInitialised() {
		t.Error("UninitCell must not report initialised")
	}
	c := Of(int64(42))
	if !c.IsInitialised() {
		t.Error("Of() must mark the cell initialised")
	}
	if c.V.(int64) != 42 {
		t.Errorf("Of() should preserve the value, got %v", c.V)
	}
}

func TestRefNil(t *testing.T) {
	if !NilRef.IsNil() {
		t.Error("NilRef must report IsNil")
	}
	r := Ref{Segment: SegHeap, Handle: 3}
	if r.IsNil() {
		t.Error("a heap-segment ref must not report IsNil")
	}
}

func TestSymbolTableDeclareAssignsOffsets(t *testing.T) {
	root := NewSymbolTable(nil)
	if root.Level != 0 {
		t.Fatalf("root level = %d, want 0", root.Level)
	}
	child := NewSymbolTable(root)
	if child.Level != 1 {
		t.Fatalf("child level = %d, want 1", child.Level)
	}

	a := &Tag{Name: "a", Mode: &Mode{Tag: ModeInt}}
	b := &Tag{Name: "b", Mode: &Mode{Tag: ModeReal}}
	offA := root.Declare(a)
	offB := root.Declare(b)

	if offA == offB {
		t.Errorf("distinct declarations must get distinct offsets: %d == %d", offA, offB)
	}
	if a.Level != 0 || b.Level != 0 {
		t.Error("Declare must stamp the tag with its table's level")
	}
	if root.ApIncrement <= 0 {
		t.Error("ApIncrement must grow as identifiers are declared")
	}
}

func TestNodeLinkBuildsChildListAndChildren(t *testing.T) {
	parent := &Node{Kind: KindSerialClause}
	c1 := &Node{Kind: KindIntDenotation}
	c2 := &Node{Kind: KindIdentifier}
	parent.Link(c1)
	parent.Link(c2)

	list := parent.ChildList()
	if len(list) != 2 || list[0] != c1 || list[1] != c2 {
		t.Errorf("ChildList() = %v, want [c1 c2]", list)
	}
	if len(parent.Children) != 2 {
		t.Errorf("Children slice len = %d, want 2", len(parent.Children))
	}
}

func TestTagIsOperator(t *testing.T) {
	op := &Tag{Name: "+", Priority: 1}
	id := &Tag{Name: "x", Priority: 0}
	if !op.IsOperator() {
		t.Error("a tag with priority > 0 must report IsOperator")
	}
	if id.IsOperator() {
		t.Error("a plain identifier tag must not report IsOperator")
	}
}
