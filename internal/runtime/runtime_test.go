package runtime

import (
	"testing"

	"a68core/internal/ast"
)

func TestEvalStackPushPopOrder(t *testing.T) {
	s := NewEvalStack(4)
	s.PushValue(int64(1))
	s.PushValue(int64(2))
	s.PushValue(int64(3))

	if got := s.Pop().V.(int64); got != 3 {
		t.Errorf("Pop() = %d, want 3 (LIFO order)", got)
	}
	if got := s.Peek(0).V.(int64); got != 2 {
		t.Errorf("Peek(0) = %d, want 2", got)
	}
}

func TestEvalStackExhaustion(t *testing.T) {
	s := NewEvalStack(1)
	if err := s.Push(ast.Of(int64(1))); err != nil {
		t.Fatalf("first push should fit: %v", err)
	}
	err := s.Push(ast.Of(int64(2)))
	if err == nil {
		t.Fatal("expected ErrStackExhausted on overflow")
	}
	if _, ok := err.(*ErrStackExhausted); !ok {
		t.Errorf("error type = %T, want *ErrStackExhausted", err)
	}
}

func TestEvalStackSnapshotRestore(t *testing.T) {
	s := NewEvalStack(8)
	s.PushValue(int64(1))
	snap := s.Snapshot()
	s.PushValue(int64(2))
	s.PushValue(int64(3))
	s.Restore(snap)

	if s.Depth() != 1 {
		t.Errorf("Depth after Restore = %d, want 1", s.Depth())
	}
}

func TestFrameStackOpenClose(t *testing.T) {
	fs := NewFrameStack(4)
	idx, err := fs.Open(0, 2, -1, -1, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if idx != 0 || fs.Depth() != 1 {
		t.Fatalf("unexpected frame stack state after Open: idx=%d depth=%d", idx, fs.Depth())
	}
	frame := fs.Current()
	if len(frame.Locals) != 2 {
		t.Errorf("Locals len = %d, want 2", len(frame.Locals))
	}
	if frame.Locals[0].IsInitialised() {
		t.Error("a freshly opened frame's locals must be zero-filled/uninitialised")
	}
	fs.Close()
	if fs.Depth() != 0 {
		t.Errorf("Depth after Close = %d, want 0", fs.Depth())
	}
}

func TestFrameStackExhaustion(t *testing.T) {
	fs := NewFrameStack(1)
	if _, err := fs.Open(0, 0, -1, -1, nil); err != nil {
		t.Fatalf("first Open should fit: %v", err)
	}
	_, err := fs.Open(0, 0, -1, -1, nil)
	if err == nil {
		t.Fatal("expected ErrStackExhausted on frame overflow")
	}
}

// TestStaticLinkForNestedScopes exercises spec.md's three static-link
// cases: a peer frame at the program's level, a child opening one
// level down, and an ancestor-ward frame several levels up.
func TestStaticLinkForNestedScopes(t *testing.T) {
	fs := NewFrameStack(8)
	root, _ := fs.Open(0, 0, -1, -1, nil)    // level 0
	lvl1, _ := fs.Open(1, 0, root, root, nil) // level 1, static link to root
	lvl2, _ := fs.Open(2, 0, lvl1, lvl1, nil) // level 2, static link to lvl1

	if got := fs.StaticLinkFor(lvl2, 3); got != lvl2 {
		t.Errorf("opening a child level must static-link to the current frame: got %d, want %d", got, lvl2)
	}
	if got := fs.StaticLinkFor(lvl2, 1); got != lvl1 {
		t.Errorf("ancestor-ward descent from level 2 to level 1 should land on lvl1: got %d, want %d", got, lvl1)
	}
	if got := fs.StaticLinkFor(lvl1, 1); got != fs.At(lvl1).StaticLink {
		t.Errorf("opening a peer at the same level must reuse the current static link")
	}
}

func TestDescendWalksStaticLinks(t *testing.T) {
	fs := NewFrameStack(8)
	root, _ := fs.Open(0, 0, -1, -1, nil)
	lvl1, _ := fs.Open(1, 0, root, root, nil)
	lvl2, _ := fs.Open(2, 0, lvl1, lvl1, nil)

	if got := fs.Descend(lvl2, 0); got != root {
		t.Errorf("Descend(lvl2, 0) = %d, want root frame %d", got, root)
	}
	if got := fs.Descend(lvl2, 5); got != -1 {
		t.Errorf("Descend to an unreachable level must return -1, got %d", got)
	}
}

func TestFindCatcherWalksDynamicLinks(t *testing.T) {
	fs := NewFrameStack(8)
	root, _ := fs.Open(0, 0, -1, -1, nil)
	fs.PushCatcher(root, Catcher{Label: "loop_exit", FrameIndex: root, EvalDepth: 0})
	called, _ := fs.Open(1, 0, root, root, nil)

	c, idx, ok := fs.FindCatcher(called, "loop_exit")
	if !ok {
		t.Fatal("expected to find the catcher installed on an ancestor frame")
	}
	if idx != root || c.Label != "loop_exit" {
		t.Errorf("FindCatcher returned wrong frame/catcher: idx=%d label=%s", idx, c.Label)
	}

	if _, _, ok := fs.FindCatcher(called, "nonexistent"); ok {
		t.Error("FindCatcher must report false for an unknown label")
	}
}

func TestCheckDynamicScope(t *testing.T) {
	fs := NewFrameStack(8)
	outer, _ := fs.Open(0, 0, -1, -1, nil)
	inner, _ := fs.Open(1, 0, outer, outer, nil)

	// A value rooted in the inner (deeper, shorter-lived) frame must
	// not be allowed to flow into the outer (longer-lived) frame.
	innerRef := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(inner), Offset: 0}
	if CheckDynamicScope(fs, fs.At(outer).Level, innerRef) {
		t.Error("assigning an inner-frame ref into an outer destination must fail the dynamic scope check")
	}

	outerRef := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(outer), Offset: 0}
	if !CheckDynamicScope(fs, fs.At(inner).Level, outerRef) {
		t.Error("assigning an outer-frame ref into an inner destination must pass the dynamic scope check")
	}

	if !CheckDynamicScope(fs, fs.At(outer).Level, ast.NilRef) {
		t.Error("a nil source ref carries no scope obligation")
	}
}
