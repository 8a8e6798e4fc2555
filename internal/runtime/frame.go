// Package runtime implements spec.md §4.2: the twin evaluation/frame
// stacks, activation records, and static-link descent. Grounded on
// the teacher's internal/vm/vm.go, whose EnhancedCallFrame/EnhancedVM
// carry exactly this shape (stack/stackTop, frames/frameCount,
// TryFrame) for a bytecode VM; here the same fields serve a tree-walk
// evaluator over ast.Node instead of a bytecode.Chunk.
package runtime

import "a68core/internal/ast"

// Catcher is a non-local-exit target installed by an enclosing
// construct (a label, a loop's implicit exit target). spec.md §4.8
// calls this the "jump-catcher slot".
type Catcher struct {
	Label      string
	FrameIndex int // index into Frames.records at the time the catcher was installed
	EvalDepth  int // eval stack depth to restore on catch
}

// Frame is one activation record (spec.md §4.2): static link, dynamic
// link, containing node, optional jump-catchers, and local storage.
type Frame struct {
	ID          uint64
	Level       int // lexical level this frame instantiates
	StaticLink  int // index into Frames.records of the lexically enclosing frame; -1 for the program root
	DynamicLink int // index into Frames.records of the caller; -1 for the program root
	Containing  *ast.Node
	Catchers    []Catcher

	Locals []ast.Cell
}

// Local returns a pointer to the Cell at offset within this frame's
// local storage, so callers can both read and assign in place.
func (f *Frame) Local(offset int) *ast.Cell {
	return &f.Locals[offset]
}

// FrameStack is the linear arena of activation records (spec.md §4.2:
// "preallocated linear regions with a monotonically advancing
// pointer").
type FrameStack struct {
	records []Frame
	top     int
	max     int
	nextID  uint64
}

// ErrStackExhausted is spec.md §7's "Stack exhausted" error.
type ErrStackExhausted struct{ Which string }

func (e *ErrStackExhausted) Error() string { return e.Which + " stack exhausted" }

// NewFrameStack preallocates a frame arena of the given capacity.
func NewFrameStack(capacity int) *FrameStack {
	return &FrameStack{records: make([]Frame, capacity), max: capacity}
}

// Depth is the number of live frames.
func (fs *FrameStack) Depth() int { return fs.top }

// Current returns the topmost frame, or nil if the stack is empty.
func (fs *FrameStack) Current() *Frame {
	if fs.top == 0 {
		return nil
	}
	return &fs.records[fs.top-1]
}

// At returns the frame at index i (0 = program root).
func (fs *FrameStack) At(i int) *Frame { return &fs.records[i] }

// Open pushes a new frame with localCount zero-filled local slots
// (spec.md §3: "contents zero-filled on creation"), wired to
// staticLink and dynamicLink by frame index.
func (fs *FrameStack) Open(level, localCount, staticLink, dynamicLink int, containing *ast.Node) (int, error) {
	if fs.top >= fs.max {
		return -1, &ErrStackExhausted{Which: "frame"}
	}
	fs.nextID++
	fs.records[fs.top] = Frame{
		ID:          fs.nextID,
		Level:       level,
		StaticLink:  staticLink,
		DynamicLink: dynamicLink,
		Containing:  containing,
		Locals:      make([]ast.Cell, localCount),
	}
	idx := fs.top
	fs.top++
	return idx, nil
}

// Close pops the topmost frame.
func (fs *FrameStack) Close() {
	if fs.top > 0 {
		fs.top--
	}
}

// TruncateTo restores the frame stack to depth after an abandoned
// call sequence (non-local jump unwinding, spec.md §5 "Cancellation").
func (fs *FrameStack) TruncateTo(depth int) {
	if depth < fs.top {
		fs.top = depth
	}
}

// StaticLinkFor computes which enclosing frame index should become the
// static link of a new frame opening at lexical level target, per
// spec.md §4.2's three cases (peer / child / ancestor-ward), given the
// currently-executing frame's index cur.
//
// This is used only for frames opened by lexical nesting (closed
// clauses, loop bodies); calls through a procedure value instead use
// the procedure's captured environ directly (ProcedureStaticLink).
func (fs *FrameStack) StaticLinkFor(cur int, target int) int {
	if cur < 0 {
		return -1
	}
	curLevel := fs.records[cur].Level
	switch {
	case target == curLevel:
		return fs.records[cur].StaticLink
	case target > curLevel:
		return cur
	default:
		f := cur
		for f >= 0 && fs.records[f].Level > target {
			f = fs.records[f].StaticLink
		}
		return f
	}
}

// ProcedureStaticLink resolves a captured environ Ref (SegFrame) to a
// frame index, for calls through a procedure value (spec.md §4.2:
// "the static link is the procedure's captured environ").
func ProcedureStaticLink(environ ast.Ref) int {
	if environ.Segment != ast.SegFrame {
		return -1
	}
	return int(environ.FrameID)
}

// Descend walks static links from frame index cur until a frame of
// level target is reached, per spec.md §4.2's "Descent". Returns the
// frame index, or -1 if no such ancestor exists (a bug in the
// caller's scope assumptions, since the static scope checker should
// have rejected any program that could trigger this at runtime).
func (fs *FrameStack) Descend(cur int, target int) int {
	f := cur
	for f >= 0 && fs.records[f].Level != target {
		f = fs.records[f].StaticLink
	}
	return f
}

// PushCatcher installs a non-local-exit target on the frame at index
// idx.
func (fs *FrameStack) PushCatcher(idx int, c Catcher) {
	fs.records[idx].Catchers = append(fs.records[idx].Catchers, c)
}

// FindCatcher searches from frame index cur outward (via dynamic
// links, since a jump unwinds the call stack, not the lexical chain)
// for a catcher matching label.
func (fs *FrameStack) FindCatcher(cur int, label string) (Catcher, int, bool) {
	for f := cur; f >= 0; f = fs.records[f].DynamicLink {
		cs := fs.records[f].Catchers
		for i := len(cs) - 1; i >= 0; i-- {
			if cs[i].Label == label {
				return cs[i], f, true
			}
		}
	}
	return Catcher{}, -1, false
}
