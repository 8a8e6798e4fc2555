package eval

import (
	"a68core/internal/ast"
	"a68core/internal/rows"
)

// execIdentityDeclaration evaluates the initializing unit and binds
// its value directly into the declared tag's frame slot (spec.md §4.3:
// "identity declaration evaluates its unit and stores the result
// directly, never boxing an extra indirection"). Modes containing rows
// (Mode.HasRows) are deep-copied so the declared name owns independent
// storage; any other value is stored as it is.
func (e *Evaluator) execIdentityDeclaration(n *ast.Node) (ast.Cell, error) {
	if n.Tag == nil || n.Operand == nil {
		return ast.UninitCell(), nil
	}
	cell, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	if n.Tag.Mode != nil && n.Tag.Mode.HasRows {
		cp, err := rows.DeepCopy(e.Heap, n.Tag.Mode, cell, e.frameID())
		if err != nil {
			return ast.UninitCell(), err
		}
		cell = cp
	}
	*e.Frames.Current().Local(n.Tag.Offset) = cell
	return cell, nil
}

// execVariableDeclaration allocates the declared variable's frame slot
// (already zero-filled by FrameStack.Open) and, if an initializer is
// present, assigns it through the generated REF the way a LOC
// generator would (spec.md §4.3: "variable declaration is an identity
// declaration over a generated LOC reference").
func (e *Evaluator) execVariableDeclaration(n *ast.Node) (ast.Cell, error) {
	if n.Tag == nil {
		return ast.UninitCell(), nil
	}
	ref := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(e.curFrame), Offset: n.Tag.Offset}
	if n.Operand != nil {
		cell, err := e.Execute(n.Operand)
		if err != nil {
			return ast.UninitCell(), err
		}
		if err := e.storeRef(n, ref, n.Tag.Mode, cell); err != nil {
			return ast.UninitCell(), err
		}
	}
	return ast.Of(ref), nil
}

// execOperatorDeclaration binds an operator tag to its defining
// routine text's evaluated Procedure value, the same way a procedure
// declaration does; kept distinct per spec.md's own declaration
// taxonomy even though the runtime action is identical.
func (e *Evaluator) execOperatorDeclaration(n *ast.Node) (ast.Cell, error) {
	return e.execProcedureDeclaration(n)
}

// execProcedureDeclaration evaluates the routine-text operand (which
// captures the current frame as its environ) and binds it to the
// declared tag.
func (e *Evaluator) execProcedureDeclaration(n *ast.Node) (ast.Cell, error) {
	if n.Tag == nil || n.Operand == nil {
		return ast.UninitCell(), nil
	}
	cell, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	*e.Frames.Current().Local(n.Tag.Offset) = cell
	return cell, nil
}

// execRoutineText builds a Procedure value capturing the current frame
// as environ (spec.md §3: "Procedure value... captured environ");
// the body itself only runs when the procedure is later called.
func (e *Evaluator) execRoutineText(n *ast.Node) (ast.Cell, error) {
	environ := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(e.curFrame)}
	proc := &ast.Procedure{Node: n, Environ: environ, Mode: n.Mode}
	return ast.Of(proc), nil
}

// execFormatText builds a Format value the same way, for FORMAT mode
// (spec.md §3: "Format value... pointer to a format-text node plus an
// environ reference").
func (e *Evaluator) execFormatText(n *ast.Node) (ast.Cell, error) {
	environ := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(e.curFrame)}
	f := &ast.Format{Node: n, Environ: environ}
	return ast.Of(f), nil
}

// execLocGenerator allocates storage for the generated mode on the
// current frame's behalf: a LOC generator's result is transient, owned
// by the current frame, and rejected by the scope checker if stored
// into a name that outlives this frame (spec.md §4.4).
func (e *Evaluator) execLocGenerator(n *ast.Node) (ast.Cell, error) {
	return e.allocateGenerator(n, false)
}

// execHeapGenerator allocates storage with no owning-frame restriction
// (spec.md: "a HEAP generator's result has no such restriction").
func (e *Evaluator) execHeapGenerator(n *ast.Node) (ast.Cell, error) {
	return e.allocateGenerator(n, true)
}

func (e *Evaluator) allocateGenerator(n *ast.Node, heapOwned bool) (ast.Cell, error) {
	mode := n.Mode
	if mode == nil || mode.SubMode == nil {
		return ast.UninitCell(), nil
	}
	target := mode.SubMode
	if target.Tag == ast.ModeRow || target.Tag == ast.ModeFlexRow || target.Tag == ast.ModeString {
		bounds, err := e.generatorBounds(n)
		if err != nil {
			return ast.UninitCell(), err
		}
		owner := e.frameID()
		if heapOwned {
			owner = 0
		}
		ref, _, err := rows.New(e.Heap, target.ElementMode(), target.Tag == ast.ModeFlexRow, bounds, owner)
		if err != nil {
			return ast.UninitCell(), err
		}
		return ast.Of(ref), nil
	}
	ref, err := e.Heap.Allocate(target, 1, ast.UninitCell())
	if err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(ref), nil
}

// generatorBounds evaluates the generator node's declared bound
// expressions (lower, upper pairs per dimension, in Index) at runtime,
// since ALGOL 68 bounds are general INT-valued units, not necessarily
// literals.
func (e *Evaluator) generatorBounds(n *ast.Node) ([]rows.Bound, error) {
	bounds := make([]rows.Bound, 0, len(n.Index)/2)
	for i := 0; i+1 < len(n.Index); i += 2 {
		lowerCell, err := e.Execute(n.Index[i])
		if err != nil {
			return nil, err
		}
		upperCell, err := e.Execute(n.Index[i+1])
		if err != nil {
			return nil, err
		}
		lower, _ := lowerCell.V.(int64)
		upper, _ := upperCell.V.(int64)
		bounds = append(bounds, rows.Bound{Lower: int(lower), Upper: int(upper)})
	}
	if len(bounds) == 0 {
		bounds = append(bounds, rows.Bound{Lower: 1, Upper: 0})
	}
	return bounds, nil
}
