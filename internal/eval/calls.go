package eval

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/diagnostics"
	"a68core/internal/rows"
)

// execCall resolves the callee (a PROC-moded unit, possibly a bound
// operator or a user routine text) and applies it to the evaluated
// argument list, per spec.md §4.3's call dispatch category.
func (e *Evaluator) execCall(n *ast.Node) (ast.Cell, error) {
	calleeCell, err := e.Execute(n.Object)
	if err != nil {
		return ast.UninitCell(), err
	}
	proc, ok := calleeCell.V.(*ast.Procedure)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("call of non-procedure value")
	}
	args := make([]ast.Cell, len(n.Index))
	for i, a := range n.Index {
		cell, err := e.Execute(a)
		if err != nil {
			return ast.UninitCell(), err
		}
		args[i] = cell
	}
	return e.applyProcedure(n, proc, args)
}

// callBuiltinQuick is PropCallStandEnvQuick's fast path: the node's own
// tag names a stand-environ builtin directly (a call like `sin(x)`
// compiled against the prelude), skipping the identifier lookup that
// produces a *ast.Procedure wrapper.
func (e *Evaluator) callBuiltinQuick(n *ast.Node) (ast.Cell, error) {
	args := make([]ast.Cell, len(n.Index))
	for i, a := range n.Index {
		cell, err := e.Execute(a)
		if err != nil {
			return ast.UninitCell(), err
		}
		args[i] = cell
	}
	for _, a := range args {
		e.Push(a.V)
	}
	v, err := n.Tag.Builtin(e, n)
	if err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(v), nil
}

// applyProcedure invokes proc: a builtin runs directly against the
// evaluator's stack/frame context; a user routine text opens a new
// frame whose static link is the procedure's captured environ
// (spec.md §4.2: "calls through a procedure value use the captured
// environ directly, not lexical descent from the call site").
func (e *Evaluator) applyProcedure(n *ast.Node, proc *ast.Procedure, args []ast.Cell) (ast.Cell, error) {
	if proc.Builtin != nil {
		for _, a := range args {
			e.Push(a.V)
		}
		v, err := proc.Builtin(e, n)
		if err != nil {
			return ast.UninitCell(), err
		}
		return ast.Of(v), nil
	}
	if proc.Node == nil {
		return ast.UninitCell(), fmt.Errorf("call of an unbound procedure value")
	}

	st := proc.Node.SymbolTable
	level := 0
	localCount := 0
	if st != nil {
		level = st.Level
		localCount = st.ApIncrement
	}
	staticLink := runtimeProcedureStaticLink(proc.Environ)
	idx, err := e.Frames.Open(level, localCount, staticLink, e.curFrame, proc.Node)
	if err != nil {
		e.Sink.ReportFatal(loc(n), diagnostics.KindStackExhausted, err.Error(), err)
		return ast.UninitCell(), err
	}

	params := proc.Node.Index // formal parameter tag-bearing nodes, by convention
	for i, p := range params {
		if i < len(args) && p != nil && p.Tag != nil {
			*e.Frames.At(idx).Local(p.Tag.Offset) = args[i]
		}
	}

	prevFrame := e.curFrame
	e.curFrame = idx
	result, err := e.Execute(proc.Node.Operand)
	e.Frames.Close()
	e.curFrame = prevFrame
	return result, err
}

// runtimeProcedureStaticLink resolves a captured environ to the frame
// index that call opens against. It repeats runtime.ProcedureStaticLink's
// SegFrame check rather than calling it.
func runtimeProcedureStaticLink(environ ast.Ref) int {
	if environ.Segment != ast.SegFrame {
		return -1
	}
	return int(environ.FrameID)
}

// execSlice resolves the object to a row reference and evaluates each
// subscript as a plain INT index (no [lower:upper] trimmer form is
// recognised). With at least one subscript it yields the element, or a
// name (REF) for it when n.Mode is REF; only a slice with no subscripts
// reaches rows.Slice for a new descriptor (spec.md §4.3's "Slice"
// category).
func (e *Evaluator) execSlice(n *ast.Node) (ast.Cell, error) {
	objCell, err := e.Execute(n.Object)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := objCell.V.(ast.Ref)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("slice of non-row value")
	}

	allIndices := len(n.Index) > 0
	indices := make([]int, 0, len(n.Index))
	trimmers := make([]rows.Trimmer, 0, len(n.Index))
	for _, idxNode := range n.Index {
		cell, err := e.Execute(idxNode)
		if err != nil {
			return ast.UninitCell(), err
		}
		iv, _ := cell.V.(int64)
		indices = append(indices, int(iv))
		trimmers = append(trimmers, rows.Trimmer{IsIndex: true, Index: int(iv)})
	}

	if allIndices {
		cellPtr, err := rows.Index(e.Heap, ref, indices)
		if err != nil {
			e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindOutOfBounds, err.Error())
			return ast.UninitCell(), err
		}
		if n.Mode != nil && n.Mode.Tag == ast.ModeRef {
			d, derr := rows.Load(e.Heap, ref)
			if derr == nil {
				slot, _ := rows.ElementSlot(d, indices)
				return ast.Of(ast.Ref{Segment: ast.SegHeap, Handle: d.Backing.Handle, Gen: d.Backing.Gen, Offset: slot}), nil
			}
		}
		return *cellPtr, nil
	}

	newRef, _, err := rows.Slice(e.Heap, ref, trimmers, e.frameID())
	if err != nil {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindOutOfBounds, err.Error())
		return ast.UninitCell(), err
	}
	return ast.Of(newRef), nil
}

// sliceNameQuick is PropSliceNameQuick's fast path for a single-
// dimension slice producing a name: avoids the general multi-dimension
// trimmer bookkeeping when the source is already known 1-dimensional.
func (e *Evaluator) sliceNameQuick(n *ast.Node) (ast.Cell, error) {
	objCell, err := e.Execute(n.Object)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := objCell.V.(ast.Ref)
	if !ok || len(n.Index) != 1 {
		return e.execSlice(n)
	}
	idxCell, err := e.Execute(n.Index[0])
	if err != nil {
		return ast.UninitCell(), err
	}
	iv, _ := idxCell.V.(int64)
	d, err := rows.Load(e.Heap, ref)
	if err != nil {
		return ast.UninitCell(), err
	}
	slot, err := rows.ElementSlot(d, []int{int(iv)})
	if err != nil {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindOutOfBounds, err.Error())
		return ast.UninitCell(), err
	}
	return ast.Of(ast.Ref{Segment: ast.SegHeap, Handle: d.Backing.Handle, Gen: d.Backing.Gen, Offset: slot}), nil
}

// execSelection resolves a STRUCT field access: the object evaluates
// to a struct reference, and Field names the member to address
// (spec.md §4.3's "Selection" category).
func (e *Evaluator) execSelection(n *ast.Node) (ast.Cell, error) {
	objCell, err := e.Execute(n.Object)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := objCell.V.(ast.Ref)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("selection on non-struct value")
	}
	b, err := e.Heap.Deref(ref)
	if err != nil {
		return ast.UninitCell(), err
	}
	sv, ok := b.Payload.(*rows.StructValue)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("selection on non-struct block")
	}
	fieldIndex := -1
	if n.Object.Mode != nil {
		for i, f := range n.Object.Mode.Fields {
			if f.Name == n.Field {
				fieldIndex = i
				break
			}
		}
	}
	if fieldIndex < 0 || fieldIndex >= len(sv.Fields) {
		return ast.UninitCell(), fmt.Errorf("unknown field %q", n.Field)
	}
	if n.Mode != nil && n.Mode.Tag == ast.ModeRef {
		return ast.Of(ast.Ref{Segment: ast.SegHeap, Handle: ref.Handle, Gen: ref.Gen, Offset: fieldIndex}), nil
	}
	return sv.Fields[fieldIndex], nil
}
