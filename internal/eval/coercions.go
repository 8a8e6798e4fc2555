package eval

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/rows"
)

// execDereferencing is the general (non-specialized) REF M -> M
// coercion: spec.md §4.3's "Dereferencing" category.
func (e *Evaluator) execDereferencing(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := operand.V.(ast.Ref)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("dereference of non-reference value")
	}
	return e.derefRef(n, ref)
}

// execDeproceduring calls a zero-parameter PROC value to yield its
// result, spec.md's "Deproceduring" coercion (an automatic call
// inserted wherever a PROC M is used where M is expected).
func (e *Evaluator) execDeproceduring(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	proc, ok := operand.V.(*ast.Procedure)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("deproceduring of non-procedure value")
	}
	return e.applyProcedure(n, proc, nil)
}

// execUniting wraps a value of one of a UNION's variant modes into a
// UnionValue carrying that variant as its active mode (spec.md's
// "Uniting" coercion).
func (e *Evaluator) execUniting(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	activeMode := n.Operand.Mode
	ref, err := e.Heap.Allocate(n.Mode, 0, &rows.UnionValue{ActiveMode: activeMode, Payload: operand})
	if err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(ref), nil
}

// execWidening is the numeric broadening coercion. It converts an INT
// operand to REAL when n.Mode is REAL; any other operand/mode pair
// (REAL->LONG REAL included) is returned unchanged.
// PropWideningIntToReal specializes the INT->REAL case.
func (e *Evaluator) execWidening(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	if n.Mode == nil {
		return operand, nil
	}
	switch v := operand.V.(type) {
	case int64:
		if n.Mode.Tag == ast.ModeReal {
			return ast.Of(float64(v)), nil
		}
	}
	return operand, nil
}

// execRowing is the A -> []A coercion (spec.md §4.4: "Rowing"): wraps
// a scalar (or a row, for ROW ROW) into a fresh 1-element descriptor.
func (e *Evaluator) execRowing(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	elemMode := n.Operand.Mode
	ref, err := rows.Rowing(e.Heap, elemMode, operand, e.frameID())
	if err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(ref), nil
}

// execVoiding evaluates its operand purely for effect, discarding the
// result (spec.md's "Voiding" coercion). PropVoidingLocAssignation
// specializes the common case of voiding an assignation directly.
func (e *Evaluator) execVoiding(n *ast.Node) (ast.Cell, error) {
	_, err := e.Execute(n.Operand)
	return ast.UninitCell(), err
}

// execProceduring wraps a non-PROC unit as a thunk the way a format-
// text argument position requires (spec.md's "Proceduring" coercion):
// produces a zero-parameter Procedure whose call re-evaluates operand.
func (e *Evaluator) execProceduring(n *ast.Node) (ast.Cell, error) {
	environ := ast.Ref{Segment: ast.SegFrame, FrameID: uint64(e.curFrame)}
	thunk := &ast.Procedure{
		Builtin: func(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
			cell, err := e.Execute(n.Operand)
			if err != nil {
				return nil, err
			}
			return cell.V, nil
		},
		Environ: environ,
		Mode:    n.Mode,
	}
	return ast.Of(thunk), nil
}
