package eval

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/diagnostics"
	"a68core/internal/runtime"
)

// execAssignation evaluates the destination name to a Ref, evaluates
// the source unit, enforces the dynamic scope check (spec.md §4.2:
// the runtime backstop behind the static checker), and stores the
// value (spec.md §4.3's "Assignation" category). The assignation's own
// value is the destination reference, per the source language's value
// semantics.
func (e *Evaluator) execAssignation(n *ast.Node) (ast.Cell, error) {
	destCell, err := e.Execute(n.Left)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := destCell.V.(ast.Ref)
	if !ok {
		return ast.UninitCell(), fmt.Errorf("assignation into non-reference destination")
	}
	srcCell, err := e.Execute(n.Right)
	if err != nil {
		return ast.UninitCell(), err
	}

	destLevel := e.CurrentLevel()
	if n.Left.Tag != nil {
		destLevel = n.Left.Tag.Level
	}
	if !runtime.CheckDynamicScope(e.Frames, destLevel, refIfAny(srcCell)) {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindScopeViolation,
			"assigned value does not outlive its destination's frame")
		return ast.UninitCell(), fmt.Errorf("scope violation: value does not outlive destination frame")
	}

	if err := e.storeRef(n, ref, n.Mode, srcCell); err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(ref), nil
}

func refIfAny(c ast.Cell) ast.Ref {
	if r, ok := c.V.(ast.Ref); ok {
		return r
	}
	return ast.NilRef
}
