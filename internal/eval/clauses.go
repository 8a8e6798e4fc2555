package eval

import (
	"a68core/internal/ast"
	"a68core/internal/diagnostics"
	"a68core/internal/rows"
)

// execSerial runs a serial clause's units in order, returning the last
// unit's value (spec.md §4.3: "a serial clause's value is its final
// unit's value; all others are voided").
func (e *Evaluator) execSerial(n *ast.Node) (ast.Cell, error) {
	children := n.ChildList()
	var result ast.Cell
	for i, c := range children {
		cell, err := e.Execute(c)
		if err != nil {
			return ast.UninitCell(), err
		}
		if i == len(children)-1 {
			result = cell
		}
	}
	return result, nil
}

// openLexicalFrame opens a new frame for a node that introduces a
// lexical level (closed clause, loop body, routine call), wiring its
// static link via FrameStack.StaticLinkFor.
func (e *Evaluator) openLexicalFrame(n *ast.Node) (int, error) {
	st := n.SymbolTable
	level := 0
	localCount := 0
	if st != nil {
		level = st.Level
		localCount = st.ApIncrement
	}
	staticLink := e.Frames.StaticLinkFor(e.curFrame, level)
	idx, err := e.Frames.Open(level, localCount, staticLink, e.curFrame, n)
	if err != nil {
		e.Sink.ReportFatal(loc(n), diagnostics.KindStackExhausted, err.Error(), err)
		return -1, err
	}
	return idx, nil
}

// execClosedClause opens a frame (if the clause opens a new lexical level),
// evaluates its serial clause, and closes the frame, per spec.md §4.3.
func (e *Evaluator) execClosedClause(n *ast.Node) (ast.Cell, error) {
	if !n.NewLexicalLevel {
		return e.execSerial(n)
	}
	prev := e.curFrame
	idx, err := e.openLexicalFrame(n)
	if err != nil {
		return ast.UninitCell(), err
	}
	e.curFrame = idx
	cell, err := e.execSerial(n)
	e.Frames.Close()
	e.curFrame = prev
	return cell, err
}

// execCollateralClause evaluates every unit (in the stand-environ
// model, concurrently-eligible but here sequentially, since this core
// has no concurrency collaborator wired in per spec.md Non-goals) and
// assembles the results into a ROW via rows.Concatenate when the
// clause's mode calls for a display; a STRUCT display instead allocates
// a StructValue directly.
func (e *Evaluator) execCollateralClause(n *ast.Node) (ast.Cell, error) {
	children := n.ChildList()
	cells := make([]ast.Cell, len(children))
	for i, c := range children {
		cell, err := e.Execute(c)
		if err != nil {
			return ast.UninitCell(), err
		}
		cells[i] = cell
	}
	if n.Mode != nil && n.Mode.Tag == ast.ModeStruct {
		ref, err := e.Heap.Allocate(n.Mode, len(cells), &rows.StructValue{Fields: cells})
		if err != nil {
			return ast.UninitCell(), err
		}
		return ast.Of(ref), nil
	}
	return e.collateralRow(n, cells)
}

// collateralRow builds a fresh [1:n] descriptor directly over cells,
// matching spec.md's collateral-display rule for a flat (non-nested)
// collateral of scalars.
func (e *Evaluator) collateralRow(n *ast.Node, cells []ast.Cell) (ast.Cell, error) {
	elemMode := n.Mode
	if elemMode != nil {
		elemMode = elemMode.ElementMode()
	}
	if elemMode == nil {
		return ast.UninitCell(), nil
	}
	ref, d, err := rows.New(e.Heap, elemMode, false, []rows.Bound{{Lower: 1, Upper: len(cells)}}, e.frameID())
	if err != nil {
		return ast.UninitCell(), err
	}
	backing, err := rows.Backing(e.Heap, d)
	if err != nil {
		return ast.UninitCell(), err
	}
	copy(backing, cells)
	return ast.Of(ref), nil
}

// execConditionalClause evaluates the boolean guard, then the chosen
// branch's serial clause (spec.md §4.3). A missing ELSE with a false
// guard yields an uninitialised cell of the clause's mode.
func (e *Evaluator) execConditionalClause(n *ast.Node) (ast.Cell, error) {
	guard, err := e.Execute(n.Left)
	if err != nil {
		return ast.UninitCell(), err
	}
	b, _ := guard.V.(bool)
	if b {
		return e.Execute(n.Right)
	}
	if n.Object != nil {
		return e.Execute(n.Object)
	}
	return ast.UninitCell(), nil
}

// execIntegerCaseClause evaluates the integer selector then dispatches
// to the matching 1-based clause; selector values outside the declared
// range fall through to the else-part, or an uninitialised cell if
// none (spec.md boundary behavior: "integer-case fallthrough pushing
// an uninitialized value").
func (e *Evaluator) execIntegerCaseClause(n *ast.Node) (ast.Cell, error) {
	sel, err := e.Execute(n.Left)
	if err != nil {
		return ast.UninitCell(), err
	}
	iv, _ := sel.V.(int64)
	clauses := n.Children
	if iv >= 1 && int(iv) <= len(clauses) {
		return e.Execute(clauses[iv-1])
	}
	if n.Object != nil {
		return e.Execute(n.Object)
	}
	return ast.UninitCell(), nil
}

// execUnitedCaseClause evaluates the UNION-valued selector, matches
// its active mode against each case's declared mode list, and runs the
// first matching clause (binding the case's identifier, if any, to the
// narrowed value for that clause's extent).
func (e *Evaluator) execUnitedCaseClause(n *ast.Node) (ast.Cell, error) {
	sel, err := e.Execute(n.Left)
	if err != nil {
		return ast.UninitCell(), err
	}
	ref, ok := sel.V.(ast.Ref)
	if !ok {
		return ast.UninitCell(), nil
	}
	b, err := e.Heap.Deref(ref)
	if err != nil {
		return ast.UninitCell(), err
	}
	uv, ok := b.Payload.(*rows.UnionValue)
	if !ok {
		return ast.UninitCell(), nil
	}
	for i, c := range n.Children {
		if c.Mode != nil && c.Mode == uv.ActiveMode {
			if i < len(n.Index) && n.Index[i] != nil && n.Index[i].Tag != nil {
				*e.Frames.At(e.curFrame).Local(n.Index[i].Tag.Offset) = uv.Payload
			}
			return e.Execute(c)
		}
	}
	if n.Object != nil {
		return e.Execute(n.Object)
	}
	return ast.UninitCell(), nil
}

// execLoopClause runs the FROM/BY/TO/WHILE/DO loop, per spec.md §4.3:
// each defaults as documented (FROM 1, BY 1, TO maxint absent an upper
// bound), the counter update is overflow-checked, and the body runs in
// a fresh frame reopened (its eval-stack snapshot restored) every
// iteration.
func (e *Evaluator) execLoopClause(n *ast.Node) (ast.Cell, error) {
	from := int64(1)
	by := int64(1)
	hasTo := false
	var to int64
	hasWhile := n.Object != nil

	if n.Left != nil {
		cell, err := e.Execute(n.Left)
		if err != nil {
			return ast.UninitCell(), err
		}
		if iv, ok := cell.V.(int64); ok {
			from = iv
		}
	}
	if n.Right != nil {
		cell, err := e.Execute(n.Right)
		if err != nil {
			return ast.UninitCell(), err
		}
		if iv, ok := cell.V.(int64); ok {
			by = iv
		}
	}
	if len(n.Index) > 0 && n.Index[0] != nil {
		cell, err := e.Execute(n.Index[0])
		if err != nil {
			return ast.UninitCell(), err
		}
		if iv, ok := cell.V.(int64); ok {
			to = iv
			hasTo = true
		}
	}

	body := n.Operand
	counterTag := n.Tag

	snapshot := e.Eval.Snapshot()
	for counter := from; !hasTo || (by >= 0 && counter <= to) || (by < 0 && counter >= to); {
		if body != nil {
			prev := e.curFrame
			idx, err := e.openLexicalFrame(n)
			if err != nil {
				return ast.UninitCell(), err
			}
			e.curFrame = idx
			if counterTag != nil {
				*e.Frames.At(idx).Local(counterTag.Offset) = ast.Of(counter)
			}

			if hasWhile {
				guard, err := e.Execute(n.Object)
				if err != nil {
					e.Frames.Close()
					e.curFrame = prev
					return ast.UninitCell(), err
				}
				b, _ := guard.V.(bool)
				if !b {
					e.Frames.Close()
					e.curFrame = prev
					break
				}
			}

			if _, err := e.Execute(body); err != nil {
				e.Frames.Close()
				e.curFrame = prev
				return ast.UninitCell(), err
			}
			e.Frames.Close()
			e.curFrame = prev
		}
		e.Eval.Restore(snapshot)

		if by == 0 {
			// spec.md's documented semantics: BY 0 does not advance the
			// counter and therefore loops forever absent a WHILE/jump
			// exit — an accepted Open Question resolution (see
			// DESIGN.md), not treated as an error here.
			continue
		}
		next := counter + by
		if (by > 0 && next < counter) || (by < 0 && next > counter) {
			e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindAssertionFailed,
				"loop counter overflow")
			break
		}
		counter = next
	}
	return ast.UninitCell(), nil
}

// execJump searches for a matching catcher via dynamic link (since a
// jump unwinds the call stack) and truncates both stacks to the
// catcher's recorded depth.
func (e *Evaluator) execJump(n *ast.Node) (ast.Cell, error) {
	catcher, frameIdx, ok := e.Frames.FindCatcher(e.curFrame, n.Field)
	if !ok {
		return ast.UninitCell(), &errJumpTargetNotFound{Label: n.Field}
	}
	e.Frames.TruncateTo(catcher.FrameIndex + 1)
	e.Eval.Restore(catcher.EvalDepth)
	e.curFrame = frameIdx
	return ast.UninitCell(), nil
}

type errJumpTargetNotFound struct{ Label string }

func (e *errJumpTargetNotFound) Error() string { return "jump to undefined label " + e.Label }
