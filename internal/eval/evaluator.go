// Package eval implements spec.md §4.3: the tree-walk evaluator over
// ast.Node, with the propagator dispatch-cache specialization spec.md
// §9 redesigns for a systems language. Grounded on the teacher's
// internal/vm/vm.go EnhancedVM (stack/frame fields, the big dispatch
// switch in Run, TryFrame-style catcher handling) generalized from a
// bytecode dispatch loop to a tree-walk over ast.Node.
package eval

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/diagnostics"
	"a68core/internal/heap"
	"a68core/internal/rows"
	"a68core/internal/runtime"
)

// Evaluator is the tree-walker's mutable state: the twin stacks, heap,
// diagnostic sink, and the propagator dispatch cache keyed by Node.ID.
type Evaluator struct {
	Eval   *runtime.EvalStack
	Frames *runtime.FrameStack
	Heap   *heap.Heap
	Sink   *diagnostics.Sink

	// dispatch is the parallel array (spec.md §9's "dispatch cache")
	// mapping a node's stable ID to its currently-installed propagator.
	// A map, not a slice, since node IDs are assigned once by the
	// (out-of-scope) parser and need not be contiguous here.
	dispatch map[int]ast.PropagatorID

	curFrame int // index into Frames of the currently executing activation record
}

// New builds an evaluator with the given stack/heap capacities.
func New(evalCapacity, frameCapacity, heapBudget int) *Evaluator {
	return &Evaluator{
		Eval:     runtime.NewEvalStack(evalCapacity),
		Frames:   runtime.NewFrameStack(frameCapacity),
		Heap:     heap.New(heapBudget),
		Sink:     diagnostics.NewSink(50),
		dispatch: make(map[int]ast.PropagatorID),
	}
}

// --- ast.Evaluator interface, for stand-environ BuiltinFunc callbacks ---

func (e *Evaluator) Push(v ast.Value)        { _ = e.Eval.PushValue(v) }
func (e *Evaluator) Pop() ast.Value          { return e.Eval.Pop().V }
func (e *Evaluator) Peek(offset int) ast.Value { return e.Eval.Peek(offset).V }
func (e *Evaluator) CurrentLevel() int {
	if f := e.Frames.Current(); f != nil {
		return f.Level
	}
	return 0
}

// loc returns n's source location as a diagnostics.Location.
func loc(n *ast.Node) diagnostics.Location {
	if n == nil {
		return diagnostics.Location{}
	}
	return diagnostics.Location{File: n.Location.File, Line: n.Location.Line, Column: n.Location.Col}
}

// Execute is spec.md §4.3's execute(node) entry point: the main
// recursive dispatch, consulting n's installed propagator before
// falling back to the general Kind switch.
func (e *Evaluator) Execute(n *ast.Node) (ast.Cell, error) {
	if n == nil {
		return ast.UninitCell(), nil
	}

	if p, ok := e.dispatch[n.ID]; ok && p != ast.PropGeneric {
		if cell, handled, err := e.executeSpecialized(n, p); handled {
			return cell, err
		}
	}

	cell, err := e.executeGeneric(n)
	if err == nil {
		e.specialize(n)
	}
	return cell, err
}

// specialize installs a faster propagator for n once its shape is
// known, per spec.md §4.3's "after first execution, install a more
// specific strategy". Conservative: only the cases spec.md names
// explicitly are specialized; everything else keeps PropGeneric.
func (e *Evaluator) specialize(n *ast.Node) {
	if _, already := e.dispatch[n.ID]; already {
		return
	}
	switch n.Kind {
	case ast.KindIntDenotation, ast.KindRealDenotation, ast.KindBoolDenotation,
		ast.KindCharDenotation, ast.KindStringDenotation:
		e.dispatch[n.ID] = ast.PropConstant
	case ast.KindDereferencing:
		if n.Operand != nil && n.Operand.Mode != nil && !n.Operand.Mode.HasRows && !n.Operand.Mode.HasRef {
			e.dispatch[n.ID] = ast.PropDereferenceQuick
		}
	case ast.KindIdentifier:
		if n.Tag != nil && n.Tag.Builtin == nil && n.Tag.Class == ast.AllocLocal && n.Tag.Level == e.CurrentLevel() {
			e.dispatch[n.ID] = ast.PropLocalIdentifier
		}
	case ast.KindCall:
		if n.Tag != nil && n.Tag.Builtin != nil {
			e.dispatch[n.ID] = ast.PropCallStandEnvQuick
		}
	case ast.KindDyadicFormula:
		if n.Tag != nil && n.Tag.Builtin != nil {
			e.dispatch[n.ID] = ast.PropFormulaStandEnvQuick
		}
	case ast.KindSlice:
		if n.Object != nil && n.Object.Mode != nil && n.Object.Mode.Dimensions == 1 {
			e.dispatch[n.ID] = ast.PropSliceNameQuick
		}
	case ast.KindWidening:
		if n.Operand != nil && n.Operand.Mode != nil && n.Operand.Mode.Tag == ast.ModeInt &&
			n.Mode != nil && n.Mode.Tag == ast.ModeReal {
			e.dispatch[n.ID] = ast.PropWideningIntToReal
		}
	case ast.KindVoiding:
		if n.Operand != nil && n.Operand.Kind == ast.KindAssignation {
			e.dispatch[n.ID] = ast.PropVoidingLocAssignation
		}
	}
}

// executeSpecialized runs a fast path, reporting handled=false to fall
// back to the general dispatch when the cached assumption no longer
// holds (e.g. the frame level changed since the quick path was cached).
func (e *Evaluator) executeSpecialized(n *ast.Node, p ast.PropagatorID) (ast.Cell, bool, error) {
	switch p {
	case ast.PropConstant:
		if n.ConstantCache != nil {
			return *n.ConstantCache, true, nil
		}
		return ast.UninitCell(), false, nil

	case ast.PropDereferenceQuick:
		cell, err := e.derefQuick(n)
		return cell, true, err

	case ast.PropLocalIdentifier:
		if n.Tag.Level != e.CurrentLevel() {
			return ast.UninitCell(), false, nil
		}
		f := e.Frames.Current()
		return *f.Local(n.Tag.Offset), true, nil

	case ast.PropCallStandEnvQuick:
		cell, err := e.callBuiltinQuick(n)
		return cell, true, err

	case ast.PropFormulaStandEnvQuick:
		cell, err := e.formulaBuiltinQuick(n)
		return cell, true, err

	case ast.PropSliceNameQuick:
		cell, err := e.sliceNameQuick(n)
		return cell, true, err

	case ast.PropWideningIntToReal:
		cell, err := e.Execute(n.Operand)
		if err != nil {
			return ast.UninitCell(), true, err
		}
		iv, _ := cell.V.(int64)
		return ast.Of(float64(iv)), true, nil

	case ast.PropVoidingLocAssignation:
		_, err := e.execAssignation(n.Operand)
		return ast.UninitCell(), true, err
	}
	return ast.UninitCell(), false, nil
}

// executeGeneric is the full Kind switch spec.md §4.3 describes,
// covering every dispatch category: primary/secondary/tertiary/unit
// leaves, formulas, call, slice, selection, declarations, routine/
// format texts, generators, clauses, coercions, jumps.
func (e *Evaluator) executeGeneric(n *ast.Node) (ast.Cell, error) {
	switch n.Kind {
	case ast.KindProgram, ast.KindSerialClause:
		return e.execSerial(n)

	case ast.KindIntDenotation, ast.KindRealDenotation, ast.KindBoolDenotation,
		ast.KindCharDenotation, ast.KindStringDenotation:
		return e.execDenotation(n)

	case ast.KindNihil:
		return ast.Of(ast.NilRef), nil

	case ast.KindSkip:
		return ast.UninitCell(), nil

	case ast.KindIdentifier:
		return e.execIdentifier(n)

	case ast.KindMonadicFormula:
		return e.execMonadicFormula(n)
	case ast.KindDyadicFormula:
		return e.execDyadicFormula(n)

	case ast.KindCall:
		return e.execCall(n)
	case ast.KindSlice:
		return e.execSlice(n)
	case ast.KindSelection:
		return e.execSelection(n)

	case ast.KindIdentityDeclaration:
		return e.execIdentityDeclaration(n)
	case ast.KindVariableDeclaration:
		return e.execVariableDeclaration(n)
	case ast.KindOperatorDeclaration:
		return e.execOperatorDeclaration(n)
	case ast.KindProcedureDeclaration:
		return e.execProcedureDeclaration(n)

	case ast.KindRoutineText:
		return e.execRoutineText(n)
	case ast.KindFormatText:
		return e.execFormatText(n)

	case ast.KindLocGenerator:
		return e.execLocGenerator(n)
	case ast.KindHeapGenerator:
		return e.execHeapGenerator(n)

	case ast.KindAssignation:
		return e.execAssignation(n)
	case ast.KindClosedClause:
		return e.execClosedClause(n)
	case ast.KindCollateralClause:
		return e.execCollateralClause(n)
	case ast.KindConditionalClause:
		return e.execConditionalClause(n)
	case ast.KindIntegerCaseClause:
		return e.execIntegerCaseClause(n)
	case ast.KindUnitedCaseClause:
		return e.execUnitedCaseClause(n)
	case ast.KindLoopClause:
		return e.execLoopClause(n)

	case ast.KindDereferencing:
		return e.execDereferencing(n)
	case ast.KindDeproceduring:
		return e.execDeproceduring(n)
	case ast.KindUniting:
		return e.execUniting(n)
	case ast.KindWidening:
		return e.execWidening(n)
	case ast.KindRowing:
		return e.execRowing(n)
	case ast.KindVoiding:
		return e.execVoiding(n)
	case ast.KindProceduring:
		return e.execProceduring(n)

	case ast.KindJump:
		return e.execJump(n)
	case ast.KindLabel:
		return e.Execute(n.Operand)
	}
	return ast.UninitCell(), fmt.Errorf("unhandled node kind %v", n.Kind)
}

// execDenotation pushes a literal's pre-evaluated cell, caching it on
// first visit so PropConstant can fire on the next.
func (e *Evaluator) execDenotation(n *ast.Node) (ast.Cell, error) {
	if n.ConstantCache != nil {
		return *n.ConstantCache, nil
	}
	var v ast.Value
	switch n.Kind {
	case ast.KindIntDenotation, ast.KindRealDenotation, ast.KindBoolDenotation, ast.KindCharDenotation:
		v = n.Literal
	case ast.KindStringDenotation:
		ref, err := rows.FromGoString(e.Heap, n.Field, e.frameID())
		if err != nil {
			return ast.UninitCell(), err
		}
		v = ref
	}
	cell := ast.Cell{V: v, Status: ast.Initialised | ast.Constant}
	n.ConstantCache = &cell
	return cell, nil
}

func (e *Evaluator) frameID() uint64 {
	if f := e.Frames.Current(); f != nil {
		return f.ID
	}
	return 0
}

// execIdentifier resolves n.Tag through static-link descent to its
// owning frame and reads the Cell there, reporting UNINITIALISED_VALUE
// per spec.md §7 when the slot has never been assigned.
func (e *Evaluator) execIdentifier(n *ast.Node) (ast.Cell, error) {
	if n.Tag == nil {
		return ast.UninitCell(), fmt.Errorf("identifier %q has no bound tag", n.Field)
	}
	if n.Tag.Builtin != nil {
		return ast.Of(&ast.Procedure{Builtin: n.Tag.Builtin, Name: n.Tag.Name, Mode: n.Tag.Mode}), nil
	}
	frameIdx := e.Frames.Descend(e.curFrame, n.Tag.Level)
	if frameIdx < 0 {
		return ast.UninitCell(), fmt.Errorf("no enclosing frame at level %d for %q", n.Tag.Level, n.Tag.Name)
	}
	cell := *e.Frames.At(frameIdx).Local(n.Tag.Offset)
	if !cell.IsInitialised() {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindUninitialized,
			"value required but undefined", diagnostics.NodeArg(n.Tag.Name))
	}
	return cell, nil
}

func (e *Evaluator) derefQuick(n *ast.Node) (ast.Cell, error) {
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

func (e *Evaluator) derefRef(n *ast.Node, ref ast.Ref) (ast.Cell, error) {
	if ref.IsNil() {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindNilAccess, "accessing NIL")
		return ast.UninitCell(), fmt.Errorf("accessing NIL")
	}
	switch ref.Segment {
	case ast.SegHeap:
		b, err := e.Heap.Deref(ref)
		if err != nil {
			e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindNilAccess, err.Error())
			return ast.UninitCell(), err
		}
		if sv, ok := b.Payload.(*rows.StructValue); ok && ref.Offset < len(sv.Fields) {
			return sv.Fields[ref.Offset], nil
		}
		cells, ok := b.Payload.([]ast.Cell)
		if ok && ref.Offset < len(cells) {
			return cells[ref.Offset], nil
		}
		if cell, ok := b.Payload.(ast.Cell); ok {
			return cell, nil
		}
		return ast.UninitCell(), fmt.Errorf("dereference of non-scalar heap block")
	case ast.SegFrame:
		frameIdx := int(ref.FrameID)
		if frameIdx < 0 || frameIdx >= e.Frames.Depth() {
			return ast.UninitCell(), fmt.Errorf("dereference through stale frame reference")
		}
		return *e.Frames.At(frameIdx).Local(ref.Offset), nil
	default:
		return ast.UninitCell(), fmt.Errorf("dereference of unsupported segment")
	}
}

// storeRef writes cell into the location ref names, mode-directed the
// way DeepAssign requires for structured modes (spec.md §4.4).
func (e *Evaluator) storeRef(n *ast.Node, ref ast.Ref, mode *ast.Mode, cell ast.Cell) error {
	if ref.IsNil() {
		e.Sink.Report(diagnostics.RuntimeError, loc(n), diagnostics.KindNilAccess, "assigning through NIL")
		return fmt.Errorf("assigning through NIL")
	}
	if mode != nil && (mode.Tag == ast.ModeRow || mode.Tag == ast.ModeFlexRow || mode.Tag == ast.ModeString) {
		destCell, err := e.derefRef(n, ref)
		if err == nil {
			if destRef, ok := destCell.V.(ast.Ref); ok {
				return rows.DeepAssign(e.Heap, mode, destRef, cell, e.frameID())
			}
		}
	}
	switch ref.Segment {
	case ast.SegHeap:
		b, err := e.Heap.Deref(ref)
		if err != nil {
			return err
		}
		if sv, ok := b.Payload.(*rows.StructValue); ok && ref.Offset < len(sv.Fields) {
			sv.Fields[ref.Offset] = cell
			return nil
		}
		if cells, ok := b.Payload.([]ast.Cell); ok && ref.Offset < len(cells) {
			cells[ref.Offset] = cell
			return nil
		}
		b.Payload = cell
		return nil
	case ast.SegFrame:
		frameIdx := int(ref.FrameID)
		if frameIdx < 0 || frameIdx >= e.Frames.Depth() {
			return fmt.Errorf("assignment through stale frame reference")
		}
		*e.Frames.At(frameIdx).Local(ref.Offset) = cell
		return nil
	}
	return fmt.Errorf("assignment to unsupported segment")
}
