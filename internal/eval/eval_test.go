package eval

import (
	"math"
	"testing"

	"a68core/internal/ast"
	"a68core/internal/diagnostics"
	"a68core/internal/mp"
	"a68core/internal/rows"
	"a68core/internal/runtime"
)

// Every ast.Node literal below carries an explicit, test-unique ID.
// Evaluator.dispatch is keyed by Node.ID alone, so two distinct nodes
// sharing the zero-value ID would silently alias each other's
// specialization cache entries within a single Evaluator.

func TestDyadicFormulaDispatchesThroughPreludeOperatorAndSpecializes(t *testing.T) {
	prelude := NewPrelude()
	intMode := &ast.Mode{Tag: ast.ModeInt}

	three := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(3)}
	four := &ast.Node{ID: 2, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(4)}
	plus := &ast.Node{ID: 3, Kind: ast.KindDyadicFormula, Mode: intMode, Left: three, Right: four,
		Tag: prelude.Operator("+", intMode)}

	ev := New(64, 16, 1<<20)
	cell, err := ev.Execute(plus)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got, ok := cell.V.(int64); !ok || got != 7 {
		t.Errorf("3+4 = %v, want int64(7)", cell.V)
	}
	if p := ev.dispatch[plus.ID]; p != ast.PropFormulaStandEnvQuick {
		t.Errorf("dispatch cache for a formula with a bound builtin = %v, want PropFormulaStandEnvQuick", p)
	}

	// the cached propagator must also produce the right answer on a
	// second execution, exercising the fast path in executeSpecialized.
	cell2, err := ev.Execute(plus)
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	if got, ok := cell2.V.(int64); !ok || got != 7 {
		t.Errorf("second 3+4 = %v, want int64(7)", cell2.V)
	}
}

func TestConstantDenotationCachesAndSpecializes(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	lit := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(42)}

	ev := New(64, 16, 1<<20)
	if _, err := ev.Execute(lit); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if lit.ConstantCache == nil {
		t.Fatal("denotation must cache its evaluated cell on first execution")
	}
	if p := ev.dispatch[lit.ID]; p != ast.PropConstant {
		t.Errorf("dispatch cache for a denotation = %v, want PropConstant", p)
	}

	cell, err := ev.Execute(lit)
	if err != nil {
		t.Fatalf("cached Execute failed: %v", err)
	}
	if got, ok := cell.V.(int64); !ok || got != 42 {
		t.Errorf("cached constant = %v, want int64(42)", cell.V)
	}
}

// buildNestedClosedClauses builds:
//
//	BEGIN INT x = 42; BEGIN x END END
//
// so reading x from the inner clause must descend one static link.
func buildNestedClosedClauses() *ast.Node {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	outerRoot := ast.NewSymbolTable(nil)
	xTag := &ast.Tag{Name: "x", Mode: intMode}
	outerRoot.Declare(xTag)

	xLit := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(42)}
	decl := &ast.Node{ID: 2, Kind: ast.KindIdentityDeclaration, Mode: intMode, Tag: xTag, Operand: xLit}

	innerST := ast.NewSymbolTable(outerRoot)
	ident := &ast.Node{ID: 3, Kind: ast.KindIdentifier, Mode: intMode, Tag: xTag, Field: "x"}
	innerSerial := &ast.Node{ID: 4, Kind: ast.KindSerialClause, Mode: intMode, SymbolTable: innerST}
	innerSerial.Link(ident)
	innerClosed := &ast.Node{ID: 5, Kind: ast.KindClosedClause, Mode: intMode, SymbolTable: innerST, NewLexicalLevel: true}
	innerClosed.Link(innerSerial)

	outerSerial := &ast.Node{ID: 6, Kind: ast.KindSerialClause, Mode: intMode, SymbolTable: outerRoot}
	outerSerial.Link(decl)
	outerSerial.Link(innerClosed)
	outerClosed := &ast.Node{ID: 7, Kind: ast.KindClosedClause, Mode: intMode, SymbolTable: outerRoot, NewLexicalLevel: true}
	outerClosed.Link(outerSerial)

	program := &ast.Node{ID: 8, Kind: ast.KindProgram, Mode: intMode, SymbolTable: outerRoot}
	program.Link(outerClosed)
	return program
}

func TestStaticLinkDescentReadsOuterIdentifier(t *testing.T) {
	ev := New(64, 16, 1<<20)
	cell, err := ev.Execute(buildNestedClosedClauses())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got, ok := cell.V.(int64); !ok || got != 42 {
		t.Errorf("inner clause reading outer x = %v, want int64(42)", cell.V)
	}
}

// TestAssignationEnforcesDynamicScopeCheck exercises
// runtime.CheckDynamicScope through execAssignation directly: storing
// a name that denotes a deeper (younger) frame into a destination
// declared at a shallower level must fail, while storing a name from
// the same frame must succeed.
func TestAssignationEnforcesDynamicScopeCheck(t *testing.T) {
	t.Run("rejects a name from a deeper frame", func(t *testing.T) {
		ev := New(64, 16, 1<<20)
		destTag := &ast.Tag{Name: "p", Level: 0, Mode: &ast.Mode{Tag: ast.ModeRef}}
		outerIdx, err := ev.Frames.Open(0, 1, -1, -1, nil)
		if err != nil {
			t.Fatalf("Open outer frame failed: %v", err)
		}
		*ev.Frames.At(outerIdx).Local(0) = ast.Of(ast.Ref{Segment: ast.SegFrame, FrameID: uint64(outerIdx)})

		srcTag := &ast.Tag{Name: "y", Level: 1}
		innerIdx, err := ev.Frames.Open(1, 1, outerIdx, outerIdx, nil)
		if err != nil {
			t.Fatalf("Open inner frame failed: %v", err)
		}
		*ev.Frames.At(innerIdx).Local(0) = ast.Of(ast.Ref{Segment: ast.SegFrame, FrameID: uint64(innerIdx)})
		ev.curFrame = innerIdx

		left := &ast.Node{ID: 1, Kind: ast.KindIdentifier, Tag: destTag}
		right := &ast.Node{ID: 2, Kind: ast.KindIdentifier, Tag: srcTag}
		assign := &ast.Node{ID: 3, Kind: ast.KindAssignation, Left: left, Right: right}

		if _, err := ev.execAssignation(assign); err == nil {
			t.Fatal("expected a scope-violation error assigning a deeper-frame name into an outer destination")
		}
		foundViolation := false
		for _, d := range ev.Sink.Diagnostics() {
			if d.Kind == diagnostics.KindScopeViolation {
				foundViolation = true
			}
		}
		if !foundViolation {
			t.Error("expected a SCOPE_VIOLATION diagnostic to be reported")
		}
	})

	t.Run("allows a name from the same frame", func(t *testing.T) {
		ev := New(64, 16, 1<<20)
		destTag := &ast.Tag{Name: "p", Level: 0, Mode: &ast.Mode{Tag: ast.ModeRef}}
		outerIdx, err := ev.Frames.Open(0, 2, -1, -1, nil)
		if err != nil {
			t.Fatalf("Open outer frame failed: %v", err)
		}
		*ev.Frames.At(outerIdx).Local(0) = ast.Of(ast.Ref{Segment: ast.SegFrame, FrameID: uint64(outerIdx), Offset: 0})
		srcTag := &ast.Tag{Name: "q", Level: 0, Offset: 1}
		*ev.Frames.At(outerIdx).Local(1) = ast.Of(ast.Ref{Segment: ast.SegFrame, FrameID: uint64(outerIdx), Offset: 1})
		ev.curFrame = outerIdx

		left := &ast.Node{ID: 1, Kind: ast.KindIdentifier, Tag: destTag}
		right := &ast.Node{ID: 2, Kind: ast.KindIdentifier, Tag: srcTag}
		assign := &ast.Node{ID: 3, Kind: ast.KindAssignation, Left: left, Right: right}

		if _, err := ev.execAssignation(assign); err != nil {
			t.Fatalf("same-level assignment must not be rejected: %v", err)
		}
		for _, d := range ev.Sink.Diagnostics() {
			if d.Kind == diagnostics.KindScopeViolation {
				t.Errorf("unexpected SCOPE_VIOLATION diagnostic: %v", d)
			}
		}
	})
}

func TestLoopClauseDefaultsFromByRunsFixedIterations(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	loopST := ast.NewSymbolTable(nil)
	counterTag := &ast.Tag{Name: "i"}
	loopST.Declare(counterTag)

	from := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(1)}
	to := &ast.Node{ID: 2, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(5)}
	body := &ast.Node{ID: 3, Kind: ast.KindHeapGenerator, Mode: &ast.Mode{Tag: ast.ModeRef, SubMode: intMode}}

	loop := &ast.Node{ID: 4, Kind: ast.KindLoopClause, SymbolTable: loopST, Tag: counterTag,
		Left: from, Index: []*ast.Node{to}, Operand: body}

	ev := New(64, 16, 1<<20)
	if _, err := ev.Execute(loop); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := ev.Heap.Stats().LiveBlocks; got != 5 {
		t.Errorf("FROM 1 TO 5 (BY default 1) ran %d iterations, want 5", got)
	}
}

// TestLoopClauseByZeroLoopsUntilWhileGuardFails exercises spec.md's
// documented BY 0 semantics: the counter never advances, so the loop
// would run forever absent a WHILE guard (or a jump) to break out.
func TestLoopClauseByZeroLoopsUntilWhileGuardFails(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	loopST := ast.NewSymbolTable(nil)
	counterTag := &ast.Tag{Name: "i"}
	loopST.Declare(counterTag)

	calls := 0
	guardTag := &ast.Tag{Name: "guard", Builtin: func(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
		calls++
		return calls <= 3, nil
	}}
	guardIdent := &ast.Node{ID: 1, Kind: ast.KindIdentifier, Tag: guardTag}
	guardCall := &ast.Node{ID: 2, Kind: ast.KindCall, Object: guardIdent}

	from := &ast.Node{ID: 3, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(1)}
	by := &ast.Node{ID: 4, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(0)}
	body := &ast.Node{ID: 5, Kind: ast.KindHeapGenerator, Mode: &ast.Mode{Tag: ast.ModeRef, SubMode: intMode}}

	loop := &ast.Node{ID: 6, Kind: ast.KindLoopClause, SymbolTable: loopST, Tag: counterTag,
		Left: from, Right: by, Object: guardCall, Operand: body}

	ev := New(64, 16, 1<<20)
	if _, err := ev.Execute(loop); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := ev.Heap.Stats().LiveBlocks; got != 3 {
		t.Errorf("BY 0 loop bounded by a WHILE guard ran %d bodies, want 3", got)
	}
}

func TestIntegerCaseClauseFallsThroughWhenSelectorOutOfRange(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	sel := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(7)}
	clause1 := &ast.Node{ID: 2, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(100)}
	clause2 := &ast.Node{ID: 3, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(200)}
	caseNode := &ast.Node{ID: 4, Kind: ast.KindIntegerCaseClause, Left: sel, Children: []*ast.Node{clause1, clause2}}

	ev := New(64, 16, 1<<20)
	cell, err := ev.Execute(caseNode)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if cell.IsInitialised() {
		t.Errorf("a selector outside 1..len(clauses) with no else-part must yield an uninitialised cell, got %+v", cell)
	}
}

func TestCollateralClauseBuildsRowOfEvaluatedUnits(t *testing.T) {
	intMode := &ast.Mode{Tag: ast.ModeInt}
	rowMode := &ast.Mode{Tag: ast.ModeRow, SubMode: intMode, Dimensions: 1}
	u1 := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(10)}
	u2 := &ast.Node{ID: 2, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(20)}
	u3 := &ast.Node{ID: 3, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(30)}
	coll := &ast.Node{ID: 4, Kind: ast.KindCollateralClause, Mode: rowMode}
	coll.Link(u1)
	coll.Link(u2)
	coll.Link(u3)

	ev := New(64, 16, 1<<20)
	cell, err := ev.Execute(coll)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	ref, ok := cell.V.(ast.Ref)
	if !ok {
		t.Fatalf("collateral clause result = %T, want ast.Ref", cell.V)
	}
	got, err := rows.Index(ev.Heap, ref, []int{2})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if got.V.(int64) != 20 {
		t.Errorf("collateral[2] = %v, want 20", got.V)
	}
}

func TestLongRealTranscendentalThroughPreludeCallDispatch(t *testing.T) {
	prelude := NewPrelude()
	realMode := &ast.Mode{Tag: ast.ModeReal}

	arg := &ast.Node{ID: 1, Kind: ast.KindRealDenotation, Mode: realMode, Literal: float64(1.5)}
	expIdent := &ast.Node{ID: 2, Kind: ast.KindIdentifier, Tag: prelude.Procedures["long exp"]}
	expCall := &ast.Node{ID: 3, Kind: ast.KindCall, Object: expIdent, Index: []*ast.Node{arg}}
	lnIdent := &ast.Node{ID: 4, Kind: ast.KindIdentifier, Tag: prelude.Procedures["long ln"]}
	lnCall := &ast.Node{ID: 5, Kind: ast.KindCall, Object: lnIdent, Index: []*ast.Node{expCall}}

	ev := New(64, 16, 1<<20)
	cell, err := ev.Execute(lnCall)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	n, ok := cell.V.(*mp.Number)
	if !ok {
		t.Fatalf("long ln result = %T, want *mp.Number", cell.V)
	}
	if got := n.Float64(); math.Abs(got-1.5) > 1e-8 {
		t.Errorf("ln(exp(1.5)) = %v, want ~1.5", got)
	}
}

func TestJumpUnwindsStacksToCatcher(t *testing.T) {
	ev := New(64, 16, 1<<20)
	outerIdx, err := ev.Frames.Open(0, 0, -1, -1, nil)
	if err != nil {
		t.Fatalf("Open outer frame failed: %v", err)
	}
	ev.Frames.PushCatcher(outerIdx, runtime.Catcher{Label: "DONE", FrameIndex: outerIdx, EvalDepth: 0})
	ev.curFrame = outerIdx

	innerIdx, err := ev.Frames.Open(1, 0, outerIdx, outerIdx, nil)
	if err != nil {
		t.Fatalf("Open inner frame failed: %v", err)
	}
	ev.curFrame = innerIdx
	if err := ev.Eval.PushValue(int64(99)); err != nil {
		t.Fatalf("PushValue failed: %v", err)
	}

	jump := &ast.Node{ID: 1, Kind: ast.KindJump, Field: "DONE"}
	if _, err := ev.Execute(jump); err != nil {
		t.Fatalf("jump to an installed catcher must succeed: %v", err)
	}
	if ev.curFrame != outerIdx {
		t.Errorf("curFrame after jump = %d, want %d", ev.curFrame, outerIdx)
	}
	if ev.Frames.Depth() != outerIdx+1 {
		t.Errorf("frame depth after jump = %d, want %d", ev.Frames.Depth(), outerIdx+1)
	}
	if ev.Eval.Depth() != 0 {
		t.Errorf("eval stack depth after jump = %d, want 0 (restored to the catcher's snapshot)", ev.Eval.Depth())
	}
}

func TestJumpToUndefinedLabelFails(t *testing.T) {
	ev := New(64, 16, 1<<20)
	if _, err := ev.Frames.Open(0, 0, -1, -1, nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	jump := &ast.Node{ID: 1, Kind: ast.KindJump, Field: "NOWHERE"}
	if _, err := ev.Execute(jump); err == nil {
		t.Fatal("expected an error jumping to a label with no installed catcher")
	}
}
