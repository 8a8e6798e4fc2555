package ast

// PropagatorID names a specialized evaluation strategy for a Node.
// spec.md §4.3 describes a self-modifying function-pointer field; §9's
// design notes call that out as needing re-architecture in a systems
// language ("Per-node mutable propagator pointer... Model as a
// dispatch cache: the evaluator holds a parallel array indexed by node
// id, storing a PropagatorId"). This enum is that PropagatorId; the
// parallel array is internal/eval's dispatch cache, keyed by Node.ID.
type PropagatorID int

const (
	// PropGeneric dispatches on Node.Kind through the evaluator's main
	// switch. Always correct; installed on every node before any
	// specialization runs.
	PropGeneric PropagatorID = iota

	// PropDereferenceQuick skips the mode test on a REF whose
	// underlying mode is already known primitive.
	PropDereferenceQuick
	// PropLocalIdentifier reads directly from the current frame at a
	// fixed offset, skipping static-link descent.
	PropLocalIdentifier
	// PropCallStandEnvQuick invokes a builtin directly without opening
	// a frame.
	PropCallStandEnvQuick
	// PropFormulaStandEnvQuick applies a binary builtin operator to two
	// already-popped operands without a tag lookup.
	PropFormulaStandEnvQuick
	// PropSliceNameQuick handles a single-dimension slice producing a
	// name, skipping the general multi-dimension walk.
	PropSliceNameQuick
	// PropConstant pushes a pre-evaluated literal cell.
	PropConstant
	// PropWideningIntToReal converts an INT cell to REAL in place.
	PropWideningIntToReal
	// PropVoidingLocAssignation performs a LOC assignation whose result
	// is immediately discarded, skipping the push of the assigned
	// value.
	PropVoidingLocAssignation
)

// Kind is the syntactic category of a Node — spec.md's "attribute
// tag". Grounded in shape on the teacher's bytecode.OpCode enum (a
// flat byte enum covering every production the VM must dispatch on),
// generalized here to syntax-tree productions instead of opcodes.
type Kind int

const (
	KindProgram Kind = iota

	// primary/secondary/tertiary/unit-level leaves
	KindIntDenotation
	KindRealDenotation
	KindBoolDenotation
	KindCharDenotation
	KindStringDenotation
	KindNihil
	KindIdentifier
	KindSkip

	// formulas
	KindMonadicFormula
	KindDyadicFormula

	// calls, slices, selections
	KindCall
	KindSlice
	KindSelection

	// declarations
	KindIdentityDeclaration
	KindVariableDeclaration
	KindOperatorDeclaration
	KindProcedureDeclaration

	// routine/format texts
	KindRoutineText
	KindFormatText

	// generators
	KindLocGenerator
	KindHeapGenerator

	// clauses
	KindAssignation
	KindClosedClause
	KindCollateralClause
	KindConditionalClause
	KindIntegerCaseClause
	KindUnitedCaseClause
	KindLoopClause
	KindSerialClause

	// coercions
	KindDereferencing
	KindDeproceduring
	KindUniting
	KindWidening
	KindRowing
	KindVoiding
	KindProceduring

	// jumps
	KindJump
	KindLabel
)

// Node is the uniform, mutable-shape tree element from spec.md §3.
// Every node carries its symbol table, mode, and a propagator slot;
// scratch fields record what the evaluator learned on first execution.
//
// This departs from the teacher's per-production interface hierarchy
// (internal/parser/ast.go's Expr/ExprVisitor) on purpose: spec.md's
// propagator/scratch-field model needs one mutable struct shape that
// every production shares, not a closed family of named Go types.
type Node struct {
	ID   int // stable identity used as the dispatch-cache key
	Kind Kind

	Mode        *Mode
	SymbolTable *SymbolTable
	Tag         *Tag // for identifiers/operators: the bound declaration

	Location struct {
		File string
		Line int
		Col  int
	}

	FirstChild *Node
	NextSib    *Node

	// Propagator is the specialized dispatch strategy chosen for this
	// node; PropGeneric until re-specialized.
	Propagator PropagatorID

	// --- scratch fields, set after first execution ---

	// ConstantCache holds a pre-evaluated literal Cell once a constant
	// node has been visited once (denotations are immutable, so this
	// is always safe to reuse).
	ConstantCache *Cell
	// NewLexicalLevel is true if this node opens a new frame
	// (closed clause, loop body, routine call, etc.).
	NewLexicalLevel bool
	// SequenceCache memoizes a flattened child list for nodes whose
	// children are walked repeatedly (serial/collateral clauses).
	SequenceCache []*Node

	// Operator/Operand fields for formulas and slices/selections —
	// populated by the (out-of-scope) parser, read-only to the core.
	Operator string
	Operand  *Node
	Left     *Node
	Right    *Node
	Object   *Node
	Index    []*Node
	Field    string

	// Literal is a denotation node's raw value (int64, float64, bool,
	// rune), populated by the parser; StringDenotation instead uses
	// Field for its text, since a row of CHAR needs heap allocation at
	// execution time rather than a bare Go value.
	Literal Value

	// Children of declarations / clauses / calls, in source order.
	Children []*Node
}

// ChildList collects FirstChild/NextSib into a slice, for callers that
// prefer the linked-list shape the spec names explicitly.
func (n *Node) ChildList() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSib {
		out = append(out, c)
	}
	return out
}

// Link appends child to n's FirstChild/NextSib chain and also records
// it in Children, keeping both representations the parser may have
// populated in sync.
func (n *Node) Link(child *Node) {
	if n.FirstChild == nil {
		n.FirstChild = child
	} else {
		last := n.FirstChild
		for last.NextSib != nil {
			last = last.NextSib
		}
		last.NextSib = child
	}
	n.Children = append(n.Children, child)
}
