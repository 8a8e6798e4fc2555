package ast

// AllocClass says where a tag's storage lives.
type AllocClass int

const (
	AllocLocal AllocClass = iota // frame-relative slot
	AllocHeap                    // HEAP generator target
	AllocGlobal
)

// BuiltinFunc is the signature native stand-environ procedures use,
// matching spec.md §6's SymbolTable.standard_environ contract:
// fn(&mut Evaluator, node).
type BuiltinFunc func(ev Evaluator, call *Node) (Value, error)

// Evaluator is the narrow interface internal/eval satisfies, named
// here so stand-environ builtins (and tests) can be described without
// an import cycle back into internal/eval.
type Evaluator interface {
	Push(Value)
	Pop() Value
	Peek(offset int) Value
	CurrentLevel() int
}

// Tag is a declared identifier/operator/label binding (spec.md §3).
type Tag struct {
	Name  string
	Level int // lexical level = which SymbolTable this tag lives in
	Mode  *Mode

	Defining *Node // the node that introduced this tag

	Offset int // offset within the frame (AllocLocal) or heap record
	Class  AllocClass

	// ScopeLevel is assigned by the static scope checker (§4.5); it is
	// the youngest lexical level this tag's value may legally reach.
	ScopeLevel      int
	ScopeAssigned   bool

	Priority int // for declared dyadic/monadic operators

	Builtin BuiltinFunc // non-nil for stand-environ procedures/operators
}

// IsOperator reports whether this tag names an operator (priority > 0
// is how the symbol table records that, mirroring the source
// language's own convention of only assigning priorities to operators).
func (t *Tag) IsOperator() bool { return t.Priority > 0 }
