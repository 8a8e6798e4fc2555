package ast

// SymbolTable is one lexical level: an ordered chain of tags by class,
// per spec.md §3. The core receives a populated table from the
// (out-of-scope) mode-checker/prelude builder; it only reads and
// extends scope/offset bookkeeping on it.
type SymbolTable struct {
	Parent *SymbolTable
	Level  int // nesting depth; 0 is the program's outermost level

	Identifiers []*Tag
	Operators   []*Tag
	Priorities  map[string]int
	Indicants   []*Tag
	Labels      []*Tag
	Anonymous   []*Tag // anonymous routine/format texts

	// ApIncrement is the cumulative local-storage size this level's
	// frame must reserve (spec.md §3: "cumulative local allocation
	// size").
	ApIncrement int

	// InitialiseFrame controls whether frame construction must run the
	// identity/routine-text initialization pass (false only for levels
	// with no local declarations at all, a fast-path flag).
	InitialiseFrame bool
}

// NewSymbolTable creates a child level of parent (nil for the program
// root).
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	level := 0
	if parent != nil {
		level = parent.Level + 1
	}
	return &SymbolTable{
		Parent:          parent,
		Level:           level,
		Priorities:      make(map[string]int),
		InitialiseFrame: true,
	}
}

// Declare adds tag to this table's identifier chain and reserves frame
// storage for it, returning the offset assigned.
func (st *SymbolTable) Declare(tag *Tag) int {
	tag.Level = st.Level
	offset := st.ApIncrement
	tag.Offset = offset
	st.ApIncrement += cellSize(tag.Mode)
	st.Identifiers = append(st.Identifiers, tag)
	return offset
}

// cellSize is the logical frame slot count a mode occupies; every mode
// currently occupies exactly one Cell slot; structured modes are
// heap-allocated behind a REF, so their frame footprint is one Ref
// cell regardless of the mode's own Size. This mirrors spec.md's
// explicit Non-goal of not preserving exact descriptor layout — only
// the single-cell-per-name discipline is externally observable.
func cellSize(m *Mode) int { return 1 }

// DeclareOperator registers an operator tag with its priority.
func (st *SymbolTable) DeclareOperator(tag *Tag, priority int) {
	tag.Level = st.Level
	tag.Priority = priority
	st.Operators = append(st.Operators, tag)
	st.Priorities[tag.Name] = priority
}

// Lookup searches this table and its ancestors (outermost last) for
// name among identifiers and operators.
func (st *SymbolTable) Lookup(name string) *Tag {
	for t := st; t != nil; t = t.Parent {
		for _, tag := range t.Identifiers {
			if tag.Name == name {
				return tag
			}
		}
		for _, tag := range t.Operators {
			if tag.Name == name {
				return tag
			}
		}
	}
	return nil
}

// LookupLocal searches only this table, not ancestors.
func (st *SymbolTable) LookupLocal(name string) *Tag {
	for _, tag := range st.Identifiers {
		if tag.Name == name {
			return tag
		}
	}
	return nil
}
