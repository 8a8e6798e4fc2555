// Package listing implements spec.md §4.7: a post-scope-binding tree
// traversal that records, per source line, the minimum and maximum
// lexical level seen on that line, and assigns each procedure (routine
// text) a monotonically increasing procedure number in depth-first
// visitation order. Grounded in shape on the teacher's internal/
// reporting.ReportingModule (a struct holding accumulated maps plus a
// mutex, built by successive record calls over a traversal; output
// here is the traversal state itself, not a rendered document, since
// spec.md's Non-goals place the actual listing-file renderer out of
// scope as a collaborator).
package listing

import (
	"sort"

	"a68core/internal/ast"
)

// LineInfo is spec.md's "min/max lexical level and procedure level"
// bookkeeping for one source line.
type LineInfo struct {
	Line         int
	MinLevel     int
	MaxLevel     int
	ProcLevelMin int
	ProcLevelMax int
}

// Listing is the accumulated traversal result.
type Listing struct {
	Lines map[int]*LineInfo

	// ProcedureNumbers maps a routine-text node to its depth-first
	// visitation order, starting at 1 for the first routine text
	// encountered (spec.md: "monotonic DFS procedure numbering").
	ProcedureNumbers map[*ast.Node]int

	nextProcNumber int
}

// New creates an empty listing accumulator.
func New() *Listing {
	return &Listing{
		Lines:            make(map[int]*LineInfo),
		ProcedureNumbers: make(map[*ast.Node]int),
		nextProcNumber:   1,
	}
}

// Build walks root after scope binding (every node's SymbolTable/Tag
// already resolved) and populates a fresh Listing.
func Build(root *ast.Node) *Listing {
	l := New()
	l.walk(root, 0)
	return l
}

func (l *Listing) walk(n *ast.Node, procLevel int) {
	if n == nil {
		return
	}
	level := 0
	if n.SymbolTable != nil {
		level = n.SymbolTable.Level
	}
	l.record(n.Location.Line, level, procLevel)

	nextProcLevel := procLevel
	if n.Kind == ast.KindRoutineText {
		if _, already := l.ProcedureNumbers[n]; !already {
			l.ProcedureNumbers[n] = l.nextProcNumber
			l.nextProcNumber++
		}
		nextProcLevel = procLevel + 1
	}

	for _, c := range n.ChildList() {
		l.walk(c, nextProcLevel)
	}
	// formula/slice/selection/assignation fields aren't reached via
	// ChildList alone (spec.md's Node keeps dedicated Operand/Left/
	// Right/Object fields for these), so walk them explicitly too.
	l.walk(n.Operand, nextProcLevel)
	l.walk(n.Left, nextProcLevel)
	l.walk(n.Right, nextProcLevel)
	l.walk(n.Object, nextProcLevel)
	for _, idx := range n.Index {
		l.walk(idx, nextProcLevel)
	}
}

func (l *Listing) record(line, level, procLevel int) {
	if line == 0 {
		return
	}
	info, ok := l.Lines[line]
	if !ok {
		l.Lines[line] = &LineInfo{
			Line: line, MinLevel: level, MaxLevel: level,
			ProcLevelMin: procLevel, ProcLevelMax: procLevel,
		}
		return
	}
	if level < info.MinLevel {
		info.MinLevel = level
	}
	if level > info.MaxLevel {
		info.MaxLevel = level
	}
	if procLevel < info.ProcLevelMin {
		info.ProcLevelMin = procLevel
	}
	if procLevel > info.ProcLevelMax {
		info.ProcLevelMax = procLevel
	}
}

// SortedLines returns every recorded line's info, ascending by line
// number, for a renderer to walk in source order.
func (l *Listing) SortedLines() []*LineInfo {
	out := make([]*LineInfo, 0, len(l.Lines))
	for _, info := range l.Lines {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// ProcedureNumber returns the DFS visitation number assigned to a
// routine-text node, or 0 if n was never visited (not a routine text,
// or Build has not run).
func (l *Listing) ProcedureNumber(n *ast.Node) int {
	return l.ProcedureNumbers[n]
}
