package rows

import "a68core/internal/ast"

// StructValue is a heap-resident STRUCT(..) value: one Cell per field,
// in declaration order matching ast.Mode.Fields.
type StructValue struct {
	Fields []ast.Cell
}

// UnionValue is a heap-resident UNION(..) value: the discriminator
// (which field mode is active) plus that variant's cell.
type UnionValue struct {
	ActiveMode *ast.Mode
	Payload    ast.Cell
}
