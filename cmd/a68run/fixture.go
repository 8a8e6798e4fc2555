package main

import (
	"a68core/internal/ast"
	"a68core/internal/eval"
)

// buildDemoProgram hand-builds a tiny program tree the way the
// teacher's own vm_test.go hand-builds a bytecode.Chunk: a closed
// clause computing 3 + 4 and returning it, standing in for what an
// external front end would otherwise produce from source text.
//
//	BEGIN INT sum = 3 + 4; sum END
func buildDemoProgram() *ast.Node {
	prelude := eval.NewPrelude()
	intMode := &ast.Mode{Tag: ast.ModeInt}
	root := ast.NewSymbolTable(nil)

	sumTag := &ast.Tag{Name: "sum", Mode: intMode}
	root.Declare(sumTag)

	three := &ast.Node{ID: 1, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(3)}
	four := &ast.Node{ID: 2, Kind: ast.KindIntDenotation, Mode: intMode, Literal: int64(4)}
	plus := &ast.Node{ID: 3, Kind: ast.KindDyadicFormula, Mode: intMode, Operator: "+", Left: three, Right: four, Tag: prelude.Operator("+", intMode)}

	decl := &ast.Node{ID: 4, Kind: ast.KindIdentityDeclaration, Mode: intMode, Tag: sumTag, Operand: plus}

	ident := &ast.Node{ID: 5, Kind: ast.KindIdentifier, Mode: intMode, Tag: sumTag, Field: "sum"}

	serial := &ast.Node{ID: 6, Kind: ast.KindSerialClause, Mode: intMode, SymbolTable: root}
	serial.Link(decl)
	serial.Link(ident)

	closed := &ast.Node{ID: 7, Kind: ast.KindClosedClause, Mode: intMode, SymbolTable: root, NewLexicalLevel: true}
	closed.Link(serial)

	program := &ast.Node{ID: 0, Kind: ast.KindProgram, Mode: intMode, SymbolTable: root}
	program.Link(closed)
	return program
}
