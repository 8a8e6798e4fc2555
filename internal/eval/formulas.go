package eval

import (
	"fmt"

	"a68core/internal/ast"
)

// execMonadicFormula evaluates the operand then dispatches to the
// operator tag's builtin (spec.md §4.3: monadic/dyadic formulas
// dispatch through the symbol table to a stand-environ operator or a
// user-declared one, identically).
func (e *Evaluator) execMonadicFormula(n *ast.Node) (ast.Cell, error) {
	operand, err := e.Execute(n.Operand)
	if err != nil {
		return ast.UninitCell(), err
	}
	return e.applyOperator(n, []ast.Cell{operand})
}

// execDyadicFormula evaluates both operands left-to-right then
// dispatches the same way.
func (e *Evaluator) execDyadicFormula(n *ast.Node) (ast.Cell, error) {
	left, err := e.Execute(n.Left)
	if err != nil {
		return ast.UninitCell(), err
	}
	right, err := e.Execute(n.Right)
	if err != nil {
		return ast.UninitCell(), err
	}
	return e.applyOperator(n, []ast.Cell{left, right})
}

func (e *Evaluator) applyOperator(n *ast.Node, args []ast.Cell) (ast.Cell, error) {
	if n.Tag == nil || n.Tag.Builtin == nil {
		return ast.UninitCell(), fmt.Errorf("operator %q has no bound implementation", n.Operator)
	}
	for _, a := range args {
		e.Push(a.V)
	}
	v, err := n.Tag.Builtin(e, n)
	if err != nil {
		return ast.UninitCell(), err
	}
	return ast.Of(v), nil
}

// formulaBuiltinQuick is PropFormulaStandEnvQuick's fast path: operands
// evaluated and applied without re-checking n.Tag's shape, since
// specialize() only installs this propagator once n.Tag.Builtin is
// already known non-nil.
func (e *Evaluator) formulaBuiltinQuick(n *ast.Node) (ast.Cell, error) {
	if n.Left != nil && n.Right != nil {
		return e.execDyadicFormula(n)
	}
	return e.execMonadicFormula(n)
}
