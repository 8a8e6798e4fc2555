package eval

import (
	"a68core/internal/ast"
	"a68core/internal/mp"
)

// Prelude is spec.md §6's "standard environ": the table of stand-
// environ operator/procedure tags a program's outermost symbol table
// is seeded with before execution, grounded on the teacher's
// registerBuiltins map[string]*NativeFunction table (internal/vm/
// vm.go), generalized here from fixed-arity Go functions taking
// []Value to ast.BuiltinFunc's push/pop stack-based calling
// convention, since the core's stand-environ operators are both
// prefix-call (sin(x)) and infix-operator (x + y) forms over the same
// underlying implementation.
type Prelude struct {
	Procedures map[string]*ast.Tag

	// Operators is keyed by "name mode" (e.g. "+ INT", "+ REAL"), not
	// by name alone: the source language overloads an operator name
	// across several operand modes, and a flat by-name map would let
	// the last-declared mode silently shadow every earlier one. Use
	// Operator to look up the tag for a given name/mode pair. The key's
	// mode is the one passed to op: the INT comparisons (=, /=, <, <=,
	// >, >=) are registered under their BOOL result mode ("= BOOL"), so
	// Operator("=", INT) returns nil.
	Operators map[string]*ast.Tag
}

// NewPrelude builds the table of INT/REAL/BOOL stand-environ
// arithmetic operators and the LONG REAL transcendental procedures
// from internal/mp, per spec.md §4.6 and §6.
func NewPrelude() *Prelude {
	p := &Prelude{
		Procedures: make(map[string]*ast.Tag),
		Operators:  make(map[string]*ast.Tag),
	}
	intMode := &ast.Mode{Tag: ast.ModeInt}
	realMode := &ast.Mode{Tag: ast.ModeReal}
	boolMode := &ast.Mode{Tag: ast.ModeBool}

	p.op("+", 1, intMode, addInt)
	p.op("-", 1, intMode, subInt)
	p.op("*", 2, intMode, mulInt)
	p.op("%", 2, intMode, divInt)
	p.op("MOD", 2, intMode, modInt)
	p.op("=", 3, boolMode, eqInt)
	p.op("/=", 3, boolMode, neInt)
	p.op("<", 3, boolMode, ltInt)
	p.op("<=", 3, boolMode, leInt)
	p.op(">", 3, boolMode, gtInt)
	p.op(">=", 3, boolMode, geInt)

	p.op("+", 1, realMode, addReal)
	p.op("-", 1, realMode, subReal)
	p.op("*", 2, realMode, mulReal)
	p.op("/", 2, realMode, divRealOp)

	p.op("AND", 4, boolMode, andBool)
	p.op("OR", 4, boolMode, orBool)
	p.op("NOT", 4, boolMode, notBool)

	longReal := &ast.Mode{Tag: ast.ModeLong, SubMode: realMode}
	p.proc("long sin", longReal, longSin)
	p.proc("long cos", longReal, longCos)
	p.proc("long tan", longReal, longTan)
	p.proc("long exp", longReal, longExp)
	p.proc("long ln", longReal, longLn)
	p.proc("long sqrt", longReal, longSqrt)
	p.proc("long pi", longReal, longPi)

	return p
}

func (p *Prelude) op(name string, priority int, mode *ast.Mode, fn ast.BuiltinFunc) {
	p.Operators[operatorKey(name, mode)] = &ast.Tag{Name: name, Mode: mode, Priority: priority, Builtin: fn}
}

func (p *Prelude) proc(name string, mode *ast.Mode, fn ast.BuiltinFunc) {
	p.Procedures[name] = &ast.Tag{Name: name, Mode: mode, Builtin: fn}
}

func operatorKey(name string, mode *ast.Mode) string {
	return name + " " + mode.String()
}

// Operator looks up the stand-environ tag for name overloaded at mode
// (spec.md §6: "+", "=", etc. are each bound once per operand mode).
// A front end that has already resolved which overload a formula node
// uses should attach the returned tag directly to that node.
func (p *Prelude) Operator(name string, mode *ast.Mode) *ast.Tag {
	return p.Operators[operatorKey(name, mode)]
}

// --- INT operators ---

func addInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l + r, nil
}
func subInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l - r, nil
}
func mulInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l * r, nil
}
func divInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	if r == 0 {
		return nil, mp.ErrDivideByZero{}
	}
	return l / r, nil
}
func modInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	if r == 0 {
		return nil, mp.ErrDivideByZero{}
	}
	m := l % r
	if m < 0 {
		m += r
	}
	return m, nil
}
func eqInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l == r, nil
}
func neInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l != r, nil
}
func ltInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l < r, nil
}
func leInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l <= r, nil
}
func gtInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l > r, nil
}
func geInt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(int64), ev.Pop().(int64)
	return l >= r, nil
}

// --- REAL operators ---

func addReal(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(float64), ev.Pop().(float64)
	return l + r, nil
}
func subReal(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(float64), ev.Pop().(float64)
	return l - r, nil
}
func mulReal(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(float64), ev.Pop().(float64)
	return l * r, nil
}
func divRealOp(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(float64), ev.Pop().(float64)
	if r == 0 {
		return nil, mp.ErrDivideByZero{}
	}
	return l / r, nil
}

// --- BOOL operators ---

func andBool(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(bool), ev.Pop().(bool)
	return l && r, nil
}
func orBool(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	r, l := ev.Pop().(bool), ev.Pop().(bool)
	return l || r, nil
}
func notBool(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	v := ev.Pop().(bool)
	return !v, nil
}

// --- LONG REAL transcendentals, wired to internal/mp (spec.md §4.6) ---

func mpArg(ev ast.Evaluator) *mp.Number {
	v := ev.Pop()
	if n, ok := v.(*mp.Number); ok {
		return n
	}
	switch x := v.(type) {
	case float64:
		return mp.NewFromFloat64(x, mp.LongPrecision)
	case int64:
		return mp.NewFromInt64(x, mp.LongPrecision)
	}
	return mp.NewFromInt64(0, mp.LongPrecision)
}

func longSin(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Sin(mpArg(ev)), nil
}
func longCos(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Cos(mpArg(ev)), nil
}
func longTan(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Tan(mpArg(ev))
}
func longExp(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Exp(mpArg(ev)), nil
}
func longLn(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Ln(mpArg(ev))
}
func longSqrt(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Sqrt(mpArg(ev)), nil
}
func longPi(ev ast.Evaluator, call *ast.Node) (ast.Value, error) {
	return mp.Pi(mp.LongPrecision), nil
}
