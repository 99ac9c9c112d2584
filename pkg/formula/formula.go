// Package formula evaluates reference expressions from the reference design.
// An expression is parsed once into a restricted arithmetic form whose
// identifiers are bound to reporter-alias values at evaluation time: the
// four arithmetic operators, unary sign, parentheses, numeric literals, and
// a small set of aggregate functions. Nothing else parses, so a reference
// expression can never execute code.
package formula

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// funcs maps the allow-listed function names to their implementations.
// Every function takes one or more numeric arguments.
var funcs = map[string]func(xs []float64) float64{
	"mean": func(xs []float64) float64 { return stat.Mean(xs, nil) },
	"sum":  floats.Sum,
	"min":  floats.Min,
	"max":  floats.Max,
}

// Expr is a parsed, validated reference expression.
type Expr struct {
	src      string
	root     ast.Expr
	operands []string
}

// Parse parses and validates a reference expression. It fails on any
// construct outside the restricted grammar: selectors, indexing, calls to
// unknown functions, string literals, comparison or logical operators.
func Parse(src string) (*Expr, error) {
	root, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("reference expression %q: %w", src, err)
	}
	e := &Expr{src: src, root: root}
	if err := e.check(root); err != nil {
		return nil, fmt.Errorf("reference expression %q: %w", src, err)
	}
	return e, nil
}

// check validates one node and records operand identifiers in
// first-appearance order.
func (e *Expr) check(node ast.Expr) error {
	switch n := node.(type) {
	case *ast.Ident:
		e.addOperand(n.Name)
		return nil
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return fmt.Errorf("literal %s is not numeric", n.Value)
		}
		return nil
	case *ast.ParenExpr:
		return e.check(n.X)
	case *ast.UnaryExpr:
		if n.Op != token.ADD && n.Op != token.SUB {
			return fmt.Errorf("unary operator %s not allowed", n.Op)
		}
		return e.check(n.X)
	case *ast.BinaryExpr:
		switch n.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO:
		default:
			return fmt.Errorf("operator %s not allowed", n.Op)
		}
		if err := e.check(n.X); err != nil {
			return err
		}
		return e.check(n.Y)
	case *ast.CallExpr:
		name, ok := n.Fun.(*ast.Ident)
		if !ok {
			return fmt.Errorf("only plain function calls are allowed")
		}
		if _, known := funcs[name.Name]; !known {
			return fmt.Errorf("unknown function %q", name.Name)
		}
		if len(n.Args) == 0 {
			return fmt.Errorf("function %q needs at least one argument", name.Name)
		}
		if n.Ellipsis != token.NoPos {
			return fmt.Errorf("variadic calls are not allowed")
		}
		for _, arg := range n.Args {
			if err := e.check(arg); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("construct %T not allowed", node)
	}
}

func (e *Expr) addOperand(name string) {
	for _, o := range e.operands {
		if o == name {
			return
		}
	}
	e.operands = append(e.operands, name)
}

// String returns the expression source.
func (e *Expr) String() string { return e.src }

// Operands returns the distinct identifiers the expression reads, in
// first-appearance order. Function names are not operands.
func (e *Expr) Operands() []string {
	return append([]string(nil), e.operands...)
}

// Eval computes the expression over the given operand values. Every operand
// must be present in env; a gap is an error, not a zero. Division by zero
// follows float64 semantics and yields a non-finite value rather than an
// error, since downstream stages turn non-finite ratios into missing cells.
func (e *Expr) Eval(env map[string]float64) (float64, error) {
	return e.eval(e.root, env)
}

func (e *Expr) eval(node ast.Expr, env map[string]float64) (float64, error) {
	switch n := node.(type) {
	case *ast.Ident:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("unknown operand %q", n.Name)
		}
		return v, nil
	case *ast.BasicLit:
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("literal %s: %w", n.Value, err)
		}
		return v, nil
	case *ast.ParenExpr:
		return e.eval(n.X, env)
	case *ast.UnaryExpr:
		v, err := e.eval(n.X, env)
		if err != nil {
			return 0, err
		}
		if n.Op == token.SUB {
			return -v, nil
		}
		return v, nil
	case *ast.BinaryExpr:
		x, err := e.eval(n.X, env)
		if err != nil {
			return 0, err
		}
		y, err := e.eval(n.Y, env)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		default:
			return x / y, nil
		}
	case *ast.CallExpr:
		name := n.Fun.(*ast.Ident).Name
		xs := make([]float64, len(n.Args))
		for i, arg := range n.Args {
			v, err := e.eval(arg, env)
			if err != nil {
				return 0, err
			}
			xs[i] = v
		}
		return funcs[name](xs), nil
	default:
		return 0, fmt.Errorf("construct %T not allowed", node)
	}
}
