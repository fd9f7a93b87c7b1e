package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"noja/internal/ast"
	"noja/internal/errors"
	"noja/internal/lexer"
)

func parse(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	tokens := lexer.NewScanner(src).ScanTokens()
	prog, err := Parse(tokens)
	require.NoError(t, err)
	return prog
}

func TestParseExprStmt(t *testing.T) {
	prog := parse(t, "1 + 2 * 3;")
	require.Len(t, prog, 1)
	stmt := prog[0].(*ast.ExprStmt)
	bin := stmt.Expr.(*ast.BinaryExpr)
	require.Equal(t, "+", bin.Operator)
	require.IsType(t, &ast.IntLit{}, bin.Left)
	rhs := bin.Right.(*ast.BinaryExpr)
	require.Equal(t, "*", rhs.Operator)
}

func TestParsePrecedenceOfLogicalBelowComparison(t *testing.T) {
	// a < b && c < d  =>  (a<b) && (c<d), not a < (b && c) < d
	prog := parse(t, "a < b && c < d;")
	stmt := prog[0].(*ast.ExprStmt)
	logical := stmt.Expr.(*ast.LogicalExpr)
	require.Equal(t, "&&", logical.Operator)
	require.Equal(t, "<", logical.Left.(*ast.BinaryExpr).Operator)
	require.Equal(t, "<", logical.Right.(*ast.BinaryExpr).Operator)
}

func TestParseUnaryMinus(t *testing.T) {
	prog := parse(t, "-x;")
	stmt := prog[0].(*ast.ExprStmt)
	un := stmt.Expr.(*ast.UnaryExpr)
	require.Equal(t, "-", un.Operator)
	require.Equal(t, "x", un.Operand.(*ast.Identifier).Name)
}

func TestParseCallAndIndexChain(t *testing.T) {
	prog := parse(t, "f(1,2)[0];")
	stmt := prog[0].(*ast.ExprStmt)
	idx := stmt.Expr.(*ast.IndexExpr)
	call := idx.Object.(*ast.CallExpr)
	require.Equal(t, "f", call.Callee.(*ast.Identifier).Name)
	require.Len(t, call.Args, 2)
}

func TestParseListAndMapLiterals(t *testing.T) {
	prog := parse(t, `[1, 2, 3];`)
	lst := prog[0].(*ast.ExprStmt).Expr.(*ast.ListExpr)
	require.Len(t, lst.Elements, 3)

	prog = parse(t, `{"a": 1, "b": 2};`)
	m := prog[0].(*ast.ExprStmt).Expr.(*ast.MapExpr)
	require.Len(t, m.Keys, 2)
	require.Equal(t, "a", m.Keys[0].(*ast.StringLit).Value)
}

func TestParseSingleAssign(t *testing.T) {
	prog := parse(t, "x = 1;")
	assign := prog[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	require.Len(t, assign.Targets, 1)
	require.Equal(t, "x", assign.Targets[0].(*ast.Identifier).Name)
}

func TestParseIndexAssign(t *testing.T) {
	prog := parse(t, "xs[0] = 9;")
	assign := prog[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	require.Len(t, assign.Targets, 1)
	require.IsType(t, &ast.IndexExpr{}, assign.Targets[0])
}

func TestParseTupleAssign(t *testing.T) {
	prog := parse(t, "a, b = f(x);")
	assign := prog[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	require.Len(t, assign.Targets, 2)
	require.Equal(t, "a", assign.Targets[0].(*ast.Identifier).Name)
	require.Equal(t, "b", assign.Targets[1].(*ast.Identifier).Name)
	require.IsType(t, &ast.CallExpr{}, assign.Value)
}

func TestParseDisambiguatesAssignFromExpression(t *testing.T) {
	// Plain comparison, not an assignment: backtracking must not
	// consume the '=' token that belongs to '=='.
	prog := parse(t, "a == b;")
	stmt := prog[0].(*ast.ExprStmt)
	require.IsType(t, &ast.BinaryExpr{}, stmt.Expr)
}

func TestParseIfElse(t *testing.T) {
	prog := parse(t, "if x < 0 { return -x; } else { return x; }")
	ifs := prog[0].(*ast.IfStmt)
	require.Len(t, ifs.Then, 1)
	require.Len(t, ifs.Else, 1)
}

func TestParseElseIfChain(t *testing.T) {
	prog := parse(t, "if a { } else if b { } else { }")
	outer := prog[0].(*ast.IfStmt)
	require.Len(t, outer.Else, 1)
	inner := outer.Else[0].(*ast.IfStmt)
	require.Len(t, inner.Else, 0)
}

func TestParseWhileLoop(t *testing.T) {
	prog := parse(t, "while n > 0 { n = n - 1; }")
	ws := prog[0].(*ast.WhileStmt)
	require.Equal(t, ">", ws.Cond.(*ast.BinaryExpr).Operator)
	require.Len(t, ws.Body, 1)
}

func TestParseDoWhileLoop(t *testing.T) {
	prog := parse(t, "do { n = n - 1; } while n > 0;")
	ds := prog[0].(*ast.DoWhileStmt)
	require.Len(t, ds.Body, 1)
	require.Equal(t, ">", ds.Cond.(*ast.BinaryExpr).Operator)
}

func TestParseBreakInsideLoop(t *testing.T) {
	prog := parse(t, "while true { break; }")
	ws := prog[0].(*ast.WhileStmt)
	require.IsType(t, &ast.BreakStmt{}, ws.Body[0])
}

func TestParseReturnWithAndWithoutValue(t *testing.T) {
	prog := parse(t, "return 1; return;")
	r1 := prog[0].(*ast.ReturnStmt)
	require.NotNil(t, r1.Value)
	r2 := prog[1].(*ast.ReturnStmt)
	require.Nil(t, r2.Value)
}

func TestParseFuncStmt(t *testing.T) {
	prog := parse(t, "fn add(a, b) { return a + b; }")
	fs := prog[0].(*ast.FuncStmt)
	require.Equal(t, "add", fs.Name)
	require.Equal(t, []string{"a", "b"}, fs.Params)
	require.Len(t, fs.Body, 1)
}

func TestParseFuncLiteralAssignedToName(t *testing.T) {
	prog := parse(t, "g = fn(x) { return x + 1; };")
	assign := prog[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	fe := assign.Value.(*ast.FuncExpr)
	require.Equal(t, []string{"x"}, fe.Params)
}

func TestParseGroupedExpression(t *testing.T) {
	prog := parse(t, "(1 + 2) * 3;")
	mul := prog[0].(*ast.ExprStmt).Expr.(*ast.BinaryExpr)
	require.Equal(t, "*", mul.Operator)
	require.Equal(t, "+", mul.Left.(*ast.BinaryExpr).Operator)
}

func TestParseSpansCoverWholeExpression(t *testing.T) {
	src := "1 + 2;"
	prog := parse(t, src)
	bin := prog[0].(*ast.ExprStmt).Expr.(*ast.BinaryExpr)
	sp := bin.Span()
	require.Equal(t, src[sp.Offset:sp.Offset+sp.Length], "1 + 2")
}

func TestParseSyntaxErrorOnMissingSemicolon(t *testing.T) {
	tokens := lexer.NewScanner("x = 1").ScanTokens()
	_, err := Parse(tokens)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.SyntaxError))
}

func TestParseSyntaxErrorOnUnexpectedToken(t *testing.T) {
	tokens := lexer.NewScanner(");").ScanTokens()
	_, err := Parse(tokens)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.SyntaxError))
}
