// Package formatter renders an internal/ast program back to source
// text in a single canonical style, the way the teacher's own
// formatter re-serializes its parser's tree.
package formatter

import (
	"fmt"
	"strings"

	"noja/internal/ast"
)

type Formatter struct {
	indent    int
	indentStr string
	output    strings.Builder
	lineBreak string
}

func NewFormatter() *Formatter {
	return &Formatter{
		indentStr: "    ",
		lineBreak: "\n",
	}
}

// Format renders a whole program.
func (f *Formatter) Format(stmts []ast.Stmt) string {
	f.output.Reset()
	f.indent = 0
	for i, stmt := range stmts {
		f.formatStmt(stmt)
		if i < len(stmts)-1 && f.needsBlankLine(stmt, stmts[i+1]) {
			f.output.WriteString(f.lineBreak)
		}
	}
	return f.output.String()
}

// needsBlankLine separates function declarations from neighboring
// statements, the one piece of the teacher's spacing rule that still
// applies to this smaller grammar.
func (f *Formatter) needsBlankLine(curr, next ast.Stmt) bool {
	_, currIsFunc := curr.(*ast.FuncStmt)
	_, nextIsFunc := next.(*ast.FuncStmt)
	return currIsFunc || nextIsFunc
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.output.WriteString(f.indentStr)
	}
}

func (f *Formatter) formatBlock(body []ast.Stmt) {
	f.output.WriteString("{")
	f.output.WriteString(f.lineBreak)
	f.indent++
	for _, s := range body {
		f.formatStmt(s)
	}
	f.indent--
	f.writeIndent()
	f.output.WriteString("}")
}

func (f *Formatter) formatStmt(stmt ast.Stmt) {
	if stmt == nil {
		return
	}
	if _, err := stmt.Accept(f); err != nil {
		// formatStmt never fails: every Visit* below is a plain writer.
		panic(err)
	}
}

func (f *Formatter) formatExpr(expr ast.Expr) {
	if expr == nil {
		return
	}
	if _, err := expr.Accept(f); err != nil {
		panic(err)
	}
}

// --- ast.StmtVisitor ---

func (f *Formatter) VisitExprStmt(n *ast.ExprStmt) (interface{}, error) {
	f.writeIndent()
	f.formatExpr(n.Expr)
	f.output.WriteString(";")
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

func (f *Formatter) VisitIfStmt(n *ast.IfStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("if ")
	f.formatExpr(n.Cond)
	f.output.WriteString(" ")
	f.formatBlock(n.Then)
	if n.Else != nil {
		f.output.WriteString(" else ")
		if len(n.Else) == 1 {
			if inner, ok := n.Else[0].(*ast.IfStmt); ok {
				f.formatStmtInline(inner)
				f.output.WriteString(f.lineBreak)
				return nil, nil
			}
		}
		f.formatBlock(n.Else)
	}
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

// formatStmtInline renders an "else if" chain without re-indenting or
// emitting a leading indent of its own.
func (f *Formatter) formatStmtInline(n *ast.IfStmt) {
	f.output.WriteString("if ")
	f.formatExpr(n.Cond)
	f.output.WriteString(" ")
	f.formatBlock(n.Then)
	if n.Else != nil {
		f.output.WriteString(" else ")
		if len(n.Else) == 1 {
			if inner, ok := n.Else[0].(*ast.IfStmt); ok {
				f.formatStmtInline(inner)
				return
			}
		}
		f.formatBlock(n.Else)
	}
}

func (f *Formatter) VisitWhileStmt(n *ast.WhileStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("while ")
	f.formatExpr(n.Cond)
	f.output.WriteString(" ")
	f.formatBlock(n.Body)
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

func (f *Formatter) VisitDoWhileStmt(n *ast.DoWhileStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("do ")
	f.formatBlock(n.Body)
	f.output.WriteString(" while ")
	f.formatExpr(n.Cond)
	f.output.WriteString(";")
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

func (f *Formatter) VisitBreakStmt(n *ast.BreakStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("break;")
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

func (f *Formatter) VisitReturnStmt(n *ast.ReturnStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("return")
	if n.Value != nil {
		f.output.WriteString(" ")
		f.formatExpr(n.Value)
	}
	f.output.WriteString(";")
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

func (f *Formatter) VisitFuncStmt(n *ast.FuncStmt) (interface{}, error) {
	f.writeIndent()
	f.output.WriteString("fn ")
	f.output.WriteString(n.Name)
	f.output.WriteString("(")
	f.output.WriteString(strings.Join(n.Params, ", "))
	f.output.WriteString(") ")
	f.formatBlock(n.Body)
	f.output.WriteString(f.lineBreak)
	return nil, nil
}

// --- ast.ExprVisitor ---

func (f *Formatter) VisitIntLit(n *ast.IntLit) (interface{}, error) {
	f.output.WriteString(fmt.Sprintf("%d", n.Value))
	return nil, nil
}

func (f *Formatter) VisitFloatLit(n *ast.FloatLit) (interface{}, error) {
	f.output.WriteString(fmt.Sprintf("%g", n.Value))
	return nil, nil
}

func (f *Formatter) VisitStringLit(n *ast.StringLit) (interface{}, error) {
	f.output.WriteString("\"")
	f.output.WriteString(n.Value)
	f.output.WriteString("\"")
	return nil, nil
}

func (f *Formatter) VisitBoolLit(n *ast.BoolLit) (interface{}, error) {
	f.output.WriteString(fmt.Sprintf("%v", n.Value))
	return nil, nil
}

func (f *Formatter) VisitNoneLit(n *ast.NoneLit) (interface{}, error) {
	f.output.WriteString("none")
	return nil, nil
}

func (f *Formatter) VisitIdentifier(n *ast.Identifier) (interface{}, error) {
	f.output.WriteString(n.Name)
	return nil, nil
}

func (f *Formatter) VisitListExpr(n *ast.ListExpr) (interface{}, error) {
	f.output.WriteString("[")
	for i, elem := range n.Elements {
		if i > 0 {
			f.output.WriteString(", ")
		}
		f.formatExpr(elem)
	}
	f.output.WriteString("]")
	return nil, nil
}

func (f *Formatter) VisitMapExpr(n *ast.MapExpr) (interface{}, error) {
	f.output.WriteString("{")
	for i := range n.Keys {
		if i > 0 {
			f.output.WriteString(", ")
		}
		f.formatExpr(n.Keys[i])
		f.output.WriteString(": ")
		f.formatExpr(n.Values[i])
	}
	f.output.WriteString("}")
	return nil, nil
}

func (f *Formatter) VisitIndexExpr(n *ast.IndexExpr) (interface{}, error) {
	f.formatExpr(n.Object)
	f.output.WriteString("[")
	f.formatExpr(n.Index)
	f.output.WriteString("]")
	return nil, nil
}

func (f *Formatter) VisitCallExpr(n *ast.CallExpr) (interface{}, error) {
	f.formatExpr(n.Callee)
	f.output.WriteString("(")
	for i, arg := range n.Args {
		if i > 0 {
			f.output.WriteString(", ")
		}
		f.formatExpr(arg)
	}
	f.output.WriteString(")")
	return nil, nil
}

func (f *Formatter) VisitUnaryExpr(n *ast.UnaryExpr) (interface{}, error) {
	f.output.WriteString(n.Operator)
	f.formatExpr(n.Operand)
	return nil, nil
}

func (f *Formatter) VisitBinaryExpr(n *ast.BinaryExpr) (interface{}, error) {
	f.formatExpr(n.Left)
	f.output.WriteString(" ")
	f.output.WriteString(n.Operator)
	f.output.WriteString(" ")
	f.formatExpr(n.Right)
	return nil, nil
}

func (f *Formatter) VisitLogicalExpr(n *ast.LogicalExpr) (interface{}, error) {
	f.formatExpr(n.Left)
	f.output.WriteString(" ")
	f.output.WriteString(n.Operator)
	f.output.WriteString(" ")
	f.formatExpr(n.Right)
	return nil, nil
}

func (f *Formatter) VisitAssignExpr(n *ast.AssignExpr) (interface{}, error) {
	for i, t := range n.Targets {
		if i > 0 {
			f.output.WriteString(", ")
		}
		f.formatExpr(t)
	}
	f.output.WriteString(" = ")
	f.formatExpr(n.Value)
	return nil, nil
}

func (f *Formatter) VisitFuncExpr(n *ast.FuncExpr) (interface{}, error) {
	f.output.WriteString("fn(")
	f.output.WriteString(strings.Join(n.Params, ", "))
	f.output.WriteString(") ")
	f.formatBlock(n.Body)
	return nil, nil
}
