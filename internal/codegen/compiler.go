// Package codegen lowers an ast.Stmt/ast.Expr tree to a flat
// Instruction stream, implementing ast.ExprVisitor and ast.StmtVisitor
// the same way the teacher's compiler dispatches over its own AST:
// one Visit* method per node kind, each emitting straight-line code
// and recursing into its children via Accept.
//
// Forward jumps (an if statement's jump past its then-branch, a
// loop's jump past its body, a break) go through a Promise handed out
// by the Builder; backward jumps (a loop's jump back to its condition)
// use an already-known instruction index directly, since nothing
// later needs to patch them.
package codegen

import (
	"noja/internal/ast"
	"noja/internal/errors"
	"noja/internal/heap"
	"noja/internal/object"
)

// maxTupleArity bounds a multi-target assignment's flattened target
// count; this is a static sanity limit, not expected to be hit by any
// real program.
const maxTupleArity = 255

// Compiler walks a program's statements and expressions, emitting
// instructions into its Builder. heap is the heap Compile reserves its
// scratch space against; no runtime value is ever allocated on it,
// since compilation produces code, not values. The static map-key check
// reads the object package's type descriptors directly.
type Compiler struct {
	builder   *Builder
	heap      *heap.Heap
	breakDest *Promise
}

// Compile lowers program to a finished Executable. Every compiled
// program ends with an implicit RETURN 0, whether or not the last
// statement was itself a return.
func Compile(program []ast.Stmt, source string, h *heap.Heap) (*Executable, error) {
	// Reserve scratch space against h up front, sized to the source
	// text, the way the non-local-escape-on-error contract expects a
	// single scratch allocation to be released (simply dropped, here)
	// if compilation fails partway through.
	if _, err := h.AllocRaw(len(source)); err != nil {
		return nil, err
	}

	b := NewBuilder(source)
	c := &Compiler{builder: b, heap: h}
	if err := c.compileBlock(program); err != nil {
		return nil, err
	}
	b.Emit(RETURN, []Operand{IntOperand(0)}, ast.Span{})
	return b.Finalize()
}

func (c *Compiler) compileBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if _, err := s.Accept(c); err != nil {
			return err
		}
	}
	return nil
}

// --- statements ---

func (c *Compiler) VisitExprStmt(n *ast.ExprStmt) (interface{}, error) {
	if _, err := n.Expr.Accept(c); err != nil {
		return nil, err
	}
	if isTupleAssign(n.Expr) {
		// A tuple assignment's own reverse-store sequence already pops
		// every target but the first-bound one (see VisitAssignExpr),
		// so as a statement it needs no further discard: spec.md's
		// worked scenario for `a, b = f(x);` ends at `ASS "a"` with no
		// trailing POP before the program's closing RETURN 0.
		return nil, nil
	}
	c.builder.Emit(POP, []Operand{IntOperand(1)}, n.Span())
	return nil, nil
}

// isTupleAssign reports whether expr is a multi-target assignment.
func isTupleAssign(expr ast.Expr) bool {
	a, ok := expr.(*ast.AssignExpr)
	return ok && len(a.Targets) > 1
}

func (c *Compiler) VisitIfStmt(n *ast.IfStmt) (interface{}, error) {
	if _, err := n.Cond.Accept(c); err != nil {
		return nil, err
	}
	elseDest := c.builder.NewPromise()
	c.builder.Emit(JUMPIFNOTANDPOP, []Operand{PromiseOperand(elseDest)}, n.Span())

	if err := c.compileBlock(n.Then); err != nil {
		return nil, err
	}

	if n.Else == nil {
		if err := elseDest.Resolve(c.builder.Here()); err != nil {
			return nil, err
		}
		return nil, nil
	}

	endDest := c.builder.NewPromise()
	c.builder.Emit(JUMP, []Operand{PromiseOperand(endDest)}, n.Span())
	if err := elseDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	if err := c.compileBlock(n.Else); err != nil {
		return nil, err
	}
	if err := endDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Compiler) VisitWhileStmt(n *ast.WhileStmt) (interface{}, error) {
	top := c.builder.Here()
	if _, err := n.Cond.Accept(c); err != nil {
		return nil, err
	}
	exitDest := c.builder.NewPromise()
	c.builder.Emit(JUMPIFNOTANDPOP, []Operand{PromiseOperand(exitDest)}, n.Span())

	prevBreak := c.breakDest
	c.breakDest = exitDest
	err := c.compileBlock(n.Body)
	c.breakDest = prevBreak
	if err != nil {
		return nil, err
	}

	c.builder.Emit(JUMP, []Operand{IntOperand(int64(top))}, n.Span())
	if err := exitDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Compiler) VisitDoWhileStmt(n *ast.DoWhileStmt) (interface{}, error) {
	exitDest := c.builder.NewPromise()
	top := c.builder.Here()

	prevBreak := c.breakDest
	c.breakDest = exitDest
	err := c.compileBlock(n.Body)
	c.breakDest = prevBreak
	if err != nil {
		return nil, err
	}

	if _, err := n.Cond.Accept(c); err != nil {
		return nil, err
	}
	c.builder.Emit(JUMPIFANDPOP, []Operand{IntOperand(int64(top))}, n.Span())
	if err := exitDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Compiler) VisitBreakStmt(n *ast.BreakStmt) (interface{}, error) {
	if c.breakDest == nil {
		return nil, errors.New(errors.BreakOutsideLoop, "break outside of any enclosing loop")
	}
	c.builder.Emit(JUMP, []Operand{PromiseOperand(c.breakDest)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitReturnStmt(n *ast.ReturnStmt) (interface{}, error) {
	if n.Value == nil {
		c.builder.Emit(RETURN, []Operand{IntOperand(0)}, n.Span())
		return nil, nil
	}
	if _, err := n.Value.Accept(c); err != nil {
		return nil, err
	}
	c.builder.Emit(RETURN, []Operand{IntOperand(1)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitFuncStmt(n *ast.FuncStmt) (interface{}, error) {
	fe := ast.NewFuncExpr(n.Span(), n.Params, n.Body)
	if _, err := fe.Accept(c); err != nil {
		return nil, err
	}
	c.builder.Emit(ASS, []Operand{StringOperand(n.Name)}, n.Span())
	c.builder.Emit(POP, []Operand{IntOperand(1)}, n.Span())
	return nil, nil
}

// --- expressions ---

func (c *Compiler) VisitIntLit(n *ast.IntLit) (interface{}, error) {
	c.builder.Emit(PUSHINT, []Operand{IntOperand(n.Value)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitFloatLit(n *ast.FloatLit) (interface{}, error) {
	c.builder.Emit(PUSHFLT, []Operand{FloatOperand(n.Value)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitStringLit(n *ast.StringLit) (interface{}, error) {
	c.builder.Emit(PUSHSTR, []Operand{StringOperand(n.Value)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitBoolLit(n *ast.BoolLit) (interface{}, error) {
	if n.Value {
		c.builder.Emit(PUSHTRU, nil, n.Span())
	} else {
		c.builder.Emit(PUSHFLS, nil, n.Span())
	}
	return nil, nil
}

func (c *Compiler) VisitNoneLit(n *ast.NoneLit) (interface{}, error) {
	c.builder.Emit(PUSHNNE, nil, n.Span())
	return nil, nil
}

func (c *Compiler) VisitIdentifier(n *ast.Identifier) (interface{}, error) {
	c.builder.Emit(PUSHVAR, []Operand{StringOperand(n.Name)}, n.Span())
	return nil, nil
}

func (c *Compiler) VisitListExpr(n *ast.ListExpr) (interface{}, error) {
	c.builder.Emit(PUSHLST, nil, n.Span())
	for i, elem := range n.Elements {
		c.builder.Emit(PUSHINT, []Operand{IntOperand(int64(i))}, elem.Span())
		if _, err := elem.Accept(c); err != nil {
			return nil, err
		}
		c.builder.Emit(INSERT2, nil, elem.Span())
	}
	return nil, nil
}

func (c *Compiler) VisitMapExpr(n *ast.MapExpr) (interface{}, error) {
	c.builder.Emit(PUSHMAP, nil, n.Span())
	for i, key := range n.Keys {
		if err := c.checkStaticKeyHashable(key); err != nil {
			return nil, err
		}
		if _, err := key.Accept(c); err != nil {
			return nil, err
		}
		if _, err := n.Values[i].Accept(c); err != nil {
			return nil, err
		}
		c.builder.Emit(INSERT2, nil, n.Span())
	}
	return nil, nil
}

// checkStaticKeyHashable rejects, at compile time, a map literal key
// whose expression is itself a composite literal (list, map, or
// function) — those types carry no Hash capability (see
// object.ListType/object.MapType/object.FunctionType), so a value they
// would produce could never be looked up again. Keys built from other
// expressions (arithmetic, calls, identifiers) are left for the
// runtime's own UnhashableKey check, since their static type isn't
// known here.
func (c *Compiler) checkStaticKeyHashable(key ast.Expr) error {
	var probe *heap.TypeDescriptor
	switch key.(type) {
	case *ast.ListExpr:
		probe = object.ListType
	case *ast.MapExpr:
		probe = object.MapType
	case *ast.FuncExpr:
		probe = object.FunctionType
	default:
		return nil
	}
	if probe.Hash == nil {
		return errors.New(errors.UnhashableKey, "map literal key of type %s cannot be hashed", probe.Name)
	}
	return nil
}

func (c *Compiler) VisitIndexExpr(n *ast.IndexExpr) (interface{}, error) {
	if _, err := n.Object.Accept(c); err != nil {
		return nil, err
	}
	if _, err := n.Index.Accept(c); err != nil {
		return nil, err
	}
	c.builder.Emit(SELECT, nil, n.Span())
	return nil, nil
}

func (c *Compiler) VisitCallExpr(n *ast.CallExpr) (interface{}, error) {
	return nil, c.emitCall(n, 1)
}

func (c *Compiler) emitCall(n *ast.CallExpr, nresults int) error {
	for _, a := range n.Args {
		if _, err := a.Accept(c); err != nil {
			return err
		}
	}
	if _, err := n.Callee.Accept(c); err != nil {
		return err
	}
	c.builder.Emit(CALL, []Operand{IntOperand(int64(len(n.Args))), IntOperand(int64(nresults))}, n.Span())
	return nil
}

var unaryOpcodes = map[string]Opcode{"-": NEG, "+": POS, "!": NOT}

func (c *Compiler) VisitUnaryExpr(n *ast.UnaryExpr) (interface{}, error) {
	if _, err := n.Operand.Accept(c); err != nil {
		return nil, err
	}
	op, ok := unaryOpcodes[n.Operator]
	if !ok {
		panic("codegen: parser produced unknown unary operator " + n.Operator)
	}
	c.builder.Emit(op, nil, n.Span())
	return nil, nil
}

var binaryOpcodes = map[string]Opcode{
	"+": ADD, "-": SUB, "*": MUL, "/": DIV,
	"==": EQL, "!=": NQL, "<": LSS, "<=": LEQ, ">": GRT, ">=": GEQ,
	"&&": AND, "||": OR,
}

func (c *Compiler) VisitBinaryExpr(n *ast.BinaryExpr) (interface{}, error) {
	return nil, c.emitBinary(n.Operator, n.Left, n.Right, n.Span())
}

// VisitLogicalExpr emits AND/OR exactly like any other binary
// operator: both operands are always evaluated. The instruction set
// has no short-circuiting control-flow form for && and ||, only the
// eager AND/OR opcodes, so LogicalExpr is kept as a distinct AST node
// purely for the parser's benefit (operator precedence) and lowers
// identically to BinaryExpr.
func (c *Compiler) VisitLogicalExpr(n *ast.LogicalExpr) (interface{}, error) {
	return nil, c.emitBinary(n.Operator, n.Left, n.Right, n.Span())
}

func (c *Compiler) emitBinary(operator string, left, right ast.Expr, span ast.Span) error {
	if _, err := left.Accept(c); err != nil {
		return err
	}
	if _, err := right.Accept(c); err != nil {
		return err
	}
	op, ok := binaryOpcodes[operator]
	if !ok {
		panic("codegen: parser produced unknown binary operator " + operator)
	}
	c.builder.Emit(op, nil, span)
	return nil
}

func (c *Compiler) VisitFuncExpr(n *ast.FuncExpr) (interface{}, error) {
	bodyDest := c.builder.NewPromise()
	afterDest := c.builder.NewPromise()

	c.builder.Emit(PUSHFUN, []Operand{PromiseOperand(bodyDest), IntOperand(int64(len(n.Params)))}, n.Span())
	c.builder.Emit(JUMP, []Operand{PromiseOperand(afterDest)}, n.Span())

	if err := bodyDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	for _, p := range n.Params {
		c.builder.Emit(ASS, []Operand{StringOperand(p)}, n.Span())
		c.builder.Emit(POP, []Operand{IntOperand(1)}, n.Span())
	}

	prevBreak := c.breakDest
	c.breakDest = nil // break never escapes a function body into an enclosing loop
	err := c.compileBlock(n.Body)
	c.breakDest = prevBreak
	if err != nil {
		return nil, err
	}
	c.builder.Emit(RETURN, []Operand{IntOperand(0)}, n.Span())

	if err := afterDest.Resolve(c.builder.Here()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Compiler) VisitAssignExpr(n *ast.AssignExpr) (interface{}, error) {
	if len(n.Targets) == 0 {
		return nil, errors.New(errors.InvalidAssignmentTarget, "assignment has no targets")
	}
	for _, t := range n.Targets {
		switch t.(type) {
		case *ast.Identifier, *ast.IndexExpr:
		default:
			return nil, errors.New(errors.InvalidAssignmentTarget, "assignment target must be an identifier or index expression")
		}
	}
	if len(n.Targets) > maxTupleArity {
		return nil, errors.New(errors.TuplePairTooLarge,
			"assignment has %d targets, exceeds the %d-target limit", len(n.Targets), maxTupleArity)
	}

	if len(n.Targets) == 1 {
		return nil, c.compileSingleAssign(n.Targets[0], n.Value)
	}

	call, ok := n.Value.(*ast.CallExpr)
	if !ok {
		return nil, errors.New(errors.TupleArityMismatch,
			"multi-target assignment's right-hand side must be a call expression")
	}
	if err := c.emitCall(call, len(n.Targets)); err != nil {
		return nil, err
	}
	for i := len(n.Targets) - 1; i > 0; i-- {
		if err := c.emitAssignFromStack(n.Targets[i]); err != nil {
			return nil, err
		}
		c.builder.Emit(POP, []Operand{IntOperand(1)}, n.Span())
	}
	if err := c.emitAssignFromStack(n.Targets[0]); err != nil {
		return nil, err
	}
	return nil, nil
}

// compileSingleAssign handles `target = value`, pushing value itself
// (then ASS, or obj/idx/val then INSERT) so the assigned value remains
// on the stack as the expression's result.
func (c *Compiler) compileSingleAssign(target, value ast.Expr) error {
	switch t := target.(type) {
	case *ast.Identifier:
		if _, err := value.Accept(c); err != nil {
			return err
		}
		c.builder.Emit(ASS, []Operand{StringOperand(t.Name)}, target.Span())
		return nil
	case *ast.IndexExpr:
		if _, err := t.Object.Accept(c); err != nil {
			return err
		}
		if _, err := t.Index.Accept(c); err != nil {
			return err
		}
		if _, err := value.Accept(c); err != nil {
			return err
		}
		c.builder.Emit(INSERT, nil, target.Span())
		return nil
	default:
		return errors.New(errors.InvalidAssignmentTarget, "unsupported assignment target")
	}
}

// emitAssignFromStack binds target to whatever value is already on
// top of the stack (one slot of a multi-value CALL result), rather
// than compiling a value expression first. Only identifier targets are
// supported in a tuple assignment: a destructuring index-expression
// target would need the container and key pushed before the call's
// results exist, which the flattened tuple-store sequence has no slot
// for.
func (c *Compiler) emitAssignFromStack(target ast.Expr) error {
	ident, ok := target.(*ast.Identifier)
	if !ok {
		return errors.New(errors.InvalidAssignmentTarget,
			"tuple assignment targets must be identifiers")
	}
	c.builder.Emit(ASS, []Operand{StringOperand(ident.Name)}, target.Span())
	return nil
}
