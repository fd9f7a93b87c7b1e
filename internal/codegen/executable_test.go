package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"noja/internal/ast"
	"noja/internal/heap"
)

// TestFinalizeResolvesEveryPromiseOperandToInt covers spec.md §8's
// invariant directly: "For every compiled Executable, every operand of
// kind PROMISE has been resolved to INT." An if/else program is a
// convenient source of both a forward jump (JUMPIFNOTANDPOP) and a
// jump past the else branch (JUMP), so both Promise operands get
// exercised.
func TestFinalizeResolvesEveryPromiseOperandToInt(t *testing.T) {
	cond := ast.NewBoolLit(sp(), true)
	thenBranch := []ast.Stmt{ast.NewReturnStmt(sp(), ast.NewIntLit(sp(), 1))}
	elseBranch := []ast.Stmt{ast.NewReturnStmt(sp(), ast.NewIntLit(sp(), 2))}
	prog := []ast.Stmt{ast.NewIfStmt(sp(), cond, thenBranch, elseBranch)}

	exe, err := Compile(prog, "if true {return 1;} else {return 2;}", heap.New(0))
	require.NoError(t, err)

	for _, ins := range exe.Instructions {
		for _, op := range ins.Operands {
			require.NotEqual(t, OperandPromise, op.Kind,
				"finalized Executable must not retain any PROMISE operand")
		}
	}
}
