package codegen

import (
	"noja/internal/ast"
	"noja/internal/errors"
)

// Executable is a finished instruction stream plus the source text it
// was compiled from; every Instruction's SourceOffset/SourceLength
// indexes into Source, so a driver can print the exact source snippet
// behind any instruction without re-deriving it from the AST.
type Executable struct {
	Instructions []Instruction
	Source       string
}

// Builder assembles an Executable one instruction at a time, handing
// out Promises for jump targets that aren't known yet and patching
// them in once Finalize confirms every one was eventually resolved.
type Builder struct {
	instructions []Instruction
	source       string
	arena        *Arena
}

// NewBuilder creates a Builder over source, owning its own Arena.
func NewBuilder(source string) *Builder {
	return &Builder{source: source, arena: NewArena()}
}

// Emit appends an instruction and returns its index, usable as an
// already-known jump target for a later backward jump.
func (b *Builder) Emit(op Opcode, operands []Operand, span ast.Span) int {
	idx := len(b.instructions)
	b.instructions = append(b.instructions, Instruction{
		Opcode:       op,
		Operands:     operands,
		SourceOffset: span.Offset,
		SourceLength: span.Length,
	})
	return idx
}

// Here returns the index the next Emit call will land at.
func (b *Builder) Here() int { return len(b.instructions) }

// NewPromise hands out a fresh, unresolved jump-target Promise.
func (b *Builder) NewPromise() *Promise { return b.arena.New() }

// Finalize confirms every promise handed out by this builder was
// resolved, rewrites each PROMISE operand in place to an INT operand
// carrying its resolved payload, and returns the finished Executable.
// An unresolved promise here is always a code generator bug, never a
// mistake in the compiled program.
func (b *Builder) Finalize() (*Executable, error) {
	if unresolved := b.arena.Unresolved(); len(unresolved) > 0 {
		return nil, errors.New(errors.UnresolvedJumpTarget,
			"%d jump target(s) never resolved", len(unresolved))
	}
	for i := range b.instructions {
		ops := b.instructions[i].Operands
		for j := range ops {
			if ops[j].Kind == OperandPromise {
				ops[j] = IntOperand(int64(ops[j].Promise.Value()))
			}
		}
	}
	return &Executable{Instructions: b.instructions, Source: b.source}, nil
}
