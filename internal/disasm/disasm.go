// Package disasm renders a compiled codegen.Executable as human
// readable text: one line per instruction, its resolved operands, and
// the source slice it was generated from.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"noja/internal/codegen"
)

// Options controls how Print formats an Executable.
type Options struct {
	// Color enables ANSI highlighting of opcode mnemonics; callers
	// gate this on whether stdout is a terminal.
	Color bool
	// ShowSource prints the source snippet each instruction's
	// SourceOffset/SourceLength covers, with newlines escaped as \n so
	// it stays on the instruction's line.
	ShowSource bool
}

const (
	colorOpcode = "\x1b[36m"
	colorReset  = "\x1b[0m"
)

// Print writes one line per instruction of exe to w.
func Print(w io.Writer, exe *codegen.Executable, opt Options) error {
	for i, ins := range exe.Instructions {
		mnemonic := ins.Opcode.String()
		if opt.Color {
			mnemonic = colorOpcode + mnemonic + colorReset
		}
		operands := formatOperands(ins.Operands)

		if _, err := fmt.Fprintf(w, "%4d  %-16s %s", i, mnemonic, operands); err != nil {
			return err
		}
		if opt.ShowSource && ins.SourceLength > 0 {
			end := ins.SourceOffset + ins.SourceLength
			if end <= len(exe.Source) {
				snippet := strings.ReplaceAll(exe.Source[ins.SourceOffset:end], "\n", "\\n")
				if _, err := fmt.Fprintf(w, "  ; %s", snippet); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// formatOperands renders an instruction's operands. It never sees
// codegen.OperandPromise: Builder.Finalize rewrites every promise
// operand to OperandInt before handing out an Executable, so by the
// time disasm.Print runs, every jump target is already a plain int.
func formatOperands(ops []codegen.Operand) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		switch o.Kind {
		case codegen.OperandInt:
			parts[i] = fmt.Sprintf("%d", o.Int)
		case codegen.OperandFloat:
			parts[i] = fmt.Sprintf("%g", o.Float)
		case codegen.OperandString:
			parts[i] = fmt.Sprintf("%q", o.Str)
		}
	}
	return strings.Join(parts, ", ")
}
