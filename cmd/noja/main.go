// Command noja drives the code generator from the shell: compile a
// script to bytecode and print its disassembly, check a file's syntax,
// reformat it, or try snippets one at a time in a REPL.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"noja/internal/codegen"
	"noja/internal/disasm"
	"noja/internal/errors"
	"noja/internal/formatter"
	"noja/internal/heap"
	"noja/internal/lexer"
	"noja/internal/parser"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "build":
		runBuild(args[1:])
	case "check":
		runCheck(args[1:])
	case "fmt":
		runFmt(args[1:])
	case "repl":
		runRepl()
	case "version", "--version", "-v":
		fmt.Println("noja", version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "noja: unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`noja - bytecode compiler for the toy scripting language

Usage:
  noja build <file>     compile a script and print its disassembly
  noja check <file>     parse a script and report syntax errors
  noja fmt <file>       reformat a script and write it back in place
  noja repl             compile snippets from stdin one line at a time
  noja version          print the compiler version`)
}

func readSource(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "noja: %v\n", err)
		os.Exit(1)
	}
	return string(b)
}

func runBuild(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: noja build <file>")
		os.Exit(1)
	}
	src := readSource(args[0])
	exe, err := compile(src)
	if err != nil {
		reportAndExit(err)
	}
	opt := disasm.Options{Color: isatty.IsTerminal(os.Stdout.Fd()), ShowSource: true}
	if err := disasm.Print(os.Stdout, exe, opt); err != nil {
		fmt.Fprintf(os.Stderr, "noja: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(args []string) {
	showAST := false
	var file string
	for _, a := range args {
		if a == "--ast" {
			showAST = true
			continue
		}
		file = a
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: noja check [--ast] <file>")
		os.Exit(1)
	}
	src := readSource(file)
	tokens := lexer.NewScanner(src).ScanTokens()
	prog, err := parser.Parse(tokens)
	if err != nil {
		reportAndExit(err)
	}
	if showAST {
		pretty.Println(prog)
	}
	fmt.Printf("%s: syntax is valid\n", file)
}

func runFmt(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: noja fmt <file>")
		os.Exit(1)
	}
	src := readSource(args[0])
	tokens := lexer.NewScanner(src).ScanTokens()
	prog, err := parser.Parse(tokens)
	if err != nil {
		reportAndExit(err)
	}
	out := formatter.NewFormatter().Format(prog)
	if err := os.WriteFile(args[0], []byte(out), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "noja: %v\n", err)
		os.Exit(1)
	}
}

func runRepl() {
	fmt.Println("noja repl - one statement per line, Ctrl-D to exit")
	scan := bufio.NewScanner(os.Stdin)
	prompt := "> "
	isTTY := isatty.IsTerminal(os.Stdin.Fd())
	for {
		if isTTY {
			fmt.Print(prompt)
		}
		if !scan.Scan() {
			fmt.Println()
			return
		}
		line := scan.Text()
		if line == "" {
			continue
		}
		exe, err := compile(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		disasm.Print(os.Stdout, exe, disasm.Options{Color: isTTY})
	}
}

func compile(src string) (*codegen.Executable, error) {
	tokens := lexer.NewScanner(src).ScanTokens()
	prog, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}
	return codegen.Compile(prog, src, heap.New(0))
}

func reportAndExit(err error) {
	if rep, ok := err.(*errors.Report); ok {
		fmt.Fprintln(os.Stderr, rep.Error())
	} else {
		fmt.Fprintf(os.Stderr, "noja: %v\n", err)
	}
	os.Exit(1)
}
