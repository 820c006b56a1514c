package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"filagree/compiler"
	"filagree/hostlib"
	"filagree/internal/container"
	"filagree/lexer"
	"filagree/parser"
	"filagree/vm"

	"github.com/google/subcommands"
)

// bytecodeExtension marks a file as pre-compiled bytecode rather than
// source, for run's extension dispatch.
const bytecodeExtension = ".fgc"

type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "lex, parse, compile, and execute a source or bytecode file" }
func (*runCmd) Usage() string {
	return `run <file>:
  <file>.fg is compiled then run; <file>.fgc is loaded and run directly.
`
}
func (*runCmd) SetFlags(*flag.FlagSet) {}

func (cmd *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}
	path := args[0]

	code, err := loadBytecode(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	machine := vm.New(vm.WithHostResolver(hostlib.FindHostVar))
	if _, err := machine.Run(code); err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// loadBytecode returns the final length-prefixed bytecode stream for
// path, compiling it first when it isn't already bytecode.
func loadBytecode(path string) ([]byte, error) {
	if filepath.Ext(path) == bytecodeExtension {
		return container.ReadFile(path)
	}
	return compileSource(path)
}

func compileSource(path string) ([]byte, error) {
	data, err := container.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loader := lexer.NewLoader(filepath.Dir(path))
	tokens, err := lexer.New(string(data), loader).Scan()
	if err != nil {
		return nil, err
	}
	root, err := parser.Make(tokens).Parse()
	if err != nil {
		return nil, err
	}
	return compiler.Compile(root)
}
