package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"filagree/compiler"

	"github.com/google/subcommands"
)

type compileCmd struct {
	disassemble bool
}

func (*compileCmd) Name() string { return "compile" }
func (*compileCmd) Synopsis() string {
	return "compile a source file to a bytecode file"
}
func (*compileCmd) Usage() string {
	return `compile <in> <out>:
  Lex, parse, and compile <in>, writing the length-prefixed bytecode
  stream to <out>.
`
}

func (cmd *compileCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", false, "also write a <out>.dis disassembly listing")
}

func (cmd *compileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "💥 expected <in> and <out>\n")
		return subcommands.ExitUsageError
	}
	in, out := args[0], args[1]

	code, err := compileSource(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	if err := compiler.DumpBytecode(out, code); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write bytecode: %v\n", err)
		return subcommands.ExitFailure
	}

	if cmd.disassemble {
		disPath := out + ".dis"
		if err := compiler.WriteDisassembly(disPath, code); err != nil {
			fmt.Fprintf(os.Stderr, "💥 failed to write disassembly: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
