package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"filagree/compiler"
	"filagree/hostlib"
	"filagree/lexer"
	"filagree/parser"
	"filagree/token"
	"filagree/value"
	"filagree/vm"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive read-eval-print loop" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive session. Bindings persist across lines.
`
}
func (*replCmd) SetFlags(*flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("\nWelcome to filagree!")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	machine := vm.New(vm.WithHostResolver(hostlib.FindHostVar))
	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err != nil {
			return subcommands.ExitSuccess
		}
		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		tokens, err := lexer.New(source, nil).Scan()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}
		if !isInputReady(tokens) {
			continue
		}

		root, err := parser.Make(tokens).Parse()
		if err != nil {
			if isAtEOF(err, tokens) {
				continue
			}
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}

		code, err := compiler.Compile(root)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}

		result, err := machine.Run(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}
		if result != nil {
			fmt.Println(displayValue(result))
		}
		buffer.Reset()
	}
}

// displayValue renders a value the way the REPL echoes a trailing
// expression's result. Kept local rather than shared with vm/hostlib's
// own stringify helpers, since main has no access to either package's
// unexported internals.
func displayValue(v *value.Value) string {
	switch v.Kind {
	case value.NilKind:
		return "nil"
	case value.BoolKind:
		if v.Bool {
			return "true"
		}
		return "false"
	case value.IntKind:
		return strconv.Itoa(int(v.Int))
	case value.FloatKind:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case value.StringKind:
		return string(v.Str)
	default:
		return v.TypeName()
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filagree_history"
	}
	return home + "/.filagree_history"
}

// isInputReady reports whether tokens form a syntactically complete
// line, so the REPL knows to keep buffering instead of attempting to
// parse a half-typed block. A line is incomplete while it has more
// block openers (if/while/function) than closing `end`s, or while its
// last non-EOF token is an operator, punctuation, or keyword that can
// only be followed by more input.
func isInputReady(tokens []token.Token) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.IF, token.WHILE, token.FUNCTION:
			depth++
		case token.END:
			depth--
		}
	}
	if depth > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}
	switch last.TokenType {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV,
		token.EQUAL_EQUAL, token.NOT_EQUAL, token.LESS, token.LARGER,
		token.COMMA, token.COLON, token.DOT, token.LPAREN, token.LBRACK,
		token.IF, token.THEN, token.ELSE, token.ELIF, token.WHILE,
		token.FUNCTION, token.RETURN, token.AND, token.OR, token.NOT:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].TokenType != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

// isAtEOF reports whether err is a syntax error positioned at the
// trailing EOF token, meaning the parser ran out of tokens rather than
// hitting a genuine mistake — so the REPL should wait for another line.
func isAtEOF(err error, tokens []token.Token) bool {
	syntaxErr, ok := err.(parser.SyntaxError)
	if !ok || len(tokens) == 0 {
		return false
	}
	eof := tokens[len(tokens)-1]
	return syntaxErr.Line == eof.Line && syntaxErr.Column == eof.Column
}
