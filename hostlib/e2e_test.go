package hostlib

import (
	"bytes"
	"testing"

	"filagree/ast"
	"filagree/compiler"
	"filagree/token"
	"filagree/vm"
)

// The scenarios below run literal programs end to end — lex-free, built
// directly as AST rather than through the lexer and parser —
// compiled and executed against a VM wired to this package's sys
// resolver, matching the concrete source -> stdout scenarios a
// complete implementation is expected to satisfy.

func numTok(n int64) *token.Token {
	tok := token.CreateLiteralToken(token.NUMBER, n, "", 1, 0)
	return &tok
}

func opTok(tt token.TokenType) *token.Token {
	tok := token.CreateToken(tt, 1, 0)
	return &tok
}

func identTok(name string) *token.Token {
	tok := token.CreateLiteralToken(token.IDENTIFIER, name, name, 1, 0)
	return &tok
}

func strTok(s string) *token.Token {
	tok := token.CreateLiteralToken(token.STRING, s, s, 1, 0)
	return &tok
}

func numNode(n int64) *ast.Node    { return ast.New(ast.Integer, numTok(n)) }
func varNode(name string) *ast.Node { return ast.New(ast.Variable, identTok(name)) }
func strNode(s string) *ast.Node    { return ast.New(ast.String, strTok(s)) }

// sysCall builds sys.method(args...) as Member(method, sys) as the
// FunctionCall's callee.
func sysCall(method string, args ...*ast.Node) *ast.Node {
	member := ast.New(ast.Member, nil, strNode(method), varNode("sys"))
	children := append(append([]*ast.Node{}, args...), member)
	return ast.New(ast.FunctionCall, nil, children...)
}

func runProgram(t *testing.T, stmts ...*ast.Node) string {
	t.Helper()
	root := ast.New(ast.Statements, nil, stmts...)
	code, err := compiler.Compile(root)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var out bytes.Buffer
	machine := vm.New(vm.WithHostResolver(NewResolver(&out)))
	if _, err := machine.Run(code); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestScenarioArithmeticPrecedence(t *testing.T) {
	mul := ast.New(ast.BinaryExpr, opTok(token.MULT), numNode(2), numNode(3))
	add := ast.New(ast.BinaryExpr, opTok(token.ADD), numNode(1), mul)
	got := runProgram(t, sysCall("print", add))
	if got != "7\n" {
		t.Fatalf("sys.print(1 + 2 * 3): expected \"7\\n\", got %q", got)
	}
}

func TestScenarioListIndex(t *testing.T) {
	table := ast.New(ast.Table, nil, numNode(10), numNode(20), numNode(30))
	defineX := ast.New(ast.Assignment, nil, varNode("x").MarkLHS(), table)
	readIdx := ast.New(ast.Member, nil, numNode(1), varNode("x"))
	got := runProgram(t, defineX, sysCall("print", readIdx))
	if got != "20\n" {
		t.Fatalf("sys.print(x[1]): expected \"20\\n\", got %q", got)
	}
}

func TestScenarioListLengthMethod(t *testing.T) {
	table := ast.New(ast.Table, nil, numNode(1), numNode(2), numNode(3))
	defineX := ast.New(ast.Assignment, nil, varNode("x").MarkLHS(), table)
	readLen := ast.New(ast.Member, nil, strNode("length"), varNode("x"))
	got := runProgram(t, defineX, sysCall("print", readLen))
	if got != "3\n" {
		t.Fatalf("sys.print(x.length): expected \"3\\n\", got %q", got)
	}
}

func TestScenarioMapIndex(t *testing.T) {
	pairA := ast.New(ast.Pair, nil, strNode("a"), numNode(1))
	pairB := ast.New(ast.Pair, nil, strNode("b"), numNode(2))
	table := ast.New(ast.Table, nil, pairA, pairB)
	defineX := ast.New(ast.Assignment, nil, varNode("x").MarkLHS(), table)
	readB := ast.New(ast.Member, nil, strNode("b"), varNode("x"))
	got := runProgram(t, defineX, sysCall("print", readB))
	if got != "2\n" {
		t.Fatalf("sys.print(x['b']): expected \"2\\n\", got %q", got)
	}
}

func TestScenarioFunctionCall(t *testing.T) {
	body := ast.New(ast.Statements, nil, ast.New(ast.Return, nil,
		ast.New(ast.BinaryExpr, opTok(token.ADD), varNode("a"), varNode("b"))))
	fdecl := ast.New(ast.FunctionDecl, nil, varNode("a"), varNode("b"), body)
	defineF := ast.New(ast.Assignment, nil, varNode("f").MarkLHS(), fdecl)
	call := ast.New(ast.FunctionCall, nil, numNode(3), numNode(4), varNode("f"))
	got := runProgram(t, defineF, sysCall("print", call))
	if got != "7\n" {
		t.Fatalf("sys.print(f(3, 4)): expected \"7\\n\", got %q", got)
	}
}

func TestScenarioWhileLoop(t *testing.T) {
	initI := ast.New(ast.Assignment, nil, varNode("i").MarkLHS(), numNode(0))
	cond := ast.New(ast.BinaryExpr, opTok(token.LESS), varNode("i"), numNode(3))
	incI := ast.New(ast.Assignment, nil, varNode("i").MarkLHS(),
		ast.New(ast.BinaryExpr, opTok(token.ADD), varNode("i"), numNode(1)))
	loop := ast.New(ast.Loop, nil, cond, ast.New(ast.Statements, nil, incI))
	got := runProgram(t, initI, loop, sysCall("print", varNode("i")))
	if got != "3\n" {
		t.Fatalf("sys.print(i) after loop: expected \"3\\n\", got %q", got)
	}
}

func TestScenarioIfThenElse(t *testing.T) {
	cond := ast.New(ast.BinaryExpr, opTok(token.LARGER), numNode(2), numNode(1))
	thenBody := ast.New(ast.Statements, nil, sysCall("print", strNode("y")))
	elseBody := ast.New(ast.Statements, nil, sysCall("print", strNode("n")))
	ifNode := ast.New(ast.IfThenElse, nil, cond, thenBody, elseBody)
	got := runProgram(t, ifNode)
	if got != "y\n" {
		t.Fatalf("if 2 > 1 then sys.print('y'): expected \"y\\n\", got %q", got)
	}
}
