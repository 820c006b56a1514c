package compiler

import (
	"strings"
	"testing"

	"filagree/ast"
	"filagree/internal/codec"
	"filagree/token"
)

func num(n int64) *token.Token {
	tok := token.CreateLiteralToken(token.NUMBER, n, "", 1, 0)
	return &tok
}

func op(tt token.TokenType) *token.Token {
	tok := token.CreateToken(tt, 1, 0)
	return &tok
}

func ident(name string) *token.Token {
	tok := token.CreateLiteralToken(token.IDENTIFIER, name, name, 1, 0)
	return &tok
}

func TestCompileIntegerLiteral(t *testing.T) {
	n := ast.New(ast.Integer, num(7))
	code, err := compileNode(n)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []byte{byte(OP_INT), 7}
	if string(code) != string(want) {
		t.Fatalf("got %v, want %v", code, want)
	}
}

func TestCompileTrueFalseAsIntegerOneZero(t *testing.T) {
	trueNode := ast.New(ast.Integer, op(token.TRUE))
	falseNode := ast.New(ast.Integer, op(token.FALSE))

	trueCode, err := compileNode(trueNode)
	if err != nil {
		t.Fatalf("compile true: %v", err)
	}
	if string(trueCode) != string([]byte{byte(OP_INT), 1}) {
		t.Fatalf("true literal did not compile to INT 1: %v", trueCode)
	}

	falseCode, err := compileNode(falseNode)
	if err != nil {
		t.Fatalf("compile false: %v", err)
	}
	if string(falseCode) != string([]byte{byte(OP_INT), 0}) {
		t.Fatalf("false literal did not compile to INT 0: %v", falseCode)
	}
}

func TestCompileAssignmentEmitsRHSBeforeLHS(t *testing.T) {
	lhs := ast.New(ast.Variable, ident("x")).MarkLHS()
	rhs := ast.New(ast.Integer, num(1))
	assign := ast.New(ast.Assignment, nil, lhs, rhs)

	code, err := compileNode(assign)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	wantRHS := []byte{byte(OP_INT), 1}
	wantLHS := emitNamed(OP_SET, "x")
	want := append(append([]byte{}, wantRHS...), wantLHS...)
	if string(code) != string(want) {
		t.Fatalf("got %v, want %v", code, want)
	}
}

func TestCompileFunctionCallPlacesCalleeLast(t *testing.T) {
	arg := ast.New(ast.Integer, num(3))
	callee := ast.New(ast.Variable, ident("f"))
	call := ast.New(ast.FunctionCall, nil, arg, callee)

	code, err := compileNode(call)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []byte{byte(OP_INT), 3, byte(OP_LST)}
	want = codec.EncodeVarint(want, 1)
	want = append(want, emitNamed(OP_VAR, "f")...)
	want = append(want, byte(OP_CAL))
	if string(code) != string(want) {
		t.Fatalf("got %v, want %v", code, want)
	}
}

func TestCompileMemberReadEmitsIndexThenIterableThenGet(t *testing.T) {
	base := ast.New(ast.Variable, ident("x"))
	index := ast.New(ast.Integer, num(0))
	member := ast.New(ast.Member, nil, index, base)

	code, err := compileNode(member)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := append([]byte{byte(OP_INT), 0}, emitNamed(OP_VAR, "x")...)
	want = append(want, byte(OP_GET))
	if string(code) != string(want) {
		t.Fatalf("got %v, want %v", code, want)
	}
}

func TestCompileMemberWriteEmitsPut(t *testing.T) {
	base := ast.New(ast.Variable, ident("x"))
	index := ast.New(ast.Integer, num(0))
	member := ast.New(ast.Member, nil, index, base).MarkLHS()

	code, err := compileNode(member)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if code[len(code)-1] != byte(OP_PUT) {
		t.Fatalf("expected trailing PUT, got final byte %v", code[len(code)-1])
	}
}

func TestCompileFunctionDeclSetsParamsRightToLeft(t *testing.T) {
	a := ast.New(ast.Variable, ident("a"))
	b := ast.New(ast.Variable, ident("b"))
	body := ast.New(ast.Statements, nil)
	fdecl := ast.New(ast.FunctionDecl, nil, a, b, body)

	code, err := compileNode(fdecl)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if Opcode(code[0]) != OP_FNC {
		t.Fatalf("expected FNC wrapper, got %v", Opcode(code[0]))
	}
	inner, _, err := codec.DecodeBytes(code[1:])
	if err != nil {
		t.Fatalf("decode FNC body: %v", err)
	}
	wantInner := append(emitNamed(OP_SET, "b"), emitNamed(OP_SET, "a")...)
	if string(inner) != string(wantInner) {
		t.Fatalf("params not set right-to-left: got %v, want %v", inner, wantInner)
	}
}

func TestCompilePairProducesOneEntryMap(t *testing.T) {
	key := ast.New(ast.String, ident("k"))
	value := ast.New(ast.Integer, num(1))
	pair := ast.New(ast.Pair, nil, key, value)

	code, err := compileNode(pair)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if code[len(code)-2] != byte(OP_MAP) {
		t.Fatalf("expected trailing MAP opcode, got %v", code)
	}
	n, _, err := codec.DecodeVarint(code[len(code)-1:])
	if err != nil || n != 1 {
		t.Fatalf("expected MAP operand of 1, got %d (err %v)", n, err)
	}
}

func TestCompileTableCountsElementsNotExpandedValues(t *testing.T) {
	plain := ast.New(ast.Integer, num(9))
	pair := ast.New(ast.Pair, nil, ast.New(ast.String, ident("k")), ast.New(ast.Integer, num(1)))
	table := ast.New(ast.Table, nil, plain, pair)

	code, err := compileNode(table)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	last := len(code) - 1
	for code[last-1] != byte(OP_LST) {
		last--
	}
	n, _, err := codec.DecodeVarint(code[last:])
	if err != nil || n != 2 {
		t.Fatalf("expected LST 2 (two elements), got %d (err %v)", n, err)
	}
}

// TestCompileIsDeterministic verifies compiling the same tree twice
// produces byte-identical bytecode, which the disassembler and
// serialization round-trip both depend on.
func TestCompileIsDeterministic(t *testing.T) {
	build := func() *ast.Node {
		cond := ast.New(ast.BinaryExpr, op(token.LARGER), ast.New(ast.Variable, ident("x")), ast.New(ast.Integer, num(0)))
		thenBody := ast.New(ast.Statements, nil, ast.New(ast.Return, nil, ast.New(ast.Integer, num(1))))
		elseBody := ast.New(ast.Statements, nil, ast.New(ast.Return, nil, ast.New(ast.Integer, num(0))))
		ifNode := ast.New(ast.IfThenElse, nil, cond, thenBody, elseBody)
		return ast.New(ast.Statements, nil, ifNode)
	}

	a, err := Compile(build())
	if err != nil {
		t.Fatalf("compile a: %v", err)
	}
	b, err := Compile(build())
	if err != nil {
		t.Fatalf("compile b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("expected identical bytecode for structurally identical trees")
	}
}

func TestIfThenElseBackpatchesEndJumpPastElse(t *testing.T) {
	cond := ast.New(ast.BinaryExpr, op(token.EQUAL_EQUAL), ast.New(ast.Variable, ident("x")), ast.New(ast.Integer, num(0)))
	thenBody := ast.New(ast.Statements, nil, ast.New(ast.Return, nil, ast.New(ast.Integer, num(1))))
	elseBody := ast.New(ast.Statements, nil, ast.New(ast.Return, nil, ast.New(ast.Integer, num(2))))
	ifNode := ast.New(ast.IfThenElse, nil, cond, thenBody, elseBody)

	code, err := compileNode(ifNode)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	text, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(text, "JMP") || !strings.Contains(text, "IF") {
		t.Fatalf("expected IF and JMP in listing:\n%s", text)
	}
	// The else block is a single INT 2 (two bytes), so the then-arm's
	// end jump must skip exactly two bytes.
	if !strings.Contains(text, "JMP 2\n") {
		t.Fatalf("expected the end jump to skip the 2-byte else block:\n%s", text)
	}
}

func TestDisassembleRendersFunctionBodyNested(t *testing.T) {
	param := ast.New(ast.Variable, ident("n"))
	body := ast.New(ast.Statements, nil, ast.New(ast.Return, nil, ast.New(ast.Variable, ident("n"))))
	fdecl := ast.New(ast.FunctionDecl, nil, param, body)

	code, err := compileNode(fdecl)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	text, err := Disassemble(code)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(text, "FNC") {
		t.Fatalf("expected FNC in listing:\n%s", text)
	}
	if !strings.Contains(text, "\n    0003 VAR \"n\"\n") {
		t.Fatalf("expected the body's instructions indented under FNC:\n%s", text)
	}
}
