// Package compiler lowers a parsed tree into the linear bytecode stream
// the virtual machine executes: a post-order walk emitting one
// instruction sequence per node kind, following the contracts fixed by
// the language's code generation rules.
package compiler

import (
	"fmt"
	"math"

	"filagree/ast"
	"filagree/internal/codec"
	"filagree/token"
)

// JumpWidth is the fixed byte width used for every IF/JMP operand this
// compiler emits. Fixing the width (rather than using the shortest
// canonical varint) lets forward jump targets be computed in a single
// pass: a jump's own encoded size never changes once its target is
// known, so nothing downstream has to be re-measured after a patch.
const JumpWidth = 4

// Compile lowers root into the final length-prefixed bytecode stream:
// <varint total length><code bytes>.
func Compile(root *ast.Node) ([]byte, error) {
	code, err := compileNode(root)
	if err != nil {
		return nil, err
	}
	out := codec.EncodeVarint(nil, int64(len(code)))
	return append(out, code...), nil
}

func compileNode(n *ast.Node) ([]byte, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case ast.Statements:
		return compileStatements(n)
	case ast.Assignment:
		return compileAssignment(n)
	case ast.IfThenElse:
		return compileIfThenElse(n)
	case ast.Loop:
		return compileLoop(n)
	case ast.BinaryExpr:
		return compileBinary(n)
	case ast.UnaryExpr:
		return compileUnary(n)
	case ast.Integer:
		return compileInteger(n)
	case ast.Float:
		return compileFloat(n)
	case ast.String:
		return compileString(n)
	case ast.Variable:
		return compileVariable(n)
	case ast.Table:
		return compileTable(n)
	case ast.Pair:
		return compilePair(n)
	case ast.FunctionDecl:
		return compileFunctionDecl(n)
	case ast.FunctionCall:
		return compileFunctionCall(n)
	case ast.Member:
		return compileMember(n)
	case ast.Return:
		return compileReturn(n)
	default:
		return nil, DeveloperError{Message: fmt.Sprintf("unreachable node kind in codegen: %v", n.Kind)}
	}
}

func compileChildren(children []*ast.Node) ([]byte, error) {
	var code []byte
	for _, c := range children {
		part, err := compileNode(c)
		if err != nil {
			return nil, err
		}
		code = append(code, part...)
	}
	return code, nil
}

func compileStatements(n *ast.Node) ([]byte, error) {
	return compileChildren(n.Children)
}

// compileAssignment emits the RHS code, then the LHS code (which ends
// in SET or PUT because the parser marked its final node is_lhs).
func compileAssignment(n *ast.Node) ([]byte, error) {
	lhs, rhs := n.Children[0], n.Children[1]
	rhsCode, err := compileNode(rhs)
	if err != nil {
		return nil, err
	}
	lhsCode, err := compileNode(lhs)
	if err != nil {
		return nil, err
	}
	return append(rhsCode, lhsCode...), nil
}

func compileInteger(n *ast.Node) ([]byte, error) {
	var value int64
	switch n.Tok.TokenType {
	case token.TRUE:
		value = 1
	case token.FALSE:
		value = 0
	default:
		lit, ok := n.Tok.Literal.(int64)
		if !ok {
			return nil, DeveloperError{Message: "integer node missing int64 literal"}
		}
		value = lit
	}
	code := []byte{byte(OP_INT)}
	return codec.EncodeVarint(code, value), nil
}

func compileFloat(n *ast.Node) ([]byte, error) {
	code := []byte{byte(OP_FLT)}
	return codec.EncodeFloat(code, float32(n.Float)), nil
}

func stringPayload(tok *token.Token) string {
	if s, ok := tok.Literal.(string); ok {
		return s
	}
	return tok.Lexeme
}

func emitNamed(op Opcode, name string) []byte {
	code := []byte{byte(op)}
	return codec.EncodeBytes(code, []byte(name))
}

func compileString(n *ast.Node) ([]byte, error) {
	return emitNamed(OP_STR, stringPayload(n.Tok)), nil
}

func compileVariable(n *ast.Node) ([]byte, error) {
	op := OP_VAR
	if n.IsLHS {
		op = OP_SET
	}
	return emitNamed(op, n.Tok.Lexeme), nil
}

var binaryOps = map[token.TokenType]Opcode{
	token.ADD:         OP_ADD,
	token.SUB:         OP_SUB,
	token.MULT:        OP_MUL,
	token.DIV:         OP_DIV,
	token.EQUAL_EQUAL: OP_EQ,
	token.NOT_EQUAL:   OP_NEQ,
	token.LARGER:      OP_GT,
	token.LESS:        OP_LT,
	token.AND:         OP_AND,
	token.OR:          OP_OR,
}

func compileBinary(n *ast.Node) ([]byte, error) {
	code, err := compileChildren(n.Children)
	if err != nil {
		return nil, err
	}
	op, ok := binaryOps[n.Tok.TokenType]
	if !ok {
		return nil, DeveloperError{Message: fmt.Sprintf("unreachable binary operator token: %s", n.Tok.TokenType)}
	}
	return append(code, byte(op)), nil
}

var unaryOps = map[token.TokenType]Opcode{
	token.SUB: OP_NEG,
	token.NOT: OP_NOT,
}

func compileUnary(n *ast.Node) ([]byte, error) {
	code, err := compileNode(n.Children[0])
	if err != nil {
		return nil, err
	}
	op, ok := unaryOps[n.Tok.TokenType]
	if !ok {
		return nil, DeveloperError{Message: fmt.Sprintf("unreachable unary operator token: %s", n.Tok.TokenType)}
	}
	return append(code, byte(op)), nil
}

// compileMember emits the index, then the indexable, then GET (rvalue)
// or PUT (lvalue) depending on is_lhs.
func compileMember(n *ast.Node) ([]byte, error) {
	index, iterable := n.Children[0], n.Children[1]
	indexCode, err := compileNode(index)
	if err != nil {
		return nil, err
	}
	iterableCode, err := compileNode(iterable)
	if err != nil {
		return nil, err
	}
	op := OP_GET
	if n.IsLHS {
		op = OP_PUT
	}
	code := append(indexCode, iterableCode...)
	return append(code, byte(op)), nil
}

// compileFunctionCall emits the arguments, bundles them into a single
// source-tuple with LST (so CAL always has an exact, statically-known
// argument count despite carrying no operand of its own), then the
// callee, then CAL. The callee ends up on top so CAL pops it first,
// then pops the tuple beneath it.
func compileFunctionCall(n *ast.Node) ([]byte, error) {
	args := n.Children[:len(n.Children)-1]
	callee := n.Children[len(n.Children)-1]

	code, err := compileChildren(args)
	if err != nil {
		return nil, err
	}
	code = append(code, byte(OP_LST))
	code = codec.EncodeVarint(code, int64(len(args)))

	calleeCode, err := compileNode(callee)
	if err != nil {
		return nil, err
	}
	code = append(code, calleeCode...)
	return append(code, byte(OP_CAL)), nil
}

// compileReturn emits the returned expression with no distinguishing
// opcode; control propagates back through the enclosing CAL.
func compileReturn(n *ast.Node) ([]byte, error) {
	return compileNode(n.Children[0])
}

// compilePair emits its key then its value, then wraps both into a
// single one-entry map value (MAP 1). This makes a pair a single stack
// item from the perspective of an enclosing table's LST count, which is
// what lets the VM coalesce it into the list's map side-table instead
// of a positional slot.
func compilePair(n *ast.Node) ([]byte, error) {
	code, err := compileChildren(n.Children)
	if err != nil {
		return nil, err
	}
	code = append(code, byte(OP_MAP))
	return codec.EncodeVarint(code, 1), nil
}

// compileTable emits each element (plain values and/or pair-produced
// one-entry maps) then LST n, where n is the number of top-level
// elements — not the number of stack values they expand to.
func compileTable(n *ast.Node) ([]byte, error) {
	code, err := compileChildren(n.Children)
	if err != nil {
		return nil, err
	}
	code = append(code, byte(OP_LST))
	return codec.EncodeVarint(code, int64(len(n.Children))), nil
}

// compileFunctionDecl emits, for each parameter right-to-left, SET
// <name>, then the body, then wraps the whole thing as a FNC carrying
// the result as a length-prefixed byte string. Parameters are consumed
// right-to-left because CAL leaves them sitting on the shared operand
// stack in left-to-right push order, and SET pops in LIFO order.
func compileFunctionDecl(n *ast.Node) ([]byte, error) {
	params := n.Children[:len(n.Children)-1]
	body := n.Children[len(n.Children)-1]

	var code []byte
	for i := len(params) - 1; i >= 0; i-- {
		code = append(code, emitNamed(OP_SET, params[i].Tok.Lexeme)...)
	}
	bodyCode, err := compileNode(body)
	if err != nil {
		return nil, err
	}
	code = append(code, bodyCode...)

	out := []byte{byte(OP_FNC)}
	return codec.EncodeBytes(out, code), nil
}

// appendFixedVarint encodes n using the varint scheme but pads the
// encoding to exactly width bytes with zero-payload continuation bytes,
// so a jump target can be reserved and overwritten in place without
// shifting any bytes already emitted after it.
func appendFixedVarint(dst []byte, n int64, width int) []byte {
	sign := byte(0)
	var mag uint64
	if n < 0 {
		sign = 1
		mag = uint64(-n)
	} else {
		mag = uint64(n)
	}
	buf := make([]byte, width)
	buf[0] = byte(mag&0x3F) | sign<<6
	mag >>= 6
	if width > 1 {
		buf[0] |= 0x80
	}
	for i := 1; i < width; i++ {
		b := byte(mag & 0x7F)
		mag >>= 7
		if i < width-1 {
			b |= 0x80
		}
		buf[i] = b
	}
	return append(dst, buf...)
}

// compileIfThenElse lays out, per arm: <cond> IF <skip> <then-block>
// JMP <to-end>, repeated for each else-if arm, followed by a verbatim
// final else block (no trailing jump). Each arm's IF skip distance is
// fully known once its then-block and trailing jump are generated,
// requiring no patch; only the trailing jumps' distance to the very end
// of the construct is unknown until every arm has been emitted, so
// those positions are recorded and overwritten afterward.
func compileIfThenElse(n *ast.Node) ([]byte, error) {
	var code []byte
	var endJumpPatches []int

	children := n.Children
	i := 0
	for i < len(children) {
		if len(children)-i == 1 {
			elseCode, err := compileNode(children[i])
			if err != nil {
				return nil, err
			}
			code = append(code, elseCode...)
			break
		}

		condCode, err := compileNode(children[i])
		if err != nil {
			return nil, err
		}
		thenCode, err := compileNode(children[i+1])
		if err != nil {
			return nil, err
		}

		code = append(code, condCode...)
		code = append(code, byte(OP_IF))
		skip := len(thenCode) + 1 + JumpWidth
		code = appendFixedVarint(code, int64(skip), JumpWidth)
		code = append(code, thenCode...)

		code = append(code, byte(OP_JMP))
		patchPos := len(code)
		code = appendFixedVarint(code, 0, JumpWidth)
		endJumpPatches = append(endJumpPatches, patchPos)

		i += 2
	}

	for _, pos := range endJumpPatches {
		offset := len(code) - (pos + JumpWidth)
		patched := appendFixedVarint(nil, int64(offset), JumpWidth)
		copy(code[pos:pos+JumpWidth], patched)
	}
	return code, nil
}

// compileLoop emits <cond> IF <len(body)+back-jump> <body> JMP
// -(total length), jumping back before the condition on every
// iteration until it evaluates falsy.
func compileLoop(n *ast.Node) ([]byte, error) {
	cond, body := n.Children[0], n.Children[1]
	condCode, err := compileNode(cond)
	if err != nil {
		return nil, err
	}
	bodyCode, err := compileNode(body)
	if err != nil {
		return nil, err
	}

	ifSkip := len(bodyCode) + 1 + JumpWidth
	totalLen := len(condCode) + 1 + JumpWidth + len(bodyCode) + 1 + JumpWidth

	var code []byte
	code = append(code, condCode...)
	code = append(code, byte(OP_IF))
	code = appendFixedVarint(code, int64(ifSkip), JumpWidth)
	code = append(code, bodyCode...)
	code = append(code, byte(OP_JMP))
	code = appendFixedVarint(code, -int64(totalLen), JumpWidth)
	return code, nil
}

// maxJumpPayload bounds how large a program this fixed-width jump
// encoding can address without silently truncating an offset.
var maxJumpPayload = int64(math.Pow(2, 6+7*(JumpWidth-1)))
