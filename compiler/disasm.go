package compiler

import (
	"fmt"
	"strings"

	"filagree/internal/codec"
	"filagree/internal/container"
)

// Disassemble renders a compiled instruction stream (the bytes that
// follow the outer length prefix) as one human-readable line per
// instruction, each prefixed with its byte offset. It is the bytecode
// analogue of the AST printer: useful for debugging a miscompiled
// program.
func Disassemble(code []byte) (string, error) {
	var b strings.Builder
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		operandStart := pos + 1
		text, width, err := disassembleOperand(op, code[operandStart:])
		if err != nil {
			return "", errAt(pos, err)
		}
		fmt.Fprintf(&b, "%04d %s%s\n", pos, op, text)
		pos = operandStart + width
	}
	return b.String(), nil
}

func errAt(pos int, err error) error {
	return fmt.Errorf("disassemble at offset %d: %w", pos, err)
}

// disassembleOperand decodes the operand (if any) that follows op,
// returning its printable form and the number of bytes it occupies.
func disassembleOperand(op Opcode, rest []byte) (string, int, error) {
	switch op {
	case OP_INT, OP_LST, OP_MAP:
		n, width, err := codec.DecodeVarint(rest)
		if err != nil {
			return "", 0, err
		}
		return fmt.Sprintf(" %d", n), width, nil
	case OP_IF, OP_JMP:
		if len(rest) < JumpWidth {
			return "", 0, codec.ErrTruncated
		}
		n, _, err := codec.DecodeVarint(rest[:JumpWidth])
		if err != nil {
			return "", 0, err
		}
		return fmt.Sprintf(" %d", n), JumpWidth, nil
	case OP_FLT:
		f, width, err := codec.DecodeFloat(rest)
		if err != nil {
			return "", 0, err
		}
		return fmt.Sprintf(" %g", f), width, nil
	case OP_STR, OP_VAR, OP_SET, OP_FNC:
		payload, width, err := codec.DecodeBytes(rest)
		if err != nil {
			return "", 0, err
		}
		if op == OP_FNC {
			inner, ierr := Disassemble(payload)
			if ierr != nil {
				return "", 0, ierr
			}
			indented := strings.ReplaceAll(strings.TrimRight(inner, "\n"), "\n", "\n    ")
			return fmt.Sprintf(" {\n    %s\n}", indented), width, nil
		}
		return fmt.Sprintf(" %q", payload), width, nil
	default:
		return "", 0, nil
	}
}

// DumpBytecode writes the length-prefixed bytecode stream to path
// verbatim, mirroring the teacher's hex-dump-to-file emit step.
func DumpBytecode(path string, stream []byte) error {
	return container.WriteFile(path, stream)
}

// WriteDisassembly disassembles the instructions following the stream's
// length prefix and writes the listing to path.
func WriteDisassembly(path string, stream []byte) error {
	_, n, err := codec.DecodeVarint(stream)
	if err != nil {
		return err
	}
	text, err := Disassemble(stream[n:])
	if err != nil {
		return err
	}
	return container.WriteFile(path, []byte(text))
}
