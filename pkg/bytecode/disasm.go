package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a listing of linked method code, one instruction per
// line. Operands are decoded the way the linker packs them, so the listing
// shows class, field, method and signature indices rather than constant-pool
// references.
func Disassemble(code []byte) string {
	return DisassembleWithName(code, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(code []byte, name string) string {
	var sb strings.Builder
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	offset := 0
	for offset < len(code) {
		line, n := disassembleInstruction(code, offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		if n <= 0 {
			break
		}
		offset += n
	}
	return sb.String()
}

// disassembleInstruction formats the instruction at offset.
// Returns the formatted string and the instruction length (0 if the
// instruction cannot be decoded).
func disassembleInstruction(code []byte, offset int) (string, int) {
	op := Opcode(code[offset])
	info := GetOpcodeInfo(op)
	if info.OperandLen == OperandVariable {
		return fmt.Sprintf("%s <variable length>", info.Name), 0
	}
	n := 1 + info.OperandLen
	if offset+n > len(code) {
		return fmt.Sprintf("%s <truncated>", info.Name), 0
	}
	operands := code[offset+1 : offset+n]

	switch op {
	case OpBipush:
		return fmt.Sprintf("%s %d", info.Name, int8(operands[0])), n
	case OpSipush:
		return fmt.Sprintf("%s %d", info.Name, int16(u16(operands))), n
	case OpLdc:
		return fmt.Sprintf("%s const=%d", info.Name, operands[0]), n
	case OpLdc2W:
		return fmt.Sprintf("%s const=%d", info.Name, u16(operands)), n
	case OpIinc:
		return fmt.Sprintf("%s %d %d", info.Name, operands[0], int8(operands[1])), n
	case OpNewarray:
		return fmt.Sprintf("%s type=%d", info.Name, operands[0]), n
	case OpNew, OpCheckcast, OpInstanceof, OpAnewarray:
		return fmt.Sprintf("%s class=%d", info.Name, u16(operands)), n
	case OpMultianewarray:
		return fmt.Sprintf("%s type=%d dims=%d requested=%d", info.Name, operands[0], operands[1], operands[2]), n
	case OpGetstatic, OpPutstatic:
		return fmt.Sprintf("%s class=%d field=%d", info.Name, operands[0], operands[1]), n
	case OpGetfield, OpPutfield:
		v := u16(operands)
		return fmt.Sprintf("%s type=%d offset=%d", info.Name, v>>12, v&0x0FFF), n
	case OpInvokespecial, OpInvokestatic:
		return fmt.Sprintf("%s class=%d method=%d", info.Name, operands[0], operands[1]), n
	case OpInvokevirtual, OpInvokeinterface:
		v := u16(operands)
		return fmt.Sprintf("%s args=%d sig=%d", info.Name, v>>12, v&0x0FFF), n
	}

	if op.IsBranch() {
		target := offset + int(int16(u16(operands)))
		return fmt.Sprintf("%s %04X", info.Name, target), n
	}

	switch info.OperandLen {
	case 0:
		return info.Name, n
	case 1:
		return fmt.Sprintf("%s %d", info.Name, operands[0]), n
	case 2:
		return fmt.Sprintf("%s %d", info.Name, u16(operands)), n
	default:
		return fmt.Sprintf("%s % X", info.Name, operands), n
	}
}

// Bytecode operands are big-endian regardless of the image byte order.
func u16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}
