package bytecode

import "fmt"

// Opcode is a JVM instruction opcode.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop        Opcode = 0x00
	OpAconstNull Opcode = 0x01
	OpIconstM1   Opcode = 0x02
	OpIconst0    Opcode = 0x03
	OpIconst1    Opcode = 0x04
	OpIconst2    Opcode = 0x05
	OpIconst3    Opcode = 0x06
	OpIconst4    Opcode = 0x07
	OpIconst5    Opcode = 0x08
	OpLconst0    Opcode = 0x09
	OpLconst1    Opcode = 0x0A
	OpFconst0    Opcode = 0x0B
	OpFconst1    Opcode = 0x0C
	OpFconst2    Opcode = 0x0D
	OpDconst0    Opcode = 0x0E
	OpDconst1    Opcode = 0x0F
	OpBipush     Opcode = 0x10
	OpSipush     Opcode = 0x11
	OpLdc        Opcode = 0x12
	OpLdcW       Opcode = 0x13
	OpLdc2W      Opcode = 0x14

	// ========================================================================
	// Loads (0x15-0x35)
	// ========================================================================

	OpIload  Opcode = 0x15
	OpLload  Opcode = 0x16
	OpFload  Opcode = 0x17
	OpDload  Opcode = 0x18
	OpAload  Opcode = 0x19
	OpIload0 Opcode = 0x1A
	OpIload1 Opcode = 0x1B
	OpIload2 Opcode = 0x1C
	OpIload3 Opcode = 0x1D
	OpLload0 Opcode = 0x1E
	OpLload1 Opcode = 0x1F
	OpLload2 Opcode = 0x20
	OpLload3 Opcode = 0x21
	OpFload0 Opcode = 0x22
	OpFload1 Opcode = 0x23
	OpFload2 Opcode = 0x24
	OpFload3 Opcode = 0x25
	OpDload0 Opcode = 0x26
	OpDload1 Opcode = 0x27
	OpDload2 Opcode = 0x28
	OpDload3 Opcode = 0x29
	OpAload0 Opcode = 0x2A
	OpAload1 Opcode = 0x2B
	OpAload2 Opcode = 0x2C
	OpAload3 Opcode = 0x2D
	OpIaload Opcode = 0x2E
	OpLaload Opcode = 0x2F
	OpFaload Opcode = 0x30
	OpDaload Opcode = 0x31
	OpAaload Opcode = 0x32
	OpBaload Opcode = 0x33
	OpCaload Opcode = 0x34
	OpSaload Opcode = 0x35

	// ========================================================================
	// Stores (0x36-0x56)
	// ========================================================================

	OpIstore  Opcode = 0x36
	OpLstore  Opcode = 0x37
	OpFstore  Opcode = 0x38
	OpDstore  Opcode = 0x39
	OpAstore  Opcode = 0x3A
	OpIstore0 Opcode = 0x3B
	OpIstore1 Opcode = 0x3C
	OpIstore2 Opcode = 0x3D
	OpIstore3 Opcode = 0x3E
	OpLstore0 Opcode = 0x3F
	OpLstore1 Opcode = 0x40
	OpLstore2 Opcode = 0x41
	OpLstore3 Opcode = 0x42
	OpFstore0 Opcode = 0x43
	OpFstore1 Opcode = 0x44
	OpFstore2 Opcode = 0x45
	OpFstore3 Opcode = 0x46
	OpDstore0 Opcode = 0x47
	OpDstore1 Opcode = 0x48
	OpDstore2 Opcode = 0x49
	OpDstore3 Opcode = 0x4A
	OpAstore0 Opcode = 0x4B
	OpAstore1 Opcode = 0x4C
	OpAstore2 Opcode = 0x4D
	OpAstore3 Opcode = 0x4E
	OpIastore Opcode = 0x4F
	OpLastore Opcode = 0x50
	OpFastore Opcode = 0x51
	OpDastore Opcode = 0x52
	OpAastore Opcode = 0x53
	OpBastore Opcode = 0x54
	OpCastore Opcode = 0x55
	OpSastore Opcode = 0x56

	// ========================================================================
	// Stack (0x57-0x5F)
	// ========================================================================

	OpPop    Opcode = 0x57
	OpPop2   Opcode = 0x58
	OpDup    Opcode = 0x59
	OpDupX1  Opcode = 0x5A
	OpDupX2  Opcode = 0x5B
	OpDup2   Opcode = 0x5C
	OpDup2X1 Opcode = 0x5D
	OpDup2X2 Opcode = 0x5E
	OpSwap   Opcode = 0x5F

	// ========================================================================
	// Arithmetic and logic (0x60-0x84)
	// ========================================================================

	OpIadd  Opcode = 0x60
	OpLadd  Opcode = 0x61
	OpFadd  Opcode = 0x62
	OpDadd  Opcode = 0x63
	OpIsub  Opcode = 0x64
	OpLsub  Opcode = 0x65
	OpFsub  Opcode = 0x66
	OpDsub  Opcode = 0x67
	OpImul  Opcode = 0x68
	OpLmul  Opcode = 0x69
	OpFmul  Opcode = 0x6A
	OpDmul  Opcode = 0x6B
	OpIdiv  Opcode = 0x6C
	OpLdiv  Opcode = 0x6D
	OpFdiv  Opcode = 0x6E
	OpDdiv  Opcode = 0x6F
	OpIrem  Opcode = 0x70
	OpLrem  Opcode = 0x71
	OpFrem  Opcode = 0x72
	OpDrem  Opcode = 0x73
	OpIneg  Opcode = 0x74
	OpLneg  Opcode = 0x75
	OpFneg  Opcode = 0x76
	OpDneg  Opcode = 0x77
	OpIshl  Opcode = 0x78
	OpLshl  Opcode = 0x79
	OpIshr  Opcode = 0x7A
	OpLshr  Opcode = 0x7B
	OpIushr Opcode = 0x7C
	OpLushr Opcode = 0x7D
	OpIand  Opcode = 0x7E
	OpLand  Opcode = 0x7F
	OpIor   Opcode = 0x80
	OpLor   Opcode = 0x81
	OpIxor  Opcode = 0x82
	OpLxor  Opcode = 0x83
	OpIinc  Opcode = 0x84

	// ========================================================================
	// Conversions (0x85-0x93)
	// ========================================================================

	OpI2l Opcode = 0x85
	OpI2f Opcode = 0x86
	OpI2d Opcode = 0x87
	OpL2i Opcode = 0x88
	OpL2f Opcode = 0x89
	OpL2d Opcode = 0x8A
	OpF2i Opcode = 0x8B
	OpF2l Opcode = 0x8C
	OpF2d Opcode = 0x8D
	OpD2i Opcode = 0x8E
	OpD2l Opcode = 0x8F
	OpD2f Opcode = 0x90
	OpI2b Opcode = 0x91
	OpI2c Opcode = 0x92
	OpI2s Opcode = 0x93

	// ========================================================================
	// Comparisons and branches (0x94-0xA9)
	// ========================================================================

	OpLcmp     Opcode = 0x94
	OpFcmpl    Opcode = 0x95
	OpFcmpg    Opcode = 0x96
	OpDcmpl    Opcode = 0x97
	OpDcmpg    Opcode = 0x98
	OpIfeq     Opcode = 0x99
	OpIfne     Opcode = 0x9A
	OpIflt     Opcode = 0x9B
	OpIfge     Opcode = 0x9C
	OpIfgt     Opcode = 0x9D
	OpIfle     Opcode = 0x9E
	OpIfIcmpeq Opcode = 0x9F
	OpIfIcmpne Opcode = 0xA0
	OpIfIcmplt Opcode = 0xA1
	OpIfIcmpge Opcode = 0xA2
	OpIfIcmpgt Opcode = 0xA3
	OpIfIcmple Opcode = 0xA4
	OpIfAcmpeq Opcode = 0xA5
	OpIfAcmpne Opcode = 0xA6
	OpGoto     Opcode = 0xA7
	OpJsr      Opcode = 0xA8
	OpRet      Opcode = 0xA9

	// ========================================================================
	// Switches and returns (0xAA-0xB1)
	// ========================================================================

	OpTableswitch  Opcode = 0xAA
	OpLookupswitch Opcode = 0xAB
	OpIreturn      Opcode = 0xAC
	OpLreturn      Opcode = 0xAD
	OpFreturn      Opcode = 0xAE
	OpDreturn      Opcode = 0xAF
	OpAreturn      Opcode = 0xB0
	OpReturn       Opcode = 0xB1

	// ========================================================================
	// References (0xB2-0xC3)
	// ========================================================================

	OpGetstatic       Opcode = 0xB2
	OpPutstatic       Opcode = 0xB3
	OpGetfield        Opcode = 0xB4
	OpPutfield        Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9
	OpInvokedynamic   Opcode = 0xBA
	OpNew             Opcode = 0xBB
	OpNewarray        Opcode = 0xBC
	OpAnewarray       Opcode = 0xBD
	OpArraylength     Opcode = 0xBE
	OpAthrow          Opcode = 0xBF
	OpCheckcast       Opcode = 0xC0
	OpInstanceof      Opcode = 0xC1
	OpMonitorenter    Opcode = 0xC2
	OpMonitorexit     Opcode = 0xC3

	// ========================================================================
	// Extended (0xC4-0xCA)
	// ========================================================================

	OpWide           Opcode = 0xC4
	OpMultianewarray Opcode = 0xC5
	OpIfnull         Opcode = 0xC6
	OpIfnonnull      Opcode = 0xC7
	OpGotoW          Opcode = 0xC8
	OpJsrW           Opcode = 0xC9
	OpBreakpoint     Opcode = 0xCA
)

// OperandVariable marks instructions whose length depends on their operands
// (tableswitch, lookupswitch, wide).
const OperandVariable = -1

// OpcodeInfo provides metadata about each opcode for rewriting and
// disassembly.
type OpcodeInfo struct {
	Name        string // JVM mnemonic
	OperandLen  int    // Number of operand bytes following the opcode, or OperandVariable
	Unsupported bool   // Rejected by the linker: the target interpreter has no implementation
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:             {"nop", 0, false},
	OpAconstNull:      {"aconst_null", 0, false},
	OpIconstM1:        {"iconst_m1", 0, false},
	OpIconst0:         {"iconst_0", 0, false},
	OpIconst1:         {"iconst_1", 0, false},
	OpIconst2:         {"iconst_2", 0, false},
	OpIconst3:         {"iconst_3", 0, false},
	OpIconst4:         {"iconst_4", 0, false},
	OpIconst5:         {"iconst_5", 0, false},
	OpLconst0:         {"lconst_0", 0, false},
	OpLconst1:         {"lconst_1", 0, false},
	OpFconst0:         {"fconst_0", 0, false},
	OpFconst1:         {"fconst_1", 0, false},
	OpFconst2:         {"fconst_2", 0, false},
	OpDconst0:         {"dconst_0", 0, false},
	OpDconst1:         {"dconst_1", 0, false},
	OpBipush:          {"bipush", 1, false},
	OpSipush:          {"sipush", 2, false},
	OpLdc:             {"ldc", 1, false},
	OpLdcW:            {"ldc_w", 2, true},
	OpLdc2W:           {"ldc2_w", 2, false},
	OpIload:           {"iload", 1, false},
	OpLload:           {"lload", 1, false},
	OpFload:           {"fload", 1, false},
	OpDload:           {"dload", 1, false},
	OpAload:           {"aload", 1, false},
	OpIload0:          {"iload_0", 0, false},
	OpIload1:          {"iload_1", 0, false},
	OpIload2:          {"iload_2", 0, false},
	OpIload3:          {"iload_3", 0, false},
	OpLload0:          {"lload_0", 0, false},
	OpLload1:          {"lload_1", 0, false},
	OpLload2:          {"lload_2", 0, false},
	OpLload3:          {"lload_3", 0, false},
	OpFload0:          {"fload_0", 0, false},
	OpFload1:          {"fload_1", 0, false},
	OpFload2:          {"fload_2", 0, false},
	OpFload3:          {"fload_3", 0, false},
	OpDload0:          {"dload_0", 0, false},
	OpDload1:          {"dload_1", 0, false},
	OpDload2:          {"dload_2", 0, false},
	OpDload3:          {"dload_3", 0, false},
	OpAload0:          {"aload_0", 0, false},
	OpAload1:          {"aload_1", 0, false},
	OpAload2:          {"aload_2", 0, false},
	OpAload3:          {"aload_3", 0, false},
	OpIaload:          {"iaload", 0, false},
	OpLaload:          {"laload", 0, false},
	OpFaload:          {"faload", 0, false},
	OpDaload:          {"daload", 0, false},
	OpAaload:          {"aaload", 0, false},
	OpBaload:          {"baload", 0, false},
	OpCaload:          {"caload", 0, false},
	OpSaload:          {"saload", 0, false},
	OpIstore:          {"istore", 1, false},
	OpLstore:          {"lstore", 1, false},
	OpFstore:          {"fstore", 1, false},
	OpDstore:          {"dstore", 1, false},
	OpAstore:          {"astore", 1, false},
	OpIstore0:         {"istore_0", 0, false},
	OpIstore1:         {"istore_1", 0, false},
	OpIstore2:         {"istore_2", 0, false},
	OpIstore3:         {"istore_3", 0, false},
	OpLstore0:         {"lstore_0", 0, false},
	OpLstore1:         {"lstore_1", 0, false},
	OpLstore2:         {"lstore_2", 0, false},
	OpLstore3:         {"lstore_3", 0, false},
	OpFstore0:         {"fstore_0", 0, false},
	OpFstore1:         {"fstore_1", 0, false},
	OpFstore2:         {"fstore_2", 0, false},
	OpFstore3:         {"fstore_3", 0, false},
	OpDstore0:         {"dstore_0", 0, false},
	OpDstore1:         {"dstore_1", 0, false},
	OpDstore2:         {"dstore_2", 0, false},
	OpDstore3:         {"dstore_3", 0, false},
	OpAstore0:         {"astore_0", 0, false},
	OpAstore1:         {"astore_1", 0, false},
	OpAstore2:         {"astore_2", 0, false},
	OpAstore3:         {"astore_3", 0, false},
	OpIastore:         {"iastore", 0, false},
	OpLastore:         {"lastore", 0, false},
	OpFastore:         {"fastore", 0, false},
	OpDastore:         {"dastore", 0, false},
	OpAastore:         {"aastore", 0, false},
	OpBastore:         {"bastore", 0, false},
	OpCastore:         {"castore", 0, false},
	OpSastore:         {"sastore", 0, false},
	OpPop:             {"pop", 0, false},
	OpPop2:            {"pop2", 0, false},
	OpDup:             {"dup", 0, false},
	OpDupX1:           {"dup_x1", 0, false},
	OpDupX2:           {"dup_x2", 0, false},
	OpDup2:            {"dup2", 0, false},
	OpDup2X1:          {"dup2_x1", 0, false},
	OpDup2X2:          {"dup2_x2", 0, false},
	OpSwap:            {"swap", 0, false},
	OpIadd:            {"iadd", 0, false},
	OpLadd:            {"ladd", 0, true},
	OpFadd:            {"fadd", 0, false},
	OpDadd:            {"dadd", 0, false},
	OpIsub:            {"isub", 0, false},
	OpLsub:            {"lsub", 0, true},
	OpFsub:            {"fsub", 0, false},
	OpDsub:            {"dsub", 0, false},
	OpImul:            {"imul", 0, false},
	OpLmul:            {"lmul", 0, true},
	OpFmul:            {"fmul", 0, false},
	OpDmul:            {"dmul", 0, false},
	OpIdiv:            {"idiv", 0, false},
	OpLdiv:            {"ldiv", 0, true},
	OpFdiv:            {"fdiv", 0, false},
	OpDdiv:            {"ddiv", 0, false},
	OpIrem:            {"irem", 0, false},
	OpLrem:            {"lrem", 0, true},
	OpFrem:            {"frem", 0, true},
	OpDrem:            {"drem", 0, true},
	OpIneg:            {"ineg", 0, false},
	OpLneg:            {"lneg", 0, true},
	OpFneg:            {"fneg", 0, false},
	OpDneg:            {"dneg", 0, false},
	OpIshl:            {"ishl", 0, false},
	OpLshl:            {"lshl", 0, true},
	OpIshr:            {"ishr", 0, false},
	OpLshr:            {"lshr", 0, true},
	OpIushr:           {"iushr", 0, false},
	OpLushr:           {"lushr", 0, true},
	OpIand:            {"iand", 0, false},
	OpLand:            {"land", 0, true},
	OpIor:             {"ior", 0, false},
	OpLor:             {"lor", 0, true},
	OpIxor:            {"ixor", 0, false},
	OpLxor:            {"lxor", 0, true},
	OpIinc:            {"iinc", 2, false},
	OpI2l:             {"i2l", 0, false},
	OpI2f:             {"i2f", 0, false},
	OpI2d:             {"i2d", 0, false},
	OpL2i:             {"l2i", 0, false},
	OpL2f:             {"l2f", 0, false},
	OpL2d:             {"l2d", 0, false},
	OpF2i:             {"f2i", 0, false},
	OpF2l:             {"f2l", 0, false},
	OpF2d:             {"f2d", 0, false},
	OpD2i:             {"d2i", 0, false},
	OpD2l:             {"d2l", 0, false},
	OpD2f:             {"d2f", 0, false},
	OpI2b:             {"i2b", 0, false},
	OpI2c:             {"i2c", 0, false},
	OpI2s:             {"i2s", 0, false},
	OpLcmp:            {"lcmp", 0, true},
	OpFcmpl:           {"fcmpl", 0, false},
	OpFcmpg:           {"fcmpg", 0, false},
	OpDcmpl:           {"dcmpl", 0, false},
	OpDcmpg:           {"dcmpg", 0, false},
	OpIfeq:            {"ifeq", 2, false},
	OpIfne:            {"ifne", 2, false},
	OpIflt:            {"iflt", 2, false},
	OpIfge:            {"ifge", 2, false},
	OpIfgt:            {"ifgt", 2, false},
	OpIfle:            {"ifle", 2, false},
	OpIfIcmpeq:        {"if_icmpeq", 2, false},
	OpIfIcmpne:        {"if_icmpne", 2, false},
	OpIfIcmplt:        {"if_icmplt", 2, false},
	OpIfIcmpge:        {"if_icmpge", 2, false},
	OpIfIcmpgt:        {"if_icmpgt", 2, false},
	OpIfIcmple:        {"if_icmple", 2, false},
	OpIfAcmpeq:        {"if_acmpeq", 2, false},
	OpIfAcmpne:        {"if_acmpne", 2, false},
	OpGoto:            {"goto", 2, false},
	OpJsr:             {"jsr", 2, false},
	OpRet:             {"ret", 1, false},
	OpTableswitch:     {"tableswitch", -1, true},
	OpLookupswitch:    {"lookupswitch", -1, true},
	OpIreturn:         {"ireturn", 0, false},
	OpLreturn:         {"lreturn", 0, false},
	OpFreturn:         {"freturn", 0, false},
	OpDreturn:         {"dreturn", 0, false},
	OpAreturn:         {"areturn", 0, false},
	OpReturn:          {"return", 0, false},
	OpGetstatic:       {"getstatic", 2, false},
	OpPutstatic:       {"putstatic", 2, false},
	OpGetfield:        {"getfield", 2, false},
	OpPutfield:        {"putfield", 2, false},
	OpInvokevirtual:   {"invokevirtual", 2, false},
	OpInvokespecial:   {"invokespecial", 2, false},
	OpInvokestatic:    {"invokestatic", 2, false},
	OpInvokeinterface: {"invokeinterface", 4, false},
	OpInvokedynamic:   {"invokedynamic", 4, true},
	OpNew:             {"new", 2, false},
	OpNewarray:        {"newarray", 1, false},
	OpAnewarray:       {"anewarray", 2, false},
	OpArraylength:     {"arraylength", 0, false},
	OpAthrow:          {"athrow", 0, false},
	OpCheckcast:       {"checkcast", 2, false},
	OpInstanceof:      {"instanceof", 2, false},
	OpMonitorenter:    {"monitorenter", 0, false},
	OpMonitorexit:     {"monitorexit", 0, false},
	OpWide:            {"wide", -1, true},
	OpMultianewarray:  {"multianewarray", 3, false},
	OpIfnull:          {"ifnull", 2, false},
	OpIfnonnull:       {"ifnonnull", 2, false},
	OpGotoW:           {"goto_w", 4, true},
	OpJsrW:            {"jsr_w", 4, true},
	OpBreakpoint:      {"breakpoint", 0, true},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an unsupported OpcodeInfo named "UNKNOWN(0xNN)" if the opcode is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Unsupported: true}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of a fixed-width instruction
// (1 + operand bytes), or OperandVariable.
func (op Opcode) InstructionLen() int {
	n := op.OperandLen()
	if n == OperandVariable {
		return OperandVariable
	}
	return 1 + n
}

// IsBranch reports whether the instruction carries a relative 16-bit branch offset.
func (op Opcode) IsBranch() bool {
	return (op >= OpIfeq && op <= OpJsr) || op == OpIfnull || op == OpIfnonnull
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
