// Package bytecode describes the JVM instruction set as the linker sees it.
//
// The opcode table records each instruction's mnemonic, its fixed operand
// length and whether the target interpreter can execute it. The linker walks
// method code one instruction at a time using InstructionLen, so every
// variable-length instruction (tableswitch, lookupswitch, wide) is also
// marked unsupported: code containing one is rejected before its length
// would matter.
//
// # Operand encoding
//
// Operands inside the instruction stream stay big-endian, as in a class
// file, whatever byte order the surrounding image uses. After linking, the
// operands of the rewritten instructions carry interpreter indices:
//
//	new, checkcast, instanceof   u2 class index
//	anewarray                    u1 0, u1 nop
//	multianewarray               u1 element type, u1 dims, u1 (unchanged)
//	getstatic, putstatic         u1 class index, u1 static field ordinal
//	getfield, putfield           u2 type<<12 | field byte offset
//	invokestatic, invokespecial  u1 class index, u1 method ordinal
//	invokevirtual                u2 extra words<<12 | signature id
//	ldc                          u1 constant index
//	ldc2_w                       u2 constant index
//
// Disassemble prints linked code in that form.
package bytecode
