package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/pkg/bytecode"
)

// Rewrite patches the operands of every copied method body so that they
// name classes, fields, methods and constants by their image indices.
// Every substitution keeps the instruction's width, so branch offsets stay
// valid. Code using an instruction the interpreter lacks fails the link.
func (s *Session) Rewrite() error {
	if err := s.advance(stageLaidOut, stageRewritten); err != nil {
		return err
	}
	for _, r := range s.code {
		if err := s.rewriteCode(r); err != nil {
			return err
		}
		if len(r.Bytes) != r.copied {
			return &InternalError{Kind: KindCode, Field: "length after rewrite", Expected: r.copied, Actual: len(r.Bytes)}
		}
	}
	log.Infof("rewrite: %d method bodies", len(s.code))
	return nil
}

func (s *Session) rewriteCode(r *CodeRecord) error {
	m := r.Method
	code := r.Bytes
	for pc := 0; pc < len(code); {
		op := bytecode.Opcode(code[pc])
		info := bytecode.GetOpcodeInfo(op)
		if info.Unsupported {
			return methodErr(StageRewrite, m, fmt.Errorf("%w: %s at pc %d", ErrUnsupportedOpcode, info.Name, pc))
		}
		n := op.InstructionLen()
		if pc+n > len(code) {
			return methodErr(StageRewrite, m, fmt.Errorf("%w: %s at pc %d runs past the end of the code", ErrMalformedClass, info.Name, pc))
		}
		if err := s.rewriteInstruction(m, code[pc:pc+n]); err != nil {
			return methodErr(StageRewrite, m, fmt.Errorf("%s at pc %d: %w", info.Name, pc, err))
		}
		pc += n
	}
	return nil
}

// rewriteInstruction patches one instruction in place. insn holds the
// opcode followed by its operands.
func (s *Session) rewriteInstruction(m *MethodEntry, insn []byte) error {
	c := m.Class
	pool := c.File.Pool

	switch bytecode.Opcode(insn[0]) {
	case bytecode.OpLdc:
		e, err := s.literal(c, uint16(insn[1]))
		if err != nil {
			return err
		}
		if e.Index > image.MaxLdcIndex {
			return limitErr("ldc constant index", e.Index, image.MaxLdcIndex)
		}
		insn[1] = byte(e.Index)

	case bytecode.OpLdc2W:
		e, err := s.literal(c, u2(insn[1:]))
		if err != nil {
			return err
		}
		put2(insn[1:], e.Index)

	case bytecode.OpAnewarray:
		insn[0] = byte(bytecode.OpNewarray)
		insn[1] = byte(image.TypeReference)
		insn[2] = byte(bytecode.OpNop)

	case bytecode.OpMultianewarray:
		name, err := pool.ClassName(u2(insn[1:]))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		dims, elem, err := classfile.ArrayShape(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		typ, err := image.TypeOf(elem)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		insn[1] = byte(typ)
		insn[2] = byte(dims)
		// insn[3], the dimensions actually supplied, is kept.

	case bytecode.OpNew, bytecode.OpCheckcast, bytecode.OpInstanceof:
		target, err := s.classRef(c, u2(insn[1:]))
		if err != nil {
			return err
		}
		put2(insn[1:], target.Index)

	case bytecode.OpGetstatic, bytecode.OpPutstatic:
		ref, err := pool.MemberRef(u2(insn[1:]))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		owner, err := s.lookupClass(ref.Class)
		if err != nil {
			return err
		}
		f := resolveStaticField(owner, ref.Name, ref.Descriptor)
		if f == nil {
			return fmt.Errorf("%w: static field %s.%s %s", ErrUnresolved, ref.Class, ref.Name, ref.Descriptor)
		}
		insn[1] = byte(f.Class.Index)
		insn[2] = byte(f.Ordinal)

	case bytecode.OpGetfield, bytecode.OpPutfield:
		ref, err := pool.MemberRef(u2(insn[1:]))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		owner, err := s.lookupClass(ref.Class)
		if err != nil {
			return err
		}
		f := resolveInstanceField(owner, ref.Name, ref.Descriptor)
		if f == nil {
			return fmt.Errorf("%w: field %s.%s %s", ErrUnresolved, ref.Class, ref.Name, ref.Descriptor)
		}
		put2(insn[1:], int(f.Type)<<12|f.ObjectOffset()&0x0FFF)

	case bytecode.OpInvokeinterface:
		word, err := s.dispatchWord(pool, u2(insn[1:]))
		if err != nil {
			return err
		}
		insn[0] = byte(bytecode.OpInvokevirtual)
		put2(insn[1:], word)
		insn[3] = byte(bytecode.OpNop)
		insn[4] = byte(bytecode.OpNop)

	case bytecode.OpInvokevirtual:
		word, err := s.dispatchWord(pool, u2(insn[1:]))
		if err != nil {
			return err
		}
		put2(insn[1:], word)

	case bytecode.OpInvokespecial, bytecode.OpInvokestatic:
		ref, err := pool.MemberRef(u2(insn[1:]))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedClass, err)
		}
		owner, err := s.lookupClass(ref.Class)
		if err != nil {
			return err
		}
		target := resolveMethod(owner, ref.Name, ref.Descriptor)
		if target == nil {
			return fmt.Errorf("%w: method %s.%s%s", ErrUnresolved, ref.Class, ref.Name, ref.Descriptor)
		}
		insn[1] = byte(target.Class.Index)
		insn[2] = byte(target.Ordinal)
	}
	return nil
}

// dispatchWord packs the operand of a virtual call: the argument words
// beyond the receiver in the top four bits, the signature id below.
func (s *Session) dispatchWord(pool classfile.Pool, idx uint16) (int, error) {
	ref, err := pool.MemberRef(idx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	sig := ref.Name + ref.Descriptor
	id, ok := s.signatures.Lookup(sig)
	if !ok {
		return 0, fmt.Errorf("%w: no class in the closure declares %s", ErrUnresolved, sig)
	}
	words, err := classfile.ParameterWords(ref.Descriptor)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	if words >= image.MaxParameterWords {
		return 0, limitErr("parameter words", words+1, image.MaxParameterWords)
	}
	return words<<12 | id, nil
}

// literal returns the constant interned for a pool index. Only string and
// numeric literals can be loaded; class literals and method types cannot.
func (s *Session) literal(c *ClassEntry, idx uint16) (*ConstantEntry, error) {
	if e, ok := c.constantAt(idx); ok {
		return e, nil
	}
	k, err := c.File.Pool.At(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	return nil, fmt.Errorf("%w: loading a %s constant", ErrUnsupportedOpcode, k.Kind())
}

// classRef resolves a CONSTANT_Class operand to a class of the closure.
func (s *Session) classRef(c *ClassEntry, idx uint16) (*ClassEntry, error) {
	name, err := c.File.Pool.ClassName(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	return s.lookupClass(name)
}

func (s *Session) lookupClass(name string) (*ClassEntry, error) {
	if classfile.IsArrayName(name) {
		return nil, fmt.Errorf("%w: array type %s has no class record", ErrUnresolved, name)
	}
	target, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: class %s is not in the closure", ErrUnresolved, name)
	}
	return target, nil
}

// Operands in the instruction stream are big-endian.
func u2(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

func put2(b []byte, v int) {
	binary.BigEndian.PutUint16(b, uint16(v))
}
