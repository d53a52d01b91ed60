// Package classfile parses the subset of the JVM class-file format the
// linker needs: the constant pool, fields, methods, and the Code attribute
// with its exception table. Other attributes are skipped.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// Access flags.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSynchronized uint16 = 0x0020
	AccSuper        uint16 = 0x0020
	AccVolatile     uint16 = 0x0040
	AccTransient    uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
)

var (
	ErrBadMagic    = errors.New("not a class file: bad magic")
	ErrTruncated   = errors.New("truncated class file")
	ErrBadConstant = errors.New("bad constant pool entry")
)

// ClassFile is a parsed class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
}

// Member is a field or a method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// Code is nil for fields and for abstract and native methods.
	Code *Code
}

// IsStatic reports whether ACC_STATIC is set.
func (m *Member) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// Signature returns name+descriptor, e.g. "add(II)I".
func (m *Member) Signature() string { return m.Name + m.Descriptor }

// Code is the Code attribute of a method.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytecode  []byte
	Handlers  []Handler
}

// Handler is one exception_table entry. CatchType 0 catches everything.
type Handler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Name returns the internal name of the class.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.ThisClass)
}

// SuperName returns the internal name of the superclass, or "" for
// java/lang/Object.
func (cf *ClassFile) SuperName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.Pool.ClassName(cf.SuperClass)
}

// InterfaceNames returns the internal names of the direct superinterfaces.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		name, err := cf.Pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// IsInterface reports whether ACC_INTERFACE is set.
func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&AccInterface != 0
}

// FindMethod returns the method declared with the given name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *Member {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// reader is a big-endian cursor that latches the first error.
type reader struct {
	data   []byte
	offset int
	err    error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.offset+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.offset, len(r.data)-r.offset)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// Parse parses a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}

	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool

	cf.AccessFlags = r.u2()
	cf.ThisClass = r.u2()
	cf.SuperClass = r.u2()

	count := int(r.u2())
	cf.Interfaces = make([]uint16, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, r.u2())
	}

	if cf.Fields, err = readMembers(r, pool, false); err != nil {
		return nil, err
	}
	if cf.Methods, err = readMembers(r, pool, true); err != nil {
		return nil, err
	}
	// Class attributes carry nothing the linker needs.
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

func readPool(r *reader) (Pool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	pool := make(Pool, count)
	if count > 0 {
		pool[0] = Unusable{}
	}
	for slot := 1; slot < count; slot++ {
		tag := ConstantKind(r.u1())
		var c Constant
		switch tag {
		case KindUtf8:
			n := int(r.u2())
			b := r.bytes(n)
			c = Utf8{Bytes: append([]byte(nil), b...)}
		case KindInteger:
			c = Integer{Value: int32(r.u4())}
		case KindFloat:
			c = Float{Value: math.Float32frombits(r.u4())}
		case KindLong:
			hi, lo := r.u4(), r.u4()
			c = Long{Value: int64(uint64(hi)<<32 | uint64(lo))}
		case KindDouble:
			hi, lo := r.u4(), r.u4()
			c = Double{Value: math.Float64frombits(uint64(hi)<<32 | uint64(lo))}
		case KindClass:
			c = ClassRef{NameIndex: r.u2()}
		case KindString:
			c = StringRef{StringIndex: r.u2()}
		case KindFieldref, KindMethodref, KindInterfaceMethodref:
			c = MemberRef{Tag: tag, ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case KindNameAndType:
			c = NameAndType{NameIndex: r.u2(), DescriptorIndex: r.u2()}
		case KindMethodHandle:
			c = MethodHandle{ReferenceKind: r.u1(), ReferenceIndex: r.u2()}
		case KindMethodType:
			c = MethodType{DescriptorIndex: r.u2()}
		case KindDynamic, KindInvokeDynamic:
			c = Dynamic{Tag: tag, BootstrapMethodAttrIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case KindModule, KindPackage:
			c = ModuleRef{Tag: tag, NameIndex: r.u2()}
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: unknown tag %d at slot %d", ErrBadConstant, tag, slot)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[slot] = c
		// 8-byte constants take two slots.
		if tag == KindLong || tag == KindDouble {
			slot++
			if slot < count {
				pool[slot] = Unusable{}
			}
		}
	}
	return pool, nil
}

func readMembers(r *reader, pool Pool, methods bool) ([]Member, error) {
	count := int(r.u2())
	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		flags := r.u2()
		nameIdx := r.u2()
		descIdx := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("member %d name: %w", i, err)
		}
		desc, err := pool.Utf8(descIdx)
		if err != nil {
			return nil, fmt.Errorf("member %s descriptor: %w", name, err)
		}
		m := Member{AccessFlags: flags, Name: name, Descriptor: desc}

		attrCount := int(r.u2())
		for a := 0; a < attrCount && r.err == nil; a++ {
			attrName, err := pool.Utf8(r.u2())
			length := int(r.u4())
			if r.err != nil {
				return nil, r.err
			}
			if err != nil {
				return nil, fmt.Errorf("member %s attribute name: %w", name, err)
			}
			body := r.bytes(length)
			if r.err != nil {
				return nil, r.err
			}
			if methods && attrName == "Code" {
				code, err := parseCode(body)
				if err != nil {
					return nil, fmt.Errorf("method %s%s: %w", name, desc, err)
				}
				m.Code = code
			}
		}
		members = append(members, m)
	}
	return members, r.err
}

func parseCode(body []byte) (*Code, error) {
	r := &reader{data: body}
	code := &Code{
		MaxStack:  r.u2(),
		MaxLocals: r.u2(),
	}
	length := int(r.u4())
	code.Bytecode = append([]byte(nil), r.bytes(length)...)
	handlers := int(r.u2())
	for i := 0; i < handlers && r.err == nil; i++ {
		code.Handlers = append(code.Handlers, Handler{
			StartPC:   r.u2(),
			EndPC:     r.u2(),
			HandlerPC: r.u2(),
			CatchType: r.u2(),
		})
	}
	// Nested attributes (LineNumberTable, StackMapTable, ...) are ignored.
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	return code, r.err
}

func skipAttributes(r *reader) error {
	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		r.u2()
		r.bytes(int(r.u4()))
	}
	return r.err
}
