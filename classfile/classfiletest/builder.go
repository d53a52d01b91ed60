// Package classfiletest assembles small class files in memory so tests can
// exercise the parser and the linker without a Java compiler.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/chazu/tinylink/classfile"
)

// Class is a class file under construction. Pool helpers return the index
// of an entry, adding it on first use.
type Class struct {
	name    string
	pool    bytes.Buffer
	count   uint16
	utf8s   map[string]uint16
	keyed   map[string]uint16
	flags   uint16
	this    uint16
	super   uint16
	ifaces  []uint16
	fields  []member
	methods []member
}

type member struct {
	flags     uint16
	name      uint16
	desc      uint16
	code      []byte
	hasCode   bool
	maxStack  uint16
	maxLocals uint16
	handlers  []classfile.Handler
}

// Method describes a method body for AddMethod. A nil Code produces a method
// without a Code attribute (abstract or native).
type Method struct {
	Flags     uint16
	Name      string
	Desc      string
	MaxStack  uint16
	MaxLocals uint16
	Code      []byte
	Handlers  []classfile.Handler
}

// New starts a class. An empty super produces a root class (java/lang/Object).
func New(name, super string) *Class {
	c := &Class{
		name:  name,
		count: 1,
		utf8s: make(map[string]uint16),
		keyed: make(map[string]uint16),
		flags: classfile.AccPublic | classfile.AccSuper,
	}
	c.this = c.ClassRef(name)
	if super != "" {
		c.super = c.ClassRef(super)
	}
	return c
}

// Name returns the internal name of the class.
func (c *Class) Name() string {
	return c.name
}

// NewInterface starts an interface extending java/lang/Object.
func NewInterface(name string) *Class {
	c := New(name, "java/lang/Object")
	c.flags = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	return c
}

func (c *Class) next(slots uint16) uint16 {
	idx := c.count
	c.count += slots
	return idx
}

func (c *Class) u1(v uint8)  { c.pool.WriteByte(v) }
func (c *Class) u2(v uint16) { _ = binary.Write(&c.pool, binary.BigEndian, v) }
func (c *Class) u4(v uint32) { _ = binary.Write(&c.pool, binary.BigEndian, v) }

func (c *Class) keyedEntry(key string, slots uint16, write func()) uint16 {
	if idx, ok := c.keyed[key]; ok {
		return idx
	}
	write()
	idx := c.next(slots)
	c.keyed[key] = idx
	return idx
}

// Utf8 adds a CONSTANT_Utf8 entry.
func (c *Class) Utf8(s string) uint16 {
	if idx, ok := c.utf8s[s]; ok {
		return idx
	}
	c.u1(uint8(classfile.KindUtf8))
	c.u2(uint16(len(s)))
	c.pool.WriteString(s)
	idx := c.next(1)
	c.utf8s[s] = idx
	return idx
}

// ClassRef adds a CONSTANT_Class entry.
func (c *Class) ClassRef(name string) uint16 {
	nameIdx := c.Utf8(name)
	return c.keyedEntry("C:"+name, 1, func() {
		c.u1(uint8(classfile.KindClass))
		c.u2(nameIdx)
	})
}

// String adds a CONSTANT_String entry.
func (c *Class) String(s string) uint16 {
	strIdx := c.Utf8(s)
	return c.keyedEntry("S:"+s, 1, func() {
		c.u1(uint8(classfile.KindString))
		c.u2(strIdx)
	})
}

// Int adds a CONSTANT_Integer entry.
func (c *Class) Int(v int32) uint16 {
	return c.keyedEntry("I:"+itoa(int64(v)), 1, func() {
		c.u1(uint8(classfile.KindInteger))
		c.u4(uint32(v))
	})
}

// Float adds a CONSTANT_Float entry.
func (c *Class) Float(v float32) uint16 {
	bits := math.Float32bits(v)
	return c.keyedEntry("F:"+itoa(int64(bits)), 1, func() {
		c.u1(uint8(classfile.KindFloat))
		c.u4(bits)
	})
}

// Long adds a CONSTANT_Long entry (two slots).
func (c *Class) Long(v int64) uint16 {
	return c.keyedEntry("J:"+itoa(v), 2, func() {
		c.u1(uint8(classfile.KindLong))
		c.u4(uint32(uint64(v) >> 32))
		c.u4(uint32(v))
	})
}

// Double adds a CONSTANT_Double entry (two slots).
func (c *Class) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return c.keyedEntry("D:"+itoa(int64(bits)), 2, func() {
		c.u1(uint8(classfile.KindDouble))
		c.u4(uint32(bits >> 32))
		c.u4(uint32(bits))
	})
}

// NameAndType adds a CONSTANT_NameAndType entry.
func (c *Class) NameAndType(name, desc string) uint16 {
	n, d := c.Utf8(name), c.Utf8(desc)
	return c.keyedEntry("NT:"+name+":"+desc, 1, func() {
		c.u1(uint8(classfile.KindNameAndType))
		c.u2(n)
		c.u2(d)
	})
}

func (c *Class) memberRef(kind classfile.ConstantKind, class, name, desc string) uint16 {
	cls := c.ClassRef(class)
	nt := c.NameAndType(name, desc)
	return c.keyedEntry(itoa(int64(kind))+":"+class+"."+name+":"+desc, 1, func() {
		c.u1(uint8(kind))
		c.u2(cls)
		c.u2(nt)
	})
}

// FieldRef adds a CONSTANT_Fieldref entry.
func (c *Class) FieldRef(class, name, desc string) uint16 {
	return c.memberRef(classfile.KindFieldref, class, name, desc)
}

// MethodRef adds a CONSTANT_Methodref entry.
func (c *Class) MethodRef(class, name, desc string) uint16 {
	return c.memberRef(classfile.KindMethodref, class, name, desc)
}

// InterfaceMethodRef adds a CONSTANT_InterfaceMethodref entry.
func (c *Class) InterfaceMethodRef(class, name, desc string) uint16 {
	return c.memberRef(classfile.KindInterfaceMethodref, class, name, desc)
}

// Implements adds a direct superinterface.
func (c *Class) Implements(name string) *Class {
	c.ifaces = append(c.ifaces, c.ClassRef(name))
	return c
}

// AddField declares a field.
func (c *Class) AddField(flags uint16, name, desc string) *Class {
	c.fields = append(c.fields, member{flags: flags, name: c.Utf8(name), desc: c.Utf8(desc)})
	return c
}

// AddMethod declares a method.
func (c *Class) AddMethod(m Method) *Class {
	mem := member{
		flags:     m.Flags,
		name:      c.Utf8(m.Name),
		desc:      c.Utf8(m.Desc),
		code:      m.Code,
		hasCode:   m.Code != nil,
		maxStack:  m.MaxStack,
		maxLocals: m.MaxLocals,
		handlers:  m.Handlers,
	}
	if mem.hasCode {
		c.Utf8("Code")
	}
	c.methods = append(c.methods, mem)
	return c
}

// Bytes serializes the class file.
func (c *Class) Bytes() []byte {
	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }

	w(classfile.Magic)
	w(uint16(0))  // minor
	w(uint16(49)) // major: Java 5
	w(c.count)
	out.Write(c.pool.Bytes())
	w(c.flags)
	w(c.this)
	w(c.super)
	w(uint16(len(c.ifaces)))
	for _, i := range c.ifaces {
		w(i)
	}

	w(uint16(len(c.fields)))
	for _, f := range c.fields {
		w(f.flags)
		w(f.name)
		w(f.desc)
		w(uint16(0))
	}

	codeName := c.utf8s["Code"]
	w(uint16(len(c.methods)))
	for _, m := range c.methods {
		w(m.flags)
		w(m.name)
		w(m.desc)
		if !m.hasCode {
			w(uint16(0))
			continue
		}
		w(uint16(1))
		w(codeName)
		w(uint32(2 + 2 + 4 + len(m.code) + 2 + 8*len(m.handlers) + 2))
		w(m.maxStack)
		w(m.maxLocals)
		w(uint32(len(m.code)))
		out.Write(m.code)
		w(uint16(len(m.handlers)))
		for _, h := range m.handlers {
			w(h.StartPC)
			w(h.EndPC)
			w(h.HandlerPC)
			w(h.CatchType)
		}
		w(uint16(0))
	}

	w(uint16(0)) // class attributes
	return out.Bytes()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
