package image

import "encoding/binary"

// ---------------------------------------------------------------------------
// Record layouts
// ---------------------------------------------------------------------------

// Master is the image header. Every offset is an absolute byte offset.
type Master struct {
	Magic           uint16
	ConstantTable   uint16
	ConstantValues  uint16
	NumConstants    uint16
	StaticFields    uint16
	StaticState     uint16
	StaticStateLen  uint16
	NumStaticFields uint16
	EntryClasses    uint16
	NumEntryClasses uint8
	LastClass       uint8
}

// Encode writes the master record.
func (m *Master) Encode(w *Writer) {
	w.U2(m.Magic)
	w.U2(m.ConstantTable)
	w.U2(m.ConstantValues)
	w.U2(m.NumConstants)
	w.U2(m.StaticFields)
	w.U2(m.StaticState)
	w.U2(m.StaticStateLen)
	w.U2(m.NumStaticFields)
	w.U2(m.EntryClasses)
	w.U1(m.NumEntryClasses)
	w.U1(m.LastClass)
}

func decodeMaster(b []byte, order binary.ByteOrder) Master {
	return Master{
		Magic:           order.Uint16(b[0:]),
		ConstantTable:   order.Uint16(b[2:]),
		ConstantValues:  order.Uint16(b[4:]),
		NumConstants:    order.Uint16(b[6:]),
		StaticFields:    order.Uint16(b[8:]),
		StaticState:     order.Uint16(b[10:]),
		StaticStateLen:  order.Uint16(b[12:]),
		NumStaticFields: order.Uint16(b[14:]),
		EntryClasses:    order.Uint16(b[16:]),
		NumEntryClasses: b[18],
		LastClass:       b[19],
	}
}

// Class is one class table entry.
type Class struct {
	AllocSize          uint16
	MethodTable        uint16
	InstanceFieldTable uint16
	StaticFieldTable   uint16
	NumInstanceFields  uint8
	NumMethods         uint8
	Parent             uint8
	Flags              uint8
	NumStaticFields    uint8
}

// Encode writes the class record, including its trailing pad byte.
func (c *Class) Encode(w *Writer) {
	w.U2(c.AllocSize)
	w.U2(c.MethodTable)
	w.U2(c.InstanceFieldTable)
	w.U2(c.StaticFieldTable)
	w.U1(c.NumInstanceFields)
	w.U1(c.NumMethods)
	w.U1(c.Parent)
	w.U1(c.Flags)
	w.U1(c.NumStaticFields)
	w.U1(0)
}

func decodeClass(b []byte, order binary.ByteOrder) Class {
	return Class{
		AllocSize:          order.Uint16(b[0:]),
		MethodTable:        order.Uint16(b[2:]),
		InstanceFieldTable: order.Uint16(b[4:]),
		StaticFieldTable:   order.Uint16(b[6:]),
		NumInstanceFields:  b[8],
		NumMethods:         b[9],
		Parent:             b[10],
		Flags:              b[11],
		NumStaticFields:    b[12],
	}
}

// Constant describes one interned literal; its bytes live in the constant
// values section.
type Constant struct {
	ValueOffset uint16
	Type        Type
	Size        uint8
}

// Encode writes the constant record.
func (c *Constant) Encode(w *Writer) {
	w.U2(c.ValueOffset)
	w.U1(uint8(c.Type))
	w.U1(c.Size)
}

func decodeConstant(b []byte, order binary.ByteOrder) Constant {
	return Constant{
		ValueOffset: order.Uint16(b[0:]),
		Type:        Type(b[2]),
		Size:        b[3],
	}
}

// Method is one entry of a class's method table.
type Method struct {
	Signature      uint16
	ExceptionTable uint16
	Code           uint16
	Locals         uint8
	Operands       uint8
	ParameterWords uint8
	NumHandlers    uint8
	Flags          uint8
}

// Encode writes the method record, including its trailing pad byte.
func (m *Method) Encode(w *Writer) {
	w.U2(m.Signature)
	w.U2(m.ExceptionTable)
	w.U2(m.Code)
	w.U1(m.Locals)
	w.U1(m.Operands)
	w.U1(m.ParameterWords)
	w.U1(m.NumHandlers)
	w.U1(m.Flags)
	w.U1(0)
}

// HasCode reports whether the method carries a body.
func (m *Method) HasCode() bool {
	return m.Code != 0
}

func decodeMethod(b []byte, order binary.ByteOrder) Method {
	return Method{
		Signature:      order.Uint16(b[0:]),
		ExceptionTable: order.Uint16(b[2:]),
		Code:           order.Uint16(b[4:]),
		Locals:         b[6],
		Operands:       b[7],
		ParameterWords: b[8],
		NumHandlers:    b[9],
		Flags:          b[10],
	}
}

// Exception is one exception handler entry.
type Exception struct {
	Start   uint16
	End     uint16
	Handler uint16
	Class   uint8
}

// Encode writes the exception record, including its trailing pad byte.
func (e *Exception) Encode(w *Writer) {
	w.U2(e.Start)
	w.U2(e.End)
	w.U2(e.Handler)
	w.U1(e.Class)
	w.U1(0)
}

func decodeException(b []byte, order binary.ByteOrder) Exception {
	return Exception{
		Start:   order.Uint16(b[0:]),
		End:     order.Uint16(b[2:]),
		Handler: order.Uint16(b[4:]),
		Class:   b[6],
	}
}
