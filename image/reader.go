package image

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chazu/tinylink/pkg/bytecode"
)

// Section names, in image order.
const (
	SectionMaster         = "master"
	SectionClasses        = "classes"
	SectionStaticState    = "static-state"
	SectionStaticFields   = "static-fields"
	SectionConstants      = "constants"
	SectionMethods        = "methods"
	SectionExceptions     = "exceptions"
	SectionInstanceFields = "instance-fields"
	SectionCode           = "code"
	SectionConstantValues = "constant-values"
	SectionEntryClasses   = "entry-classes"
)

// SectionOrder lists every section in the order it appears in an image.
var SectionOrder = []string{
	SectionMaster,
	SectionClasses,
	SectionStaticState,
	SectionStaticFields,
	SectionConstants,
	SectionMethods,
	SectionExceptions,
	SectionInstanceFields,
	SectionCode,
	SectionConstantValues,
	SectionEntryClasses,
}

// ---------------------------------------------------------------------------
// Image Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic      = errors.New("invalid magic number")
	ErrCorruptHeader     = errors.New("corrupt image header")
	ErrCorruptLayout     = errors.New("corrupt image layout")
	ErrUnexpectedEOF     = errors.New("unexpected end of image data")
	ErrInvalidClassIndex = errors.New("invalid class index")
)

// ---------------------------------------------------------------------------
// Decoded image
// ---------------------------------------------------------------------------

// Section is a contiguous region of the image, padding included.
type Section struct {
	Name   string
	Offset int
	Length int
}

// ClassInfo is a class record together with the tables it points to.
type ClassInfo struct {
	Class
	Methods        []MethodInfo
	InstanceFields []Type
	StaticFields   []uint16
}

// MethodInfo is a method record together with its handlers and code.
type MethodInfo struct {
	Method
	Handlers []Exception
	// Body is the method's code. For the last method in the code section it
	// may include the section's trailing pad byte, which decodes as nop.
	Body []byte
}

// Image is a fully decoded image.
type Image struct {
	Order          binary.ByteOrder
	Master         Master
	Classes        []ClassInfo
	StaticFields   []uint16
	Constants      []Constant
	ConstantValues [][]byte
	EntryClasses   []uint8
	Sections       []Section
	Size           int
}

// Section returns the named section.
func (img *Image) Section(name string) (Section, bool) {
	for _, s := range img.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

// DetectByteOrder inspects the magic number and returns the byte order the
// image was written in.
func DetectByteOrder(data []byte) (binary.ByteOrder, error) {
	if len(data) < 2 {
		return nil, ErrCorruptHeader
	}
	switch {
	case binary.BigEndian.Uint16(data) == Magic:
		return binary.BigEndian, nil
	case binary.LittleEndian.Uint16(data) == Magic:
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("%w: got %02X%02X", ErrInvalidMagic, data[0], data[1])
}

// Read decodes an image. Sections are walked in image order and each one's
// start is computed from the lengths of everything before it; every offset
// the image declares must match the computed one.
func Read(data []byte, order binary.ByteOrder) (*Image, error) {
	r := &reader{data: data, order: order}
	img := &Image{Order: order}
	steps := map[string]func(*Image) error{
		SectionMaster:         r.readMaster,
		SectionClasses:        r.readClasses,
		SectionStaticState:    r.readStaticState,
		SectionStaticFields:   r.readStaticFields,
		SectionConstants:      r.readConstants,
		SectionMethods:        r.readMethods,
		SectionExceptions:     r.readExceptions,
		SectionInstanceFields: r.readInstanceFields,
		SectionCode:           r.readCode,
		SectionConstantValues: r.readConstantValues,
		SectionEntryClasses:   r.readEntryClasses,
	}
	for _, name := range SectionOrder {
		if err := steps[name](img); err != nil {
			return nil, err
		}
	}
	if r.offset > len(data) {
		return nil, ErrUnexpectedEOF
	}
	if r.offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptLayout, len(data)-r.offset)
	}
	img.Sections = r.sections
	img.Size = r.offset
	return img, nil
}

type reader struct {
	data     []byte
	order    binary.ByteOrder
	offset   int
	start    int
	sections []Section
}

// readBytes reads n bytes from the current position.
func (r *reader) readBytes(n int) ([]byte, error) {
	if r.offset+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) align() {
	r.offset = Align(r.offset)
}

// expect checks a declared offset against the current position.
func (r *reader) expect(what string, declared uint16) error {
	if int(declared) != r.offset {
		return fmt.Errorf("%w: %s declared at %d, computed %d", ErrCorruptLayout, what, declared, r.offset)
	}
	return nil
}

func (r *reader) begin() {
	r.start = r.offset
}

func (r *reader) end(name string) {
	r.align()
	r.sections = append(r.sections, Section{Name: name, Offset: r.start, Length: r.offset - r.start})
}

func (r *reader) readMaster(img *Image) error {
	if len(r.data) < MasterSize {
		return ErrCorruptHeader
	}
	r.begin()
	b, _ := r.readBytes(MasterSize)
	img.Master = decodeMaster(b, r.order)
	if img.Master.Magic != Magic {
		return fmt.Errorf("%w: got 0x%04X", ErrInvalidMagic, img.Master.Magic)
	}
	r.end(SectionMaster)
	return nil
}

func (r *reader) readClasses(img *Image) error {
	r.begin()
	n := int(img.Master.LastClass) + 1
	img.Classes = make([]ClassInfo, n)
	for i := range img.Classes {
		b, err := r.readBytes(ClassSize)
		if err != nil {
			return fmt.Errorf("class %d: %w", i, err)
		}
		img.Classes[i].Class = decodeClass(b, r.order)
		if int(img.Classes[i].Parent) >= n {
			return fmt.Errorf("%w: class %d has parent %d", ErrInvalidClassIndex, i, img.Classes[i].Parent)
		}
	}
	r.end(SectionClasses)
	return nil
}

func (r *reader) readStaticState(img *Image) error {
	if err := r.expect(SectionStaticState, img.Master.StaticState); err != nil {
		return err
	}
	r.begin()
	if _, err := r.readBytes(int(img.Master.StaticStateLen)); err != nil {
		return fmt.Errorf("static state: %w", err)
	}
	r.end(SectionStaticState)
	return nil
}

func (r *reader) readStaticFields(img *Image) error {
	if err := r.expect(SectionStaticFields, img.Master.StaticFields); err != nil {
		return err
	}
	r.begin()
	img.StaticFields = make([]uint16, img.Master.NumStaticFields)
	for i := range img.StaticFields {
		b, err := r.readBytes(StaticFieldSize)
		if err != nil {
			return fmt.Errorf("static field %d: %w", i, err)
		}
		img.StaticFields[i] = r.order.Uint16(b)
	}
	r.end(SectionStaticFields)

	for i := range img.Classes {
		c := &img.Classes[i]
		if c.NumStaticFields == 0 {
			continue
		}
		first := (int(c.StaticFieldTable) - int(img.Master.StaticFields)) / StaticFieldSize
		last := first + int(c.NumStaticFields)
		if int(c.StaticFieldTable) < int(img.Master.StaticFields) || last > len(img.StaticFields) {
			return fmt.Errorf("%w: class %d static fields out of range", ErrCorruptLayout, i)
		}
		c.StaticFields = img.StaticFields[first:last]
	}
	return nil
}

func (r *reader) readConstants(img *Image) error {
	if err := r.expect(SectionConstants, img.Master.ConstantTable); err != nil {
		return err
	}
	r.begin()
	img.Constants = make([]Constant, img.Master.NumConstants)
	for i := range img.Constants {
		b, err := r.readBytes(ConstantSize)
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
		img.Constants[i] = decodeConstant(b, r.order)
	}
	r.end(SectionConstants)
	return nil
}

func (r *reader) readMethods(img *Image) error {
	r.begin()
	for i := range img.Classes {
		c := &img.Classes[i]
		if err := r.expect(fmt.Sprintf("method table of class %d", i), c.MethodTable); err != nil {
			return err
		}
		c.Methods = make([]MethodInfo, c.NumMethods)
		for j := range c.Methods {
			b, err := r.readBytes(MethodSize)
			if err != nil {
				return fmt.Errorf("class %d method %d: %w", i, j, err)
			}
			c.Methods[j].Method = decodeMethod(b, r.order)
		}
		r.align()
	}
	r.end(SectionMethods)
	return nil
}

func (r *reader) readExceptions(img *Image) error {
	r.begin()
	for i := range img.Classes {
		for j := range img.Classes[i].Methods {
			m := &img.Classes[i].Methods[j]
			if !m.HasCode() {
				continue
			}
			if err := r.expect(fmt.Sprintf("exception table of class %d method %d", i, j), m.ExceptionTable); err != nil {
				return err
			}
			m.Handlers = make([]Exception, m.NumHandlers)
			for k := range m.Handlers {
				b, err := r.readBytes(ExceptionSize)
				if err != nil {
					return fmt.Errorf("class %d method %d handler %d: %w", i, j, k, err)
				}
				m.Handlers[k] = decodeException(b, r.order)
				if int(m.Handlers[k].Class) >= len(img.Classes) {
					return fmt.Errorf("%w: handler catches class %d", ErrInvalidClassIndex, m.Handlers[k].Class)
				}
			}
			r.align()
		}
	}
	r.end(SectionExceptions)
	return nil
}

func (r *reader) readInstanceFields(img *Image) error {
	r.begin()
	for i := range img.Classes {
		c := &img.Classes[i]
		if err := r.expect(fmt.Sprintf("instance fields of class %d", i), c.InstanceFieldTable); err != nil {
			return err
		}
		b, err := r.readBytes(int(c.NumInstanceFields))
		if err != nil {
			return fmt.Errorf("class %d instance fields: %w", i, err)
		}
		c.InstanceFields = make([]Type, len(b))
		for k, t := range b {
			c.InstanceFields[k] = Type(t)
		}
		r.align()
	}
	r.end(SectionInstanceFields)
	return nil
}

// readCode walks each body instruction by instruction. A body ends where
// the next one starts; the last ends at the constant values section.
func (r *reader) readCode(img *Image) error {
	var bodies []*MethodInfo
	for i := range img.Classes {
		for j := range img.Classes[i].Methods {
			if m := &img.Classes[i].Methods[j]; m.HasCode() {
				bodies = append(bodies, m)
			}
		}
	}

	r.begin()
	for k, m := range bodies {
		if err := r.expect(fmt.Sprintf("code of method %d", k), m.Code); err != nil {
			return err
		}
		limit := int(img.Master.ConstantValues)
		if k+1 < len(bodies) {
			limit = int(bodies[k+1].Code)
		}
		start := r.offset
		for r.offset < limit {
			if r.offset >= len(r.data) {
				return fmt.Errorf("code of method %d: %w", k, ErrUnexpectedEOF)
			}
			n := bytecode.Opcode(r.data[r.offset]).InstructionLen()
			if n <= 0 {
				return fmt.Errorf("%w: undecodable opcode 0x%02X at %d", ErrCorruptLayout, r.data[r.offset], r.offset)
			}
			if _, err := r.readBytes(n); err != nil {
				return fmt.Errorf("code of method %d: %w", k, err)
			}
		}
		m.Body = r.data[start:r.offset]
	}
	r.end(SectionCode)
	return nil
}

func (r *reader) readConstantValues(img *Image) error {
	if err := r.expect(SectionConstantValues, img.Master.ConstantValues); err != nil {
		return err
	}
	r.begin()
	img.ConstantValues = make([][]byte, len(img.Constants))
	for i, c := range img.Constants {
		if err := r.expect(fmt.Sprintf("value of constant %d", i), c.ValueOffset); err != nil {
			return err
		}
		b, err := r.readBytes(int(c.Size))
		if err != nil {
			return fmt.Errorf("constant %d value: %w", i, err)
		}
		img.ConstantValues[i] = b
		r.align()
	}
	r.end(SectionConstantValues)
	return nil
}

func (r *reader) readEntryClasses(img *Image) error {
	if err := r.expect(SectionEntryClasses, img.Master.EntryClasses); err != nil {
		return err
	}
	r.begin()
	b, err := r.readBytes(int(img.Master.NumEntryClasses))
	if err != nil {
		return fmt.Errorf("entry classes: %w", err)
	}
	for _, c := range b {
		if int(c) >= len(img.Classes) {
			return fmt.Errorf("%w: entry class %d", ErrInvalidClassIndex, c)
		}
	}
	img.EntryClasses = append([]uint8(nil), b...)
	r.end(SectionEntryClasses)
	return nil
}
