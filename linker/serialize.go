package linker

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/tinylink/image"
)

// WriteTo streams the image to w in layout order. With Config.Verify set,
// every record is checked to start at its assigned offset and to occupy
// exactly its computed length; table and image lengths are always checked.
func (s *Session) WriteTo(w io.Writer) (int64, error) {
	if s.stage != stageRewritten {
		return 0, fmt.Errorf("%w: image is not rewritten", ErrStageOrder)
	}
	iw := image.NewWriter(w, s.config.order())
	for _, t := range s.sections {
		if err := s.writeTable(iw, t); err != nil {
			return iw.Count(), err
		}
	}
	if err := iw.Err(); err != nil {
		return iw.Count(), err
	}
	if int(iw.Count()) != s.size {
		return iw.Count(), &InternalError{Kind: KindTable, Field: "image length", Expected: s.size, Actual: int(iw.Count())}
	}
	return iw.Count(), nil
}

// Bytes returns the serialized image.
func (s *Session) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(s.size)
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Session) writeTable(iw *image.Writer, t *Table) error {
	start := int(iw.Count())
	if s.config.Verify && start != t.imageOffset {
		return &InternalError{Kind: KindTable, Field: t.Name + " offset", Expected: t.imageOffset, Actual: start}
	}
	for _, r := range t.Records {
		if sub, ok := r.(*Table); ok {
			if err := s.writeTable(iw, sub); err != nil {
				return err
			}
			continue
		}
		before := int(iw.Count())
		if s.config.Verify && before != r.ImageOffset() {
			return &InternalError{Kind: r.Kind(), Field: "offset", Expected: r.ImageOffset(), Actual: before}
		}
		if err := s.writeRecord(iw, r); err != nil {
			return err
		}
		if err := iw.Err(); err != nil {
			return linkErr(StageSerialize, "", err)
		}
		if n := int(iw.Count()) - before; s.config.Verify && n != r.Length() {
			return &InternalError{Kind: r.Kind(), Field: "length", Expected: r.Length(), Actual: n}
		}
	}
	iw.PadTo(image.Alignment)
	if n := int(iw.Count()) - start; n != t.length {
		return &InternalError{Kind: KindTable, Field: t.Name + " length", Expected: t.length, Actual: n}
	}
	return nil
}

// writeRecord encodes one record. Every variant has a case.
func (s *Session) writeRecord(iw *image.Writer, r Record) error {
	switch r := r.(type) {
	case *masterRecord:
		m := image.Master{
			Magic:           image.Magic,
			ConstantTable:   uint16(s.section(image.SectionConstants).imageOffset),
			ConstantValues:  uint16(s.section(image.SectionConstantValues).imageOffset),
			NumConstants:    uint16(len(s.constants.entries)),
			StaticFields:    uint16(s.section(image.SectionStaticFields).imageOffset),
			StaticState:     uint16(s.section(image.SectionStaticState).imageOffset),
			StaticStateLen:  uint16(s.staticState),
			NumStaticFields: uint16(len(s.staticFields)),
			EntryClasses:    uint16(s.section(image.SectionEntryClasses).imageOffset),
			NumEntryClasses: uint8(len(s.entries)),
			LastClass:       uint8(len(s.classes) - 1),
		}
		m.Encode(iw)

	case *ClassEntry:
		c := image.Class{
			AllocSize:          uint16(r.AllocSize()),
			MethodTable:        uint16(r.methodTable.imageOffset),
			InstanceFieldTable: uint16(r.fieldTable.imageOffset),
			NumInstanceFields:  uint8(len(r.InstanceFields)),
			NumMethods:         uint8(len(r.Methods)),
			Parent:             uint8(r.ParentIndex()),
			Flags:              r.Flags,
			NumStaticFields:    uint8(len(r.StaticFields)),
		}
		if len(r.StaticFields) > 0 {
			c.StaticFieldTable = uint16(r.StaticFields[0].imageOffset)
		}
		c.Encode(iw)

	case *staticStateRecord:
		iw.Pad(r.size)

	case *StaticField:
		iw.U2(r.Word())

	case *ConstantEntry:
		c := image.Constant{
			ValueOffset: uint16(r.Value.imageOffset),
			Type:        r.Type,
			Size:        uint8(len(r.Value.Bytes)),
		}
		c.Encode(iw)

	case *MethodEntry:
		m := image.Method{
			Signature:      uint16(r.SignatureID),
			Locals:         uint8(r.Locals),
			Operands:       uint8(r.Operands),
			ParameterWords: uint8(r.ParameterWords),
			NumHandlers:    uint8(len(r.Handlers)),
			Flags:          r.Flags,
		}
		if r.Code != nil {
			m.Code = uint16(r.Code.imageOffset)
			m.ExceptionTable = uint16(r.handlerTable.imageOffset)
		}
		m.Encode(iw)

	case *ExceptionRecord:
		e := image.Exception{
			Start:   uint16(r.Start),
			End:     uint16(r.End),
			Handler: uint16(r.Handler),
			Class:   uint8(r.Catch.Index),
		}
		e.Encode(iw)

	case *InstanceField:
		iw.U1(uint8(r.Type))

	case *CodeRecord:
		iw.Bytes(r.Bytes)

	case *ConstantValue:
		iw.Bytes(r.Bytes)
		iw.Pad(r.Length() - len(r.Bytes))

	case *entryClassRecord:
		iw.U1(uint8(r.class.Index))

	case *Table:
		return &InternalError{Kind: KindTable, Field: "nesting", Expected: 0, Actual: 1}

	default:
		return fmt.Errorf("unknown record type %T", r)
	}
	return nil
}
