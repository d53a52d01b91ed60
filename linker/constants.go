package linker

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/image"
)

// ConstantEntry is one distinct literal. Its bytes are a separate record in
// the constant values section.
type ConstantEntry struct {
	Index int
	Type  image.Type
	// Literal is the source value: string, int32, float32, int64 or float64.
	Literal any
	Value   *ConstantValue

	imageOffset int
}

// Size returns the literal's byte length, without padding.
func (c *ConstantEntry) Size() int {
	return len(c.Value.Bytes)
}

// ConstantValue holds the encoded bytes of a literal.
type ConstantValue struct {
	Bytes []byte

	imageOffset int
}

// constantKey is the structural identity of a literal. Floating point
// values compare by bit pattern, so 0.0 and -0.0 stay distinct and NaN
// matches itself.
type constantKey struct {
	kind classfile.ConstantKind
	bits uint64
	str  string
}

type constantTable struct {
	entries []*ConstantEntry
	byKey   map[constantKey]*ConstantEntry
}

func newConstantTable() constantTable {
	return constantTable{byKey: make(map[constantKey]*ConstantEntry)}
}

// buildConstants interns every literal of every class, in table order and
// pool order.
func (s *Session) buildConstants() error {
	order := s.config.order()
	for _, c := range s.classes {
		pool := c.File.Pool
		for idx, k := range pool {
			if k == nil {
				continue
			}
			var key constantKey
			switch v := k.(type) {
			case classfile.StringRef:
				str, err := pool.Utf8(v.StringIndex)
				if err != nil {
					return linkErr(StageConstants, c.Name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
				}
				if len(str) > image.MaxStringConstant {
					return linkErr(StageConstants, c.Name, limitErr("string constant length", len(str), image.MaxStringConstant))
				}
				key = constantKey{kind: classfile.KindString, str: str}
			case classfile.Integer:
				key = constantKey{kind: classfile.KindInteger, bits: uint64(uint32(v.Value))}
			case classfile.Float:
				key = constantKey{kind: classfile.KindFloat, bits: uint64(math.Float32bits(v.Value))}
			case classfile.Long:
				key = constantKey{kind: classfile.KindLong, bits: uint64(v.Value)}
			case classfile.Double:
				key = constantKey{kind: classfile.KindDouble, bits: math.Float64bits(v.Value)}
			default:
				continue
			}

			e, ok := s.constants.byKey[key]
			if !ok {
				if len(s.constants.entries) >= image.MaxConstants {
					return linkErr(StageConstants, c.Name, limitErr("constants", len(s.constants.entries)+1, image.MaxConstants))
				}
				e = s.newConstant(c, k, order)
				e.Index = len(s.constants.entries)
				s.constants.entries = append(s.constants.entries, e)
				s.constants.byKey[key] = e
			}
			c.constants[uint16(idx)] = e
		}
	}
	log.Debugf("constants: %d distinct literals", len(s.constants.entries))
	return nil
}

// newConstant encodes a literal. 64-bit literals keep only their low 32
// bits, stored in the low half of an 8-byte slot.
func (s *Session) newConstant(c *ClassEntry, k classfile.Constant, order binary.ByteOrder) *ConstantEntry {
	var (
		typ     image.Type
		literal any
		buf     []byte
	)
	switch v := k.(type) {
	case classfile.StringRef:
		str, _ := c.File.Pool.Utf8(v.StringIndex)
		typ, literal, buf = image.TypeReference, str, []byte(str)
	case classfile.Integer:
		buf = make([]byte, 4)
		order.PutUint32(buf, uint32(v.Value))
		typ, literal = image.TypeInt, v.Value
	case classfile.Float:
		buf = make([]byte, 4)
		order.PutUint32(buf, math.Float32bits(v.Value))
		typ, literal = image.TypeFloat, v.Value
	case classfile.Long:
		narrow := int32(v.Value)
		if int64(narrow) != v.Value {
			s.warn(WarnNarrowedLiteral, c.Name, "long literal %d narrowed to %d", v.Value, narrow)
		}
		buf = make([]byte, 8)
		order.PutUint64(buf, uint64(uint32(narrow)))
		typ, literal = image.TypeLong, v.Value
	case classfile.Double:
		narrow := float32(v.Value)
		if float64(narrow) != v.Value && !math.IsNaN(v.Value) {
			s.warn(WarnNarrowedLiteral, c.Name, "double literal %g narrowed to %g", v.Value, narrow)
		}
		buf = make([]byte, 8)
		order.PutUint64(buf, uint64(math.Float32bits(narrow)))
		typ, literal = image.TypeDouble, v.Value
	}
	return &ConstantEntry{Type: typ, Literal: literal, Value: &ConstantValue{Bytes: buf}}
}

// constantAt returns the interned constant for a pool index of class c.
func (c *ClassEntry) constantAt(idx uint16) (*ConstantEntry, bool) {
	e, ok := c.constants[idx]
	return e, ok
}
