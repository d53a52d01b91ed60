// Package image defines the binary image consumed by the target
// interpreter: record layouts, format limits, type tags and a reader that
// decodes a linked image back into its tables.
package image

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Image Format Constants
// ---------------------------------------------------------------------------

// Magic identifies an image. It is the first field of the master record.
const Magic uint16 = 0xCAF6

// Record sizes in bytes.
const (
	MasterSize        = 20
	ClassSize         = 14
	StaticFieldSize   = 2
	ConstantSize      = 4
	MethodSize        = 12
	ExceptionSize     = 8
	InstanceFieldSize = 1
	EntryClassSize    = 1
)

// Alignment is the boundary every table is padded to.
const Alignment = 2

// ObjectHeaderSize is the per-object header the interpreter prepends to
// instance fields.
const ObjectHeaderSize = 4

// Format limits. Exceeding any of them fails the link.
const (
	MaxClasses         = 255
	MaxFields          = 255
	MaxMethods         = 255
	MaxSignatures      = 4096
	MaxParameterWords  = 16
	MaxLocals          = 255
	MaxOperands        = 255
	MaxHandlers        = 255
	MaxStaticState     = 4095
	MaxStringConstant  = 255
	MaxConstants       = 65535
	MaxLdcIndex        = 255
	MaxCodeLength      = 65535
	MaxImageSize       = 65535
	MaxEntryClasses    = 255
	MaxFieldOffsetBits = 12
)

// Class flags.
const (
	ClassArray     uint8 = 0x01
	ClassHasClinit uint8 = 0x02
	ClassInterface uint8 = 0x04
)

// Method flags.
const (
	MethodNative       uint8 = 0x01
	MethodSynchronized uint8 = 0x02
	MethodStatic       uint8 = 0x04
)

// Align rounds n up to the image alignment.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// ---------------------------------------------------------------------------
// Type tags
// ---------------------------------------------------------------------------

// Type is the interpreter's value type tag. The numbering follows the JVM
// newarray element codes, with 0 for references.
type Type uint8

const (
	TypeReference Type = 0
	TypeBoolean   Type = 4
	TypeChar      Type = 5
	TypeFloat     Type = 6
	TypeDouble    Type = 7
	TypeByte      Type = 8
	TypeShort     Type = 9
	TypeInt       Type = 10
	TypeLong      Type = 11
)

var typeNames = map[Type]string{
	TypeReference: "reference",
	TypeBoolean:   "boolean",
	TypeChar:      "char",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeByte:      "byte",
	TypeShort:     "short",
	TypeInt:       "int",
	TypeLong:      "long",
}

// String returns the Java name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Width returns the storage width of a value of type t in bytes.
func (t Type) Width() int {
	switch t {
	case TypeByte, TypeBoolean:
		return 1
	case TypeShort:
		return 2
	case TypeLong, TypeDouble:
		return 8
	default:
		// char, int, float and references
		return 4
	}
}

// TypeOf maps a field descriptor to its type tag. Any object or array
// descriptor is a reference.
func TypeOf(desc string) (Type, error) {
	if desc == "" {
		return 0, fmt.Errorf("empty field descriptor")
	}
	switch desc[0] {
	case 'B':
		return TypeByte, nil
	case 'C':
		return TypeChar, nil
	case 'D':
		return TypeDouble, nil
	case 'F':
		return TypeFloat, nil
	case 'I':
		return TypeInt, nil
	case 'J':
		return TypeLong, nil
	case 'S':
		return TypeShort, nil
	case 'Z':
		return TypeBoolean, nil
	case 'L', '[':
		return TypeReference, nil
	}
	return 0, fmt.Errorf("bad field descriptor %q", desc)
}

// ---------------------------------------------------------------------------
// Byte order
// ---------------------------------------------------------------------------

// ParseByteOrder accepts "big" or "little" (case-insensitive).
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "big", "be", "":
		return binary.BigEndian, nil
	case "little", "le":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q (want big or little)", s)
}

// ByteOrderName returns "big" or "little".
func ByteOrderName(order binary.ByteOrder) string {
	if order == binary.LittleEndian {
		return "little"
	}
	return "big"
}
