package linker

import (
	"fmt"

	"github.com/chazu/tinylink/image"
)

// RecordKind tags each record variant of an image.
type RecordKind int

const (
	KindMaster RecordKind = iota
	KindClass
	KindStaticState
	KindStaticField
	KindConstant
	KindMethod
	KindException
	KindInstanceField
	KindCode
	KindConstantValue
	KindEntryClass
	KindTable
)

var recordKindNames = [...]string{
	KindMaster:        "master",
	KindClass:         "class",
	KindStaticState:   "static state",
	KindStaticField:   "static field",
	KindConstant:      "constant",
	KindMethod:        "method",
	KindException:     "exception",
	KindInstanceField: "instance field",
	KindCode:          "code",
	KindConstantValue: "constant value",
	KindEntryClass:    "entry class",
	KindTable:         "table",
}

func (k RecordKind) String() string {
	if int(k) < len(recordKindNames) {
		return recordKindNames[k]
	}
	return fmt.Sprintf("RecordKind(%d)", int(k))
}

// Record is one unit of the image layout. Length is known before Layout;
// ImageOffset is assigned by it.
type Record interface {
	Kind() RecordKind
	Length() int
	ImageOffset() int
	setImageOffset(int)
}

// ---------------------------------------------------------------------------
// Record variants
// ---------------------------------------------------------------------------

type masterRecord struct {
	imageOffset int
}

type staticStateRecord struct {
	size        int
	imageOffset int
}

type entryClassRecord struct {
	class       *ClassEntry
	imageOffset int
}

func (*masterRecord) Kind() RecordKind      { return KindMaster }
func (*ClassEntry) Kind() RecordKind        { return KindClass }
func (*staticStateRecord) Kind() RecordKind { return KindStaticState }
func (*StaticField) Kind() RecordKind       { return KindStaticField }
func (*ConstantEntry) Kind() RecordKind     { return KindConstant }
func (*MethodEntry) Kind() RecordKind       { return KindMethod }
func (*ExceptionRecord) Kind() RecordKind   { return KindException }
func (*InstanceField) Kind() RecordKind     { return KindInstanceField }
func (*CodeRecord) Kind() RecordKind        { return KindCode }
func (*ConstantValue) Kind() RecordKind     { return KindConstantValue }
func (*entryClassRecord) Kind() RecordKind  { return KindEntryClass }
func (*Table) Kind() RecordKind             { return KindTable }

func (*masterRecord) Length() int        { return image.MasterSize }
func (*ClassEntry) Length() int          { return image.ClassSize }
func (r *staticStateRecord) Length() int { return r.size }
func (*StaticField) Length() int         { return image.StaticFieldSize }
func (*ConstantEntry) Length() int       { return image.ConstantSize }
func (*MethodEntry) Length() int         { return image.MethodSize }
func (*ExceptionRecord) Length() int     { return image.ExceptionSize }
func (*InstanceField) Length() int       { return image.InstanceFieldSize }
func (r *CodeRecord) Length() int        { return len(r.Bytes) }
func (r *ConstantValue) Length() int     { return image.Align(len(r.Bytes)) }
func (*entryClassRecord) Length() int    { return image.EntryClassSize }

func (r *masterRecord) ImageOffset() int      { return r.imageOffset }
func (r *ClassEntry) ImageOffset() int        { return r.imageOffset }
func (r *staticStateRecord) ImageOffset() int { return r.imageOffset }
func (r *StaticField) ImageOffset() int       { return r.imageOffset }
func (r *ConstantEntry) ImageOffset() int     { return r.imageOffset }
func (r *MethodEntry) ImageOffset() int       { return r.imageOffset }
func (r *ExceptionRecord) ImageOffset() int   { return r.imageOffset }
func (r *InstanceField) ImageOffset() int     { return r.imageOffset }
func (r *CodeRecord) ImageOffset() int        { return r.imageOffset }
func (r *ConstantValue) ImageOffset() int     { return r.imageOffset }
func (r *entryClassRecord) ImageOffset() int  { return r.imageOffset }

func (r *masterRecord) setImageOffset(o int)      { r.imageOffset = o }
func (r *ClassEntry) setImageOffset(o int)        { r.imageOffset = o }
func (r *staticStateRecord) setImageOffset(o int) { r.imageOffset = o }
func (r *StaticField) setImageOffset(o int)       { r.imageOffset = o }
func (r *ConstantEntry) setImageOffset(o int)     { r.imageOffset = o }
func (r *MethodEntry) setImageOffset(o int)       { r.imageOffset = o }
func (r *ExceptionRecord) setImageOffset(o int)   { r.imageOffset = o }
func (r *InstanceField) setImageOffset(o int)     { r.imageOffset = o }
func (r *CodeRecord) setImageOffset(o int)        { r.imageOffset = o }
func (r *ConstantValue) setImageOffset(o int)     { r.imageOffset = o }
func (r *entryClassRecord) setImageOffset(o int)  { r.imageOffset = o }

// ---------------------------------------------------------------------------
// Table: an ordered, aligned group of records
// ---------------------------------------------------------------------------

// Table is a sequence of records, possibly nested tables, padded at the end
// to the image alignment.
type Table struct {
	Name    string
	Records []Record

	imageOffset int
	length      int
}

func newTable(name string) *Table {
	return &Table{Name: name}
}

func (t *Table) add(r Record) {
	t.Records = append(t.Records, r)
}

// Length returns the padded table length computed by Layout.
func (t *Table) Length() int { return t.length }

// ImageOffset returns the table's first byte.
func (t *Table) ImageOffset() int { return t.imageOffset }

func (t *Table) setImageOffset(o int) { t.imageOffset = o }

// measure computes the lengths of t and every nested table.
func (t *Table) measure() int {
	n := 0
	for _, r := range t.Records {
		if sub, ok := r.(*Table); ok {
			n += sub.measure()
			continue
		}
		n += r.Length()
	}
	t.length = image.Align(n)
	return t.length
}

// place assigns offsets to t and its records starting at off, returning
// the offset just past the table. measure must have run.
func (t *Table) place(off int) int {
	t.imageOffset = off
	for _, r := range t.Records {
		if sub, ok := r.(*Table); ok {
			off = sub.place(off)
			continue
		}
		r.setImageOffset(off)
		off += r.Length()
	}
	return t.imageOffset + t.length
}
