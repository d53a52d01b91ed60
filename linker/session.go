// Package linker turns a closed set of class files into an interpreter
// image.
//
// A link runs as a fixed sequence of stages over one Session:
//
//	BuildClosure -> BuildSymbols -> CopyCode -> Layout -> Rewrite -> WriteTo
//
// Each stage completes before the next starts and the stages must run in
// that order; Link runs all of them. A Session owns every table it builds,
// so independent links may run in one process, but a single Session must
// not be used from more than one goroutine.
package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classpath"
	"github.com/chazu/tinylink/image"
)

type stage int

const (
	stageNew stage = iota
	stageClosed
	stageInterned
	stageCopied
	stageLaidOut
	stageRewritten
)

// Session is one link invocation: the class table, the global symbol
// tables and the ordered sections of the image.
type Session struct {
	config Config
	source classpath.Source
	stage  stage

	classes []*ClassEntry
	byName  map[string]*ClassEntry
	entries []*ClassEntry
	edges   []Edge

	constants    constantTable
	signatures   *SignatureTable
	staticFields []*StaticField
	staticState  int
	code         []*CodeRecord

	master   *masterRecord
	sections []*Table
	size     int

	warnings []Warning
}

// Edge is one class reference discovered while building the closure.
type Edge struct {
	From string
	To   string
}

// NewSession prepares a link reading classes from source.
func NewSession(source classpath.Source, config Config) *Session {
	return &Session{
		config:     config,
		source:     source,
		byName:     make(map[string]*ClassEntry),
		constants:  newConstantTable(),
		signatures: NewSignatureTable(),
	}
}

// advance moves the session from one stage to the next.
func (s *Session) advance(from, to stage) error {
	if s.stage != from {
		return fmt.Errorf("%w: at stage %d, need %d", ErrStageOrder, s.stage, from)
	}
	s.stage = to
	return nil
}

func (s *Session) warn(kind WarningKind, class, format string, args ...any) {
	w := Warning{Kind: kind, Class: class, Message: fmt.Sprintf(format, args...)}
	s.warnings = append(s.warnings, w)
	log.Warningf("%s", w)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Classes returns the class table in index order.
func (s *Session) Classes() []*ClassEntry {
	return s.classes
}

// Class looks up a class by internal name.
func (s *Session) Class(name string) (*ClassEntry, bool) {
	c, ok := s.byName[classfile.NormalizeName(name)]
	return c, ok
}

// EntryClasses returns the entry classes in the order given.
func (s *Session) EntryClasses() []*ClassEntry {
	return s.entries
}

// Edges returns every class reference found by the closure, in discovery
// order. Duplicates are possible when two pool entries name the same class.
func (s *Session) Edges() []Edge {
	return s.edges
}

// Constants returns the constant table in index order.
func (s *Session) Constants() []*ConstantEntry {
	return s.constants.entries
}

// Signatures returns the global signature table.
func (s *Session) Signatures() *SignatureTable {
	return s.signatures
}

// StaticFields returns every static field in table order.
func (s *Session) StaticFields() []*StaticField {
	return s.staticFields
}

// StaticStateSize returns the size of the zero-initialised static block.
func (s *Session) StaticStateSize() int {
	return s.staticState
}

// Code returns every code record in image order.
func (s *Session) Code() []*CodeRecord {
	return s.code
}

// Warnings returns the diagnostics collected so far.
func (s *Session) Warnings() []Warning {
	return s.warnings
}

// ByteOrder returns the byte order of the image's record fields.
func (s *Session) ByteOrder() binary.ByteOrder {
	return s.config.order()
}

// Size returns the image size. It is zero before Layout.
func (s *Session) Size() int {
	return s.size
}

// Sections returns the top-level sections with their offsets and lengths.
// It is empty before Layout.
func (s *Session) Sections() []image.Section {
	out := make([]image.Section, len(s.sections))
	for i, t := range s.sections {
		out[i] = image.Section{Name: t.Name, Offset: t.imageOffset, Length: t.length}
	}
	return out
}
