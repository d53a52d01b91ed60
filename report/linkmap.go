// Package report describes a finished link for people and tools: a CBOR
// link map, a SQLite symbol database and a DOT graph of class references.
// Every report is derived from a LinkMap.
package report

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/linker"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// buildNamespace scopes build ids so that they never collide with name
// UUIDs generated by other tools for the same bytes.
var buildNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tinylink:image"))

// LinkMap records where everything landed in an image.
type LinkMap struct {
	// BuildID is a name-based UUID of the image bytes; relinking the same
	// input yields the same id.
	BuildID    string     `cbor:"build_id"`
	ByteOrder  string     `cbor:"byte_order"`
	Size       int        `cbor:"size"`
	Sections   []Section  `cbor:"sections"`
	Classes    []Class    `cbor:"classes"`
	Signatures []string   `cbor:"signatures"`
	Constants  []Constant `cbor:"constants"`
	Statics    []Field    `cbor:"statics"`
	Entries    []string   `cbor:"entries"`
	Edges      []Edge     `cbor:"edges"`
	Warnings   []string   `cbor:"warnings,omitempty"`
}

type Section struct {
	Name   string `cbor:"name"`
	Offset int    `cbor:"offset"`
	Length int    `cbor:"length"`
}

type Class struct {
	Index     int      `cbor:"index"`
	Name      string   `cbor:"name"`
	Parent    string   `cbor:"parent,omitempty"`
	Flags     uint8    `cbor:"flags"`
	AllocSize int      `cbor:"alloc_size"`
	Offset    int      `cbor:"offset"`
	Methods   []Method `cbor:"methods"`
	Fields    []Field  `cbor:"fields"`
}

type Method struct {
	Ordinal     int    `cbor:"ordinal"`
	Name        string `cbor:"name"`
	Descriptor  string `cbor:"descriptor"`
	Signature   int    `cbor:"signature"`
	Flags       uint8  `cbor:"flags"`
	Offset      int    `cbor:"offset"`
	CodeOffset  int    `cbor:"code_offset,omitempty"`
	CodeLength  int    `cbor:"code_length,omitempty"`
	NumHandlers int    `cbor:"handlers,omitempty"`
}

// Field is an instance field (Offset from the object start) or a static
// field (Offset into the static block).
type Field struct {
	Class      string `cbor:"class"`
	Name       string `cbor:"name"`
	Descriptor string `cbor:"descriptor"`
	Type       string `cbor:"type"`
	Offset     int    `cbor:"offset"`
	Static     bool   `cbor:"static,omitempty"`
}

type Constant struct {
	Index       int    `cbor:"index"`
	Type        string `cbor:"type"`
	Literal     string `cbor:"literal"`
	ValueOffset int    `cbor:"value_offset"`
	Size        int    `cbor:"size"`
}

type Edge struct {
	From string `cbor:"from"`
	To   string `cbor:"to"`
}

// NewLinkMap describes a rewritten session. data is the serialized image,
// used for the build id.
func NewLinkMap(s *linker.Session, data []byte) *LinkMap {
	m := &LinkMap{
		BuildID:    uuid.NewSHA1(buildNamespace, data).String(),
		ByteOrder:  image.ByteOrderName(s.ByteOrder()),
		Size:       s.Size(),
		Signatures: append([]string(nil), s.Signatures().All()...),
	}
	for _, sec := range s.Sections() {
		m.Sections = append(m.Sections, Section{Name: sec.Name, Offset: sec.Offset, Length: sec.Length})
	}
	for _, c := range s.Classes() {
		m.Classes = append(m.Classes, newClass(c))
	}
	for _, e := range s.Constants() {
		m.Constants = append(m.Constants, Constant{
			Index:       e.Index,
			Type:        e.Type.String(),
			Literal:     fmt.Sprint(e.Literal),
			ValueOffset: e.Value.ImageOffset(),
			Size:        len(e.Value.Bytes),
		})
	}
	for _, f := range s.StaticFields() {
		m.Statics = append(m.Statics, Field{
			Class:      f.Class.Name,
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Type:       f.Type.String(),
			Offset:     f.Offset,
			Static:     true,
		})
	}
	for _, c := range s.EntryClasses() {
		m.Entries = append(m.Entries, c.Name)
	}
	for _, e := range s.Edges() {
		m.Edges = append(m.Edges, Edge{From: e.From, To: e.To})
	}
	for _, w := range s.Warnings() {
		m.Warnings = append(m.Warnings, w.String())
	}
	return m
}

func newClass(c *linker.ClassEntry) Class {
	out := Class{
		Index:     c.Index,
		Name:      c.Name,
		Flags:     c.Flags,
		AllocSize: c.AllocSize(),
		Offset:    c.ImageOffset(),
	}
	if c.Parent != nil {
		out.Parent = c.Parent.Name
	}
	for _, m := range c.Methods {
		rm := Method{
			Ordinal:     m.Ordinal,
			Name:        m.Name,
			Descriptor:  m.Descriptor,
			Signature:   m.SignatureID,
			Flags:       m.Flags,
			Offset:      m.ImageOffset(),
			NumHandlers: len(m.Handlers),
		}
		if m.Code != nil {
			rm.CodeOffset = m.Code.ImageOffset()
			rm.CodeLength = len(m.Code.Bytes)
		}
		out.Methods = append(out.Methods, rm)
	}
	for _, f := range c.InstanceFields {
		out.Fields = append(out.Fields, Field{
			Class:      c.Name,
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Type:       f.Type.String(),
			Offset:     f.ObjectOffset(),
		})
	}
	return out
}

// MarshalLinkMap encodes m as canonical CBOR.
func MarshalLinkMap(m *LinkMap) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalLinkMap decodes a link map.
func UnmarshalLinkMap(data []byte) (*LinkMap, error) {
	var m LinkMap
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("report: unmarshal link map: %w", err)
	}
	return &m, nil
}

// WriteLinkMap writes m to path.
func WriteLinkMap(path string, m *LinkMap) error {
	data, err := MarshalLinkMap(m)
	if err != nil {
		return fmt.Errorf("report: marshal link map: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("report: write link map: %w", err)
	}
	return nil
}

// ReadLinkMap reads a link map written by WriteLinkMap.
func ReadLinkMap(path string) (*LinkMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read link map: %w", err)
	}
	return UnmarshalLinkMap(data)
}
