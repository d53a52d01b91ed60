package linker

import (
	"fmt"

	"github.com/chazu/tinylink/image"
)

// InstanceField is a field stored in each object of its class.
type InstanceField struct {
	Class      *ClassEntry
	Name       string
	Descriptor string
	Type       image.Type
	// Offset is relative to the first field byte, inherited fields
	// included. The interpreter addresses fields from the object start, so
	// code uses ObjectOffset.
	Offset int

	imageOffset int
}

// ObjectOffset returns the field's offset from the start of the object.
func (f *InstanceField) ObjectOffset() int {
	return image.ObjectHeaderSize + f.Offset
}

// StaticField is a field stored once in the shared static block.
type StaticField struct {
	Class      *ClassEntry
	Name       string
	Descriptor string
	Type       image.Type
	// Offset is the byte offset in the static block.
	Offset int
	// Ordinal is the field's position among its class's static fields.
	Ordinal int

	imageOffset int
}

// Word returns the packed type<<12 | offset descriptor.
func (f *StaticField) Word() uint16 {
	return image.PackStaticField(f.Type, f.Offset)
}

// buildFields lays out instance fields (after the parent's) and allocates
// static fields from the shared block, class by class.
func (s *Session) buildFields() error {
	for _, c := range s.classes {
		if n := len(c.File.Fields); n > image.MaxFields {
			return linkErr(StageFields, c.Name, fmt.Errorf("too many fields: %w", limitErr("fields", n, image.MaxFields)))
		}
	}
	for _, c := range s.classes {
		if err := s.layoutInstanceFields(c, 0); err != nil {
			return err
		}
	}
	for _, c := range s.classes {
		if err := s.allocateStaticFields(c); err != nil {
			return err
		}
	}
	log.Debugf("fields: %d static fields, %d bytes of static state", len(s.staticFields), s.staticState)
	return nil
}

// layoutInstanceFields places c's fields after its parent's, laying the
// parent out first when needed.
func (s *Session) layoutInstanceFields(c *ClassEntry, depth int) error {
	if c.fieldsDone {
		return nil
	}
	if depth > len(s.classes) {
		return linkErr(StageFields, c.Name, fmt.Errorf("%w: circular superclass chain", ErrMalformedClass))
	}
	offset := 0
	if c.Parent != nil {
		if err := s.layoutInstanceFields(c.Parent, depth+1); err != nil {
			return err
		}
		offset = c.Parent.instanceSize
	}

	for i := range c.File.Fields {
		f := &c.File.Fields[i]
		if f.IsStatic() {
			continue
		}
		typ, err := image.TypeOf(f.Descriptor)
		if err != nil {
			return linkErr(StageFields, c.Name, fmt.Errorf("%w: field %s: %w", ErrMalformedClass, f.Name, err))
		}
		field := &InstanceField{Class: c, Name: f.Name, Descriptor: f.Descriptor, Type: typ, Offset: offset}
		if field.ObjectOffset() >= 1<<image.MaxFieldOffsetBits {
			return linkErr(StageFields, c.Name, limitErr("instance field offset", field.ObjectOffset(), 1<<image.MaxFieldOffsetBits-1))
		}
		c.InstanceFields = append(c.InstanceFields, field)
		offset += typ.Width()
	}
	c.instanceSize = offset
	c.fieldsDone = true
	return nil
}

func (s *Session) allocateStaticFields(c *ClassEntry) error {
	for i := range c.File.Fields {
		f := &c.File.Fields[i]
		if !f.IsStatic() {
			continue
		}
		typ, err := image.TypeOf(f.Descriptor)
		if err != nil {
			return linkErr(StageFields, c.Name, fmt.Errorf("%w: field %s: %w", ErrMalformedClass, f.Name, err))
		}
		if end := s.staticState + typ.Width(); end > image.MaxStaticState {
			return linkErr(StageFields, c.Name, limitErr("static state bytes", end, image.MaxStaticState))
		}
		field := &StaticField{
			Class:      c,
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Type:       typ,
			Offset:     s.staticState,
			Ordinal:    len(c.StaticFields),
		}
		s.staticState += typ.Width()
		c.StaticFields = append(c.StaticFields, field)
		s.staticFields = append(s.staticFields, field)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Field resolution
// ---------------------------------------------------------------------------

// resolveInstanceField finds a field by name and descriptor in c or its
// superclasses.
func resolveInstanceField(c *ClassEntry, name, desc string) *InstanceField {
	for k := c; k != nil; k = k.Parent {
		for _, f := range k.InstanceFields {
			if f.Name == name && f.Descriptor == desc {
				return f
			}
		}
	}
	return nil
}

// resolveStaticField follows the JVM lookup order: the class itself, its
// superinterfaces, then its superclass.
func resolveStaticField(c *ClassEntry, name, desc string) *StaticField {
	seen := make(map[*ClassEntry]bool)
	var find func(k *ClassEntry) *StaticField
	find = func(k *ClassEntry) *StaticField {
		if k == nil || seen[k] {
			return nil
		}
		seen[k] = true
		for _, f := range k.StaticFields {
			if f.Name == name && f.Descriptor == desc {
				return f
			}
		}
		for _, iface := range k.Interfaces {
			if f := find(iface); f != nil {
				return f
			}
		}
		return find(k.Parent)
	}
	return find(c)
}
