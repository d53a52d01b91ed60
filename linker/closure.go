package linker

import (
	"errors"
	"fmt"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classpath"
	"github.com/chazu/tinylink/image"
)

// ClassEntry is one class of the closure. It is created by BuildClosure
// and filled in by the symbol passes; after Layout it does not change.
type ClassEntry struct {
	Name       string
	Index      int
	File       *classfile.ClassFile
	Parent     *ClassEntry // nil for the root class
	Interfaces []*ClassEntry
	Flags      uint8

	InstanceFields []*InstanceField
	StaticFields   []*StaticField
	// Methods is sorted by signature id; a method's ordinal is its position.
	Methods []*MethodEntry

	constants    map[uint16]*ConstantEntry
	instanceSize int
	fieldsDone   bool
	imageOffset  int

	methodTable *Table
	fieldTable  *Table
}

// ParentIndex returns the class index of the superclass, or 0 for the root.
func (c *ClassEntry) ParentIndex() int {
	if c.Parent == nil {
		return 0
	}
	return c.Parent.Index
}

// IsInterface reports whether the class is an interface.
func (c *ClassEntry) IsInterface() bool {
	return c.Flags&image.ClassInterface != 0
}

// InstanceSize returns the bytes of instance state, inherited fields
// included, without the object header.
func (c *ClassEntry) InstanceSize() int {
	return c.instanceSize
}

// AllocSize returns the bytes the interpreter allocates for one instance.
func (c *ClassEntry) AllocSize() int {
	return image.Align(image.ObjectHeaderSize + c.instanceSize)
}

// Method returns the method with the given name and descriptor declared by
// this class, or nil.
func (c *ClassEntry) Method(name, descriptor string) *MethodEntry {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// ClosureBuilder
// ---------------------------------------------------------------------------

// BuildClosure fills the class table: the special classes first, then the
// entry classes, then every class reachable through a CONSTANT_Class entry
// of a class already in the table. The table is scanned front to back while
// it grows, so classes discovered late are still visited. Array types are
// skipped.
func (s *Session) BuildClosure(entries []string) error {
	if err := s.advance(stageNew, stageClosed); err != nil {
		return err
	}

	for _, name := range s.config.specialClasses() {
		if _, err := s.addClass(classfile.NormalizeName(name)); err != nil {
			return err
		}
	}
	// An entry named twice is listed once.
	var names []string
	seen := make(map[string]bool)
	for _, name := range entries {
		name = classfile.NormalizeName(name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) > image.MaxEntryClasses {
		return linkErr(StageEntry, "", limitErr("entry classes", len(names), image.MaxEntryClasses))
	}
	for _, name := range names {
		c, err := s.addClass(name)
		if err != nil {
			return err
		}
		s.entries = append(s.entries, c)
	}

	for i := 0; i < len(s.classes); i++ {
		c := s.classes[i]
		for idx, k := range c.File.Pool {
			if k == nil || k.Kind() != classfile.KindClass {
				continue
			}
			name, err := c.File.Pool.ClassName(uint16(idx))
			if err != nil {
				return linkErr(StageClosure, c.Name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
			}
			if classfile.IsArrayName(name) || name == c.Name {
				continue
			}
			s.edges = append(s.edges, Edge{From: c.Name, To: name})
			if _, err := s.addClass(name); err != nil {
				return err
			}
		}
	}

	if err := s.linkHierarchy(); err != nil {
		return err
	}
	log.Infof("closure: %d classes, %d entry classes", len(s.classes), len(s.entries))
	return nil
}

// addClass loads a class and appends it to the table. Known classes are
// returned as is.
func (s *Session) addClass(name string) (*ClassEntry, error) {
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	if len(s.classes) >= image.MaxClasses {
		return nil, linkErr(StageClosure, name, limitErr("classes", len(s.classes)+1, image.MaxClasses))
	}

	cf, err := s.source.Load(name)
	if err != nil {
		if errors.Is(err, classpath.ErrNotFound) {
			return nil, linkErr(StageClosure, name, fmt.Errorf("%w: %s", ErrClassNotFound, name))
		}
		return nil, linkErr(StageClosure, name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
	}
	declared, err := cf.Name()
	if err != nil {
		return nil, linkErr(StageClosure, name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
	}
	if declared != name {
		return nil, linkErr(StageClosure, name, fmt.Errorf("%w: file declares class %s", ErrMalformedClass, declared))
	}

	c := &ClassEntry{
		Name:      name,
		Index:     len(s.classes),
		File:      cf,
		constants: make(map[uint16]*ConstantEntry),
	}
	s.classes = append(s.classes, c)
	s.byName[name] = c
	log.Debugf("class %d: %s", c.Index, name)
	return c, nil
}

// linkHierarchy resolves superclasses and interfaces and sets class flags.
func (s *Session) linkHierarchy() error {
	for _, c := range s.classes {
		super, err := c.File.SuperName()
		if err != nil {
			return linkErr(StageClosure, c.Name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
		}
		if super != "" {
			parent, ok := s.byName[super]
			if !ok {
				return linkErr(StageClosure, c.Name, fmt.Errorf("%w: superclass %s is not in the closure", ErrUnresolved, super))
			}
			c.Parent = parent
		}

		ifaces, err := c.File.InterfaceNames()
		if err != nil {
			return linkErr(StageClosure, c.Name, fmt.Errorf("%w: %w", ErrMalformedClass, err))
		}
		for _, name := range ifaces {
			iface, ok := s.byName[name]
			if !ok {
				return linkErr(StageClosure, c.Name, fmt.Errorf("%w: interface %s is not in the closure", ErrUnresolved, name))
			}
			c.Interfaces = append(c.Interfaces, iface)
		}

		if c.File.IsInterface() {
			c.Flags |= image.ClassInterface
		}
		if c.File.FindMethod("<clinit>", "()V") != nil {
			c.Flags |= image.ClassHasClinit
		}
	}
	return nil
}

// CheckEntryPoints verifies that every entry class declares
// static main(String[]).
func (s *Session) CheckEntryPoints() error {
	if s.stage < stageClosed {
		return fmt.Errorf("%w: closure not built", ErrStageOrder)
	}
	for _, c := range s.entries {
		m := c.File.FindMethod("main", "([Ljava/lang/String;)V")
		if m == nil || !m.IsStatic() {
			return linkErr(StageEntry, c.Name, ErrNoMain)
		}
	}
	return nil
}
