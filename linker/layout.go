package linker

import (
	"github.com/chazu/tinylink/image"
)

// Layout arranges every record into the fixed section order, measures each
// section and assigns absolute offsets in one forward walk.
func (s *Session) Layout() error {
	if err := s.advance(stageCopied, stageLaidOut); err != nil {
		return err
	}

	s.master = &masterRecord{}
	master := newTable(image.SectionMaster)
	master.add(s.master)

	classes := newTable(image.SectionClasses)
	for _, c := range s.classes {
		classes.add(c)
	}

	state := newTable(image.SectionStaticState)
	state.add(&staticStateRecord{size: s.staticState})

	statics := newTable(image.SectionStaticFields)
	for _, f := range s.staticFields {
		statics.add(f)
	}

	constants := newTable(image.SectionConstants)
	for _, e := range s.constants.entries {
		constants.add(e)
	}

	methods := newTable(image.SectionMethods)
	for _, c := range s.classes {
		c.methodTable = newTable("methods of " + c.Name)
		for _, m := range c.Methods {
			c.methodTable.add(m)
		}
		methods.add(c.methodTable)
	}

	handlers := newTable(image.SectionExceptions)
	for _, c := range s.classes {
		for _, m := range c.Methods {
			if m.Code == nil {
				continue
			}
			m.handlerTable = newTable("handlers of " + m.String())
			for _, h := range m.Handlers {
				m.handlerTable.add(h)
			}
			handlers.add(m.handlerTable)
		}
	}

	fields := newTable(image.SectionInstanceFields)
	for _, c := range s.classes {
		c.fieldTable = newTable("fields of " + c.Name)
		for _, f := range c.InstanceFields {
			c.fieldTable.add(f)
		}
		fields.add(c.fieldTable)
	}

	code := newTable(image.SectionCode)
	for _, r := range s.code {
		code.add(r)
	}

	values := newTable(image.SectionConstantValues)
	for _, e := range s.constants.entries {
		values.add(e.Value)
	}

	entries := newTable(image.SectionEntryClasses)
	for _, c := range s.entries {
		entries.add(&entryClassRecord{class: c})
	}

	s.sections = []*Table{master, classes, state, statics, constants, methods, handlers, fields, code, values, entries}

	total := 0
	for _, t := range s.sections {
		total += t.measure()
	}
	if total > image.MaxImageSize {
		return linkErr(StageLayout, "", limitErr("image size", total, image.MaxImageSize))
	}

	off := 0
	for _, t := range s.sections {
		off = t.place(off)
	}
	s.size = off
	log.Infof("layout: %d bytes in %d sections", s.size, len(s.sections))
	return nil
}

// section returns a top-level table by name.
func (s *Session) section(name string) *Table {
	for _, t := range s.sections {
		if t.Name == name {
			return t
		}
	}
	return nil
}
