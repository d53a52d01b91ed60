package report

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

const symbolSchema = `
CREATE TABLE image (
	build_id   TEXT NOT NULL,
	byte_order TEXT NOT NULL,
	size       INTEGER NOT NULL
);
CREATE TABLE sections (
	name   TEXT PRIMARY KEY,
	offset INTEGER NOT NULL,
	length INTEGER NOT NULL
);
CREATE TABLE classes (
	idx        INTEGER PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	parent     TEXT,
	flags      INTEGER NOT NULL,
	alloc_size INTEGER NOT NULL,
	offset     INTEGER NOT NULL,
	entry      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE signatures (
	id        INTEGER PRIMARY KEY,
	signature TEXT NOT NULL UNIQUE
);
CREATE TABLE methods (
	class       INTEGER NOT NULL REFERENCES classes(idx),
	ordinal     INTEGER NOT NULL,
	name        TEXT NOT NULL,
	descriptor  TEXT NOT NULL,
	signature   INTEGER NOT NULL REFERENCES signatures(id),
	flags       INTEGER NOT NULL,
	offset      INTEGER NOT NULL,
	code_offset INTEGER,
	code_length INTEGER,
	handlers    INTEGER NOT NULL,
	PRIMARY KEY (class, ordinal)
);
CREATE TABLE fields (
	class      TEXT NOT NULL,
	name       TEXT NOT NULL,
	descriptor TEXT NOT NULL,
	type       TEXT NOT NULL,
	offset     INTEGER NOT NULL,
	static     INTEGER NOT NULL
);
CREATE TABLE constants (
	idx          INTEGER PRIMARY KEY,
	type         TEXT NOT NULL,
	literal      TEXT NOT NULL,
	value_offset INTEGER NOT NULL,
	size         INTEGER NOT NULL
);
CREATE TABLE edges (
	src TEXT NOT NULL,
	dst TEXT NOT NULL
);
`

// WriteSymbolDB writes m to a fresh SQLite database at path, replacing any
// existing file.
func WriteSymbolDB(path string, m *LinkMap) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("report: remove old symbol database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("report: open symbol database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(symbolSchema); err != nil {
		return fmt.Errorf("report: create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("report: begin: %w", err)
	}
	if err := insertLinkMap(tx, m); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("report: commit: %w", err)
	}
	return nil
}

func insertLinkMap(tx *sql.Tx, m *LinkMap) error {
	exec := func(what, query string, args ...any) error {
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("report: insert %s: %w", what, err)
		}
		return nil
	}

	if err := exec("image", `INSERT INTO image VALUES (?, ?, ?)`, m.BuildID, m.ByteOrder, m.Size); err != nil {
		return err
	}
	for _, s := range m.Sections {
		if err := exec("section", `INSERT INTO sections VALUES (?, ?, ?)`, s.Name, s.Offset, s.Length); err != nil {
			return err
		}
	}
	entries := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		entries[e] = true
	}
	for id, sig := range m.Signatures {
		if err := exec("signature", `INSERT INTO signatures VALUES (?, ?)`, id, sig); err != nil {
			return err
		}
	}
	for _, c := range m.Classes {
		var parent any
		if c.Parent != "" {
			parent = c.Parent
		}
		if err := exec("class", `INSERT INTO classes VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Index, c.Name, parent, c.Flags, c.AllocSize, c.Offset, entries[c.Name]); err != nil {
			return err
		}
		for _, me := range c.Methods {
			var codeOffset, codeLength any
			if me.CodeOffset != 0 {
				codeOffset, codeLength = me.CodeOffset, me.CodeLength
			}
			if err := exec("method", `INSERT INTO methods VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.Index, me.Ordinal, me.Name, me.Descriptor, me.Signature, me.Flags, me.Offset,
				codeOffset, codeLength, me.NumHandlers); err != nil {
				return err
			}
		}
		for _, f := range c.Fields {
			if err := insertField(exec, f); err != nil {
				return err
			}
		}
	}
	for _, f := range m.Statics {
		if err := insertField(exec, f); err != nil {
			return err
		}
	}
	for _, k := range m.Constants {
		if err := exec("constant", `INSERT INTO constants VALUES (?, ?, ?, ?, ?)`,
			k.Index, k.Type, k.Literal, k.ValueOffset, k.Size); err != nil {
			return err
		}
	}
	for _, e := range m.Edges {
		if err := exec("edge", `INSERT INTO edges VALUES (?, ?)`, e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

func insertField(exec func(what, query string, args ...any) error, f Field) error {
	return exec("field", `INSERT INTO fields VALUES (?, ?, ?, ?, ?, ?)`,
		f.Class, f.Name, f.Descriptor, f.Type, f.Offset, f.Static)
}
