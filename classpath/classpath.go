// Package classpath locates and parses class files by internal name.
package classpath

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/chazu/tinylink/classfile"
)

var (
	// ErrNotFound is returned when no entry of a source holds the class.
	ErrNotFound = errors.New("class not found")
	ErrTooLarge = errors.New("class file too large")
)

// MaxClassFileSize bounds a single archived class file.
const MaxClassFileSize = 16 << 20

// Source resolves an internal class name ("java/lang/Object") to a parsed
// class file.
type Source interface {
	Load(name string) (*classfile.ClassFile, error)
}

// ---------------------------------------------------------------------------
// Dir: a directory tree of .class files
// ---------------------------------------------------------------------------

// Dir loads classes from a directory laid out by package.
type Dir string

// Load implements Source.
func (d Dir) Load(name string) (*classfile.ClassFile, error) {
	path := filepath.Join(string(d), filepath.FromSlash(name)+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cf, nil
}

// ---------------------------------------------------------------------------
// Archive: a .jar or .zip file
// ---------------------------------------------------------------------------

// Archive loads classes from a zip or jar file. The archive stays open until
// Close is called.
type Archive struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

// OpenArchive opens a zip or jar file and indexes its .class entries.
func OpenArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	a := &Archive{path: path, zr: zr, files: make(map[string]*zip.File)}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".class") {
			a.files[strings.TrimSuffix(f.Name, ".class")] = f
		}
	}
	return a, nil
}

// Load implements Source.
func (a *Archive) Load(name string) (*classfile.ClassFile, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in %s: %w", f.Name, a.path, err)
	}
	defer rc.Close()

	if f.UncompressedSize64 > MaxClassFileSize {
		return nil, fmt.Errorf("%s in %s: %w (%d bytes)", f.Name, a.path, ErrTooLarge, f.UncompressedSize64)
	}
	data, err := io.ReadAll(io.LimitReader(rc, MaxClassFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s in %s: %w", f.Name, a.path, err)
	}
	if len(data) > MaxClassFileSize {
		return nil, fmt.Errorf("%s in %s: %w", f.Name, a.path, ErrTooLarge)
	}
	if uint64(len(data)) != f.UncompressedSize64 {
		return nil, fmt.Errorf("reading %s in %s: read %d bytes, header says %d", f.Name, a.path, len(data), f.UncompressedSize64)
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s in %s: %w", f.Name, a.path, err)
	}
	return cf, nil
}

// Close releases the archive.
func (a *Archive) Close() error {
	return a.zr.Close()
}

// ---------------------------------------------------------------------------
// Path: an ordered list of sources
// ---------------------------------------------------------------------------

// Path searches its entries in order; the first entry holding a class wins.
type Path struct {
	entries []Source
	closers []*Archive
}

// NewPath builds a Path from explicit sources.
func NewPath(entries ...Source) *Path {
	return &Path{entries: entries}
}

// Open parses an OS list-separated class path string, opening archives
// (.jar, .zip) and treating everything else as a directory.
func Open(list string) (*Path, error) {
	return OpenEntries(filepath.SplitList(list))
}

// OpenEntries builds a Path from individual class path entries.
func OpenEntries(entries []string) (*Path, error) {
	p := &Path{}
	for _, e := range entries {
		if e == "" {
			continue
		}
		if err := p.Add(e); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Add appends one class path entry.
func (p *Path) Add(entry string) error {
	lower := strings.ToLower(entry)
	if strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip") {
		a, err := OpenArchive(entry)
		if err != nil {
			return err
		}
		p.entries = append(p.entries, a)
		p.closers = append(p.closers, a)
		return nil
	}
	info, err := os.Stat(entry)
	if err != nil {
		return fmt.Errorf("class path entry %s: %w", entry, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("class path entry %s is neither a directory nor an archive", entry)
	}
	p.entries = append(p.entries, Dir(entry))
	return nil
}

// Len returns the number of entries.
func (p *Path) Len() int {
	return len(p.entries)
}

// Load implements Source.
func (p *Path) Load(name string) (*classfile.ClassFile, error) {
	for _, e := range p.entries {
		cf, err := e.Load(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close closes every archive opened by the path.
func (p *Path) Close() error {
	var errs []error
	for _, a := range p.closers {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Memory: raw class bytes keyed by name
// ---------------------------------------------------------------------------

// Memory serves class files held in memory.
type Memory map[string][]byte

// Load implements Source.
func (m Memory) Load(name string) (*classfile.ClassFile, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return cf, nil
}
