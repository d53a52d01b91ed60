// Package manifest handles tinylink.toml project configuration: what to
// link, where the classes come from and which reports to write.
package manifest

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/tinylink/image"
)

var log = commonlog.GetLogger("tinylink.manifest")

// FileName is the manifest file looked for in a project directory.
const FileName = "tinylink.toml"

// Manifest represents a tinylink.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Link         Link                  `toml:"link"`
	Outputs      Outputs               `toml:"outputs"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the tinylink.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Link configures the link itself. Paths are relative to the manifest.
type Link struct {
	Entry          []string `toml:"entry"`
	ClassPath      []string `toml:"classpath"`
	Output         string   `toml:"output"`
	ByteOrder      string   `toml:"byte-order"`
	SpecialClasses []string `toml:"special-classes"`
}

// Outputs names the optional report files. Empty means not written.
type Outputs struct {
	Map   string `toml:"map"`
	SymDB string `toml:"symdb"`
	Graph string `toml:"graph"`
}

// Dependency is another class tree the project links against.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
}

// Load parses a tinylink.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Link.ClassPath) == 0 {
		m.Link.ClassPath = []string{"classes"}
	}
	if m.Link.Output == "" {
		m.Link.Output = "a.tvm"
	}
	if m.Link.ByteOrder == "" {
		m.Link.ByteOrder = "big"
	}
	if _, err := image.ParseByteOrder(m.Link.ByteOrder); err != nil {
		return nil, fmt.Errorf("%s: link.byte-order: %w", path, err)
	}

	log.Debugf("loaded %s", path)
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tinylink.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// abs resolves a manifest-relative path.
func (m *Manifest) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// ClassPathEntries returns absolute paths for the configured class path.
func (m *Manifest) ClassPathEntries() []string {
	var paths []string
	for _, p := range m.Link.ClassPath {
		paths = append(paths, m.abs(p))
	}
	return paths
}

// OutputPath returns the absolute image path.
func (m *Manifest) OutputPath() string {
	return m.abs(m.Link.Output)
}

// MapPath, SymDBPath and GraphPath return absolute report paths, or "" when
// the report is not configured.
func (m *Manifest) MapPath() string   { return m.abs(m.Outputs.Map) }
func (m *Manifest) SymDBPath() string { return m.abs(m.Outputs.SymDB) }
func (m *Manifest) GraphPath() string { return m.abs(m.Outputs.Graph) }

// Order returns the configured image byte order.
func (m *Manifest) Order() (binary.ByteOrder, error) {
	return image.ParseByteOrder(m.Link.ByteOrder)
}

// DepsDir returns the path to the .tinylink/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".tinylink", "deps")
}

// LockFilePath returns the path to .tinylink/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".tinylink", "lock.toml")
}
