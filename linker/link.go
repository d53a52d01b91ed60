package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/tinylink/classpath"
)

// Link runs every stage for the given entry classes and returns the
// rewritten session, ready to serialize.
func Link(source classpath.Source, entries []string, config Config) (*Session, error) {
	if len(entries) == 0 {
		return nil, linkErr(StageEntry, "", fmt.Errorf("%w: no entry classes given", ErrNoMain))
	}
	s := NewSession(source, config)
	if err := s.BuildClosure(entries); err != nil {
		return nil, err
	}
	if err := s.CheckEntryPoints(); err != nil {
		return nil, err
	}
	steps := []func() error{s.BuildSymbols, s.CopyCode, s.Layout, s.Rewrite}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WriteFile serializes the image to path. The bytes go to a temporary file
// in the same directory that is renamed over path only once complete, so a
// failed write leaves no output behind.
func (s *Session) WriteFile(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create output in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = s.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// LinkFile links and writes the image to path. Nothing is written when any
// stage fails.
func LinkFile(source classpath.Source, entries []string, config Config, path string) (*Session, error) {
	s, err := Link(source, entries, config)
	if err != nil {
		return nil, err
	}
	if err := s.WriteFile(path); err != nil {
		return nil, err
	}
	log.Infof("wrote %s (%d bytes)", path, s.Size())
	return s, nil
}
