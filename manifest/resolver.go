package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolvedDep is a dependency that has been resolved to a local directory.
type ResolvedDep struct {
	Name       string
	Dependency Dependency
	LocalPath  string
	Manifest   *Manifest // the dependency's own manifest (may be nil)
}

// ClassPath returns the class path entries a dependency contributes: its
// manifest's class path, or its classes directory when it has none.
func (d *ResolvedDep) ClassPath() []string {
	if d.Manifest != nil {
		return d.Manifest.ClassPathEntries()
	}
	return []string{filepath.Join(d.LocalPath, "classes")}
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents) and writes the lock file.
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(r.manifest, r.manifest.Dependencies, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(order); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// ClassPath returns the project's class path followed by the entries of
// every resolved dependency, in load order.
func (r *Resolver) ClassPath(deps []ResolvedDep) []string {
	paths := r.manifest.ClassPathEntries()
	for i := range deps {
		paths = append(paths, deps[i].ClassPath()...)
	}
	return paths
}

// resolveAll resolves deps declared by owner, recursively, in name order.
func (r *Resolver) resolveAll(owner *Manifest, deps map[string]Dependency, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}

		rd, err := r.resolveOne(owner, name, deps[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.Manifest, rd.Manifest.Dependencies, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}
		order = append(order, *rd)
	}
	return order, nil
}

// resolveOne resolves a single dependency. Path dependencies are relative
// to the manifest that declares them.
func (r *Resolver) resolveOne(owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	switch {
	case dep.Path != "":
		localPath, err := filepath.Abs(owner.abs(dep.Path))
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}
		return &ResolvedDep{Name: name, Dependency: dep, LocalPath: localPath, Manifest: loadOptional(localPath)}, nil

	case dep.Git != "":
		depDir := filepath.Join(r.manifest.DepsDir(), name)
		if err := r.fetchGit(name, dep, depDir); err != nil {
			return nil, err
		}
		return &ResolvedDep{Name: name, Dependency: dep, LocalPath: depDir, Manifest: loadOptional(depDir)}, nil
	}
	return nil, fmt.Errorf("dependency %q has no git or path specified", name)
}

// fetchGit clones a git dependency, or fetches it when the lock file does
// not already pin the requested tag, then checks the tag out.
func (r *Resolver) fetchGit(name string, dep Dependency, depDir string) error {
	if _, err := os.Stat(depDir); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(depDir), 0755); err != nil {
			return fmt.Errorf("creating deps dir: %w", err)
		}
		log.Infof("cloning %s from %s", name, dep.Git)
		if err := gitClone(dep.Git, depDir); err != nil {
			return err
		}
	} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
		log.Infof("fetching %s", name)
		if err := gitFetch(depDir); err != nil {
			return err
		}
	}

	if dep.Tag == "" {
		return nil
	}
	if clean, err := gitIsClean(depDir); err == nil && !clean {
		return fmt.Errorf("dependency %q has local changes in %s; refusing to check out %s", name, depDir, dep.Tag)
	}
	return gitCheckout(depDir, dep.Tag)
}

// loadOptional loads a dependency's manifest if it has one.
func loadOptional(dir string) *Manifest {
	m, err := Load(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warningf("ignoring manifest in %s: %s", dir, err)
		}
		return nil
	}
	return m
}

// writeLock records every resolved dependency.
func (r *Resolver) writeLock(order []ResolvedDep) error {
	lf := &LockFile{}
	for _, rd := range order {
		ld := LockedDep{Name: rd.Name}
		dep := rd.Dependency
		switch {
		case dep.Git != "":
			ld.Git = dep.Git
			ld.Tag = dep.Tag
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		case dep.Path != "":
			ld.Path = rd.LocalPath
		}
		lf.Deps = append(lf.Deps, ld)
	}

	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
