package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolvePathDependencies(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	platform := filepath.Join(root, "platform")
	drivers := filepath.Join(root, "drivers")

	writeManifest(t, app, `
[link]
entry = ["App"]

[dependencies]
platform = { path = "../platform" }
`)
	// platform has a manifest with its own class path and dependency.
	writeManifest(t, platform, `
[link]
classpath = ["lib/rt.jar"]

[dependencies]
drivers = { path = "../drivers" }
`)
	// drivers has no manifest; its classes directory is used.
	if err := os.MkdirAll(filepath.Join(drivers, "classes"), 0755); err != nil {
		t.Fatal(err)
	}

	m, err := Load(app)
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(m)
	deps, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var names []string
	for _, d := range deps {
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"drivers", "platform"}, names); diff != "" {
		t.Errorf("load order (-want +got):\n%s", diff)
	}

	want := []string{
		filepath.Join(app, "classes"),
		filepath.Join(drivers, "classes"),
		filepath.Join(platform, "lib", "rt.jar"),
	}
	if diff := cmp.Diff(want, r.ClassPath(deps)); diff != "" {
		t.Errorf("class path (-want +got):\n%s", diff)
	}

	lf, err := ReadLock(m.LockFilePath())
	if err != nil || lf == nil {
		t.Fatalf("lock file not written: %v", err)
	}
	if d := lf.FindLockedDep("drivers"); d == nil || d.Path != drivers {
		t.Errorf("locked drivers = %+v, want path %s", d, drivers)
	}
}

func TestResolveMissingPath(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[dependencies]
gone = { path = "../does-not-exist" }
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewResolver(m).Resolve()
	if err == nil || !strings.Contains(err.Error(), "gone") {
		t.Errorf("err = %v, want a resolution error naming gone", err)
	}
}

func TestResolveRequiresSource(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[dependencies]
empty = { tag = "v1" }
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewResolver(m).Resolve(); err == nil || !strings.Contains(err.Error(), "no git or path") {
		t.Errorf("err = %v, want a missing source error", err)
	}
}

func TestResolveNoDependencies(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[project]
name = "alone"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(m)
	deps, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("deps = %v, want none", deps)
	}
	if diff := cmp.Diff([]string{filepath.Join(m.Dir, "classes")}, r.ClassPath(deps)); diff != "" {
		t.Errorf("class path (-want +got):\n%s", diff)
	}
}
