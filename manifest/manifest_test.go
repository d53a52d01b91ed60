package manifest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "robot"
version = "0.1.0"

[link]
entry = ["Robot", "demo.Blink"]
classpath = ["classes", "lib/platform.jar"]
output = "robot.tvm"
byte-order = "little"
special-classes = ["java/lang/Object"]

[outputs]
map = "robot.map"
symdb = "robot.db"
graph = "robot.dot"

[dependencies]
platform = { path = "../platform" }
drivers = { git = "https://example.com/drivers.git", tag = "v1.2.0" }
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "robot" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if diff := cmp.Diff([]string{"Robot", "demo.Blink"}, m.Link.Entry); diff != "" {
		t.Errorf("entry (-want +got):\n%s", diff)
	}
	wantCP := []string{filepath.Join(m.Dir, "classes"), filepath.Join(m.Dir, "lib", "platform.jar")}
	if diff := cmp.Diff(wantCP, m.ClassPathEntries()); diff != "" {
		t.Errorf("class path (-want +got):\n%s", diff)
	}
	if m.OutputPath() != filepath.Join(m.Dir, "robot.tvm") {
		t.Errorf("output = %q", m.OutputPath())
	}
	if m.MapPath() != filepath.Join(m.Dir, "robot.map") || m.SymDBPath() != filepath.Join(m.Dir, "robot.db") || m.GraphPath() != filepath.Join(m.Dir, "robot.dot") {
		t.Errorf("outputs = %q %q %q", m.MapPath(), m.SymDBPath(), m.GraphPath())
	}
	if order, err := m.Order(); err != nil || order != binary.LittleEndian {
		t.Errorf("Order() = %v, %v; want little-endian", order, err)
	}
	if len(m.Link.SpecialClasses) != 1 {
		t.Errorf("special classes = %v", m.Link.SpecialClasses)
	}
	if dep := m.Dependencies["platform"]; dep.Path != "../platform" {
		t.Errorf("platform dep = %+v", dep)
	}
	if dep := m.Dependencies["drivers"]; dep.Git != "https://example.com/drivers.git" || dep.Tag != "v1.2.0" {
		t.Errorf("drivers dep = %+v", dep)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"classes"}, m.Link.ClassPath); diff != "" {
		t.Errorf("default class path (-want +got):\n%s", diff)
	}
	if m.Link.Output != "a.tvm" || m.Link.ByteOrder != "big" {
		t.Errorf("defaults: output %q, byte order %q", m.Link.Output, m.Link.ByteOrder)
	}
	if m.MapPath() != "" || m.SymDBPath() != "" || m.GraphPath() != "" {
		t.Error("reports should be off by default")
	}
}

func TestLoadRejectsBadByteOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[link]
byte-order = "middle"
`)
	if _, err := Load(dir); err == nil {
		t.Error("expected an error for byte-order = middle")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no tinylink.toml exists")
	}
}

func TestAbsolutePathsAreKept(t *testing.T) {
	m := &Manifest{Dir: "/app", Link: Link{ClassPath: []string{"/opt/jdk/classes", "lib"}}}
	want := []string{"/opt/jdk/classes", filepath.Join("/app", "lib")}
	if diff := cmp.Diff(want, m.ClassPathEntries()); diff != "" {
		t.Errorf("class path (-want +got):\n%s", diff)
	}
}

func TestLockFileRoundTrip(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock.toml")

	lf := &LockFile{
		Deps: []LockedDep{
			{Name: "drivers", Git: "https://example.com/drivers.git", Commit: "abc123", Tag: "v1.2.0"},
			{Name: "platform", Path: "../platform"},
			{Name: "agents", Path: "../agents"},
		},
	}
	if err := WriteLock(lockPath, lf); err != nil {
		t.Fatalf("WriteLock failed: %v", err)
	}

	loaded, err := ReadLock(lockPath)
	if err != nil {
		t.Fatalf("ReadLock failed: %v", err)
	}
	want := []LockedDep{
		{Name: "agents", Path: "../agents"},
		{Name: "drivers", Git: "https://example.com/drivers.git", Commit: "abc123", Tag: "v1.2.0"},
		{Name: "platform", Path: "../platform"},
	}
	if diff := cmp.Diff(want, loaded.Deps); diff != "" {
		t.Errorf("locked deps (-want +got):\n%s", diff)
	}

	if found := loaded.FindLockedDep("platform"); found == nil || found.Path != "../platform" {
		t.Errorf("FindLockedDep(platform) = %v, want path ../platform", found)
	}
	if notFound := loaded.FindLockedDep("nonexistent"); notFound != nil {
		t.Errorf("FindLockedDep(nonexistent) = %v, want nil", notFound)
	}
}

func TestReadLockNotFound(t *testing.T) {
	lf, err := ReadLock(filepath.Join(t.TempDir(), "lock.toml"))
	if err != nil {
		t.Errorf("ReadLock should return nil,nil for missing file, got err: %v", err)
	}
	if lf != nil {
		t.Errorf("ReadLock should return nil for missing file, got %v", lf)
	}
	if lf.FindLockedDep("x") != nil {
		t.Error("FindLockedDep on a nil lock file should return nil")
	}
}
