package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classfile/classfiletest"
	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/linker"
	"github.com/chazu/tinylink/report"
)

func ctor() classfiletest.Method {
	return classfiletest.Method{Flags: classfile.AccPublic, Name: "<init>", Desc: "()V", MaxStack: 1, MaxLocals: 1, Code: []byte{0xb1}}
}

// writeClasses writes a platform and App, whose main runs code, into a
// class directory.
func writeClasses(t *testing.T, dir string, code []byte) {
	t.Helper()
	app := classfiletest.New("demo/App", "java/lang/Object")
	app.AddMethod(classfiletest.Method{
		Flags: classfile.AccPublic | classfile.AccStatic, Name: "main", Desc: "([Ljava/lang/String;)V",
		MaxStack: 2, MaxLocals: 1, Code: code,
	})
	classes := []*classfiletest.Class{app, classfiletest.New("java/lang/Object", "").AddMethod(ctor())}
	for _, name := range linker.DefaultSpecialClasses[1:] {
		classes = append(classes, classfiletest.New(name, "java/lang/Object").AddMethod(ctor()))
	}
	for _, c := range classes {
		path := filepath.Join(dir, filepath.FromSlash(c.Name())+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, c.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunWritesImageAndReports(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	writeClasses(t, classes, []byte{0xb1})
	out := filepath.Join(dir, "app.tvm")
	mapPath := filepath.Join(dir, "app.map")
	dbPath := filepath.Join(dir, "app.db")
	dotPath := filepath.Join(dir, "app.dot")

	var stderr bytes.Buffer
	err := run([]string{"-cp", classes, "-o", out, "-endian", "little",
		"-map", mapPath, "-symdb", dbPath, "-graph", dotPath, "demo.App"}, &stderr)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, err := image.Read(data, binary.LittleEndian)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if int(img.Master.LastClass) != len(linker.DefaultSpecialClasses) {
		t.Errorf("LastClass = %d, want %d", img.Master.LastClass, len(linker.DefaultSpecialClasses))
	}

	m, err := report.ReadLinkMap(mapPath)
	if err != nil {
		t.Fatalf("ReadLinkMap: %v", err)
	}
	if m.ByteOrder != "little" || m.Size != len(data) {
		t.Errorf("link map: order %q size %d", m.ByteOrder, m.Size)
	}
	for _, p := range []string{dbPath, dotPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("report %s not written: %v", p, err)
		}
	}
}

func TestRunFailsWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	// iconst_0; tableswitch ...
	writeClasses(t, classes, []byte{0x03, 0xaa, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xb1})
	out := filepath.Join(dir, "app.tvm")

	err := run([]string{"-cp", classes, "-o", out, "demo/App"}, &bytes.Buffer{})
	if !errors.Is(err, linker.ErrUnsupportedOpcode) {
		t.Fatalf("err = %v, want ErrUnsupportedOpcode", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "classes" {
			t.Errorf("unexpected file %s left behind", e.Name())
		}
	}
}

func TestRunFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeClasses(t, filepath.Join(dir, "classes"), []byte{0xb1})
	toml := `
[project]
name = "demo"

[link]
entry = ["demo/App"]
output = "demo.tvm"

[outputs]
graph = "demo.dot"
`
	if err := os.WriteFile(filepath.Join(dir, "tinylink.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	if err := run([]string{"-manifest", dir}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "demo.tvm"))
	if err != nil {
		t.Fatal(err)
	}
	if order, err := image.DetectByteOrder(data); err != nil || image.ByteOrderName(order) != "big" {
		t.Errorf("DetectByteOrder = %v, %v; want big", order, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "demo.dot")); err != nil {
		t.Errorf("graph not written: %v", err)
	}
}

func TestRunNeedsEntryClass(t *testing.T) {
	var stderr bytes.Buffer
	err := run([]string{"-cp", t.TempDir()}, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no entry classes") {
		t.Errorf("err = %v, want a missing entry class error", err)
	}
	if !strings.Contains(stderr.String(), "Usage: tinylink") {
		t.Errorf("usage not printed:\n%s", stderr.String())
	}
}

func TestVerbosity(t *testing.T) {
	tests := []struct {
		verbose, debug bool
		want           int
	}{
		{false, false, 0},
		{true, false, 1},
		{false, true, 2},
		{true, true, 2},
	}
	for _, tt := range tests {
		if got := verbosity(tt.verbose, tt.debug); got != tt.want {
			t.Errorf("verbosity(%v, %v) = %d, want %d", tt.verbose, tt.debug, got, tt.want)
		}
	}
}
