package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classfile/classfiletest"
	"github.com/chazu/tinylink/classpath"
	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/linker"
)

func linkImage(t *testing.T, order binary.ByteOrder) []byte {
	t.Helper()
	ctor := classfiletest.Method{Flags: classfile.AccPublic, Name: "<init>", Desc: "()V", MaxStack: 1, MaxLocals: 1, Code: []byte{0xb1}}
	app := classfiletest.New("App", "java/lang/Object")
	app.AddField(classfile.AccStatic, "n", "I")
	run := app.MethodRef("App", "run", "()V")
	app.AddMethod(classfiletest.Method{Flags: classfile.AccStatic, Name: "run", Desc: "()V", Code: []byte{0xb1}})
	app.AddMethod(classfiletest.Method{
		Flags: classfile.AccPublic | classfile.AccStatic, Name: "main", Desc: "([Ljava/lang/String;)V",
		MaxStack: 1, MaxLocals: 1,
		Code: []byte{0xb8, byte(run >> 8), byte(run), 0xb1},
	})

	src := classpath.Memory{}
	for _, c := range []*classfiletest.Class{
		classfiletest.New("java/lang/Object", "").AddMethod(ctor),
		classfiletest.New("java/lang/Throwable", "java/lang/Object").AddMethod(ctor),
		app,
	} {
		src[c.Name()] = c.Bytes()
	}
	cfg := linker.DefaultConfig()
	cfg.SpecialClasses = []string{"java/lang/Object", "java/lang/Throwable"}
	cfg.ByteOrder = order
	s, err := linker.Link(src, []string{"App"}, cfg)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	data, err := s.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDump(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		t.Run(order.String(), func(t *testing.T) {
			var out bytes.Buffer
			if err := dump(&out, linkImage(t, order), "", true); err != nil {
				t.Fatalf("dump: %v", err)
			}
			got := out.String()
			for _, want := range []string{
				image.ByteOrderName(order) + "-endian",
				"magic CAF6",
				"sections:",
				"static-fields",
				"flags static",
				"int       offset 0",
				"; === class 2 method",
				"invokestatic class=2 method=",
				"entry classes: [2]",
			} {
				if !strings.Contains(got, want) {
					t.Errorf("output lacks %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestDumpWrongByteOrder(t *testing.T) {
	data := linkImage(t, binary.BigEndian)
	err := dump(&bytes.Buffer{}, data, "little", false)
	if !errors.Is(err, image.ErrInvalidMagic) {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
	if err := dump(&bytes.Buffer{}, data, "middle", false); err == nil {
		t.Error("expected an error for an unknown byte order")
	}
}
