package linker

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classfile/classfiletest"
	"github.com/chazu/tinylink/classpath"
	"github.com/chazu/tinylink/image"
)

type fixture struct {
	src  classpath.Memory
	main []byte
}

// rewriteFixture is a program whose main uses every rewritten instruction
// once. Shape is an interface with a constant; Point implements it.
func rewriteFixture() fixture {
	shape := classfiletest.NewInterface("Shape")
	shape.AddField(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "SIDES", "I")
	shape.AddMethod(classfiletest.Method{
		Flags: classfile.AccPublic | classfile.AccAbstract,
		Name:  "area",
		Desc:  "()I",
	})

	point := classfiletest.New("Point", "java/lang/Object")
	point.Implements("Shape")
	point.AddField(0, "x", "I")
	point.AddField(0, "y", "I")
	point.AddField(classfile.AccStatic, "ORIGIN", "I")
	point.AddMethod(initMethod())
	point.AddMethod(classfiletest.Method{Flags: classfile.AccStatic, Name: "<clinit>", Desc: "()V", Code: []byte{0xb1}})
	point.AddMethod(classfiletest.Method{Flags: classfile.AccPublic, Name: "area", Desc: "()I", MaxStack: 1, MaxLocals: 1, Code: []byte{0x03, 0xac}})
	point.AddMethod(classfiletest.Method{Flags: classfile.AccPublic, Name: "move", Desc: "(II)V", MaxLocals: 3, Code: []byte{0xb1}})

	oops := classfiletest.New("Oops", "java/lang/Throwable")

	app := classfiletest.New("App", "java/lang/Object")
	pointRef := app.ClassRef("Point")
	ctor := app.MethodRef("Point", "<init>", "()V")
	y := app.FieldRef("Point", "y", "I")
	hello := app.String("hi")
	five := app.Long(5)
	matrix := app.ClassRef("[[I")
	area := app.InterfaceMethodRef("Shape", "area", "()I")
	move := app.MethodRef("Point", "move", "(II)V")
	origin := app.FieldRef("Point", "ORIGIN", "I")
	sides := app.FieldRef("Point", "SIDES", "I")
	oopsRef := app.ClassRef("Oops")

	code := []byte{
		0xbb, hi(pointRef), lo(pointRef), // 0 new
		0x59,                     // 3 dup
		0xb7, hi(ctor), lo(ctor), // 4 invokespecial
		0xb4, hi(y), lo(y), // 7 getfield
		0x12, lo(hello), // 10 ldc
		0x14, hi(five), lo(five), // 12 ldc2_w
		0xbd, hi(pointRef), lo(pointRef), // 15 anewarray
		0xc5, hi(matrix), lo(matrix), 0x02, // 18 multianewarray
		0xc0, hi(pointRef), lo(pointRef), // 22 checkcast
		0xc1, hi(pointRef), lo(pointRef), // 25 instanceof
		0xb9, hi(area), lo(area), 0x01, 0x00, // 28 invokeinterface
		0xb6, hi(move), lo(move), // 33 invokevirtual
		0xb2, hi(origin), lo(origin), // 36 getstatic
		0xb2, hi(sides), lo(sides), // 39 getstatic through an interface
		0xa7, 0x00, 0x03, // 42 goto 45
		0xb1, // 45 return
	}
	m := mainMethod(code)
	m.Handlers = []classfile.Handler{
		{StartPC: 0, EndPC: 45, HandlerPC: 45, CatchType: 0},
		{StartPC: 0, EndPC: 45, HandlerPC: 45, CatchType: oopsRef},
	}
	app.AddMethod(m)

	return fixture{
		src:  install(platform(), shape, point, oops, app),
		main: append([]byte(nil), code...),
	}
}

func constantIndex(t *testing.T, s *Session, literal any) int {
	t.Helper()
	for _, e := range s.Constants() {
		if e.Literal == literal {
			return e.Index
		}
	}
	t.Fatalf("constant %v not interned", literal)
	return -1
}

func TestRewriteOperands(t *testing.T) {
	f := rewriteFixture()
	s, err := Link(f.src, []string{"App"}, testConfig())
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	point, _ := s.Class("Point")
	shape, _ := s.Class("Shape")
	p := byte(point.Index)
	areaID, ok := s.Signatures().Lookup("area()I")
	if !ok {
		t.Fatal("area()I not interned")
	}
	moveID, _ := s.Signatures().Lookup("move(II)V")
	areaWord := areaID
	moveWord := 2<<12 | moveID
	hiIdx := constantIndex(t, s, "hi")
	fiveIdx := constantIndex(t, s, int64(5))
	yOffset := image.ObjectHeaderSize + 4

	want := []byte{
		0xbb, 0x00, p,
		0x59,
		0xb7, p, byte(point.Method("<init>", "()V").Ordinal),
		0xb4, byte(int(image.TypeInt)<<4 | yOffset>>8), byte(yOffset),
		0x12, byte(hiIdx),
		0x14, byte(fiveIdx >> 8), byte(fiveIdx),
		0xbc, byte(image.TypeReference), 0x00,
		0xc5, byte(image.TypeInt), 0x02, 0x02,
		0xc0, 0x00, p,
		0xc1, 0x00, p,
		0xb6, byte(areaWord >> 8), byte(areaWord), 0x00, 0x00,
		0xb6, byte(moveWord >> 8), byte(moveWord),
		0xb2, p, 0x00,
		0xb2, byte(shape.Index), 0x00,
		0xa7, 0x00, 0x03,
		0xb1,
	}

	app, _ := s.Class("App")
	got := app.Method("main", "([Ljava/lang/String;)V").Code.Bytes
	if len(got) != len(f.main) {
		t.Fatalf("rewritten length = %d, original %d", len(got), len(f.main))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rewritten main mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteLengthInvariance(t *testing.T) {
	for name, src := range map[string]classpath.Memory{
		"app-helper": appHelper(),
		"fixture":    rewriteFixture().src,
	} {
		t.Run(name, func(t *testing.T) {
			s, err := Link(src, []string{"App"}, testConfig())
			if err != nil {
				t.Fatalf("Link: %v", err)
			}
			if len(s.Code()) == 0 {
				t.Fatal("no code records")
			}
			for _, r := range s.Code() {
				if got, want := len(r.Bytes), len(r.Method.member.Code.Bytecode); got != want {
					t.Errorf("%s: rewritten length %d, original %d", r.Method, got, want)
				}
			}
		})
	}
}

func TestExceptionHandlers(t *testing.T) {
	s, err := Link(rewriteFixture().src, []string{"App"}, testConfig())
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	app, _ := s.Class("App")
	main := app.Method("main", "([Ljava/lang/String;)V")
	if len(main.Handlers) != 2 {
		t.Fatalf("handlers = %d, want 2", len(main.Handlers))
	}
	if got := main.Handlers[0].Catch.Name; got != ThrowableClass {
		t.Errorf("catch-all handler catches %s, want %s", got, ThrowableClass)
	}
	if got := main.Handlers[1].Catch.Name; got != "Oops" {
		t.Errorf("typed handler catches %s, want Oops", got)
	}
	h := main.Handlers[0]
	if h.Start != 0 || h.End != 45 || h.Handler != 45 {
		t.Errorf("handler range = %d-%d -> %d", h.Start, h.End, h.Handler)
	}
}

func TestUnsupportedOpcodes(t *testing.T) {
	tests := []struct {
		name string
		op   byte
	}{
		{"ldc_w", 0x13},
		{"ladd", 0x61},
		{"lmul", 0x69},
		{"lshl", 0x79},
		{"land", 0x7f},
		{"lcmp", 0x94},
		{"frem", 0x72},
		{"drem", 0x73},
		{"tableswitch", 0xaa},
		{"lookupswitch", 0xab},
		{"wide", 0xc4},
		{"goto_w", 0xc8},
		{"jsr_w", 0xc9},
		{"breakpoint", 0xca},
		{"invokedynamic", 0xba},
		{"undefined", 0xe0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := classfiletest.New("App", "java/lang/Object")
			app.AddMethod(mainMethod([]byte{tc.op, 0x00, 0x00, 0x00, 0x00, 0xb1}))
			_, err := Link(install(platform(), app), []string{"App"}, testConfig())
			if !errors.Is(err, ErrUnsupportedOpcode) {
				t.Errorf("err = %v, want ErrUnsupportedOpcode", err)
			}
		})
	}
}

func TestDoubleArithmeticIsAccepted(t *testing.T) {
	app := classfiletest.New("App", "java/lang/Object")
	one := app.Double(1)
	// ldc2_w 1.0; dup2; dadd; pop2; return
	app.AddMethod(mainMethod([]byte{0x14, hi(one), lo(one), 0x5c, 0x63, 0x58, 0xb1}))
	if _, err := Link(install(platform(), app), []string{"App"}, testConfig()); err != nil {
		t.Errorf("Link: %v", err)
	}
}

func TestLdcClassLiteral(t *testing.T) {
	app := classfiletest.New("App", "java/lang/Object")
	cls := app.ClassRef("java/lang/String")
	app.AddMethod(mainMethod([]byte{0x12, lo(cls), 0x57, 0xb1}))

	_, err := Link(install(platform(), app), []string{"App"}, testConfig())
	if !errors.Is(err, ErrUnsupportedOpcode) {
		t.Errorf("err = %v, want ErrUnsupportedOpcode", err)
	}
}

func TestUnresolvedReferences(t *testing.T) {
	tests := []struct {
		name  string
		build func(app *classfiletest.Class) []byte
	}{
		{"field", func(app *classfiletest.Class) []byte {
			ref := app.FieldRef("java/lang/String", "nope", "I")
			return []byte{0x01, 0xb4, hi(ref), lo(ref), 0xb1}
		}},
		{"static field", func(app *classfiletest.Class) []byte {
			ref := app.FieldRef("java/lang/String", "NOPE", "I")
			return []byte{0xb2, hi(ref), lo(ref), 0xb1}
		}},
		{"static method", func(app *classfiletest.Class) []byte {
			ref := app.MethodRef("java/lang/String", "nope", "()V")
			return []byte{0xb8, hi(ref), lo(ref), 0xb1}
		}},
		{"virtual signature", func(app *classfiletest.Class) []byte {
			ref := app.MethodRef("java/lang/String", "nope", "()V")
			return []byte{0x01, 0xb6, hi(ref), lo(ref), 0xb1}
		}},
		{"array class", func(app *classfiletest.Class) []byte {
			ref := app.ClassRef("[I")
			return []byte{0x01, 0xc0, hi(ref), lo(ref), 0xb1}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := classfiletest.New("App", "java/lang/Object")
			app.AddMethod(mainMethod(tc.build(app)))
			_, err := Link(install(platform(), app), []string{"App"}, testConfig())
			if !errors.Is(err, ErrUnresolved) {
				t.Errorf("err = %v, want ErrUnresolved", err)
			}
		})
	}
}
