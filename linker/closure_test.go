package linker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classfile/classfiletest"
)

// App -> B -> C -> D, each referencing only the next, so the later classes
// are found while the table is being scanned.
func TestClosureFollowsGrowingWorklist(t *testing.T) {
	app := classfiletest.New("App", "java/lang/Object")
	app.ClassRef("B")
	app.ClassRef("[LB;")
	app.ClassRef("[I")
	app.AddMethod(mainMethod([]byte{0xb1}))
	b := classfiletest.New("B", "java/lang/Object")
	b.ClassRef("C")
	c := classfiletest.New("C", "java/lang/Object")
	c.ClassRef("D")
	d := classfiletest.New("D", "C")

	s, err := Link(install(platform(), app, b, c, d), []string{"App"}, testConfig())
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	var names []string
	for _, k := range s.Classes() {
		names = append(names, k.Name)
	}
	want := append(append([]string{}, testSpecials...), "App", "B", "C", "D")
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("class order mismatch (-want +got):\n%s", diff)
	}

	for i, k := range s.Classes() {
		if k.Index != i {
			t.Errorf("%s has index %d at position %d", k.Name, k.Index, i)
		}
	}
	dc, _ := s.Class("D")
	if dc.Parent == nil || dc.Parent.Name != "C" {
		t.Errorf("D parent = %v, want C", dc.Parent)
	}
}

func TestClosureCompleteness(t *testing.T) {
	for name, src := range map[string]func() *Session{
		"app-helper": func() *Session {
			s, err := Link(appHelper(), []string{"App"}, testConfig())
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
		"rewrite-fixture": func() *Session {
			s, err := Link(rewriteFixture().src, []string{"App"}, testConfig())
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := src()
			for _, c := range s.Classes() {
				for idx, k := range c.File.Pool {
					if k == nil || k.Kind() != classfile.KindClass {
						continue
					}
					ref, err := c.File.Pool.ClassName(uint16(idx))
					if err != nil {
						t.Fatal(err)
					}
					if classfile.IsArrayName(ref) {
						if _, ok := s.Class(ref); ok {
							t.Errorf("array type %s was added to the class table", ref)
						}
						continue
					}
					if _, ok := s.Class(ref); !ok {
						t.Errorf("%s references %s, which is not in the class table", c.Name, ref)
					}
				}
			}
		})
	}
}

func TestClosureEdgesAndFlags(t *testing.T) {
	s, err := Link(rewriteFixture().src, []string{"App"}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range s.Edges() {
		if e.From == "App" && e.To == "Point" {
			found = true
		}
	}
	if !found {
		t.Error("edge App -> Point not recorded")
	}

	shape, _ := s.Class("Shape")
	if !shape.IsInterface() {
		t.Error("Shape should carry the interface flag")
	}
	point, _ := s.Class("Point")
	if point.Flags&0x02 == 0 {
		t.Error("Point declares <clinit> and should carry the static initializer flag")
	}
	if len(point.Interfaces) != 1 || point.Interfaces[0] != shape {
		t.Errorf("Point interfaces = %v, want [Shape]", point.Interfaces)
	}
}

func TestDefaultSpecialClassesLeadTheTable(t *testing.T) {
	src := platform()
	for _, name := range DefaultSpecialClasses {
		if _, ok := src[name]; !ok {
			src[name] = classfiletest.New(name, "java/lang/Object").Bytes()
		}
	}
	app := classfiletest.New("App", "java/lang/Object")
	app.AddMethod(mainMethod([]byte{0xb1}))
	install(src, app)

	cfg := DefaultConfig()
	s, err := Link(src, []string{"App"}, cfg)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	for i, name := range DefaultSpecialClasses {
		if got := s.Classes()[i].Name; got != name {
			t.Errorf("class %d = %s, want %s", i, got, name)
		}
	}
	if got := s.Classes()[len(DefaultSpecialClasses)].Name; got != "App" {
		t.Errorf("first application class = %s, want App", got)
	}
}
