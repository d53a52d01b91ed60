package linker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/classfile/classfiletest"
	"github.com/chazu/tinylink/classpath"
)

var testSpecials = []string{"java/lang/Object", "java/lang/Throwable", "java/lang/String"}

func testConfig() Config {
	c := DefaultConfig()
	c.SpecialClasses = testSpecials
	return c
}

// initMethod is a constructor body that only returns.
func initMethod() classfiletest.Method {
	return classfiletest.Method{
		Flags:     classfile.AccPublic,
		Name:      "<init>",
		Desc:      "()V",
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []byte{0xb1},
	}
}

// mainMethod wraps code in public static main(String[]).
func mainMethod(code []byte) classfiletest.Method {
	return classfiletest.Method{
		Flags:     classfile.AccPublic | classfile.AccStatic,
		Name:      "main",
		Desc:      "([Ljava/lang/String;)V",
		MaxStack:  4,
		MaxLocals: 1,
		Code:      code,
	}
}

// install adds assembled classes to a memory source.
func install(m classpath.Memory, classes ...*classfiletest.Class) classpath.Memory {
	for _, c := range classes {
		m[c.Name()] = c.Bytes()
	}
	return m
}

// platform returns a minimal java.lang: Object, Throwable and String.
func platform() classpath.Memory {
	str := classfiletest.New("java/lang/String", "java/lang/Object")
	str.AddField(0, "value", "[C")
	value := str.FieldRef("java/lang/String", "value", "[C")
	str.AddMethod(initMethod())
	str.AddMethod(classfiletest.Method{
		Flags:     classfile.AccPublic,
		Name:      "length",
		Desc:      "()I",
		MaxStack:  1,
		MaxLocals: 1,
		// aload_0; getfield value; arraylength; ireturn
		Code: []byte{0x2a, 0xb4, hi(value), lo(value), 0xbe, 0xac},
	})

	return install(classpath.Memory{},
		classfiletest.New("java/lang/Object", "").AddMethod(initMethod()),
		classfiletest.New("java/lang/Throwable", "java/lang/Object").AddMethod(initMethod()),
		str,
	)
}

func hi(b uint16) byte { return byte(b >> 8) }
func lo(b uint16) byte { return byte(b) }

// checkLimit links entries into a temporary file and expects the link to
// stop at stage with a limit error mentioning what, leaving no image.
func checkLimit(t *testing.T, src classpath.Memory, entries []string, stage Stage, what string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "app.tvm")
	_, err := LinkFile(src, entries, testConfig(), out)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("err = %v, want ErrLimitExceeded", err)
	}
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatalf("err is %T, want *LinkError", err)
	}
	if le.Stage != stage {
		t.Errorf("failed at stage %s, want %s (err %v)", le.Stage, stage, err)
	}
	if !strings.Contains(err.Error(), what) {
		t.Errorf("error %q does not mention %q", err, what)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file exists after a failed link (stat err %v)", err)
	}
}
