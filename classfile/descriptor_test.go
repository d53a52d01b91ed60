package classfile

import (
	"errors"
	"testing"
)

func TestParameterWords(t *testing.T) {
	tests := []struct {
		desc string
		want int
	}{
		{"()V", 0},
		{"(I)V", 1},
		{"(II)I", 2},
		{"(J)V", 2},
		{"(DI)V", 3},
		{"([Ljava/lang/String;)V", 1},
		{"(Ljava/lang/Object;[[JZ)Ljava/lang/String;", 3},
		{"(BCSFZ)V", 5},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ParameterWords(tc.desc)
			if err != nil {
				t.Fatalf("ParameterWords(%q): %v", tc.desc, err)
			}
			if got != tc.want {
				t.Errorf("ParameterWords(%q) = %d, want %d", tc.desc, got, tc.want)
			}
		})
	}
}

func TestParameterWordsErrors(t *testing.T) {
	for _, desc := range []string{"I", "(I", "(Ljava/lang/Object)V", "(Q)V", "(["} {
		if _, err := ParameterWords(desc); !errors.Is(err, ErrBadDescriptor) {
			t.Errorf("ParameterWords(%q) err = %v, want ErrBadDescriptor", desc, err)
		}
	}
}

func TestArrayShape(t *testing.T) {
	tests := []struct {
		name     string
		dims     int
		element  string
		wantFail bool
	}{
		{"[I", 1, "I", false},
		{"[[[Ljava/lang/String;", 3, "Ljava/lang/String;", false},
		{"[[Z", 2, "Z", false},
		{"java/lang/String", 0, "", true},
		{"[Q", 0, "", true},
	}
	for _, tc := range tests {
		dims, elem, err := ArrayShape(tc.name)
		if tc.wantFail {
			if err == nil {
				t.Errorf("ArrayShape(%q) should fail", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ArrayShape(%q): %v", tc.name, err)
			continue
		}
		if dims != tc.dims || elem != tc.element {
			t.Errorf("ArrayShape(%q) = %d, %q; want %d, %q", tc.name, dims, elem, tc.dims, tc.element)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("java.lang.String"); got != "java/lang/String" {
		t.Errorf("NormalizeName = %q", got)
	}
	if !IsArrayName("[I") || IsArrayName("I") {
		t.Error("IsArrayName misclassifies")
	}
}
