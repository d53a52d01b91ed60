package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	if got := Disassemble(nil); got != "" {
		t.Errorf("Disassemble(nil) = %q, want empty", got)
	}
	if got := DisassembleWithName(nil, "A.main"); !strings.Contains(got, "A.main") {
		t.Errorf("missing header: %q", got)
	}
}

func TestDisassembleLinkedOperands(t *testing.T) {
	code := []byte{
		byte(OpBipush), 0xFE, // bipush -2
		byte(OpGetfield), 0xA0, 0x08, // int at offset 8
		byte(OpInvokestatic), 0x03, 0x01,
		byte(OpInvokevirtual), 0x20, 0x0C,
		byte(OpNop),
		byte(OpIfeq), 0xFF, 0xFA, // back to 0x0006
		byte(OpReturn),
	}
	out := Disassemble(code)

	for _, want := range []string{
		"0000  bipush -2",
		"0002  getfield type=10 offset=8",
		"0005  invokestatic class=3 method=1",
		"0008  invokevirtual args=2 sig=12",
		"000B  nop",
		"000C  ifeq 0006",
		"000F  return",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDisassembleInterfaceCall(t *testing.T) {
	// invokeinterface keeps its two padding bytes after the dispatch word.
	out := Disassemble([]byte{byte(OpInvokeinterface), 0x10, 0x05, byte(OpNop), byte(OpNop)})
	if !strings.Contains(out, "0000  invokeinterface args=1 sig=5") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDisassembleStopsOnVariableLength(t *testing.T) {
	code := []byte{byte(OpNop), byte(OpTableswitch), 0, 0, 0, 0}
	out := Disassemble(code)
	if !strings.Contains(out, "tableswitch <variable length>") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected disassembly to stop after tableswitch:\n%s", out)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	out := Disassemble([]byte{byte(OpSipush), 0x01})
	if !strings.Contains(out, "sipush <truncated>") {
		t.Errorf("unexpected output: %q", out)
	}
}
