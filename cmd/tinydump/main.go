// tinydump prints the tables of a linked image and, optionally, the code of
// every method.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/pkg/bytecode"
)

func main() {
	endian := flag.String("endian", "", "Byte order of the image: big or little (default: detect from the magic number)")
	code := flag.Bool("code", false, "Disassemble method bodies")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tinydump [options] image\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinydump: %v\n", err)
		os.Exit(1)
	}
	if err := dump(os.Stdout, data, *endian, *code); err != nil {
		fmt.Fprintf(os.Stderr, "tinydump: %v\n", err)
		os.Exit(1)
	}
}

func dump(w io.Writer, data []byte, endian string, code bool) error {
	order, err := image.DetectByteOrder(data)
	if endian != "" {
		order, err = image.ParseByteOrder(endian)
	}
	if err != nil {
		return err
	}
	img, err := image.Read(data, order)
	if err != nil {
		return err
	}

	m := img.Master
	fmt.Fprintf(w, "image: %d bytes, %s-endian, magic %04X\n", img.Size, image.ByteOrderName(order), m.Magic)
	fmt.Fprintf(w, "classes: %d  constants: %d  static fields: %d  static state: %d bytes  entry classes: %d\n",
		len(img.Classes), m.NumConstants, m.NumStaticFields, m.StaticStateLen, m.NumEntryClasses)

	fmt.Fprintf(w, "\nsections:\n")
	for _, s := range img.Sections {
		fmt.Fprintf(w, "  %-16s %04X %6d\n", s.Name, s.Offset, s.Length)
	}

	fmt.Fprintf(w, "\nclasses:\n")
	for i, c := range img.Classes {
		fmt.Fprintf(w, "  [%3d] parent %d  alloc %d  flags %s  methods @%04X  fields %v  statics %d\n",
			i, c.Parent, c.AllocSize, classFlags(c.Flags), c.MethodTable, c.InstanceFields, c.NumStaticFields)
		for j, me := range c.Methods {
			fmt.Fprintf(w, "        %3d sig %-4d words %-2d locals %-3d stack %-3d flags %s",
				j, me.Signature, me.ParameterWords, me.Locals, me.Operands, methodFlags(me.Flags))
			if me.HasCode() {
				fmt.Fprintf(w, "  code @%04X  handlers %d", me.Code, len(me.Handlers))
			}
			fmt.Fprintln(w)
			for _, h := range me.Handlers {
				fmt.Fprintf(w, "            catch class %d in [%04X, %04X) -> %04X\n", h.Class, h.Start, h.End, h.Handler)
			}
		}
	}

	fmt.Fprintf(w, "\nstatic fields:\n")
	for i, f := range img.StaticFields {
		t, off := image.UnpackStaticField(f)
		fmt.Fprintf(w, "  [%3d] %-9s offset %d\n", i, t, off)
	}

	fmt.Fprintf(w, "\nconstants:\n")
	for i, c := range img.Constants {
		fmt.Fprintf(w, "  [%3d] %-9s @%04X  % X\n", i, c.Type, c.ValueOffset, img.ConstantValues[i])
	}

	fmt.Fprintf(w, "\nentry classes: %v\n", img.EntryClasses)

	if code {
		for i, c := range img.Classes {
			for j, me := range c.Methods {
				if !me.HasCode() {
					continue
				}
				name := fmt.Sprintf("class %d method %d (sig %d)", i, j, me.Signature)
				fmt.Fprintf(w, "\n%s", bytecode.DisassembleWithName(me.Body, name))
			}
		}
	}
	return nil
}

func classFlags(f uint8) string {
	return flagString(f, []flagName{
		{image.ClassArray, "array"},
		{image.ClassHasClinit, "clinit"},
		{image.ClassInterface, "interface"},
	})
}

func methodFlags(f uint8) string {
	return flagString(f, []flagName{
		{image.MethodNative, "native"},
		{image.MethodSynchronized, "synchronized"},
		{image.MethodStatic, "static"},
	})
}

type flagName struct {
	bit  uint8
	name string
}

func flagString(f uint8, names []flagName) string {
	if f == 0 {
		return "-"
	}
	s := ""
	for _, n := range names {
		if f&n.bit != 0 {
			if s != "" {
				s += ","
			}
			s += n.name
		}
	}
	return s
}
