package linker

import (
	"fmt"
	"sort"

	"github.com/chazu/tinylink/classfile"
	"github.com/chazu/tinylink/image"
)

// intrinsicSignatures seed every signature table, so their ids are the
// same in every image. The interpreter binds native behaviour to these ids;
// a native method with any other signature has no implementation.
var intrinsicSignatures = []string{
	"main([Ljava/lang/String;)V",
	"run()V",
	"<init>()V",
	"<clinit>()V",
	"start()V",
	"yield()V",
	"sleep(J)V",
	"currentThread()Ljava/lang/Thread;",
	"getPriority()I",
	"setPriority(I)V",
	"interrupt()V",
	"interrupted()Z",
	"isInterrupted()Z",
	"setDaemon(Z)V",
	"isDaemon()Z",
	"join()V",
	"join(J)V",
	"wait()V",
	"wait(J)V",
	"notify()V",
	"notifyAll()V",
	"exit(I)V",
	"currentTimeMillis()J",
	"arraycopy(Ljava/lang/Object;ILjava/lang/Object;II)V",
	"getDataAddress(Ljava/lang/Object;)I",
	"readMemoryByte(I)B",
	"writeMemoryByte(IB)V",
	"setMemoryBit(III)V",
	"freeMemory()J",
	"totalMemory()J",
	"floatToIntBits(F)I",
	"intBitsToFloat(I)F",
	"hashCode()I",
	"getClass()Ljava/lang/Class;",
	"toString()Ljava/lang/String;",
}

// SignatureTable interns method signatures (name followed by descriptor)
// into small global ids.
type SignatureTable struct {
	ids  map[string]int
	list []string
}

// NewSignatureTable returns a table pre-seeded with the intrinsic
// signatures.
func NewSignatureTable() *SignatureTable {
	t := &SignatureTable{ids: make(map[string]int)}
	for _, sig := range intrinsicSignatures {
		t.ids[sig] = len(t.list)
		t.list = append(t.list, sig)
	}
	return t
}

// Intern returns the id of sig, adding it if needed.
func (t *SignatureTable) Intern(sig string) (int, error) {
	if id, ok := t.ids[sig]; ok {
		return id, nil
	}
	if len(t.list) >= image.MaxSignatures {
		return 0, limitErr("signatures", len(t.list)+1, image.MaxSignatures)
	}
	id := len(t.list)
	t.ids[sig] = id
	t.list = append(t.list, sig)
	return id, nil
}

// Lookup returns the id of an interned signature.
func (t *SignatureTable) Lookup(sig string) (int, bool) {
	id, ok := t.ids[sig]
	return id, ok
}

// IsIntrinsic reports whether id names an intrinsic signature.
func (t *SignatureTable) IsIntrinsic(id int) bool {
	return id >= 0 && id < len(intrinsicSignatures)
}

// Len returns the number of signatures.
func (t *SignatureTable) Len() int {
	return len(t.list)
}

// All returns the signatures in id order.
func (t *SignatureTable) All() []string {
	return t.list
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// MethodEntry is one method of a class.
type MethodEntry struct {
	Class       *ClassEntry
	Name        string
	Descriptor  string
	SignatureID int
	// Ordinal is the method's position in its class's method table.
	Ordinal        int
	Locals         int
	Operands       int
	ParameterWords int
	Flags          uint8

	Handlers []*ExceptionRecord
	Code     *CodeRecord

	member       *classfile.Member
	handlerTable *Table
	imageOffset  int
}

// Signature returns name followed by descriptor.
func (m *MethodEntry) Signature() string {
	return m.Name + m.Descriptor
}

func (m *MethodEntry) String() string {
	return m.Class.Name + "." + m.Signature()
}

// IsStatic reports whether the method is static.
func (m *MethodEntry) IsStatic() bool {
	return m.Flags&image.MethodStatic != 0
}

// buildMethods records every method, interns its signature and sorts each
// class's method table by signature id.
func (s *Session) buildMethods() error {
	for _, c := range s.classes {
		if n := len(c.File.Methods); n > image.MaxMethods {
			return linkErr(StageMethods, c.Name, limitErr("methods", n, image.MaxMethods))
		}
		for i := range c.File.Methods {
			m, err := s.newMethod(c, &c.File.Methods[i])
			if err != nil {
				return err
			}
			c.Methods = append(c.Methods, m)
		}
		sort.SliceStable(c.Methods, func(i, j int) bool {
			return c.Methods[i].SignatureID < c.Methods[j].SignatureID
		})
		for i, m := range c.Methods {
			m.Ordinal = i
		}
	}
	log.Debugf("methods: %d signatures", s.signatures.Len())
	return nil
}

func (s *Session) newMethod(c *ClassEntry, mem *classfile.Member) (*MethodEntry, error) {
	m := &MethodEntry{Class: c, Name: mem.Name, Descriptor: mem.Descriptor, member: mem}

	id, err := s.signatures.Intern(m.Signature())
	if err != nil {
		return nil, methodErr(StageMethods, m, err)
	}
	m.SignatureID = id

	if mem.AccessFlags&classfile.AccNative != 0 {
		m.Flags |= image.MethodNative
	}
	if mem.AccessFlags&classfile.AccSynchronized != 0 {
		m.Flags |= image.MethodSynchronized
	}
	if mem.IsStatic() {
		m.Flags |= image.MethodStatic
	}

	words, err := classfile.ParameterWords(mem.Descriptor)
	if err != nil {
		return nil, methodErr(StageMethods, m, fmt.Errorf("%w: %w", ErrMalformedClass, err))
	}
	if !mem.IsStatic() {
		words++
	}
	if words > image.MaxParameterWords {
		return nil, methodErr(StageMethods, m, limitErr("parameter words", words, image.MaxParameterWords))
	}
	m.ParameterWords = words

	if code := mem.Code; code != nil {
		if int(code.MaxLocals) > image.MaxLocals {
			return nil, methodErr(StageMethods, m, limitErr("locals", int(code.MaxLocals), image.MaxLocals))
		}
		if int(code.MaxStack) > image.MaxOperands {
			return nil, methodErr(StageMethods, m, limitErr("operand stack", int(code.MaxStack), image.MaxOperands))
		}
		if len(code.Handlers) > image.MaxHandlers {
			return nil, methodErr(StageMethods, m, limitErr("exception handlers", len(code.Handlers), image.MaxHandlers))
		}
		m.Locals = int(code.MaxLocals)
		m.Operands = int(code.MaxStack)
	}

	if m.Flags&image.MethodNative != 0 && !s.signatures.IsIntrinsic(id) {
		s.warn(WarnNativeSignature, c.Name, "native method %s has no intrinsic signature", m.Signature())
	}
	return m, nil
}

// resolveMethod finds a method by name and descriptor in c or its
// superclasses.
func resolveMethod(c *ClassEntry, name, desc string) *MethodEntry {
	for k := c; k != nil; k = k.Parent {
		if m := k.Method(name, desc); m != nil {
			return m
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Exception tables
// ---------------------------------------------------------------------------

// ExceptionRecord is one exception handler of a method.
type ExceptionRecord struct {
	Start   int
	End     int
	Handler int
	Catch   *ClassEntry

	imageOffset int
}

// buildExceptions resolves each method's handlers. A catch-all handler
// catches java/lang/Throwable.
func (s *Session) buildExceptions() error {
	for _, c := range s.classes {
		for _, m := range c.Methods {
			if m.member.Code == nil {
				continue
			}
			m.Handlers = make([]*ExceptionRecord, 0, len(m.member.Code.Handlers))
			for _, h := range m.member.Code.Handlers {
				name := ThrowableClass
				if h.CatchType != 0 {
					var err error
					if name, err = c.File.Pool.ClassName(h.CatchType); err != nil {
						return methodErr(StageExceptions, m, fmt.Errorf("%w: %w", ErrMalformedClass, err))
					}
				}
				catch, ok := s.byName[name]
				if !ok {
					return methodErr(StageExceptions, m, fmt.Errorf("%w: handler class %s is not in the closure", ErrUnresolved, name))
				}
				m.Handlers = append(m.Handlers, &ExceptionRecord{
					Start:   int(h.StartPC),
					End:     int(h.EndPC),
					Handler: int(h.HandlerPC),
					Catch:   catch,
				})
			}
		}
	}
	return nil
}

// BuildSymbols runs the four symbol passes in order: constants, fields,
// methods and signatures, exception tables.
func (s *Session) BuildSymbols() error {
	if err := s.advance(stageClosed, stageInterned); err != nil {
		return err
	}
	for _, pass := range []func() error{s.buildConstants, s.buildFields, s.buildMethods, s.buildExceptions} {
		if err := pass(); err != nil {
			return err
		}
	}
	return nil
}
