package linker

import "github.com/chazu/tinylink/image"

// CodeRecord holds a method body. CopyCode fills it with the class file's
// bytes; Rewrite patches operands in place without changing its length.
type CodeRecord struct {
	Method *MethodEntry
	Bytes  []byte

	copied      int
	imageOffset int
}

// CopyCode copies every method body verbatim, in class and method table
// order. Operands still hold constant pool indices afterwards.
func (s *Session) CopyCode() error {
	if err := s.advance(stageInterned, stageCopied); err != nil {
		return err
	}
	for _, c := range s.classes {
		for _, m := range c.Methods {
			code := m.member.Code
			if code == nil {
				continue
			}
			if len(code.Bytecode) > image.MaxCodeLength {
				return methodErr(StageCopy, m, limitErr("code length", len(code.Bytecode), image.MaxCodeLength))
			}
			rec := &CodeRecord{
				Method: m,
				Bytes:  append([]byte(nil), code.Bytecode...),
				copied: len(code.Bytecode),
			}
			m.Code = rec
			s.code = append(s.code, rec)
		}
	}
	log.Debugf("copy: %d method bodies", len(s.code))
	return nil
}
