package image

import (
	"encoding/binary"
	"io"
)

// ---------------------------------------------------------------------------
// Writer: byte-order aware record output
// ---------------------------------------------------------------------------

// Writer writes image fields in a fixed byte order and counts the bytes
// written. The first write error is latched; later writes are no-ops and
// Err reports it.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	n     int64
	err   error
	buf   [2]byte
}

// NewWriter returns a Writer emitting multi-byte fields in order.
func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Count returns the number of bytes written so far.
func (w *Writer) Count() int64 {
	return w.n
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// U1 writes one byte.
func (w *Writer) U1(v uint8) {
	w.buf[0] = v
	w.Bytes(w.buf[:1])
}

// U2 writes a 16-bit field.
func (w *Writer) U2(v uint16) {
	w.order.PutUint16(w.buf[:], v)
	w.Bytes(w.buf[:2])
}

// Bytes writes raw bytes.
func (w *Writer) Bytes(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	w.err = err
}

// Pad writes n zero bytes.
func (w *Writer) Pad(n int) {
	for ; n > 0; n-- {
		w.U1(0)
	}
}

// PadTo writes zero bytes until Count is aligned.
func (w *Writer) PadTo(alignment int) {
	if rem := int(w.n % int64(alignment)); rem != 0 {
		w.Pad(alignment - rem)
	}
}

// ---------------------------------------------------------------------------
// Field words
// ---------------------------------------------------------------------------

// PackStaticField packs a static field descriptor word.
func PackStaticField(t Type, offset int) uint16 {
	return uint16(t)<<12 | uint16(offset&0x0FFF)
}

// UnpackStaticField splits a static field descriptor word.
func UnpackStaticField(v uint16) (Type, int) {
	return Type(v >> 12), int(v & 0x0FFF)
}
