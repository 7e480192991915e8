package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer accumulates an encoded bancho packet body. The zero value is
// ready to use.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated bytes so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteU8 writes an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteI16 writes a little-endian signed 16-bit integer.
func (w *Writer) WriteI16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf.Write(b[:])
}

// WriteU16 writes a little-endian unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteI32 writes a little-endian signed 32-bit integer.
func (w *Writer) WriteI32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// WriteU32 writes a little-endian unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteI64 writes a little-endian signed 64-bit integer.
func (w *Writer) WriteI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

// WriteF32 writes a little-endian 32-bit float.
func (w *Writer) WriteF32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf.Write(b[:])
}

func writeULEB128(buf *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf.WriteByte(b | 0x80)
		} else {
			buf.WriteByte(b)
			return
		}
	}
}

// WriteString writes a marker-prefixed, ULEB128-length-prefixed UTF-8
// string. Empty strings are written with the absent (0x00) marker, as
// the real client does.
func (w *Writer) WriteString(s string) {
	if s == "" {
		w.buf.WriteByte(0x00)
		return
	}
	w.buf.WriteByte(0x0B)
	writeULEB128(&w.buf, uint32(len(s)))
	w.buf.WriteString(s)
}

// WriteIntList writes a 16-bit-length-prefixed list of little-endian
// int32 values.
func (w *Writer) WriteIntList(vals []int32) {
	w.WriteU16(uint16(len(vals)))
	for _, v := range vals {
		w.WriteI32(v)
	}
}

// WriteRaw writes b verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}
