// Package xdr implements the External Data Representation (RFC 4506) rules
// shared by the Portmapper, MOUNT and NFSv3 message codecs.
//
// All quantities are big-endian and every item occupies a multiple of four
// bytes. Variable-length data is a uint32 length, the raw bytes, then
// (4 - length%4) % 4 zero bytes of padding.
package xdr

import (
	"bytes"
	"encoding/binary"
)

// ============================================================================
// Sizing helpers
// ============================================================================

// Pad returns the number of zero bytes that follow n bytes of opaque data.
func Pad(n int) int {
	return (4 - n%4) % 4
}

// OpaqueSize returns the encoded size of variable-length opaque data of n bytes,
// including its length prefix and padding.
func OpaqueSize(n int) int {
	return 4 + n + Pad(n)
}

var zeros [4]byte

// ============================================================================
// Encoder
// ============================================================================

// Encoder appends XDR items to an in-memory buffer.
//
// Writes to a bytes.Buffer cannot fail, so the methods return nothing and an
// Encoder can be threaded through message builders without error plumbing.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Uint32 appends an unsigned 32-bit integer.
func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// Uint64 appends an unsigned hyper integer.
func (e *Encoder) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// Int32 appends a signed 32-bit integer.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Int64 appends a signed hyper integer.
func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

// Bool appends an XDR boolean (0 or 1).
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
		return
	}
	e.Uint32(0)
}

// FixedOpaque appends fixed-length opaque data. The length is implied by the
// protocol, so no prefix is written, only padding.
func (e *Encoder) FixedOpaque(data []byte) {
	e.buf.Write(data)
	e.buf.Write(zeros[:Pad(len(data))])
}

// Opaque appends variable-length opaque data.
func (e *Encoder) Opaque(data []byte) {
	e.Uint32(uint32(len(data)))
	e.FixedOpaque(data)
}

// String appends an XDR string.
func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s)))
	e.buf.WriteString(s)
	e.buf.Write(zeros[:Pad(len(s))])
}

// Optional appends a boolean discriminant followed by the value written by fn
// when present is true. fn is not called otherwise.
func (e *Encoder) Optional(present bool, fn func(*Encoder)) {
	e.Bool(present)
	if present {
		fn(e)
	}
}

// Uint32Array appends a counted array of uint32.
func (e *Encoder) Uint32Array(values []uint32) {
	e.Uint32(uint32(len(values)))
	for _, v := range values {
		e.Uint32(v)
	}
}

// Raw appends bytes that are already XDR encoded.
func (e *Encoder) Raw(b []byte) {
	e.buf.Write(b)
}

// Bytes returns the encoded message. The slice aliases the Encoder's buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}
