package xdr

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads XDR items from a byte slice, tracking the current offset.
//
// A Decoder never reads past len(buf). Every failure is a *DecodeError carrying
// the offset of the item that could not be decoded.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Offset returns the position of the next unread byte.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Rest returns the unread bytes without consuming them.
func (d *Decoder) Rest() []byte {
	return d.buf[d.off:]
}

func (d *Decoder) fail(at int, err error) error {
	return &DecodeError{Offset: at, Err: err}
}

// take consumes n bytes, failing with ErrTruncated when fewer remain.
func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, d.fail(d.off, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, d.Remaining()))
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Skip advances past n bytes.
func (d *Decoder) Skip(n int) error {
	_, err := d.take(n)
	return err
}

// Uint32 reads an unsigned 32-bit integer.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Uint64 reads an unsigned hyper integer.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Int32 reads a signed 32-bit integer.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Int64 reads a signed hyper integer.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Bool reads an XDR boolean. Values other than 0 and 1 are rejected.
func (d *Decoder) Bool() (bool, error) {
	at := d.off
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.fail(at, fmt.Errorf("%w: boolean %d", ErrBadDiscriminant, v))
	}
}

// FixedOpaque reads n bytes of fixed-length opaque data plus its padding.
// The returned slice is a copy.
func (d *Decoder) FixedOpaque(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	if err := d.Skip(Pad(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Opaque reads variable-length opaque data. A max of zero means unbounded
// (the buffer length still bounds the read).
func (d *Decoder) Opaque(max uint32) ([]byte, error) {
	at := d.off
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if max > 0 && n > max {
		return nil, d.fail(at, fmt.Errorf("%w: %d > %d", ErrTooLong, n, max))
	}
	if uint64(n) > uint64(d.Remaining()) {
		return nil, d.fail(d.off, fmt.Errorf("%w: opaque length %d, have %d", ErrTruncated, n, d.Remaining()))
	}
	return d.FixedOpaque(int(n))
}

// String reads an XDR string.
func (d *Decoder) String(max uint32) (string, error) {
	b, err := d.Opaque(max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Optional reads a boolean discriminant and, when it is true, calls fn to
// decode the value. It reports whether the value was present.
func (d *Decoder) Optional(fn func(*Decoder) error) (bool, error) {
	present, err := d.Bool()
	if err != nil || !present {
		return false, err
	}
	if err := fn(d); err != nil {
		return true, err
	}
	return true, nil
}

// Uint32Array reads a counted array of uint32. A max of zero means unbounded.
func (d *Decoder) Uint32Array(max uint32) ([]uint32, error) {
	at := d.off
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if max > 0 && n > max {
		return nil, d.fail(at, fmt.Errorf("%w: %d elements > %d", ErrTooLong, n, max))
	}
	if uint64(n)*4 > uint64(d.Remaining()) {
		return nil, d.fail(d.off, fmt.Errorf("%w: array of %d, have %d bytes", ErrTruncated, n, d.Remaining()))
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = d.Uint32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Done fails with ErrTrailingBytes unless the whole buffer was consumed.
func (d *Decoder) Done() error {
	if d.Remaining() != 0 {
		return d.fail(d.off, fmt.Errorf("%w: %d unread", ErrTrailingBytes, d.Remaining()))
	}
	return nil
}
