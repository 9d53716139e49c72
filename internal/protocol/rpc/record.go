package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FragmentHeader is the 4-byte record marking header preceding each fragment.
//
// Bit 31 flags the last fragment of a record; bits 0-30 hold the fragment
// length in bytes.
type FragmentHeader struct {
	Last   bool
	Length uint32
}

// ReadFragmentHeader reads one fragment header from r.
func ReadFragmentHeader(r io.Reader) (FragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FragmentHeader{}, err
	}

	header := binary.BigEndian.Uint32(buf[:])
	return FragmentHeader{
		Last:   header&lastFragmentFlag != 0,
		Length: header & fragmentLengthMask,
	}, nil
}

func (h FragmentHeader) encode() [4]byte {
	v := h.Length & fragmentLengthMask
	if h.Last {
		v |= lastFragmentFlag
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf
}

// WriteRecord writes msg as a single last fragment.
func WriteRecord(w io.Writer, msg []byte) error {
	if uint64(len(msg)) > fragmentLengthMask {
		return &FramingError{Reason: fmt.Sprintf("message of %d bytes does not fit one fragment", len(msg))}
	}

	header := FragmentHeader{Last: true, Length: uint32(len(msg))}.encode()
	frame := make([]byte, 0, 4+len(msg))
	frame = append(frame, header[:]...)
	frame = append(frame, msg...)

	_, err := w.Write(frame)
	return err
}

// WriteFragments writes msg split into fragments of at most size bytes.
// An empty msg is written as one empty last fragment.
func WriteFragments(w io.Writer, msg []byte, size int) error {
	if size <= 0 || size > fragmentLengthMask {
		return &FramingError{Reason: fmt.Sprintf("invalid fragment size %d", size)}
	}

	for {
		n := min(len(msg), size)
		header := FragmentHeader{Last: n == len(msg), Length: uint32(n)}.encode()
		if _, err := w.Write(header[:]); err != nil {
			return err
		}
		if _, err := w.Write(msg[:n]); err != nil {
			return err
		}
		msg = msg[n:]
		if len(msg) == 0 {
			return nil
		}
	}
}

// ReadRecord reads fragments from r until the last one and returns their
// concatenated payload. max bounds both each fragment and the whole record;
// zero disables the bound.
//
// End of stream before a record completes yields ErrConnectionClosed. A
// fragment or record over max yields *FramingError.
func ReadRecord(r io.Reader, max uint32) ([]byte, error) {
	var record []byte

	for {
		header, err := ReadFragmentHeader(r)
		if err != nil {
			return nil, streamError("read fragment header", err)
		}

		if max > 0 && header.Length > max {
			return nil, &FramingError{Reason: fmt.Sprintf("fragment of %d bytes exceeds limit %d", header.Length, max)}
		}
		total := uint64(len(record)) + uint64(header.Length)
		if max > 0 && total > uint64(max) {
			return nil, &FramingError{Reason: fmt.Sprintf("record of %d bytes exceeds limit %d", total, max)}
		}

		start := len(record)
		record = append(record, make([]byte, header.Length)...)
		if _, err := io.ReadFull(r, record[start:]); err != nil {
			return nil, streamError("read fragment body", err)
		}

		if header.Last {
			if record == nil {
				record = []byte{}
			}
			return record, nil
		}
	}
}

func streamError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %v", ErrConnectionClosed, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
