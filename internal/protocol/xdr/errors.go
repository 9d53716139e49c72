package xdr

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a read would run past the end of the buffer.
	ErrTruncated = errors.New("xdr: truncated message")

	// ErrTrailingBytes is returned when a message decodes cleanly but bytes remain.
	ErrTrailingBytes = errors.New("xdr: trailing bytes after message")

	// ErrBadDiscriminant is returned for union or boolean tags outside their domain.
	ErrBadDiscriminant = errors.New("xdr: unexpected discriminant")

	// ErrTooLong is returned when a length prefix exceeds the caller's bound.
	ErrTooLong = errors.New("xdr: length exceeds limit")

	// ErrLengthMismatch is returned when a count field disagrees with the
	// length of the data it describes.
	ErrLengthMismatch = errors.New("xdr: count does not match data length")
)

// DecodeError reports where in a buffer decoding failed.
//
// Offset is the byte position at which the failing field starts, counted
// from the start of the buffer handed to the decoder. For catalog responses
// that buffer is the procedure results, so the wire offset within the RPC
// reply is Offset plus rpc.ReplyHeader.ResultOffset. Field is a short dotted
// path naming the element being decoded (e.g. "wcc.after.size").
type DecodeError struct {
	Offset int
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Within prefixes the Field of a DecodeError found in err with scope.
// Errors of any other type are returned unchanged.
func Within(scope string, err error) error {
	var de *DecodeError
	if err == nil || !errors.As(err, &de) {
		return err
	}
	if de.Field == "" {
		de.Field = scope
	} else {
		de.Field = scope + "." + de.Field
	}
	return err
}
