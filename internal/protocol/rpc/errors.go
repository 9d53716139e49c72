package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed is returned when the peer closes the stream before a
	// complete record arrives, or when a Conn is used after it failed.
	ErrConnectionClosed = errors.New("rpc: connection closed")

	// ErrTimeout is returned when a call's deadline expires while blocked on I/O.
	ErrTimeout = errors.New("rpc: timeout")
)

// FramingError reports a record-marking stream that cannot be trusted any more.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "rpc: framing error: " + e.Reason
}

// RejectedError is returned for replies with reply_stat MSG_DENIED.
type RejectedError struct {
	Stat RejectStat

	// MismatchLow and MismatchHigh are set for RPC_MISMATCH.
	MismatchLow  uint32
	MismatchHigh uint32

	// AuthStat is set for AUTH_ERROR.
	AuthStat AuthStat
}

func (e *RejectedError) Error() string {
	switch e.Stat {
	case RPCMismatch:
		return fmt.Sprintf("rpc: call rejected: %s (supported %d-%d)", e.Stat, e.MismatchLow, e.MismatchHigh)
	case AuthError:
		return fmt.Sprintf("rpc: call rejected: %s (%s)", e.Stat, e.AuthStat)
	default:
		return fmt.Sprintf("rpc: call rejected: %s", e.Stat)
	}
}

// AcceptError is returned for accepted replies whose accept_stat is not SUCCESS.
type AcceptError struct {
	Stat AcceptStat

	// MismatchLow and MismatchHigh are set for PROG_MISMATCH.
	MismatchLow  uint32
	MismatchHigh uint32
}

func (e *AcceptError) Error() string {
	if e.Stat == ProgMismatch {
		return fmt.Sprintf("rpc: %s (supported %d-%d)", e.Stat, e.MismatchLow, e.MismatchHigh)
	}
	return "rpc: " + e.Stat.String()
}

// XIDMismatchError is returned when a reply does not echo the call's XID.
type XIDMismatchError struct {
	Want uint32
	Got  uint32
}

func (e *XIDMismatchError) Error() string {
	return fmt.Sprintf("rpc: reply xid 0x%08x does not match call xid 0x%08x", e.Got, e.Want)
}

// IsAcceptStat reports whether err is an AcceptError with the given status.
func IsAcceptStat(err error, stat AcceptStat) bool {
	var ae *AcceptError
	return errors.As(err, &ae) && ae.Stat == stat
}
