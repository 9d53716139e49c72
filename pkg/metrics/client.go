package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/nfsprobe/internal/protocol/mount"
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/portmap"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
)

// Byte directions for RecordBytes.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Call outcomes, used as the outcome label.
const (
	OutcomeSuccess     = "success"
	OutcomeTransport   = "transport_error"
	OutcomeRejected    = "rejected"
	OutcomeAccept      = "accept_error"
	OutcomeXIDMismatch = "xid_mismatch"
	OutcomeOther       = "error"
)

// ClientMetrics records the RPC calls made by a probe.
type ClientMetrics interface {
	// RecordCall records one completed call.
	RecordCall(program, procedure string, d time.Duration, err error)

	// RecordBytes records n bytes of RPC messages in direction.
	RecordBytes(direction string, n int)
}

type noopClientMetrics struct{}

// NewNoopClientMetrics returns a ClientMetrics that discards everything.
func NewNoopClientMetrics() ClientMetrics {
	return noopClientMetrics{}
}

func (noopClientMetrics) RecordCall(string, string, time.Duration, error) {}
func (noopClientMetrics) RecordBytes(string, int)                        {}

// Outcome classifies a call error for the outcome label.
func Outcome(err error) string {
	var (
		rejected *rpc.RejectedError
		accept   *rpc.AcceptError
		mismatch *rpc.XIDMismatchError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &mismatch):
		return OutcomeXIDMismatch
	case errors.As(err, &rejected):
		return OutcomeRejected
	case errors.As(err, &accept):
		return OutcomeAccept
	case rpc.IsTransportError(err):
		return OutcomeTransport
	default:
		return OutcomeOther
	}
}

// ProcedureName names proc within program for the procedure label.
func ProcedureName(program, proc uint32) string {
	switch program {
	case rpc.ProgramPortmap:
		return portmap.ProcedureName(proc)
	case rpc.ProgramMount:
		return mount.ProcedureName(proc)
	case rpc.ProgramNFS:
		return types.ProcedureName(proc)
	default:
		return fmt.Sprintf("PROC_%d", proc)
	}
}

// Observer adapts m to an rpc.Observer.
func Observer(m ClientMetrics) rpc.Observer {
	if m == nil {
		m = NewNoopClientMetrics()
	}
	return rpc.ObserverFunc(func(rec rpc.CallRecord) {
		m.RecordCall(rpc.ProgramName(rec.Program), ProcedureName(rec.Program, rec.Procedure), rec.Duration, rec.Err)
		m.RecordBytes(DirectionSent, len(rec.Call))
		if rec.Reply != nil {
			m.RecordBytes(DirectionReceived, len(rec.Reply))
		}
	})
}
