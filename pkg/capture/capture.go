// Package capture records the RPC exchanges of a probe run.
//
// A Recorder observes an rpc.Client and turns every completed call into an
// Exchange holding the exact call and reply bytes. Exchanges are appended to
// a Store, which keeps them grouped by run id so a transcript can be listed
// back in sequence order.
//
// Three stores are provided:
//   - MemoryStore: process local, used by tests and one-shot CLI runs
//   - BadgerStore: persistent transcript on local disk
//   - S3Store: transcripts shipped to an S3 compatible bucket
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("capture store closed")

// Exchange is one call and its reply, as seen on the wire.
type Exchange struct {
	RunID     string `json:"run_id"`
	Seq       uint64 `json:"seq"`
	XID       uint32 `json:"xid"`
	Program   uint32 `json:"program"`
	Version   uint32 `json:"version"`
	Procedure uint32 `json:"procedure"`

	// Call and Reply are the RPC messages without record marking.
	// Reply is nil when no reply arrived.
	Call  []byte `json:"call"`
	Reply []byte `json:"reply,omitempty"`

	// Err is the client side error text, empty on success.
	Err string `json:"err,omitempty"`

	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Store persists exchanges.
//
// Append must be safe for concurrent use. List returns the exchanges of one
// run ordered by Seq; an unknown run yields an empty slice.
type Store interface {
	Append(ctx context.Context, x Exchange) error
	List(ctx context.Context, runID string) ([]Exchange, error)
	Close() error
}

// seqKey renders a sequence number so that lexical order matches numeric order.
func seqKey(seq uint64) string {
	return fmt.Sprintf("%010d", seq)
}
