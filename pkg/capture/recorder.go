package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
)

// Recorder is an rpc.Observer that appends every observed call to a Store
// under a single run id.
//
// Store failures never fail the RPC call being observed; they are collected
// and reported by Err.
type Recorder struct {
	store Store
	runID string
	ctx   context.Context
	seq   atomic.Uint64

	mu   sync.Mutex
	errs error
}

// NewRecorder returns a Recorder writing to store. An empty runID gets a
// fresh random UUID.
func NewRecorder(ctx context.Context, store Store, runID string) *Recorder {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Recorder{store: store, runID: runID, ctx: ctx}
}

// RunID returns the id exchanges are recorded under.
func (r *Recorder) RunID() string {
	return r.runID
}

// ObserveCall implements rpc.Observer.
func (r *Recorder) ObserveCall(rec rpc.CallRecord) {
	x := Exchange{
		RunID:     r.runID,
		Seq:       r.seq.Add(1),
		XID:       rec.XID,
		Program:   rec.Program,
		Version:   rec.Version,
		Procedure: rec.Procedure,
		Call:      rec.Call,
		Reply:     rec.Reply,
		Started:   rec.Started,
		Duration:  rec.Duration,
	}
	if rec.Err != nil {
		x.Err = rec.Err.Error()
	}

	if err := r.store.Append(r.ctx, x); err != nil {
		logger.Warn("Failed to record exchange",
			logger.KeyXID, rec.XID,
			logger.KeyError, err)
		r.mu.Lock()
		r.errs = multierr.Append(r.errs, err)
		r.mu.Unlock()
	}
}

// Err returns every store error seen so far, combined, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs
}

// Transcript lists the exchanges recorded so far.
func (r *Recorder) Transcript(ctx context.Context) ([]Exchange, error) {
	return r.store.List(ctx, r.runID)
}
