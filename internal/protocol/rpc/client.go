package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/marmos91/nfsprobe/internal/logger"
)

// CallRecord describes one completed call, successful or not.
type CallRecord struct {
	XID       uint32
	Program   uint32
	Version   uint32
	Procedure uint32

	// Call is the encoded call message without record marking.
	Call []byte

	// Reply is the received reply message, nil if none arrived.
	Reply []byte

	Started  time.Time
	Duration time.Duration
	Err      error
}

// Observer is notified after every call made through a Client.
type Observer interface {
	ObserveCall(rec CallRecord)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec CallRecord)

// ObserveCall calls f(rec).
func (f ObserverFunc) ObserveCall(rec CallRecord) { f(rec) }

// MultiObserver fans a record out to every non-nil observer.
func MultiObserver(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(rec CallRecord) {
		for _, o := range list {
			o.ObserveCall(rec)
		}
	})
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// InitialXID is the XID of the first call. Zero picks a random start.
	InitialXID uint32

	// Observer receives a CallRecord after every call. Optional.
	Observer Observer
}

// Client issues ONC RPC calls over a Conn, one at a time.
type Client struct {
	mu       sync.Mutex
	conn     *Conn
	nextXID  uint32
	observer Observer
}

// NewClient returns a Client that owns conn.
func NewClient(conn *Conn, opts ClientOptions) *Client {
	xid := opts.InitialXID
	if xid == 0 {
		xid = rand.Uint32() | 1
	}
	return &Client{conn: conn, nextXID: xid, observer: opts.Observer}
}

// Conn returns the underlying connection.
func (c *Client) Conn() *Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one call and waits for its reply.
//
// On success it returns the procedure-specific result bytes, the reply
// message from ReplyHeader.ResultOffset on; decode errors reported against
// them carry offsets relative to that slice. Denied and
// unsuccessful replies surface as *RejectedError and *AcceptError. A reply
// carrying another XID is an *XIDMismatchError regardless of its status.
func (c *Client) Call(ctx context.Context, program, version, procedure uint32, args []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	xid := c.nextXID
	c.nextXID++

	rec := CallRecord{
		XID:       xid,
		Program:   program,
		Version:   version,
		Procedure: procedure,
		Started:   time.Now(),
	}

	results, err := c.roundTrip(ctx, &rec, args)

	rec.Duration = time.Since(rec.Started)
	rec.Err = err
	if c.observer != nil {
		c.observer.ObserveCall(rec)
	}

	if err != nil {
		logger.Debug("RPC call failed",
			logger.KeyXID, fmt.Sprintf("0x%08x", xid),
			logger.KeyProgram, ProgramName(program),
			logger.KeyProcedure, procedure,
			logger.KeyError, err)
		return nil, err
	}

	logger.Debug("RPC call complete",
		logger.KeyXID, fmt.Sprintf("0x%08x", xid),
		logger.KeyProgram, ProgramName(program),
		logger.KeyProcedure, procedure,
		logger.KeyBytes, len(results),
		logger.KeyDuration, rec.Duration)
	return results, nil
}

func (c *Client) roundTrip(ctx context.Context, rec *CallRecord, args []byte) ([]byte, error) {
	msg, err := BuildCall(rec.XID, rec.Program, rec.Version, rec.Procedure, args)
	if err != nil {
		return nil, err
	}
	rec.Call = msg

	if err := c.conn.Send(ctx, msg); err != nil {
		return nil, err
	}

	reply, err := c.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	rec.Reply = reply

	header, err := ParseReply(reply)
	if header != nil && header.XID != rec.XID {
		return nil, &XIDMismatchError{Want: rec.XID, Got: header.XID}
	}
	if err != nil {
		return nil, err
	}

	return reply[header.ResultOffset:], nil
}

// IsTransportError reports whether err came from the connection rather
// than from the peer's RPC layer.
func IsTransportError(err error) bool {
	var framing *FramingError
	return errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrTimeout) || errors.As(err, &framing)
}
