package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/marmos91/nfsprobe/internal/logger"
)

const (
	// DefaultTimeout bounds each blocking read or write of a call.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRecordSize bounds a reassembled reply record.
	DefaultMaxRecordSize = 4 << 20
)

// Options configures a Conn.
type Options struct {
	// Timeout bounds each Send and Receive. A context deadline that expires
	// sooner takes precedence. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxRecordSize bounds the size of a received record. Zero means
	// DefaultMaxRecordSize.
	MaxRecordSize uint32
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRecordSize == 0 {
		o.MaxRecordSize = DefaultMaxRecordSize
	}
	return o
}

// Conn is a record-marked ONC RPC stream over one TCP connection.
//
// Conn is not safe for concurrent use; calls are strictly request then
// reply. Once an operation fails the underlying connection is closed and
// every later operation returns ErrConnectionClosed.
type Conn struct {
	nc   net.Conn
	opts Options
	err  error
}

// Dial connects to addr and returns a Conn.
func Dial(ctx context.Context, network, addr string, opts Options) (*Conn, error) {
	opts = opts.withDefaults()

	dialer := net.Dialer{Timeout: opts.Timeout}
	nc, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	logger.Debug("RPC connection established", logger.KeyAddr, addr)
	return NewConn(nc, opts), nil
}

// NewConn wraps an established connection. The Conn takes ownership of nc.
func NewConn(nc net.Conn, opts Options) *Conn {
	return &Conn{nc: nc, opts: opts.withDefaults()}
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Send writes msg as one record.
func (c *Conn) Send(ctx context.Context, msg []byte) error {
	if err := c.usable(); err != nil {
		return err
	}

	stop, err := c.arm(ctx, c.nc.SetWriteDeadline)
	if err != nil {
		return c.fail(ctx, "send", err)
	}
	defer stop()

	if err := WriteRecord(c.nc, msg); err != nil {
		return c.fail(ctx, "send", err)
	}
	return nil
}

// Receive reads one complete record.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}

	stop, err := c.arm(ctx, c.nc.SetReadDeadline)
	if err != nil {
		return nil, c.fail(ctx, "receive", err)
	}
	defer stop()

	record, err := ReadRecord(c.nc, c.opts.MaxRecordSize)
	if err != nil {
		return nil, c.fail(ctx, "receive", err)
	}
	return record, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	if c.err == nil {
		c.err = net.ErrClosed
	}
	err := c.nc.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *Conn) usable() error {
	if c.err == nil {
		return nil
	}
	if errors.Is(c.err, ErrConnectionClosed) {
		return c.err
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, c.err)
}

// arm sets the I/O deadline for one operation and interrupts it if ctx is
// cancelled. The returned function disarms the cancellation hook.
func (c *Conn) arm(ctx context.Context, set func(time.Time) error) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := set(deadline); err != nil {
		return func() {}, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Now())
	})
	return func() { stop() }, nil
}

// fail classifies err, poisons the Conn and closes the socket.
func (c *Conn) fail(ctx context.Context, op string, err error) error {
	err = c.classify(ctx, op, err)
	c.err = err
	_ = c.nc.Close()

	logger.Debug("RPC connection failed", logger.KeyOp, op, logger.KeyError, err)
	return err
}

func (c *Conn) classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", ErrTimeout, op, ctxErr)
		}
		return fmt.Errorf("rpc: %s: %w", op, ctxErr)
	}

	var framing *FramingError
	if errors.As(err, &framing) || errors.Is(err, ErrConnectionClosed) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s exceeded %s", ErrTimeout, op, c.opts.Timeout)
	}

	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %s: %v", ErrConnectionClosed, op, err)
	}

	return fmt.Errorf("rpc: %s: %w", op, err)
}
