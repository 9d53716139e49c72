// Package nfstest provides an in-process ONC RPC server speaking Portmapper
// v2, MOUNT v3 and NFSv3 over TCP, backed by an in-memory file tree.
//
// It exists so the probe and the protocol packages can be exercised end to
// end without a real NFS server:
//
//	srv := nfstest.Start(t, nfstest.Options{})
//	conn, err := rpc.Dial(ctx, "tcp", srv.Addr(), rpc.Options{})
//
// All three programs are served on the same port; GETPORT reports it.
package nfstest

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
)

const (
	maxTransfer = 64 * 1024

	// maxCallSize bounds incoming records: a maximal WRITE plus headers.
	maxCallSize = maxTransfer + 4096
)

// Options configures a Server.
type Options struct {
	// Exports lists the paths MNT accepts. Defaults to "/". All exports
	// share the same tree.
	Exports []string

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time

	// Intercept, when set, sees every reply before it is written and may
	// replace it. Returning nil drops the reply and closes the connection.
	Intercept func(call *rpc.CallMessage, reply []byte) []byte
}

// Server is an in-memory ONC RPC server.
type Server struct {
	opts     Options
	fs       *memFS
	listener net.Listener

	verfMu sync.Mutex
	verf   types.WriteVerifier

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a server that is not yet listening.
func New(opts Options) *Server {
	if len(opts.Exports) == 0 {
		opts.Exports = []string{"/"}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts, fs: newMemFS(opts.Now)}
	s.Reboot()
	return s
}

// Start listens on a loopback port, serves in the background and registers
// Close as a test cleanup.
func Start(tb testing.TB, opts Options) *Server {
	tb.Helper()
	s := New(opts)
	if err := s.Listen("127.0.0.1:0"); err != nil {
		tb.Fatalf("nfstest: %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })
	return s
}

// Listen binds addr and starts accepting connections.
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.accept(ctx)

	logger.Debug("nfstest server listening", logger.KeyAddr, listener.Addr().String())
	return nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() uint32 {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.ParseUint(port, 10, 16)
	return uint32(n)
}

// Reboot replaces the write verifier, as a real server does when it
// restarts and loses uncommitted data.
func (s *Server) Reboot() {
	s.verfMu.Lock()
	defer s.verfMu.Unlock()
	_, _ = rand.Read(s.verf[:])
}

func (s *Server) verifier() types.WriteVerifier {
	s.verfMu.Lock()
	defer s.verfMu.Unlock()
	return s.verf
}

// RootHandle returns the handle MNT hands out for every export.
func (s *Server) RootHandle() types.FileHandle {
	return handleOf(rootID)
}

// Close stops accepting, closes live connections and waits for them.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	s.cancel()
	err := s.listener.Close()
	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) accept(ctx context.Context) {
	defer s.wg.Done()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Debug("Error accepting connection", logger.KeyError, err)
			continue
		}

		s.wg.Add(1)
		go s.serveConn(ctx, nc)
	}
}

// serveConn answers calls on nc one at a time until the peer disconnects.
func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	defer stop()

	addr := nc.RemoteAddr().String()
	logger.Debug("New connection", logger.KeyAddr, addr)

	for {
		msg, err := rpc.ReadRecord(nc, maxCallSize)
		if err != nil {
			if !errors.Is(err, rpc.ErrConnectionClosed) {
				logger.Debug("Error reading call", logger.KeyAddr, addr, logger.KeyError, err)
			}
			return
		}

		call, reply, err := s.dispatch(msg)
		if err != nil {
			logger.Debug("Dropping call", logger.KeyAddr, addr, logger.KeyError, err)
			continue
		}
		if s.opts.Intercept != nil {
			if reply = s.opts.Intercept(call, reply); reply == nil {
				return
			}
		}

		if err := rpc.WriteRecord(nc, reply); err != nil {
			logger.Debug("Error writing reply", logger.KeyAddr, addr, logger.KeyError, err)
			return
		}
	}
}

// dispatch parses one call and builds its reply. Unparseable calls are
// returned as errors and get no reply.
func (s *Server) dispatch(msg []byte) (*rpc.CallMessage, []byte, error) {
	call, err := rpc.ReadCall(msg)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("RPC call",
		logger.KeyXID, fmt.Sprintf("0x%08x", call.XID),
		logger.KeyProgram, rpc.ProgramName(call.Program),
		logger.KeyVersion, call.Version,
		logger.KeyProcedure, call.Procedure)

	if call.RPCVersion != rpc.RPCVersion {
		reply, err := rpc.MakeRPCMismatchReply(call.XID, rpc.RPCVersion, rpc.RPCVersion)
		return call, reply, err
	}

	if f := call.Cred.Flavor; f != rpc.AuthNone && f != rpc.AuthSys {
		reply, err := rpc.MakeAuthErrorReply(call.XID, rpc.AuthBadCred)
		return call, reply, err
	}

	args, err := rpc.CallArgs(msg)
	if err != nil {
		reply, err := rpc.MakeAcceptErrorReply(call.XID, rpc.GarbageArgs)
		return call, reply, err
	}

	var (
		version uint32
		handler func(proc uint32, args []byte) ([]byte, rpc.AcceptStat, error)
	)
	switch call.Program {
	case rpc.ProgramPortmap:
		version, handler = rpc.PortmapVersion, s.handlePortmap
	case rpc.ProgramMount:
		version, handler = rpc.MountVersion, s.handleMount
	case rpc.ProgramNFS:
		version, handler = rpc.NFSVersion, s.handleNFS
	default:
		reply, err := rpc.MakeAcceptErrorReply(call.XID, rpc.ProgUnavail)
		return call, reply, err
	}

	if call.Version != version {
		reply, err := rpc.MakeProgMismatchReply(call.XID, version, version)
		return call, reply, err
	}

	results, stat, err := handler(call.Procedure, args)
	if err != nil {
		logger.Error("Handler error",
			logger.KeyProgram, rpc.ProgramName(call.Program),
			logger.KeyProcedure, call.Procedure,
			logger.KeyError, err)
		stat = rpc.SystemErr
	}
	if stat != rpc.Success {
		reply, err := rpc.MakeAcceptErrorReply(call.XID, stat)
		return call, reply, err
	}

	reply, err := rpc.MakeSuccessReply(call.XID, results)
	return call, reply, err
}

type encodable interface {
	Encode() ([]byte, error)
}

// serve decodes args, runs handle under the tree lock and encodes the result.
// Undecodable arguments are answered with GARBAGE_ARGS.
func serve[Req any, Resp encodable](s *Server, args []byte, decode func([]byte) (Req, error), handle func(Req) Resp) ([]byte, rpc.AcceptStat, error) {
	req, err := decode(args)
	if err != nil {
		logger.Debug("Error decoding request", logger.KeyError, err)
		return nil, rpc.GarbageArgs, nil
	}

	s.fs.mu.Lock()
	resp := handle(req)
	s.fs.mu.Unlock()

	b, err := resp.Encode()
	if err != nil {
		return nil, rpc.SystemErr, err
	}
	return b, rpc.Success, nil
}

func (s *Server) exported(path string) bool {
	for _, e := range s.opts.Exports {
		if e == path {
			return true
		}
	}
	return false
}

