// Package probe drives a server through the message catalog.
//
// A Session owns one connection per program. RunSmoke runs the basic
// MNT / CREATE / WRITE / COMMIT / REMOVE / LOOKUP scenario against it and
// returns a Report.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/ratelimiter"
	"github.com/marmos91/nfsprobe/internal/protocol/mount"
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	v3 "github.com/marmos91/nfsprobe/internal/protocol/nfs/v3"
	"github.com/marmos91/nfsprobe/internal/protocol/portmap"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
)

// ErrNotRegistered is returned when the portmapper has no TCP port for a
// required program.
var ErrNotRegistered = errors.New("program not registered with portmapper")

// Options describes how to reach the server under test.
type Options struct {
	Host string

	// Port is the NFS port, and the MOUNT port when MountPort is zero.
	Port uint32

	MountPort uint32

	// PortmapPort is used when UsePortmap is set. Zero means 111.
	PortmapPort uint32

	// UsePortmap resolves the MOUNT and NFS ports with GETPORT.
	UsePortmap bool

	Timeout       time.Duration
	MaxRecordSize uint32

	// MaxCallsPerSecond paces calls across all connections. Zero is unlimited.
	MaxCallsPerSecond float64

	// Observer sees every call on every connection. Optional.
	Observer rpc.Observer
}

func (o Options) addr(port uint32) string {
	return net.JoinHostPort(o.Host, strconv.FormatUint(uint64(port), 10))
}

// Session holds typed clients for the three programs. Portmap is nil
// unless UsePortmap was set.
type Session struct {
	Portmap *portmap.Client
	Mount   *mount.Client
	NFS     *v3.Client

	opts    Options
	limiter *ratelimiter.RateLimiter
	clients []*rpc.Client
}

// pacedCaller waits on the session limiter before every call.
type pacedCaller struct {
	*rpc.Client
	limiter *ratelimiter.RateLimiter
}

func (p pacedCaller) Call(ctx context.Context, program, version, procedure uint32, args []byte) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Client.Call(ctx, program, version, procedure, args)
}

// Dial connects to the server described by opts.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	s := newSession(opts)

	mountPort, nfsPort := opts.MountPort, opts.Port
	if mountPort == 0 {
		mountPort = nfsPort
	}

	if opts.UsePortmap {
		pc, err := s.dial(ctx, s.portmapPort())
		if err != nil {
			return nil, err
		}
		s.Portmap = portmap.NewClient(pc)

		if mountPort, err = s.lookup(ctx, rpc.ProgramMount, rpc.MountVersion); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		if nfsPort, err = s.lookup(ctx, rpc.ProgramNFS, rpc.NFSVersion); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
	}

	mc, err := s.dial(ctx, mountPort)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	s.Mount = mount.NewClient(mc)

	nc := mc
	if nfsPort != mountPort {
		if nc, err = s.dial(ctx, nfsPort); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
	}
	s.NFS = v3.NewClient(nc)

	logger.Debug("Probe session established",
		logger.KeyAddr, opts.Host,
		"mount_port", mountPort,
		"nfs_port", nfsPort,
		"max_calls_per_second", s.limiter.Limit())
	return s, nil
}

// DialPortmap connects to the portmapper only.
func DialPortmap(ctx context.Context, opts Options) (*Session, error) {
	s := newSession(opts)
	pc, err := s.dial(ctx, s.portmapPort())
	if err != nil {
		return nil, err
	}
	s.Portmap = portmap.NewClient(pc)
	return s, nil
}

func newSession(opts Options) *Session {
	return &Session{opts: opts, limiter: ratelimiter.New(opts.MaxCallsPerSecond, 1)}
}

func (s *Session) portmapPort() uint32 {
	if s.opts.PortmapPort == 0 {
		return portmap.DefaultPort
	}
	return s.opts.PortmapPort
}

func (s *Session) dial(ctx context.Context, port uint32) (pacedCaller, error) {
	conn, err := rpc.Dial(ctx, "tcp", s.opts.addr(port), rpc.Options{
		Timeout:       s.opts.Timeout,
		MaxRecordSize: s.opts.MaxRecordSize,
	})
	if err != nil {
		return pacedCaller{}, err
	}
	c := rpc.NewClient(conn, rpc.ClientOptions{Observer: s.opts.Observer})
	s.clients = append(s.clients, c)
	return pacedCaller{Client: c, limiter: s.limiter}, nil
}

func (s *Session) lookup(ctx context.Context, prog, vers uint32) (uint32, error) {
	port, err := s.Portmap.GetPort(ctx, prog, vers, portmap.IPProtoTCP)
	if err != nil {
		return 0, fmt.Errorf("getport %s v%d: %w", rpc.ProgramName(prog), vers, err)
	}
	if port == 0 {
		return 0, fmt.Errorf("%s v%d: %w", rpc.ProgramName(prog), vers, ErrNotRegistered)
	}
	return port, nil
}

// Close closes every connection of the session.
func (s *Session) Close() error {
	var err error
	for _, c := range s.clients {
		err = multierr.Append(err, c.Close())
	}
	s.clients = nil
	return err
}

// MountRoot calls MNT for path and returns the root handle. A non-OK
// mount status is returned as a *StatusError.
func (s *Session) MountRoot(ctx context.Context, path string) (types.FileHandle, error) {
	resp, err := s.Mount.Mount(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("mnt %s: %w", path, err)
	}
	if resp.Status != mount.MountOK {
		return nil, &StatusError{Op: "MNT " + path, Status: resp.Status, Name: mount.StatusString(resp.Status)}
	}
	return types.FileHandle(resp.FileHandle), nil
}

// ListDir reads the whole directory with READDIRPLUS, following cookies
// until eof.
func (s *Session) ListDir(ctx context.Context, dir types.FileHandle) ([]types.DirEntryPlus, error) {
	var (
		entries []types.DirEntryPlus
		cookie  uint64
		verf    types.CookieVerifier
	)
	for {
		resp, err := s.NFS.ReadDirPlus(ctx, &v3.ReadDirPlusRequest{
			DirHandle:  dir,
			Cookie:     cookie,
			CookieVerf: verf,
			DirCount:   8192,
			MaxCount:   32768,
		})
		if err != nil {
			return nil, fmt.Errorf("readdirplus: %w", err)
		}
		if resp.Status != types.NFS3OK {
			return nil, &StatusError{Op: "READDIRPLUS", Status: resp.Status, Name: types.StatusString(resp.Status)}
		}

		entries = append(entries, resp.Entries...)
		if resp.Eof {
			return entries, nil
		}
		if len(resp.Entries) == 0 {
			return nil, fmt.Errorf("readdirplus: no progress at cookie %d", cookie)
		}
		cookie = resp.Entries[len(resp.Entries)-1].Cookie
		verf = resp.CookieVerf
	}
}

// StatusError is a protocol status that ended an operation.
type StatusError struct {
	Op     string
	Status uint32
	Name   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Name)
}
