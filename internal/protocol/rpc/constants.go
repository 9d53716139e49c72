package rpc

import "fmt"

// RPC Program Numbers
// These identify the programs this client talks to.
const (
	// ProgramPortmap is the port mapper program number (RFC 1833)
	ProgramPortmap = 100000

	// ProgramNFS is the NFS program number (RFC 1813)
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I)
	ProgramMount = 100005
)

// Program versions exercised by the catalog.
const (
	PortmapVersion = 2
	MountVersion   = 3
	NFSVersion     = 3
)

// RPCVersion is the only ONC RPC protocol version (RFC 5531).
const RPCVersion = 2

// RPC Message Types
const (
	// RPCCall indicates an RPC call message
	RPCCall = 0

	// RPCReply indicates an RPC reply message
	RPCReply = 1
)

// RPC Reply States
const (
	// RPCMsgAccepted indicates the RPC call was accepted
	RPCMsgAccepted = 0

	// RPCMsgDenied indicates the RPC call was denied
	RPCMsgDenied = 1
)

// Authentication flavors. AuthNone is the only one sent by this client.
const (
	AuthNone = 0
	AuthSys  = 1
)

// Record marking (RFC 5531 Section 11).
const (
	lastFragmentFlag   = 0x80000000
	fragmentLengthMask = 0x7FFFFFFF
)

// AcceptStat is the status of an accepted call.
type AcceptStat uint32

const (
	Success      AcceptStat = 0
	ProgUnavail  AcceptStat = 1
	ProgMismatch AcceptStat = 2
	ProcUnavail  AcceptStat = 3
	GarbageArgs  AcceptStat = 4
	SystemErr    AcceptStat = 5
)

func (s AcceptStat) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ProgUnavail:
		return "PROG_UNAVAIL"
	case ProgMismatch:
		return "PROG_MISMATCH"
	case ProcUnavail:
		return "PROC_UNAVAIL"
	case GarbageArgs:
		return "GARBAGE_ARGS"
	case SystemErr:
		return "SYSTEM_ERR"
	default:
		return fmt.Sprintf("ACCEPT_STAT_%d", uint32(s))
	}
}

// RejectStat is the reason a call was denied.
type RejectStat uint32

const (
	RPCMismatch RejectStat = 0
	AuthError   RejectStat = 1
)

func (s RejectStat) String() string {
	switch s {
	case RPCMismatch:
		return "RPC_MISMATCH"
	case AuthError:
		return "AUTH_ERROR"
	default:
		return fmt.Sprintf("REJECT_STAT_%d", uint32(s))
	}
}

// AuthStat qualifies an AUTH_ERROR rejection.
type AuthStat uint32

const (
	AuthOK           AuthStat = 0
	AuthBadCred      AuthStat = 1
	AuthRejectedCred AuthStat = 2
	AuthBadVerf      AuthStat = 3
	AuthRejectedVerf AuthStat = 4
	AuthTooWeak      AuthStat = 5
)

func (s AuthStat) String() string {
	switch s {
	case AuthOK:
		return "AUTH_OK"
	case AuthBadCred:
		return "AUTH_BADCRED"
	case AuthRejectedCred:
		return "AUTH_REJECTEDCRED"
	case AuthBadVerf:
		return "AUTH_BADVERF"
	case AuthRejectedVerf:
		return "AUTH_REJECTEDVERF"
	case AuthTooWeak:
		return "AUTH_TOOWEAK"
	default:
		return fmt.Sprintf("AUTH_STAT_%d", uint32(s))
	}
}

// ProgramName returns a short label for a program number.
func ProgramName(prog uint32) string {
	switch prog {
	case ProgramPortmap:
		return "portmap"
	case ProgramMount:
		return "mount"
	case ProgramNFS:
		return "nfs"
	default:
		return fmt.Sprintf("prog_%d", prog)
	}
}
