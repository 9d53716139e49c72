package rpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// CallHeaderSize is the size of a call header carrying null credentials:
// ten 32-bit words (xid, msgtype, rpcvers, prog, vers, proc, cred, verf).
const CallHeaderSize = 40

// maxAuthBody bounds credential and verifier bodies (RFC 5531 Section 8.2).
const maxAuthBody = 400

// CallMessage is the call header (RFC 5531 Section 9) up to and including
// the verifier. It is marshalled with xdr2 in field order; the procedure
// arguments follow it on the wire.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// OpaqueAuth is an opaque_auth: a flavor and a body of at most 400 bytes.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// NullAuth returns an AUTH_NONE credential or verifier.
func NullAuth() OpaqueAuth {
	return OpaqueAuth{Flavor: AuthNone, Body: []byte{}}
}

// ReplyHeader is the decoded envelope of an accepted reply.
type ReplyHeader struct {
	XID        uint32
	MsgType    uint32
	ReplyStat  uint32
	Verf       OpaqueAuth
	AcceptStat AcceptStat

	// ResultOffset is where procedure-specific results begin in the message.
	// It is 24 when the server returns a null verifier.
	ResultOffset int
}

// BuildCall encodes a call header with null credential and verifier,
// followed by the already encoded procedure arguments.
func BuildCall(xid, program, version, procedure uint32, args []byte) ([]byte, error) {
	call := CallMessage{
		XID:        xid,
		MsgType:    RPCCall,
		RPCVersion: RPCVersion,
		Program:    program,
		Version:    version,
		Procedure:  procedure,
		Cred:       NullAuth(),
		Verf:       NullAuth(),
	}

	var buf bytes.Buffer
	buf.Grow(CallHeaderSize + len(args))

	if _, err := xdr2.Marshal(&buf, &call); err != nil {
		return nil, fmt.Errorf("marshal call header: %w", err)
	}

	buf.Write(args)
	return buf.Bytes(), nil
}

// ParseReply decodes a reply envelope.
//
// The returned header is non-nil whenever the XID could be read, including
// when the reply was denied or not successful; callers check the XID before
// acting on the error. A *RejectedError is returned for MSG_DENIED and an
// *AcceptError for any accept_stat other than SUCCESS.
func ParseReply(msg []byte) (*ReplyHeader, error) {
	d := xdr.NewDecoder(msg)
	h := &ReplyHeader{}

	var err error
	if h.XID, err = d.Uint32(); err != nil {
		return nil, xdr.Within("reply.xid", err)
	}

	at := d.Offset()
	if h.MsgType, err = d.Uint32(); err != nil {
		return h, xdr.Within("reply.msg_type", err)
	}
	if h.MsgType != RPCReply {
		return h, &xdr.DecodeError{
			Offset: at,
			Field:  "reply.msg_type",
			Err:    fmt.Errorf("%w: expected REPLY (1), got %d", xdr.ErrBadDiscriminant, h.MsgType),
		}
	}

	at = d.Offset()
	if h.ReplyStat, err = d.Uint32(); err != nil {
		return h, xdr.Within("reply.reply_stat", err)
	}

	switch h.ReplyStat {
	case RPCMsgAccepted:
	case RPCMsgDenied:
		return h, parseRejected(d)
	default:
		return h, &xdr.DecodeError{
			Offset: at,
			Field:  "reply.reply_stat",
			Err:    fmt.Errorf("%w: reply_stat %d", xdr.ErrBadDiscriminant, h.ReplyStat),
		}
	}

	if h.Verf.Flavor, err = d.Uint32(); err != nil {
		return h, xdr.Within("reply.verf.flavor", err)
	}
	if h.Verf.Body, err = d.Opaque(maxAuthBody); err != nil {
		return h, xdr.Within("reply.verf.body", err)
	}

	stat, err := d.Uint32()
	if err != nil {
		return h, xdr.Within("reply.accept_stat", err)
	}
	h.AcceptStat = AcceptStat(stat)
	h.ResultOffset = d.Offset()

	switch h.AcceptStat {
	case Success:
		return h, nil
	case ProgMismatch:
		low, err := d.Uint32()
		if err != nil {
			return h, xdr.Within("reply.mismatch.low", err)
		}
		high, err := d.Uint32()
		if err != nil {
			return h, xdr.Within("reply.mismatch.high", err)
		}
		return h, &AcceptError{Stat: ProgMismatch, MismatchLow: low, MismatchHigh: high}
	default:
		return h, &AcceptError{Stat: h.AcceptStat}
	}
}

func parseRejected(d *xdr.Decoder) error {
	stat, err := d.Uint32()
	if err != nil {
		return xdr.Within("reply.reject_stat", err)
	}

	rej := &RejectedError{Stat: RejectStat(stat)}
	switch rej.Stat {
	case RPCMismatch:
		if rej.MismatchLow, err = d.Uint32(); err != nil {
			return xdr.Within("reply.mismatch.low", err)
		}
		if rej.MismatchHigh, err = d.Uint32(); err != nil {
			return xdr.Within("reply.mismatch.high", err)
		}
	case AuthError:
		auth, err := d.Uint32()
		if err != nil {
			return xdr.Within("reply.auth_stat", err)
		}
		rej.AuthStat = AuthStat(auth)
	}
	return rej
}
