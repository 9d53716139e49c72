package rpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// Server-side helpers. The probe never answers calls itself; these exist so
// in-process peers can speak the same envelope in tests.

type replyMessage struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       OpaqueAuth
	AcceptStat uint32
}

// ReadCall decodes a call header.
func ReadCall(data []byte) (*CallMessage, error) {
	call := &CallMessage{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), call); err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != RPCCall {
		return nil, fmt.Errorf("expected CALL (0), got %d", call.MsgType)
	}

	return call, nil
}

// CallArgs returns the procedure arguments following the call header.
func CallArgs(data []byte) ([]byte, error) {
	d := xdr.NewDecoder(data)

	// xid, msgtype, rpcvers, prog, vers, proc
	if err := d.Skip(24); err != nil {
		return nil, xdr.Within("call.header", err)
	}
	for _, field := range []string{"call.cred", "call.verf"} {
		if _, err := d.Uint32(); err != nil {
			return nil, xdr.Within(field+".flavor", err)
		}
		if _, err := d.Opaque(maxAuthBody); err != nil {
			return nil, xdr.Within(field+".body", err)
		}
	}

	return d.Rest(), nil
}

func makeReply(xid uint32, state uint32, tail func(e *xdr.Encoder)) ([]byte, error) {
	var buf bytes.Buffer
	hdr := struct {
		XID        uint32
		MsgType    uint32
		ReplyState uint32
	}{xid, RPCReply, state}
	if _, err := xdr2.Marshal(&buf, &hdr); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}

	e := xdr.NewEncoder()
	tail(e)
	buf.Write(e.Bytes())
	return buf.Bytes(), nil
}

// MakeSuccessReply builds an accepted SUCCESS reply carrying results.
func MakeSuccessReply(xid uint32, results []byte) ([]byte, error) {
	reply := replyMessage{
		XID:        xid,
		MsgType:    RPCReply,
		ReplyState: RPCMsgAccepted,
		Verf:       NullAuth(),
		AcceptStat: uint32(Success),
	}

	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}

	buf.Write(results)
	return buf.Bytes(), nil
}

// MakeAcceptErrorReply builds an accepted reply with a non-success status.
// PROG_MISMATCH replies should use MakeProgMismatchReply.
func MakeAcceptErrorReply(xid uint32, stat AcceptStat) ([]byte, error) {
	return makeReply(xid, RPCMsgAccepted, func(e *xdr.Encoder) {
		e.Uint32(AuthNone)
		e.Opaque(nil)
		e.Uint32(uint32(stat))
	})
}

// MakeProgMismatchReply builds a PROG_MISMATCH reply naming the supported range.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	return makeReply(xid, RPCMsgAccepted, func(e *xdr.Encoder) {
		e.Uint32(AuthNone)
		e.Opaque(nil)
		e.Uint32(uint32(ProgMismatch))
		e.Uint32(low)
		e.Uint32(high)
	})
}

// MakeRPCMismatchReply builds a MSG_DENIED RPC_MISMATCH reply.
func MakeRPCMismatchReply(xid, low, high uint32) ([]byte, error) {
	return makeReply(xid, RPCMsgDenied, func(e *xdr.Encoder) {
		e.Uint32(uint32(RPCMismatch))
		e.Uint32(low)
		e.Uint32(high)
	})
}

// MakeAuthErrorReply builds a MSG_DENIED AUTH_ERROR reply.
func MakeAuthErrorReply(xid uint32, stat AuthStat) ([]byte, error) {
	return makeReply(xid, RPCMsgDenied, func(e *xdr.Encoder) {
		e.Uint32(uint32(AuthError))
		e.Uint32(uint32(stat))
	})
}
