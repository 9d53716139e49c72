// Package portmap is the Portmapper version 2 message catalog (RFC 1833).
package portmap

import (
	"bytes"
	"context"
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// DefaultPort is the well-known portmapper port.
const DefaultPort = 111

// Procedure numbers.
const (
	PmapProcNull    = 0
	PmapProcSet     = 1
	PmapProcUnset   = 2
	PmapProcGetPort = 3
	PmapProcDump    = 4
)

// ProcedureName returns the upper-case name of a portmapper procedure.
func ProcedureName(proc uint32) string {
	names := [...]string{"NULL", "SET", "UNSET", "GETPORT", "DUMP"}
	if int(proc) < len(names) {
		return names[proc]
	}
	return fmt.Sprintf("PROC_%d", proc)
}

// Transport protocol numbers used in Mapping.Prot.
const (
	IPProtoTCP = 6
	IPProtoUDP = 17
)

// maxMappings bounds the DUMP chain accepted from a single reply.
const maxMappings = 4096

// Mapping is the pmap struct: a (program, version, protocol) triple and
// the port it is registered on. Port is ignored in GETPORT arguments.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}

// MappingSize is the encoded size of Mapping.
const MappingSize = 16

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode writes the mapping as four unsigned integers.
func (m *Mapping) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, m); err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePort writes a GETPORT result.
func EncodePort(port uint32) []byte {
	e := xdr.NewEncoder()
	e.Uint32(port)
	return e.Bytes()
}

// EncodeDump writes a DUMP result as a value_follows chain of mappings.
func EncodeDump(mappings []Mapping) []byte {
	e := xdr.NewEncoder()
	for _, m := range mappings {
		e.Bool(true)
		e.Uint32(m.Prog)
		e.Uint32(m.Vers)
		e.Uint32(m.Prot)
		e.Uint32(m.Port)
	}
	e.Bool(false)
	return e.Bytes()
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeMapping reads GETPORT (or SET/UNSET) arguments.
func DecodeMapping(data []byte) (*Mapping, error) {
	if len(data) < MappingSize {
		return nil, &xdr.DecodeError{Offset: len(data) &^ 3, Field: "mapping", Err: xdr.ErrTruncated}
	}
	if len(data) > MappingSize {
		return nil, &xdr.DecodeError{Offset: MappingSize, Field: "mapping", Err: xdr.ErrTrailingBytes}
	}
	m := &Mapping{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), m); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	return m, nil
}

// DecodePort reads a GETPORT result. Zero means the program is not registered.
func DecodePort(data []byte) (uint32, error) {
	d := xdr.NewDecoder(data)
	port, err := d.Uint32()
	if err != nil {
		return 0, xdr.Within("port", err)
	}
	if err := d.Done(); err != nil {
		return 0, xdr.Within("port", err)
	}
	return port, nil
}

// DecodeDump reads a DUMP result.
func DecodeDump(data []byte) ([]Mapping, error) {
	d := xdr.NewDecoder(data)
	var out []Mapping
	for {
		at := d.Offset()
		more, err := d.Bool()
		if err != nil {
			return nil, xdr.Within("pmaplist", err)
		}
		if !more {
			break
		}
		if len(out) == maxMappings {
			return nil, &xdr.DecodeError{Offset: at, Field: "pmaplist", Err: xdr.ErrTooLong}
		}

		var m Mapping
		for _, f := range []*uint32{&m.Prog, &m.Vers, &m.Prot, &m.Port} {
			if *f, err = d.Uint32(); err != nil {
				return nil, xdr.Within(fmt.Sprintf("pmaplist[%d]", len(out)), err)
			}
		}
		out = append(out, m)
	}
	if err := d.Done(); err != nil {
		return nil, xdr.Within("pmaplist", err)
	}
	return out, nil
}

// ============================================================================
// Client
// ============================================================================

// Caller issues one RPC call and returns the result bytes.
type Caller interface {
	Call(ctx context.Context, program, version, procedure uint32, args []byte) ([]byte, error)
}

// Client is a typed Portmapper v2 client.
type Client struct {
	rpc Caller
}

// NewClient returns a Client issuing calls through c.
func NewClient(c Caller) *Client {
	return &Client{rpc: c}
}

// Null calls PMAPPROC_NULL.
func (c *Client) Null(ctx context.Context) error {
	res, err := c.rpc.Call(ctx, rpc.ProgramPortmap, rpc.PortmapVersion, PmapProcNull, nil)
	if err != nil {
		return err
	}
	return xdr.Within("null", xdr.NewDecoder(res).Done())
}

// GetPort returns the port on which (prog, vers, prot) is registered, or
// zero when it is not.
func (c *Client) GetPort(ctx context.Context, prog, vers, prot uint32) (uint32, error) {
	args, err := (&Mapping{Prog: prog, Vers: vers, Prot: prot}).Encode()
	if err != nil {
		return 0, err
	}
	res, err := c.rpc.Call(ctx, rpc.ProgramPortmap, rpc.PortmapVersion, PmapProcGetPort, args)
	if err != nil {
		return 0, err
	}
	return DecodePort(res)
}

// Dump lists every registered mapping.
func (c *Client) Dump(ctx context.Context) ([]Mapping, error) {
	res, err := c.rpc.Call(ctx, rpc.ProgramPortmap, rpc.PortmapVersion, PmapProcDump, nil)
	if err != nil {
		return nil, err
	}
	return DecodeDump(res)
}
