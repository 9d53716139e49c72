package v3

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// maxIOSize bounds the opaque payload accepted from READ and WRITE bodies.
const maxIOSize = 4 << 20

// ============================================================================
// Request and Response Structures
// ============================================================================

// ReadRequest represents a READ request.
//
// RFC 1813 Section 3.3.6 specifies the READ procedure as:
//
//	READ3res NFSPROC3_READ(READ3args) = 6;
type ReadRequest struct {
	Handle types.FileHandle
	Offset uint64
	Count  uint32
}

// ReadResponse represents a READ reply.
//
// Count is the number of bytes the server claims to have returned. It is
// decoded as sent and not reconciled with len(Data).
type ReadResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Count  uint32
	Eof    bool
	Data   []byte
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the read3args bytes.
func (r *ReadRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
		return nil, err
	}
	e.Uint64(r.Offset)
	e.Uint32(r.Count)
	return e.Bytes(), nil
}

// Encode returns the read3res bytes. Only the arm selected by Status is
// written.
func (r *ReadResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodePostOpAttr(e, r.Attr)
	if r.Status == types.NFS3OK {
		e.Uint32(r.Count)
		e.Bool(r.Eof)
		e.Opaque(r.Data)
	}
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeReadRequest parses read3args.
func DecodeReadRequest(data []byte) (*ReadRequest, error) {
	return decodeAll(data, "read3args", func(d *xdr.Decoder) (*ReadRequest, error) {
		req := &ReadRequest{}
		var err error
		if req.Handle, err = decodeHandle(d, "file"); err != nil {
			return nil, err
		}
		if req.Offset, err = d.Uint64(); err != nil {
			return nil, xdr.Within("offset", err)
		}
		if req.Count, err = d.Uint32(); err != nil {
			return nil, xdr.Within("count", err)
		}
		return req, nil
	})
}

// DecodeReadResponse parses read3res. The whole of data must be consumed.
// A count that disagrees with the length of data is xdr.ErrLengthMismatch.
func DecodeReadResponse(data []byte) (*ReadResponse, error) {
	return decodeAll(data, "read3res", func(d *xdr.Decoder) (*ReadResponse, error) {
		resp := &ReadResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Attr, err = decodePostOpAttr(d, "file_attributes"); err != nil {
			return nil, err
		}
		if resp.Status != types.NFS3OK {
			return resp, nil
		}
		countAt := d.Offset()
		if resp.Count, err = d.Uint32(); err != nil {
			return nil, xdr.Within("count", err)
		}
		if resp.Eof, err = d.Bool(); err != nil {
			return nil, xdr.Within("eof", err)
		}
		if resp.Data, err = d.Opaque(maxIOSize); err != nil {
			return nil, xdr.Within("data", err)
		}
		if resp.Count != uint32(len(resp.Data)) {
			return nil, &xdr.DecodeError{
				Offset: countAt,
				Field:  "count",
				Err:    fmt.Errorf("%w: count %d, data %d bytes", xdr.ErrLengthMismatch, resp.Count, len(resp.Data)),
			}
		}
		return resp, nil
	})
}
