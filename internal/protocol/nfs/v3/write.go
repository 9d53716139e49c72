package v3

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// WriteRequest represents a WRITE request.
//
// RFC 1813 Section 3.3.7 specifies the WRITE procedure as:
//
//	WRITE3res NFSPROC3_WRITE(WRITE3args) = 7;
type WriteRequest struct {
	// Handle is the file to write to.
	Handle types.FileHandle

	// Offset is the byte position in the file where the write begins.
	Offset uint64

	// Count is the byte count placed on the wire. Zero means len(Data);
	// any other value is sent verbatim even when it disagrees with Data.
	Count uint32

	// Stable is the requested commitment level.
	Stable types.StableHow

	// Data is the payload.
	Data []byte
}

// WriteResponse represents a WRITE reply.
//
// Count, Committed and Verf are defined only on NFS3_OK. Verf changes when
// the server loses uncommitted data, typically across a reboot.
type WriteResponse struct {
	Status    uint32
	Wcc       types.WccData
	Count     uint32
	Committed types.StableHow
	Verf      types.WriteVerifier
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the write3args bytes.
func (r *WriteRequest) Encode() ([]byte, error) {
	if r.Stable > types.FileSyncWrite {
		return nil, fmt.Errorf("WRITE: invalid stable_how %d", r.Stable)
	}

	count := r.Count
	if count == 0 {
		count = uint32(len(r.Data))
	}

	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
		return nil, err
	}
	e.Uint64(r.Offset)
	e.Uint32(count)
	e.Uint32(uint32(r.Stable))
	e.Opaque(r.Data)
	return e.Bytes(), nil
}

// Encode returns the write3res bytes. Only the arm selected by Status is
// written.
func (r *WriteResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodeWccData(e, r.Wcc)
	if r.Status == types.NFS3OK {
		e.Uint32(r.Count)
		e.Uint32(uint32(r.Committed))
		e.FixedOpaque(r.Verf[:])
	}
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

func decodeStableHow(d *xdr.Decoder, field string) (types.StableHow, error) {
	at := d.Offset()
	v, err := d.Uint32()
	if err != nil {
		return 0, xdr.Within(field, err)
	}
	if types.StableHow(v) > types.FileSyncWrite {
		return 0, &xdr.DecodeError{
			Offset: at,
			Field:  field,
			Err:    fmt.Errorf("%w: stable_how %d", xdr.ErrBadDiscriminant, v),
		}
	}
	return types.StableHow(v), nil
}

// DecodeWriteRequest parses write3args.
func DecodeWriteRequest(data []byte) (*WriteRequest, error) {
	return decodeAll(data, "write3args", func(d *xdr.Decoder) (*WriteRequest, error) {
		req := &WriteRequest{}
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
		if req.Stable, err = decodeStableHow(d, "stable"); err != nil {
			return nil, err
		}
		if req.Data, err = d.Opaque(maxIOSize); err != nil {
			return nil, xdr.Within("data", err)
		}
		return req, nil
	})
}

// DecodeWriteResponse parses write3res. The whole of data must be consumed.
// On success the committed level and the write verifier follow the count.
func DecodeWriteResponse(data []byte) (*WriteResponse, error) {
	return decodeAll(data, "write3res", func(d *xdr.Decoder) (*WriteResponse, error) {
		resp := &WriteResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Wcc, err = decodeWcc(d, "file_wcc"); err != nil {
			return nil, err
		}
		if resp.Status != types.NFS3OK {
			return resp, nil
		}
		if resp.Count, err = d.Uint32(); err != nil {
			return nil, xdr.Within("count", err)
		}
		if resp.Committed, err = decodeStableHow(d, "committed"); err != nil {
			return nil, err
		}
		verf, err := decodeVerifier(d, "verf")
		if err != nil {
			return nil, err
		}
		resp.Verf = types.WriteVerifier(verf)
		return resp, nil
	})
}
