package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// CommitRequest represents a COMMIT request.
//
// RFC 1813 Section 3.3.21 specifies the COMMIT procedure as:
//
//	COMMIT3res NFSPROC3_COMMIT(COMMIT3args) = 21;
//
// Offset 0 with Count 0 commits the whole file.
type CommitRequest struct {
	Handle types.FileHandle
	Offset uint64
	Count  uint32
}

// CommitResponse carries the write verifier on NFS3_OK. A verifier that
// differs from the one returned by earlier unstable WRITEs means the data
// must be written again.
type CommitResponse struct {
	Status uint32
	Wcc    types.WccData
	Verf   types.WriteVerifier
}

// Encode returns the commit3args bytes.
func (r *CommitRequest) Encode() ([]byte, error) {
	return (&ReadRequest{Handle: r.Handle, Offset: r.Offset, Count: r.Count}).Encode()
}

// Encode returns the commit3res bytes. Only the arm selected by Status is
// written.
func (r *CommitResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodeWccData(e, r.Wcc)
	if r.Status == types.NFS3OK {
		e.FixedOpaque(r.Verf[:])
	}
	return e.Bytes(), nil
}

// DecodeCommitRequest parses commit3args.
func DecodeCommitRequest(data []byte) (*CommitRequest, error) {
	return decodeAll(data, "commit3args", func(d *xdr.Decoder) (*CommitRequest, error) {
		req := &CommitRequest{}
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

// DecodeCommitResponse parses commit3res. The whole of data must be consumed.
func DecodeCommitResponse(data []byte) (*CommitResponse, error) {
	return decodeAll(data, "commit3res", func(d *xdr.Decoder) (*CommitResponse, error) {
		resp := &CommitResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Wcc, err = decodeWcc(d, "file_wcc"); err != nil {
			return nil, err
		}
		if resp.Status == types.NFS3OK {
			verf, err := decodeVerifier(d, "verf")
			if err != nil {
				return nil, err
			}
			resp.Verf = types.WriteVerifier(verf)
		}
		return resp, nil
	})
}
