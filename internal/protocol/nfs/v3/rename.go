package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// RenameRequest represents a RENAME request.
//
// RFC 1813 Section 3.3.14 specifies the RENAME procedure as:
//
//	RENAME3res NFSPROC3_RENAME(RENAME3args) = 14;
type RenameRequest struct {
	FromDirHandle types.FileHandle
	FromName      string
	ToDirHandle   types.FileHandle
	ToName        string
}

// RenameResponse carries wcc_data for both directories in both arms.
type RenameResponse struct {
	Status     uint32
	FromDirWcc types.WccData
	ToDirWcc   types.WccData
}

// Encode returns the rename3args bytes.
func (r *RenameRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeDirOpArgs(e, r.FromDirHandle, r.FromName); err != nil {
		return nil, err
	}
	if err := nfsxdr.EncodeDirOpArgs(e, r.ToDirHandle, r.ToName); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Encode returns the rename3res bytes. Only the arm selected by Status is
// written.
func (r *RenameResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodeWccData(e, r.FromDirWcc)
	nfsxdr.EncodeWccData(e, r.ToDirWcc)
	return e.Bytes(), nil
}

// DecodeRenameRequest parses rename3args.
func DecodeRenameRequest(data []byte) (*RenameRequest, error) {
	return decodeAll(data, "rename3args", func(d *xdr.Decoder) (*RenameRequest, error) {
		req := &RenameRequest{}
		var err error
		if req.FromDirHandle, req.FromName, err = decodeDirOpArgs(d, "from"); err != nil {
			return nil, err
		}
		if req.ToDirHandle, req.ToName, err = decodeDirOpArgs(d, "to"); err != nil {
			return nil, err
		}
		return req, nil
	})
}

// DecodeRenameResponse parses rename3res. The whole of data must be consumed.
func DecodeRenameResponse(data []byte) (*RenameResponse, error) {
	return decodeAll(data, "rename3res", func(d *xdr.Decoder) (*RenameResponse, error) {
		resp := &RenameResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.FromDirWcc, err = decodeWcc(d, "fromdir_wcc"); err != nil {
			return nil, err
		}
		if resp.ToDirWcc, err = decodeWcc(d, "todir_wcc"); err != nil {
			return nil, err
		}
		return resp, nil
	})
}
