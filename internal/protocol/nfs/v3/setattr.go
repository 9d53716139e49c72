package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// SetAttrRequest represents a SETATTR request.
//
// RFC 1813 Section 3.3.2 specifies the SETATTR procedure as:
//
//	SETATTR3res NFSPROC3_SETATTR(SETATTR3args) = 2;
//
// Setting Attrs.Size to zero truncates the file.
type SetAttrRequest struct {
	Handle types.FileHandle
	Attrs  types.SetAttrs

	// Guard makes the server compare the object's ctime before applying
	// the change; a mismatch yields NFS3ERR_NOT_SYNC.
	Guard types.TimeGuard
}

// SetAttrResponse carries the object's weak cache consistency data on
// success and failure alike.
type SetAttrResponse struct {
	Status uint32
	Wcc    types.WccData
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the setattr3args bytes.
func (r *SetAttrRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
		return nil, err
	}
	if err := nfsxdr.EncodeSetAttrs(e, r.Attrs); err != nil {
		return nil, err
	}
	nfsxdr.EncodeTimeGuard(e, r.Guard)
	return e.Bytes(), nil
}

// Encode returns the setattr3res bytes. Only the arm selected by Status is
// written.
func (r *SetAttrResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodeWccData(e, r.Wcc)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeSetAttrRequest parses setattr3args.
func DecodeSetAttrRequest(data []byte) (*SetAttrRequest, error) {
	return decodeAll(data, "setattr3args", func(d *xdr.Decoder) (*SetAttrRequest, error) {
		req := &SetAttrRequest{}
		var err error
		if req.Handle, err = decodeHandle(d, "object"); err != nil {
			return nil, err
		}
		if req.Attrs, err = nfsxdr.DecodeSetAttrs(d); err != nil {
			return nil, xdr.Within("new_attributes", err)
		}
		if req.Guard, err = nfsxdr.DecodeTimeGuard(d); err != nil {
			return nil, err
		}
		return req, nil
	})
}

// DecodeSetAttrResponse parses setattr3res. The whole of data must be consumed.
func DecodeSetAttrResponse(data []byte) (*SetAttrResponse, error) {
	return decodeAll(data, "setattr3res", func(d *xdr.Decoder) (*SetAttrResponse, error) {
		resp := &SetAttrResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Wcc, err = decodeWcc(d, "obj_wcc"); err != nil {
			return nil, err
		}
		return resp, nil
	})
}
