package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// AccessRequest represents an ACCESS request.
//
// RFC 1813 Section 3.3.4 specifies the ACCESS procedure as:
//
//	ACCESS3res NFSPROC3_ACCESS(ACCESS3args) = 4;
//
// Access is a bitmap of types.Access* values to check.
type AccessRequest struct {
	Handle types.FileHandle
	Access uint32
}

// AccessResponse holds the subset of the requested bits the server granted.
type AccessResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Access uint32
}

// Encode returns the access3args bytes.
func (r *AccessRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
		return nil, err
	}
	e.Uint32(r.Access)
	return e.Bytes(), nil
}

// Encode returns the access3res bytes. Only the arm selected by Status is
// written.
func (r *AccessResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodePostOpAttr(e, r.Attr)
	if r.Status == types.NFS3OK {
		e.Uint32(r.Access)
	}
	return e.Bytes(), nil
}

// DecodeAccessRequest parses access3args.
func DecodeAccessRequest(data []byte) (*AccessRequest, error) {
	return decodeAll(data, "access3args", func(d *xdr.Decoder) (*AccessRequest, error) {
		req := &AccessRequest{}
		var err error
		if req.Handle, err = decodeHandle(d, "object"); err != nil {
			return nil, err
		}
		if req.Access, err = d.Uint32(); err != nil {
			return nil, xdr.Within("access", err)
		}
		return req, nil
	})
}

// DecodeAccessResponse parses access3res. The whole of data must be consumed.
func DecodeAccessResponse(data []byte) (*AccessResponse, error) {
	return decodeAll(data, "access3res", func(d *xdr.Decoder) (*AccessResponse, error) {
		resp := &AccessResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Attr, err = decodePostOpAttr(d, "obj_attributes"); err != nil {
			return nil, err
		}
		if resp.Status == types.NFS3OK {
			if resp.Access, err = d.Uint32(); err != nil {
				return nil, xdr.Within("access", err)
			}
		}
		return resp, nil
	})
}
