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

// CreateRequest represents a CREATE request.
//
// RFC 1813 Section 3.3.8 specifies the CREATE procedure as:
//
//	CREATE3res NFSPROC3_CREATE(CREATE3args) = 8;
//
// The createhow3 union carries Attrs for UNCHECKED and GUARDED and Verf for
// EXCLUSIVE.
type CreateRequest struct {
	DirHandle types.FileHandle
	Filename  string
	Mode      types.CreateMode
	Attrs     types.SetAttrs
	Verf      types.CreateVerifier
}

// CreateResponse is the reply shared by CREATE and MKDIR.
//
// On NFS3_OK Handle and Attr describe the new object, either may be absent.
// DirWcc is present in both arms.
type CreateResponse struct {
	Status uint32
	Handle types.FileHandle
	Attr   *types.FileAttr
	DirWcc types.WccData
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the create3args bytes.
func (r *CreateRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeDirOpArgs(e, r.DirHandle, r.Filename); err != nil {
		return nil, err
	}

	e.Uint32(uint32(r.Mode))
	switch r.Mode {
	case types.CreateUnchecked, types.CreateGuarded:
		if err := nfsxdr.EncodeSetAttrs(e, r.Attrs); err != nil {
			return nil, err
		}
	case types.CreateExclusive:
		e.FixedOpaque(r.Verf[:])
	default:
		return nil, fmt.Errorf("CREATE: invalid createmode3 %d", r.Mode)
	}
	return e.Bytes(), nil
}

// Encode returns the create3res bytes. Only the arm selected by Status is
// written.
func (r *CreateResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	if r.Status == types.NFS3OK {
		if err := nfsxdr.EncodePostOpFileHandle(e, r.Handle); err != nil {
			return nil, err
		}
		nfsxdr.EncodePostOpAttr(e, r.Attr)
	}
	nfsxdr.EncodeWccData(e, r.DirWcc)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeCreateRequest parses create3args.
func DecodeCreateRequest(data []byte) (*CreateRequest, error) {
	return decodeAll(data, "create3args", func(d *xdr.Decoder) (*CreateRequest, error) {
		req := &CreateRequest{}
		var err error
		if req.DirHandle, req.Filename, err = decodeDirOpArgs(d, "where"); err != nil {
			return nil, err
		}

		at := d.Offset()
		mode, err := d.Uint32()
		if err != nil {
			return nil, xdr.Within("how.mode", err)
		}
		req.Mode = types.CreateMode(mode)

		switch req.Mode {
		case types.CreateUnchecked, types.CreateGuarded:
			if req.Attrs, err = nfsxdr.DecodeSetAttrs(d); err != nil {
				return nil, xdr.Within("how.obj_attributes", err)
			}
		case types.CreateExclusive:
			verf, err := decodeVerifier(d, "how.verf")
			if err != nil {
				return nil, err
			}
			req.Verf = types.CreateVerifier(verf)
		default:
			return nil, &xdr.DecodeError{
				Offset: at,
				Field:  "how.mode",
				Err:    fmt.Errorf("%w: createmode3 %d", xdr.ErrBadDiscriminant, mode),
			}
		}
		return req, nil
	})
}

// DecodeCreateResponse parses create3res. The whole of data must be consumed.
// On success the handle and attributes are optional.
func DecodeCreateResponse(data []byte) (*CreateResponse, error) {
	return decodeCreateResult(data, "create3res")
}

func decodeCreateResult(data []byte, scope string) (*CreateResponse, error) {
	return decodeAll(data, scope, func(d *xdr.Decoder) (*CreateResponse, error) {
		resp := &CreateResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Status == types.NFS3OK {
			if resp.Handle, err = nfsxdr.DecodePostOpFileHandle(d); err != nil {
				return nil, xdr.Within("obj", err)
			}
			if resp.Attr, err = decodePostOpAttr(d, "obj_attributes"); err != nil {
				return nil, err
			}
		}
		if resp.DirWcc, err = decodeWcc(d, "dir_wcc"); err != nil {
			return nil, err
		}
		return resp, nil
	})
}
