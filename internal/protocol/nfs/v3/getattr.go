package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// GetAttrRequest represents a GETATTR request.
//
// RFC 1813 Section 3.3.1 specifies the GETATTR procedure as:
//
//	GETATTR3res NFSPROC3_GETATTR(GETATTR3args) = 1;
type GetAttrRequest struct {
	Handle types.FileHandle
}

// GetAttrResponse represents a GETATTR reply. Attr is set only on NFS3_OK.
type GetAttrResponse struct {
	Status uint32
	Attr   *types.FileAttr
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the getattr3args bytes.
func (r *GetAttrRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Encode returns the getattr3res bytes. Only the arm selected by Status is
// written.
func (r *GetAttrResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	if r.Status == types.NFS3OK {
		if r.Attr == nil {
			return nil, errMissing("GETATTR", "attributes")
		}
		nfsxdr.EncodeFileAttr(e, r.Attr)
	}
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeGetAttrRequest parses getattr3args.
func DecodeGetAttrRequest(data []byte) (*GetAttrRequest, error) {
	return decodeAll(data, "getattr3args", func(d *xdr.Decoder) (*GetAttrRequest, error) {
		fh, err := decodeHandle(d, "object")
		if err != nil {
			return nil, err
		}
		return &GetAttrRequest{Handle: fh}, nil
	})
}

// DecodeGetAttrResponse parses getattr3res. The whole of data must be consumed.
func DecodeGetAttrResponse(data []byte) (*GetAttrResponse, error) {
	return decodeAll(data, "getattr3res", func(d *xdr.Decoder) (*GetAttrResponse, error) {
		resp := &GetAttrResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Status == types.NFS3OK {
			if resp.Attr, err = nfsxdr.DecodeFileAttr(d); err != nil {
				return nil, xdr.Within("obj_attributes", err)
			}
		}
		return resp, nil
	})
}
