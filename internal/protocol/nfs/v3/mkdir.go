package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// MkdirRequest represents a MKDIR request.
//
// RFC 1813 Section 3.3.9 specifies the MKDIR procedure as:
//
//	MKDIR3res NFSPROC3_MKDIR(MKDIR3args) = 9;
type MkdirRequest struct {
	DirHandle types.FileHandle
	Name      string
	Attrs     types.SetAttrs
}

// MkdirResponse has the same layout as CreateResponse.
type MkdirResponse = CreateResponse

// Encode returns the mkdir3args bytes.
func (r *MkdirRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeDirOpArgs(e, r.DirHandle, r.Name); err != nil {
		return nil, err
	}
	if err := nfsxdr.EncodeSetAttrs(e, r.Attrs); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// DecodeMkdirRequest parses mkdir3args.
func DecodeMkdirRequest(data []byte) (*MkdirRequest, error) {
	return decodeAll(data, "mkdir3args", func(d *xdr.Decoder) (*MkdirRequest, error) {
		req := &MkdirRequest{}
		var err error
		if req.DirHandle, req.Name, err = decodeDirOpArgs(d, "where"); err != nil {
			return nil, err
		}
		if req.Attrs, err = nfsxdr.DecodeSetAttrs(d); err != nil {
			return nil, xdr.Within("attributes", err)
		}
		return req, nil
	})
}

// DecodeMkdirResponse parses mkdir3res. The whole of data must be consumed.
func DecodeMkdirResponse(data []byte) (*MkdirResponse, error) {
	return decodeCreateResult(data, "mkdir3res")
}
