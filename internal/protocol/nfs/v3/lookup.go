package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// LookupRequest represents a LOOKUP request.
//
// RFC 1813 Section 3.3.3 specifies the LOOKUP procedure as:
//
//	LOOKUP3res NFSPROC3_LOOKUP(LOOKUP3args) = 3;
type LookupRequest struct {
	// DirHandle is the directory to search.
	DirHandle types.FileHandle

	// Filename is the single path component to resolve.
	Filename string
}

// LookupResponse represents a LOOKUP reply.
//
// On NFS3_OK Handle is the resolved object and ObjAttr its optional
// attributes. DirAttr is optional in both arms.
type LookupResponse struct {
	Status  uint32
	Handle  types.FileHandle
	ObjAttr *types.FileAttr
	DirAttr *types.FileAttr
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the lookup3args bytes.
func (r *LookupRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeDirOpArgs(e, r.DirHandle, r.Filename); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Encode returns the lookup3res bytes. Only the arm selected by Status is
// written.
func (r *LookupResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	if r.Status == types.NFS3OK {
		if err := nfsxdr.EncodeFileHandle(e, r.Handle); err != nil {
			return nil, err
		}
		nfsxdr.EncodePostOpAttr(e, r.ObjAttr)
	}
	nfsxdr.EncodePostOpAttr(e, r.DirAttr)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeLookupRequest parses lookup3args.
func DecodeLookupRequest(data []byte) (*LookupRequest, error) {
	return decodeAll(data, "lookup3args", func(d *xdr.Decoder) (*LookupRequest, error) {
		dir, name, err := decodeDirOpArgs(d, "what")
		if err != nil {
			return nil, err
		}
		return &LookupRequest{DirHandle: dir, Filename: name}, nil
	})
}

// DecodeLookupResponse parses lookup3res. The whole of data must be consumed.
func DecodeLookupResponse(data []byte) (*LookupResponse, error) {
	return decodeAll(data, "lookup3res", func(d *xdr.Decoder) (*LookupResponse, error) {
		resp := &LookupResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Status == types.NFS3OK {
			if resp.Handle, err = decodeHandle(d, "object"); err != nil {
				return nil, err
			}
			if resp.ObjAttr, err = decodePostOpAttr(d, "obj_attributes"); err != nil {
				return nil, err
			}
		}
		if resp.DirAttr, err = decodePostOpAttr(d, "dir_attributes"); err != nil {
			return nil, err
		}
		return resp, nil
	})
}
