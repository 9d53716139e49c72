package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// RemoveRequest represents a REMOVE request.
//
// RFC 1813 Section 3.3.12 specifies the REMOVE procedure as:
//
//	REMOVE3res NFSPROC3_REMOVE(REMOVE3args) = 12;
type RemoveRequest struct {
	DirHandle types.FileHandle
	Filename  string
}

// RemoveResponse carries the directory's wcc_data in both arms.
type RemoveResponse struct {
	Status uint32
	DirWcc types.WccData
}

// RmdirRequest represents an RMDIR request (RFC 1813 Section 3.3.13).
// Its arguments are identical to REMOVE.
type RmdirRequest = RemoveRequest

// RmdirResponse represents an RMDIR reply.
type RmdirResponse = RemoveResponse

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the remove3args bytes.
func (r *RemoveRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeDirOpArgs(e, r.DirHandle, r.Filename); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Encode returns the remove3res bytes. Only the arm selected by Status is
// written.
func (r *RemoveResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodeWccData(e, r.DirWcc)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

func decodeRemoveArgs(data []byte, scope string) (*RemoveRequest, error) {
	return decodeAll(data, scope, func(d *xdr.Decoder) (*RemoveRequest, error) {
		dir, name, err := decodeDirOpArgs(d, "object")
		if err != nil {
			return nil, err
		}
		return &RemoveRequest{DirHandle: dir, Filename: name}, nil
	})
}

func decodeRemoveResult(data []byte, scope string) (*RemoveResponse, error) {
	return decodeAll(data, scope, func(d *xdr.Decoder) (*RemoveResponse, error) {
		resp := &RemoveResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.DirWcc, err = decodeWcc(d, "dir_wcc"); err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// DecodeRemoveRequest parses remove3args.
func DecodeRemoveRequest(data []byte) (*RemoveRequest, error) {
	return decodeRemoveArgs(data, "remove3args")
}

// DecodeRemoveResponse parses remove3res. The whole of data must be consumed.
func DecodeRemoveResponse(data []byte) (*RemoveResponse, error) {
	return decodeRemoveResult(data, "remove3res")
}

// DecodeRmdirRequest parses rmdir3args.
func DecodeRmdirRequest(data []byte) (*RmdirRequest, error) {
	return decodeRemoveArgs(data, "rmdir3args")
}

// DecodeRmdirResponse parses rmdir3res. The whole of data must be consumed.
func DecodeRmdirResponse(data []byte) (*RmdirResponse, error) {
	return decodeRemoveResult(data, "rmdir3res")
}
