// Package v3 is the NFS version 3 message catalog (RFC 1813).
//
// Each procedure has a Request and a Response type. Requests encode to the
// procedure's argument bytes and responses decode from the result bytes that
// follow the RPC reply header. Both directions are implemented so the same
// types serve the probe and the in-process peers used in tests.
//
// A decoded response must account for every byte it was given: missing
// bytes are xdr.ErrTruncated and leftover bytes xdr.ErrTrailingBytes, both
// wrapped in *xdr.DecodeError with the offset (relative to the start of the
// results) where decoding stopped.
//
// NFS status codes are data, not errors: a LOOKUP returning NFS3ERR_NOENT
// decodes successfully with Status == types.NFS3ErrNoEnt.
package v3

import (
	"context"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// Caller issues one RPC call and returns the result bytes.
// *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, program, version, procedure uint32, args []byte) ([]byte, error)
}

// Client is a typed NFSv3 client.
type Client struct {
	rpc Caller
}

// NewClient returns a Client issuing calls through c.
func NewClient(c Caller) *Client {
	return &Client{rpc: c}
}

type encoder interface {
	Encode() ([]byte, error)
}

func call[Resp any](ctx context.Context, c *Client, proc uint32, req encoder, decode func([]byte) (*Resp, error)) (*Resp, error) {
	var args []byte
	if req != nil {
		var err error
		if args, err = req.Encode(); err != nil {
			return nil, err
		}
	}

	res, err := c.rpc.Call(ctx, rpc.ProgramNFS, rpc.NFSVersion, proc, args)
	if err != nil {
		return nil, err
	}
	return decode(res)
}

// decodeAll runs fn over data and requires it to consume every byte.
func decodeAll[T any](data []byte, scope string, fn func(d *xdr.Decoder) (*T, error)) (*T, error) {
	d := xdr.NewDecoder(data)
	v, err := fn(d)
	if err != nil {
		return nil, xdr.Within(scope, err)
	}
	if err := d.Done(); err != nil {
		return nil, xdr.Within(scope, err)
	}
	return v, nil
}

// Null calls NFSPROC3_NULL and expects empty results.
func (c *Client) Null(ctx context.Context) error {
	res, err := c.rpc.Call(ctx, rpc.ProgramNFS, rpc.NFSVersion, types.NFSProcNull, nil)
	if err != nil {
		return err
	}
	return xdr.Within("null", xdr.NewDecoder(res).Done())
}

// GetAttr calls NFSPROC3_GETATTR.
func (c *Client) GetAttr(ctx context.Context, req *GetAttrRequest) (*GetAttrResponse, error) {
	return call(ctx, c, types.NFSProcGetAttr, req, DecodeGetAttrResponse)
}

// SetAttr calls NFSPROC3_SETATTR.
func (c *Client) SetAttr(ctx context.Context, req *SetAttrRequest) (*SetAttrResponse, error) {
	return call(ctx, c, types.NFSProcSetAttr, req, DecodeSetAttrResponse)
}

// Lookup calls NFSPROC3_LOOKUP.
func (c *Client) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	return call(ctx, c, types.NFSProcLookup, req, DecodeLookupResponse)
}

// Access calls NFSPROC3_ACCESS.
func (c *Client) Access(ctx context.Context, req *AccessRequest) (*AccessResponse, error) {
	return call(ctx, c, types.NFSProcAccess, req, DecodeAccessResponse)
}

// Read calls NFSPROC3_READ.
func (c *Client) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	return call(ctx, c, types.NFSProcRead, req, DecodeReadResponse)
}

// Write calls NFSPROC3_WRITE.
func (c *Client) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	return call(ctx, c, types.NFSProcWrite, req, DecodeWriteResponse)
}

// Create calls NFSPROC3_CREATE.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	return call(ctx, c, types.NFSProcCreate, req, DecodeCreateResponse)
}

// Mkdir calls NFSPROC3_MKDIR.
func (c *Client) Mkdir(ctx context.Context, req *MkdirRequest) (*MkdirResponse, error) {
	return call(ctx, c, types.NFSProcMkdir, req, DecodeMkdirResponse)
}

// Remove calls NFSPROC3_REMOVE.
func (c *Client) Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	return call(ctx, c, types.NFSProcRemove, req, DecodeRemoveResponse)
}

// Rmdir calls NFSPROC3_RMDIR.
func (c *Client) Rmdir(ctx context.Context, req *RmdirRequest) (*RmdirResponse, error) {
	return call(ctx, c, types.NFSProcRmdir, req, DecodeRmdirResponse)
}

// Rename calls NFSPROC3_RENAME.
func (c *Client) Rename(ctx context.Context, req *RenameRequest) (*RenameResponse, error) {
	return call(ctx, c, types.NFSProcRename, req, DecodeRenameResponse)
}

// ReadDirPlus calls NFSPROC3_READDIRPLUS.
func (c *Client) ReadDirPlus(ctx context.Context, req *ReadDirPlusRequest) (*ReadDirPlusResponse, error) {
	return call(ctx, c, types.NFSProcReadDirPlus, req, DecodeReadDirPlusResponse)
}

// FsStat calls NFSPROC3_FSSTAT.
func (c *Client) FsStat(ctx context.Context, req *FsStatRequest) (*FsStatResponse, error) {
	return call(ctx, c, types.NFSProcFsStat, req, DecodeFsStatResponse)
}

// FsInfo calls NFSPROC3_FSINFO.
func (c *Client) FsInfo(ctx context.Context, req *FsInfoRequest) (*FsInfoResponse, error) {
	return call(ctx, c, types.NFSProcFsInfo, req, DecodeFsInfoResponse)
}

// Commit calls NFSPROC3_COMMIT.
func (c *Client) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	return call(ctx, c, types.NFSProcCommit, req, DecodeCommitResponse)
}
