package mount

import (
	"context"

	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// Caller issues one RPC call and returns the result bytes.
type Caller interface {
	Call(ctx context.Context, program, version, procedure uint32, args []byte) ([]byte, error)
}

// Client is a typed MOUNT v3 client.
type Client struct {
	rpc Caller
}

// NewClient returns a Client issuing calls through c.
func NewClient(c Caller) *Client {
	return &Client{rpc: c}
}

func (c *Client) call(ctx context.Context, proc uint32, args []byte) ([]byte, error) {
	return c.rpc.Call(ctx, rpc.ProgramMount, rpc.MountVersion, proc, args)
}

// Null pings the MOUNT program.
func (c *Client) Null(ctx context.Context) error {
	res, err := c.call(ctx, MountProcNull, nil)
	if err != nil {
		return err
	}
	return xdr.Within("null", xdr.NewDecoder(res).Done())
}

// Mount asks the server for the root handle of path. A non-OK mount status
// is reported in the response, not as an error.
func (c *Client) Mount(ctx context.Context, path string) (*MountResponse, error) {
	args, err := (&MountRequest{DirPath: path}).Encode()
	if err != nil {
		return nil, err
	}
	res, err := c.call(ctx, MountProcMnt, args)
	if err != nil {
		return nil, err
	}
	return DecodeMountResponse(res)
}

// Umount removes the server's mount entry for path.
func (c *Client) Umount(ctx context.Context, path string) error {
	args, err := (&UmountRequest{DirPath: path}).Encode()
	if err != nil {
		return err
	}
	res, err := c.call(ctx, MountProcUmnt, args)
	if err != nil {
		return err
	}
	return xdr.Within("umnt", xdr.NewDecoder(res).Done())
}

// Export lists the server's exports.
func (c *Client) Export(ctx context.Context) (*ExportResponse, error) {
	res, err := c.call(ctx, MountProcExport, nil)
	if err != nil {
		return nil, err
	}
	return DecodeExportResponse(res)
}
