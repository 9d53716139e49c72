package xdr

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// EncodeFileHandle writes nfs_fh3. Handles longer than 64 bytes are rejected
// so that a buggy caller cannot put an invalid handle on the wire.
func EncodeFileHandle(e *xdr.Encoder, fh types.FileHandle) error {
	if len(fh) > types.MaxFileHandleSize {
		return fmt.Errorf("file handle of %d bytes exceeds %d", len(fh), types.MaxFileHandleSize)
	}
	e.Opaque(fh)
	return nil
}

// DecodeFileHandle reads nfs_fh3.
func DecodeFileHandle(d *xdr.Decoder) (types.FileHandle, error) {
	b, err := d.Opaque(types.MaxFileHandleSize)
	if err != nil {
		return nil, err
	}
	return types.FileHandle(b), nil
}

// EncodePostOpFileHandle writes post_op_fh3; a nil handle is encoded as absent.
func EncodePostOpFileHandle(e *xdr.Encoder, fh types.FileHandle) error {
	e.Bool(fh != nil)
	if fh == nil {
		return nil
	}
	return EncodeFileHandle(e, fh)
}

// DecodePostOpFileHandle reads post_op_fh3. A nil result means handle_follows was false.
func DecodePostOpFileHandle(d *xdr.Decoder) (types.FileHandle, error) {
	var fh types.FileHandle
	_, err := d.Optional(func(d *xdr.Decoder) error {
		var err error
		fh, err = DecodeFileHandle(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fh, nil
}

// EncodeDirOpArgs writes diropargs3: directory handle then filename.
func EncodeDirOpArgs(e *xdr.Encoder, dir types.FileHandle, name string) error {
	if err := EncodeFileHandle(e, dir); err != nil {
		return err
	}
	e.String(name)
	return nil
}
