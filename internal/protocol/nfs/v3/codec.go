package v3

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

func errMissing(proc, field string) error {
	return fmt.Errorf("%s: %s required when status is NFS3_OK", proc, field)
}

func decodeStatus(d *xdr.Decoder) (uint32, error) {
	status, err := d.Uint32()
	if err != nil {
		return 0, xdr.Within("status", err)
	}
	return status, nil
}

func decodeWcc(d *xdr.Decoder, field string) (types.WccData, error) {
	wcc, err := nfsxdr.DecodeWccData(d)
	if err != nil {
		return types.WccData{}, xdr.Within(field, err)
	}
	return wcc, nil
}

func decodePostOpAttr(d *xdr.Decoder, field string) (*types.FileAttr, error) {
	attr, err := nfsxdr.DecodePostOpAttr(d)
	if err != nil {
		return nil, xdr.Within(field, err)
	}
	return attr, nil
}

func decodeHandle(d *xdr.Decoder, field string) (types.FileHandle, error) {
	fh, err := nfsxdr.DecodeFileHandle(d)
	if err != nil {
		return nil, xdr.Within(field, err)
	}
	return fh, nil
}

func decodeVerifier(d *xdr.Decoder, field string) ([types.VerifierSize]byte, error) {
	var v [types.VerifierSize]byte
	b, err := d.FixedOpaque(types.VerifierSize)
	if err != nil {
		return v, xdr.Within(field, err)
	}
	copy(v[:], b)
	return v, nil
}

// decodeDirOpArgs reads diropargs3.
func decodeDirOpArgs(d *xdr.Decoder, field string) (types.FileHandle, string, error) {
	dir, err := decodeHandle(d, field+".dir")
	if err != nil {
		return nil, "", err
	}
	name, err := d.String(types.MaxNameLen)
	if err != nil {
		return nil, "", xdr.Within(field+".name", err)
	}
	return dir, name, nil
}
