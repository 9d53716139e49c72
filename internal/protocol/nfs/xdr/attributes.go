// Package xdr encodes and decodes the composite NFSv3 structures shared by
// many procedures: file attributes, weak cache consistency data, settable
// attributes and file handles.
//
// Decoders read from an *xdr.Decoder cursor so that a failure anywhere in a
// reply is reported with its byte offset.
package xdr

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// fattr3
// ============================================================================

// EncodeFileAttr writes fattr3 (RFC 1813 Section 2.3.1), always 84 bytes:
//
//	type, mode, nlink, uid, gid   5 x uint32
//	size, used                    2 x uint64
//	rdev                          specdata3 (2 x uint32)
//	fsid, fileid                  2 x uint64
//	atime, mtime, ctime           3 x nfstime3
func EncodeFileAttr(e *xdr.Encoder, attr *types.FileAttr) {
	e.Uint32(attr.Type)
	e.Uint32(attr.Mode)
	e.Uint32(attr.Nlink)
	e.Uint32(attr.UID)
	e.Uint32(attr.GID)
	e.Uint64(attr.Size)
	e.Uint64(attr.Used)
	e.Uint32(attr.Rdev.Major)
	e.Uint32(attr.Rdev.Minor)
	e.Uint64(attr.Fsid)
	e.Uint64(attr.Fileid)
	EncodeTime(e, attr.Atime)
	EncodeTime(e, attr.Mtime)
	EncodeTime(e, attr.Ctime)
}

// DecodeFileAttr reads fattr3.
func DecodeFileAttr(d *xdr.Decoder) (*types.FileAttr, error) {
	attr := &types.FileAttr{}

	u32 := []struct {
		name string
		dst  *uint32
	}{
		{"type", &attr.Type},
		{"mode", &attr.Mode},
		{"nlink", &attr.Nlink},
		{"uid", &attr.UID},
		{"gid", &attr.GID},
	}
	for _, f := range u32 {
		v, err := d.Uint32()
		if err != nil {
			return nil, xdr.Within(f.name, err)
		}
		*f.dst = v
	}

	var err error
	if attr.Size, err = d.Uint64(); err != nil {
		return nil, xdr.Within("size", err)
	}
	if attr.Used, err = d.Uint64(); err != nil {
		return nil, xdr.Within("used", err)
	}
	if attr.Rdev.Major, err = d.Uint32(); err != nil {
		return nil, xdr.Within("rdev.major", err)
	}
	if attr.Rdev.Minor, err = d.Uint32(); err != nil {
		return nil, xdr.Within("rdev.minor", err)
	}
	if attr.Fsid, err = d.Uint64(); err != nil {
		return nil, xdr.Within("fsid", err)
	}
	if attr.Fileid, err = d.Uint64(); err != nil {
		return nil, xdr.Within("fileid", err)
	}
	if attr.Atime, err = DecodeTime(d); err != nil {
		return nil, xdr.Within("atime", err)
	}
	if attr.Mtime, err = DecodeTime(d); err != nil {
		return nil, xdr.Within("mtime", err)
	}
	if attr.Ctime, err = DecodeTime(d); err != nil {
		return nil, xdr.Within("ctime", err)
	}

	return attr, nil
}

// ============================================================================
// post_op_attr
// ============================================================================

// EncodePostOpAttr writes post_op_attr: a discriminant then fattr3 if attr is non-nil.
func EncodePostOpAttr(e *xdr.Encoder, attr *types.FileAttr) {
	e.Optional(attr != nil, func(e *xdr.Encoder) {
		EncodeFileAttr(e, attr)
	})
}

// DecodePostOpAttr reads post_op_attr. A nil result means attributes_follow was false.
func DecodePostOpAttr(d *xdr.Decoder) (*types.FileAttr, error) {
	var attr *types.FileAttr
	_, err := d.Optional(func(d *xdr.Decoder) error {
		var err error
		attr, err = DecodeFileAttr(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attr, nil
}

// PostOpAttrSize returns the encoded size of post_op_attr.
func PostOpAttrSize(present bool) int {
	if present {
		return 4 + types.FileAttrSize
	}
	return 4
}

// ============================================================================
// wcc_data
// ============================================================================

func encodeWccAttr(e *xdr.Encoder, attr *types.WccAttr) {
	e.Uint64(attr.Size)
	EncodeTime(e, attr.Mtime)
	EncodeTime(e, attr.Ctime)
}

func decodeWccAttr(d *xdr.Decoder) (*types.WccAttr, error) {
	attr := &types.WccAttr{}

	var err error
	if attr.Size, err = d.Uint64(); err != nil {
		return nil, xdr.Within("size", err)
	}
	if attr.Mtime, err = DecodeTime(d); err != nil {
		return nil, xdr.Within("mtime", err)
	}
	if attr.Ctime, err = DecodeTime(d); err != nil {
		return nil, xdr.Within("ctime", err)
	}
	return attr, nil
}

// EncodeWccData writes wcc_data: pre_op_attr followed by post_op_attr.
func EncodeWccData(e *xdr.Encoder, wcc types.WccData) {
	e.Optional(wcc.Before != nil, func(e *xdr.Encoder) {
		encodeWccAttr(e, wcc.Before)
	})
	EncodePostOpAttr(e, wcc.After)
}

// DecodeWccData reads wcc_data. The number of bytes consumed always equals
// WccDataSize(before present, after present).
func DecodeWccData(d *xdr.Decoder) (types.WccData, error) {
	var wcc types.WccData

	_, err := d.Optional(func(d *xdr.Decoder) error {
		var err error
		wcc.Before, err = decodeWccAttr(d)
		return err
	})
	if err != nil {
		return types.WccData{}, xdr.Within("before", err)
	}

	if wcc.After, err = DecodePostOpAttr(d); err != nil {
		return types.WccData{}, xdr.Within("after", err)
	}

	return wcc, nil
}

// WccDataSize returns 4 + (24 if pre) + 4 + (84 if post).
func WccDataSize(before, after bool) int {
	n := 4 + PostOpAttrSize(after)
	if before {
		n += types.WccAttrSize
	}
	return n
}

// WccSize returns the encoded size of wcc as observed.
func WccSize(wcc types.WccData) int {
	return WccDataSize(wcc.Before != nil, wcc.After != nil)
}
