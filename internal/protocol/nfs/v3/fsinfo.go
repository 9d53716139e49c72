package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// FsInfoRequest represents an FSINFO request.
//
// RFC 1813 Section 3.3.19 specifies the FSINFO procedure as:
//
//	FSINFO3res NFSPROC3_FSINFO(FSINFO3args) = 19;
type FsInfoRequest struct {
	Handle types.FileHandle
}

// FsInfoResponse holds static server limits. Info is set only on NFS3_OK.
type FsInfoResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Info   *types.FSInfo
}

// Encode returns the fsinfo3args bytes.
func (r *FsInfoRequest) Encode() ([]byte, error) {
	return (&GetAttrRequest{Handle: r.Handle}).Encode()
}

// Encode returns the fsinfo3res bytes. Only the arm selected by Status is
// written.
func (r *FsInfoResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodePostOpAttr(e, r.Attr)
	if r.Status == types.NFS3OK {
		if r.Info == nil {
			return nil, errMissing("FSINFO", "limits")
		}
		in := r.Info
		for _, v := range []uint32{in.RtMax, in.RtPref, in.RtMult, in.WtMax, in.WtPref, in.WtMult, in.DtPref} {
			e.Uint32(v)
		}
		e.Uint64(in.MaxFileSize)
		nfsxdr.EncodeTime(e, in.TimeDelta)
		e.Uint32(in.Properties)
	}
	return e.Bytes(), nil
}

// DecodeFsInfoRequest parses fsinfo3args.
func DecodeFsInfoRequest(data []byte) (*FsInfoRequest, error) {
	return decodeAll(data, "fsinfo3args", func(d *xdr.Decoder) (*FsInfoRequest, error) {
		fh, err := decodeHandle(d, "fsroot")
		if err != nil {
			return nil, err
		}
		return &FsInfoRequest{Handle: fh}, nil
	})
}

// DecodeFsInfoResponse parses fsinfo3res. The whole of data must be consumed.
func DecodeFsInfoResponse(data []byte) (*FsInfoResponse, error) {
	return decodeAll(data, "fsinfo3res", func(d *xdr.Decoder) (*FsInfoResponse, error) {
		resp := &FsInfoResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.Attr, err = decodePostOpAttr(d, "obj_attributes"); err != nil {
			return nil, err
		}
		if resp.Status != types.NFS3OK {
			return resp, nil
		}

		in := &types.FSInfo{}
		fields := []struct {
			name string
			dst  *uint32
		}{
			{"rtmax", &in.RtMax},
			{"rtpref", &in.RtPref},
			{"rtmult", &in.RtMult},
			{"wtmax", &in.WtMax},
			{"wtpref", &in.WtPref},
			{"wtmult", &in.WtMult},
			{"dtpref", &in.DtPref},
		}
		for _, f := range fields {
			if *f.dst, err = d.Uint32(); err != nil {
				return nil, xdr.Within(f.name, err)
			}
		}
		if in.MaxFileSize, err = d.Uint64(); err != nil {
			return nil, xdr.Within("maxfilesize", err)
		}
		if in.TimeDelta, err = nfsxdr.DecodeTime(d); err != nil {
			return nil, xdr.Within("time_delta", err)
		}
		if in.Properties, err = d.Uint32(); err != nil {
			return nil, xdr.Within("properties", err)
		}
		resp.Info = in
		return resp, nil
	})
}
