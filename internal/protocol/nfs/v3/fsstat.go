package v3

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// FsStatRequest represents an FSSTAT request.
//
// RFC 1813 Section 3.3.18 specifies the FSSTAT procedure as:
//
//	FSSTAT3res NFSPROC3_FSSTAT(FSSTAT3args) = 18;
type FsStatRequest struct {
	Handle types.FileHandle
}

// FsStatResponse holds dynamic filesystem counters. Stat is set only on NFS3_OK.
type FsStatResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Stat   *types.FSStat
}

// Encode returns the fsstat3args bytes.
func (r *FsStatRequest) Encode() ([]byte, error) {
	return (&GetAttrRequest{Handle: r.Handle}).Encode()
}

// Encode returns the fsstat3res bytes. Only the arm selected by Status is
// written.
func (r *FsStatResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodePostOpAttr(e, r.Attr)
	if r.Status == types.NFS3OK {
		if r.Stat == nil {
			return nil, errMissing("FSSTAT", "counters")
		}
		for _, v := range []uint64{
			r.Stat.TotalBytes, r.Stat.FreeBytes, r.Stat.AvailBytes,
			r.Stat.TotalFiles, r.Stat.FreeFiles, r.Stat.AvailFiles,
		} {
			e.Uint64(v)
		}
		e.Uint32(r.Stat.Invarsec)
	}
	return e.Bytes(), nil
}

// DecodeFsStatRequest parses fsstat3args.
func DecodeFsStatRequest(data []byte) (*FsStatRequest, error) {
	return decodeAll(data, "fsstat3args", func(d *xdr.Decoder) (*FsStatRequest, error) {
		fh, err := decodeHandle(d, "fsroot")
		if err != nil {
			return nil, err
		}
		return &FsStatRequest{Handle: fh}, nil
	})
}

// DecodeFsStatResponse parses fsstat3res. The whole of data must be consumed.
func DecodeFsStatResponse(data []byte) (*FsStatResponse, error) {
	return decodeAll(data, "fsstat3res", func(d *xdr.Decoder) (*FsStatResponse, error) {
		resp := &FsStatResponse{}
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

		st := &types.FSStat{}
		fields := []struct {
			name string
			dst  *uint64
		}{
			{"tbytes", &st.TotalBytes},
			{"fbytes", &st.FreeBytes},
			{"abytes", &st.AvailBytes},
			{"tfiles", &st.TotalFiles},
			{"ffiles", &st.FreeFiles},
			{"afiles", &st.AvailFiles},
		}
		for _, f := range fields {
			if *f.dst, err = d.Uint64(); err != nil {
				return nil, xdr.Within(f.name, err)
			}
		}
		if st.Invarsec, err = d.Uint32(); err != nil {
			return nil, xdr.Within("invarsec", err)
		}
		resp.Stat = st
		return resp, nil
	})
}
