package v3

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// ReadDirPlusRequest represents a READDIRPLUS request.
//
// RFC 1813 Section 3.3.17 specifies the READDIRPLUS procedure as:
//
//	READDIRPLUS3res NFSPROC3_READDIRPLUS(READDIRPLUS3args) = 17;
//
// A first call uses Cookie 0 and a zero CookieVerf; continuation calls pass
// the last entry's cookie and the verifier from the previous reply.
type ReadDirPlusRequest struct {
	DirHandle  types.FileHandle
	Cookie     uint64
	CookieVerf types.CookieVerifier

	// DirCount is the maximum bytes of directory information (names and
	// cookies) the server should return.
	DirCount uint32

	// MaxCount is the maximum size of the whole READDIRPLUS3resok.
	MaxCount uint32
}

// ReadDirPlusResponse represents a READDIRPLUS reply.
type ReadDirPlusResponse struct {
	Status     uint32
	DirAttr    *types.FileAttr
	CookieVerf types.CookieVerifier
	Entries    []types.DirEntryPlus
	Eof        bool
}

// maxDirEntries bounds the entry chain accepted from a single reply.
const maxDirEntries = 1 << 16

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the readdirplus3args bytes.
func (r *ReadDirPlusRequest) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	if err := nfsxdr.EncodeFileHandle(e, r.DirHandle); err != nil {
		return nil, err
	}
	e.Uint64(r.Cookie)
	e.FixedOpaque(r.CookieVerf[:])
	e.Uint32(r.DirCount)
	e.Uint32(r.MaxCount)
	return e.Bytes(), nil
}

// Encode writes the reply. Entries is written as the XDR optional-data
// chain: a value_follows word before each entry and a final false.
func (r *ReadDirPlusResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	nfsxdr.EncodePostOpAttr(e, r.DirAttr)
	if r.Status != types.NFS3OK {
		return e.Bytes(), nil
	}

	e.FixedOpaque(r.CookieVerf[:])
	for i := range r.Entries {
		entry := &r.Entries[i]
		e.Bool(true)
		e.Uint64(entry.Fileid)
		e.String(entry.Name)
		e.Uint64(entry.Cookie)
		nfsxdr.EncodePostOpAttr(e, entry.Attr)
		if err := nfsxdr.EncodePostOpFileHandle(e, entry.Handle); err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry.Name, err)
		}
	}
	e.Bool(false)
	e.Bool(r.Eof)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeReadDirPlusRequest parses readdirplus3args.
func DecodeReadDirPlusRequest(data []byte) (*ReadDirPlusRequest, error) {
	return decodeAll(data, "readdirplus3args", func(d *xdr.Decoder) (*ReadDirPlusRequest, error) {
		req := &ReadDirPlusRequest{}
		var err error
		if req.DirHandle, err = decodeHandle(d, "dir"); err != nil {
			return nil, err
		}
		if req.Cookie, err = d.Uint64(); err != nil {
			return nil, xdr.Within("cookie", err)
		}
		verf, err := decodeVerifier(d, "cookieverf")
		if err != nil {
			return nil, err
		}
		req.CookieVerf = types.CookieVerifier(verf)
		if req.DirCount, err = d.Uint32(); err != nil {
			return nil, xdr.Within("dircount", err)
		}
		if req.MaxCount, err = d.Uint32(); err != nil {
			return nil, xdr.Within("maxcount", err)
		}
		return req, nil
	})
}

// DecodeReadDirPlusResponse parses readdirplus3res. The whole of data must be consumed.
// The entry chain is followed until value_follows is false.
func DecodeReadDirPlusResponse(data []byte) (*ReadDirPlusResponse, error) {
	return decodeAll(data, "readdirplus3res", func(d *xdr.Decoder) (*ReadDirPlusResponse, error) {
		resp := &ReadDirPlusResponse{}
		var err error
		if resp.Status, err = decodeStatus(d); err != nil {
			return nil, err
		}
		if resp.DirAttr, err = decodePostOpAttr(d, "dir_attributes"); err != nil {
			return nil, err
		}
		if resp.Status != types.NFS3OK {
			return resp, nil
		}

		verf, err := decodeVerifier(d, "cookieverf")
		if err != nil {
			return nil, err
		}
		resp.CookieVerf = types.CookieVerifier(verf)

		for {
			at := d.Offset()
			more, err := d.Bool()
			if err != nil {
				return nil, xdr.Within("reply.entries", err)
			}
			if !more {
				break
			}
			if len(resp.Entries) == maxDirEntries {
				return nil, &xdr.DecodeError{Offset: at, Field: "reply.entries", Err: xdr.ErrTooLong}
			}

			entry, err := decodeEntryPlus(d)
			if err != nil {
				return nil, xdr.Within(fmt.Sprintf("reply.entries[%d]", len(resp.Entries)), err)
			}
			resp.Entries = append(resp.Entries, entry)
		}

		if resp.Eof, err = d.Bool(); err != nil {
			return nil, xdr.Within("reply.eof", err)
		}
		return resp, nil
	})
}

func decodeEntryPlus(d *xdr.Decoder) (types.DirEntryPlus, error) {
	var entry types.DirEntryPlus
	var err error
	if entry.Fileid, err = d.Uint64(); err != nil {
		return entry, xdr.Within("fileid", err)
	}
	if entry.Name, err = d.String(types.MaxNameLen); err != nil {
		return entry, xdr.Within("name", err)
	}
	if entry.Cookie, err = d.Uint64(); err != nil {
		return entry, xdr.Within("cookie", err)
	}
	if entry.Attr, err = decodePostOpAttr(d, "name_attributes"); err != nil {
		return entry, err
	}
	if entry.Handle, err = nfsxdr.DecodePostOpFileHandle(d); err != nil {
		return entry, xdr.Within("name_handle", err)
	}
	return entry, nil
}
