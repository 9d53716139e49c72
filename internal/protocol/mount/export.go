package mount

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ExportEntry is one exportnode: a directory and the groups allowed to
// mount it. An empty Groups list means the export is open to everyone.
type ExportEntry struct {
	Directory string
	Groups    []string
}

// ExportResponse represents an EXPORT reply.
//
// RFC 1813 Appendix I specifies the EXPORT procedure as:
//
//	exports MOUNTPROC3_EXPORT(void) = 5;
type ExportResponse struct {
	Entries []ExportEntry
}

// maxExportEntries bounds both the export chain and each group chain.
const maxExportEntries = 4096

// Encode writes the exports chain: each node is preceded by value_follows
// and the chain ends with false. Groups use the same shape.
func (r *ExportResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	for _, entry := range r.Entries {
		if len(entry.Directory) > MaxPathLen {
			return nil, fmt.Errorf("export %q: dirpath exceeds %d bytes", entry.Directory, MaxPathLen)
		}
		e.Bool(true)
		e.String(entry.Directory)
		for _, g := range entry.Groups {
			e.Bool(true)
			e.String(g)
		}
		e.Bool(false)
	}
	e.Bool(false)
	return e.Bytes(), nil
}

// DecodeExportResponse reads the exports chain.
func DecodeExportResponse(data []byte) (*ExportResponse, error) {
	d := xdr.NewDecoder(data)
	resp := &ExportResponse{}

	for {
		more, err := d.Bool()
		if err != nil {
			return nil, xdr.Within("exports", err)
		}
		if !more {
			break
		}
		if len(resp.Entries) == maxExportEntries {
			return nil, &xdr.DecodeError{Offset: d.Offset() - 4, Field: "exports", Err: xdr.ErrTooLong}
		}

		scope := fmt.Sprintf("exports[%d]", len(resp.Entries))
		entry := ExportEntry{}
		if entry.Directory, err = d.String(MaxPathLen); err != nil {
			return nil, xdr.Within(scope+".ex_dir", err)
		}
		if entry.Groups, err = decodeGroups(d); err != nil {
			return nil, xdr.Within(scope+".ex_groups", err)
		}
		resp.Entries = append(resp.Entries, entry)
	}

	if err := d.Done(); err != nil {
		return nil, xdr.Within("exports", err)
	}
	return resp, nil
}

func decodeGroups(d *xdr.Decoder) ([]string, error) {
	var groups []string
	for {
		more, err := d.Bool()
		if err != nil {
			return nil, err
		}
		if !more {
			return groups, nil
		}
		if len(groups) == maxExportEntries {
			return nil, &xdr.DecodeError{Offset: d.Offset() - 4, Err: xdr.ErrTooLong}
		}
		name, err := d.String(MaxNameLen)
		if err != nil {
			return nil, xdr.Within(fmt.Sprintf("[%d]", len(groups)), err)
		}
		groups = append(groups, name)
	}
}
