package mount

import (
	"bytes"
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// Request and Response Structures
// ============================================================================

// MountRequest represents a MNT request. UMNT takes the same argument.
//
// RFC 1813 Appendix I specifies the MNT procedure as:
//
//	mountres3 MOUNTPROC3_MNT(dirpath) = 1;
type MountRequest struct {
	DirPath string
}

// UmountRequest represents a UMNT request.
type UmountRequest = MountRequest

// MountResponse represents a MNT reply. FileHandle and AuthFlavors are
// defined only for MNT3_OK.
type MountResponse struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []uint32
}

// ============================================================================
// XDR Encoding
// ============================================================================

// Encode returns the dirpath argument of MNT.
func (r *MountRequest) Encode() ([]byte, error) {
	if len(r.DirPath) > MaxPathLen {
		return nil, fmt.Errorf("dirpath of %d bytes exceeds %d", len(r.DirPath), MaxPathLen)
	}
	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, r); err != nil {
		return nil, fmt.Errorf("marshal dirpath: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode returns mountres3. The handle and flavors are written only for MNT3_OK.
func (r *MountResponse) Encode() ([]byte, error) {
	e := xdr.NewEncoder()
	e.Uint32(r.Status)
	if r.Status != MountOK {
		return e.Bytes(), nil
	}
	if len(r.FileHandle) > MaxFileHandleSize {
		return nil, fmt.Errorf("file handle of %d bytes exceeds %d", len(r.FileHandle), MaxFileHandleSize)
	}
	e.Opaque(r.FileHandle)
	e.Uint32Array(r.AuthFlavors)
	return e.Bytes(), nil
}

// ============================================================================
// XDR Decoding
// ============================================================================

// DecodeMountRequest reads a dirpath argument.
func DecodeMountRequest(data []byte) (*MountRequest, error) {
	d := xdr.NewDecoder(data)
	path, err := d.String(MaxPathLen)
	if err != nil {
		return nil, xdr.Within("dirpath", err)
	}
	if err := d.Done(); err != nil {
		return nil, xdr.Within("dirpath", err)
	}
	return &MountRequest{DirPath: path}, nil
}

// DecodeMountResponse reads mountres3.
func DecodeMountResponse(data []byte) (*MountResponse, error) {
	d := xdr.NewDecoder(data)
	resp := &MountResponse{}

	var err error
	if resp.Status, err = d.Uint32(); err != nil {
		return nil, xdr.Within("mountres3.status", err)
	}
	if resp.Status == MountOK {
		if resp.FileHandle, err = d.Opaque(MaxFileHandleSize); err != nil {
			return nil, xdr.Within("mountres3.fhandle", err)
		}
		if resp.AuthFlavors, err = d.Uint32Array(maxAuthFlavors); err != nil {
			return nil, xdr.Within("mountres3.auth_flavors", err)
		}
	}
	if err := d.Done(); err != nil {
		return nil, xdr.Within("mountres3", err)
	}
	return resp, nil
}
