package xdr

import (
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// EncodeTime writes nfstime3 (seconds, nseconds).
func EncodeTime(e *xdr.Encoder, tv types.TimeVal) {
	e.Uint32(tv.Seconds)
	e.Uint32(tv.Nseconds)
}

// DecodeTime reads nfstime3.
func DecodeTime(d *xdr.Decoder) (types.TimeVal, error) {
	sec, err := d.Uint32()
	if err != nil {
		return types.TimeVal{}, xdr.Within("seconds", err)
	}
	nsec, err := d.Uint32()
	if err != nil {
		return types.TimeVal{}, xdr.Within("nseconds", err)
	}
	return types.TimeVal{Seconds: sec, Nseconds: nsec}, nil
}
