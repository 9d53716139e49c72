package xdr

import (
	"fmt"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// EncodeSetAttrs writes sattr3 (RFC 1813 Section 2.5.3).
//
//	struct sattr3 {
//	    set_mode3   mode;    // [set:uint32][mode:uint32]
//	    set_uid3    uid;     // [set:uint32][uid:uint32]
//	    set_gid3    gid;     // [set:uint32][gid:uint32]
//	    set_size3   size;    // [set:uint32][size:uint64]
//	    set_atime   atime;   // [how:uint32][time:nfstime3 if SET_TO_CLIENT_TIME]
//	    set_mtime   mtime;   // [how:uint32][time:nfstime3 if SET_TO_CLIENT_TIME]
//	};
//
// Every field contributes its discriminant; only set fields contribute a value.
func EncodeSetAttrs(e *xdr.Encoder, attrs types.SetAttrs) error {
	for _, v := range []*uint32{attrs.Mode, attrs.UID, attrs.GID} {
		e.Optional(v != nil, func(e *xdr.Encoder) { e.Uint32(*v) })
	}
	e.Optional(attrs.Size != nil, func(e *xdr.Encoder) { e.Uint64(*attrs.Size) })

	for _, st := range []struct {
		name string
		v    types.SetTime
	}{{"atime", attrs.Atime}, {"mtime", attrs.Mtime}} {
		switch st.v.How {
		case types.DontChange, types.SetToServerTime:
			e.Uint32(uint32(st.v.How))
		case types.SetToClientTime:
			e.Uint32(uint32(st.v.How))
			EncodeTime(e, st.v.Time)
		default:
			return fmt.Errorf("sattr3 %s: invalid time_how %d", st.name, st.v.How)
		}
	}
	return nil
}

// DecodeSetAttrs reads sattr3.
func DecodeSetAttrs(d *xdr.Decoder) (types.SetAttrs, error) {
	var attrs types.SetAttrs

	u32 := []struct {
		name string
		dst  **uint32
	}{
		{"mode", &attrs.Mode},
		{"uid", &attrs.UID},
		{"gid", &attrs.GID},
	}
	for _, f := range u32 {
		_, err := d.Optional(func(d *xdr.Decoder) error {
			v, err := d.Uint32()
			*f.dst = &v
			return err
		})
		if err != nil {
			return types.SetAttrs{}, xdr.Within(f.name, err)
		}
	}

	_, err := d.Optional(func(d *xdr.Decoder) error {
		v, err := d.Uint64()
		attrs.Size = &v
		return err
	})
	if err != nil {
		return types.SetAttrs{}, xdr.Within("size", err)
	}

	if attrs.Atime, err = decodeSetTime(d); err != nil {
		return types.SetAttrs{}, xdr.Within("atime", err)
	}
	if attrs.Mtime, err = decodeSetTime(d); err != nil {
		return types.SetAttrs{}, xdr.Within("mtime", err)
	}

	return attrs, nil
}

func decodeSetTime(d *xdr.Decoder) (types.SetTime, error) {
	at := d.Offset()
	how, err := d.Uint32()
	if err != nil {
		return types.SetTime{}, err
	}

	switch types.TimeHow(how) {
	case types.DontChange, types.SetToServerTime:
		return types.SetTime{How: types.TimeHow(how)}, nil
	case types.SetToClientTime:
		tv, err := DecodeTime(d)
		if err != nil {
			return types.SetTime{}, err
		}
		return types.ClientTime(tv), nil
	default:
		return types.SetTime{}, &xdr.DecodeError{
			Offset: at,
			Err:    fmt.Errorf("%w: time_how %d", xdr.ErrBadDiscriminant, how),
		}
	}
}

// SetAttrsSize returns the encoded size of attrs: 24 bytes of discriminants
// plus the value of every set field.
func SetAttrsSize(attrs types.SetAttrs) int {
	n := 6 * 4
	for _, v := range []*uint32{attrs.Mode, attrs.UID, attrs.GID} {
		if v != nil {
			n += 4
		}
	}
	if attrs.Size != nil {
		n += 8
	}
	for _, st := range []types.SetTime{attrs.Atime, attrs.Mtime} {
		if st.How == types.SetToClientTime {
			n += 8
		}
	}
	return n
}

// EncodeTimeGuard writes sattrguard3.
func EncodeTimeGuard(e *xdr.Encoder, guard types.TimeGuard) {
	e.Optional(guard.Check, func(e *xdr.Encoder) {
		EncodeTime(e, guard.Time)
	})
}

// DecodeTimeGuard reads sattrguard3.
func DecodeTimeGuard(d *xdr.Decoder) (types.TimeGuard, error) {
	var guard types.TimeGuard
	present, err := d.Optional(func(d *xdr.Decoder) error {
		var err error
		guard.Time, err = DecodeTime(d)
		return err
	})
	guard.Check = present
	if err != nil {
		return types.TimeGuard{}, xdr.Within("guard", err)
	}
	return guard, nil
}
