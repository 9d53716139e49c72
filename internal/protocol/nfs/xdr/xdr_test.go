package xdr

import (
	"errors"
	"testing"
	"time"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func validFileAttr() *types.FileAttr {
	now := types.TimeValOf(time.Unix(1700000000, 123456789))
	return &types.FileAttr{
		Type:   types.FileTypeRegular,
		Mode:   0644,
		Nlink:  1,
		UID:    1000,
		GID:    1000,
		Size:   1024,
		Used:   4096,
		Rdev:   types.SpecData{Major: 8, Minor: 1},
		Fsid:   1,
		Fileid: 12345,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}
}

func validWccAttr() *types.WccAttr {
	return &types.WccAttr{
		Size:  1024,
		Mtime: types.TimeVal{Seconds: 10, Nseconds: 20},
		Ctime: types.TimeVal{Seconds: 30, Nseconds: 40},
	}
}

// ============================================================================
// fattr3 Tests
// ============================================================================

func TestFileAttr(t *testing.T) {
	t.Run("EncodesEightyFourBytes", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodeFileAttr(e, validFileAttr())
		assert.Equal(t, types.FileAttrSize, e.Len())
	})

	t.Run("FieldOrder", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodeFileAttr(e, validFileAttr())
		b := e.Bytes()

		assert.Equal(t, []byte{0, 0, 0, 1}, b[0:4], "type")
		assert.Equal(t, []byte{0, 0, 0x01, 0xA4}, b[4:8], "mode 0644")
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x04, 0x00}, b[20:28], "size")
		assert.Equal(t, []byte{0, 0, 0, 8, 0, 0, 0, 1}, b[36:44], "rdev")
	})

	t.Run("RoundTrip", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodeFileAttr(e, validFileAttr())

		d := xdr.NewDecoder(e.Bytes())
		got, err := DecodeFileAttr(d)
		require.NoError(t, err)
		assert.Equal(t, validFileAttr(), got)
		require.NoError(t, d.Done())
	})

	t.Run("TruncatedNamesField", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodeFileAttr(e, validFileAttr())

		_, err := DecodeFileAttr(xdr.NewDecoder(e.Bytes()[:80]))
		var de *xdr.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 80, de.Offset)
		assert.Equal(t, "ctime.nseconds", de.Field)
	})
}

func TestPostOpAttr(t *testing.T) {
	t.Run("Absent", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodePostOpAttr(e, nil)
		assert.Equal(t, []byte{0, 0, 0, 0}, e.Bytes())

		got, err := DecodePostOpAttr(xdr.NewDecoder(e.Bytes()))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Present", func(t *testing.T) {
		e := xdr.NewEncoder()
		EncodePostOpAttr(e, validFileAttr())
		assert.Equal(t, PostOpAttrSize(true), e.Len())

		got, err := DecodePostOpAttr(xdr.NewDecoder(e.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, validFileAttr(), got)
	})
}

// ============================================================================
// wcc_data Tests
// ============================================================================

func TestWccDataSizeLaw(t *testing.T) {
	cases := []struct {
		name   string
		before *types.WccAttr
		after  *types.FileAttr
		size   int
	}{
		{"Neither", nil, nil, 8},
		{"BeforeOnly", validWccAttr(), nil, 32},
		{"AfterOnly", nil, validFileAttr(), 92},
		{"Both", validWccAttr(), validFileAttr(), 116},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wcc := types.WccData{Before: tc.before, After: tc.after}

			e := xdr.NewEncoder()
			EncodeWccData(e, wcc)
			require.Equal(t, tc.size, e.Len())
			assert.Equal(t, tc.size, WccDataSize(tc.before != nil, tc.after != nil))

			d := xdr.NewDecoder(e.Bytes())
			got, err := DecodeWccData(d)
			require.NoError(t, err)
			assert.Equal(t, tc.size, d.Offset())
			assert.Equal(t, tc.size, WccSize(got))
			assert.Equal(t, wcc, got)
		})
	}
}

func TestWccDataErrors(t *testing.T) {
	t.Run("DiscriminantClaimsMissingAttrs", func(t *testing.T) {
		// before present but only 8 of 24 bytes follow
		buf := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 5}
		_, err := DecodeWccData(xdr.NewDecoder(buf))
		require.Error(t, err)
		assert.True(t, errors.Is(err, xdr.ErrTruncated))

		var de *xdr.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 12, de.Offset)
		assert.Equal(t, "before.mtime.seconds", de.Field)
	})

	t.Run("BadDiscriminant", func(t *testing.T) {
		_, err := DecodeWccData(xdr.NewDecoder([]byte{0, 0, 0, 0, 0, 0, 0, 7}))
		assert.True(t, errors.Is(err, xdr.ErrBadDiscriminant))
	})
}

// ============================================================================
// sattr3 Tests
// ============================================================================

func TestSetAttrs(t *testing.T) {
	t.Run("AllUnsetIsTwentyFourBytes", func(t *testing.T) {
		e := xdr.NewEncoder()
		require.NoError(t, EncodeSetAttrs(e, types.SetAttrs{}))
		assert.Equal(t, make([]byte, 24), e.Bytes())
		assert.Equal(t, 24, SetAttrsSize(types.SetAttrs{}))
	})

	t.Run("SizeOnly", func(t *testing.T) {
		attrs := types.SetAttrs{Size: types.Uint64(5)}
		e := xdr.NewEncoder()
		require.NoError(t, EncodeSetAttrs(e, attrs))

		assert.Equal(t, []byte{
			0, 0, 0, 0, // mode
			0, 0, 0, 0, // uid
			0, 0, 0, 0, // gid
			0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 5, // size
			0, 0, 0, 0, // atime
			0, 0, 0, 0, // mtime
		}, e.Bytes())
		assert.Equal(t, 32, SetAttrsSize(attrs))
	})

	t.Run("ModeOnly", func(t *testing.T) {
		attrs := types.SetAttrs{Mode: types.Uint32(0644)}
		e := xdr.NewEncoder()
		require.NoError(t, EncodeSetAttrs(e, attrs))
		assert.Equal(t, 28, e.Len())
		assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0x01, 0xA4}, e.Bytes()[:8])
	})

	t.Run("TimeVariants", func(t *testing.T) {
		attrs := types.SetAttrs{
			Atime: types.ServerTime(),
			Mtime: types.ClientTime(types.TimeVal{Seconds: 7, Nseconds: 9}),
		}
		e := xdr.NewEncoder()
		require.NoError(t, EncodeSetAttrs(e, attrs))
		assert.Equal(t, 32, e.Len())
		assert.Equal(t, SetAttrsSize(attrs), e.Len())
		assert.Equal(t, []byte{
			0, 0, 0, 1, // SET_TO_SERVER_TIME
			0, 0, 0, 2, 0, 0, 0, 7, 0, 0, 0, 9, // SET_TO_CLIENT_TIME + nfstime3
		}, e.Bytes()[16:])
	})

	t.Run("RoundTrip", func(t *testing.T) {
		attrs := types.SetAttrs{
			Mode:  types.Uint32(0755),
			UID:   types.Uint32(0),
			GID:   types.Uint32(100),
			Size:  types.Uint64(1 << 33),
			Atime: types.ClientTime(types.TimeVal{Seconds: 1}),
			Mtime: types.ServerTime(),
		}
		e := xdr.NewEncoder()
		require.NoError(t, EncodeSetAttrs(e, attrs))

		d := xdr.NewDecoder(e.Bytes())
		got, err := DecodeSetAttrs(d)
		require.NoError(t, err)
		assert.Equal(t, attrs, got)
		require.NoError(t, d.Done())
	})

	t.Run("InvalidTimeHow", func(t *testing.T) {
		e := xdr.NewEncoder()
		err := EncodeSetAttrs(e, types.SetAttrs{Atime: types.SetTime{How: 3}})
		assert.Error(t, err)

		buf := make([]byte, 24)
		buf[19] = 3 // atime how
		_, err = DecodeSetAttrs(xdr.NewDecoder(buf))
		assert.True(t, errors.Is(err, xdr.ErrBadDiscriminant))

		var de *xdr.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 16, de.Offset)
		assert.Equal(t, "atime", de.Field)
	})
}

func TestTimeGuard(t *testing.T) {
	e := xdr.NewEncoder()
	EncodeTimeGuard(e, types.TimeGuard{})
	assert.Equal(t, []byte{0, 0, 0, 0}, e.Bytes())

	e = xdr.NewEncoder()
	guard := types.TimeGuard{Check: true, Time: types.TimeVal{Seconds: 3, Nseconds: 4}}
	EncodeTimeGuard(e, guard)
	assert.Equal(t, 12, e.Len())

	got, err := DecodeTimeGuard(xdr.NewDecoder(e.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, guard, got)
}

// ============================================================================
// File handle Tests
// ============================================================================

func TestFileHandle(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		fh := types.FileHandle{1, 2, 3, 4, 5}
		e := xdr.NewEncoder()
		require.NoError(t, EncodeFileHandle(e, fh))
		assert.Equal(t, 12, e.Len())

		got, err := DecodeFileHandle(xdr.NewDecoder(e.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, fh, got)
	})

	t.Run("RejectsOversizedHandle", func(t *testing.T) {
		fh := make(types.FileHandle, 65)
		assert.Error(t, EncodeFileHandle(xdr.NewEncoder(), fh))

		e := xdr.NewEncoder()
		e.Opaque(fh)
		_, err := DecodeFileHandle(xdr.NewDecoder(e.Bytes()))
		assert.True(t, errors.Is(err, xdr.ErrTooLong))
	})

	t.Run("PostOpAbsentAndPresent", func(t *testing.T) {
		e := xdr.NewEncoder()
		require.NoError(t, EncodePostOpFileHandle(e, nil))
		require.NoError(t, EncodePostOpFileHandle(e, types.FileHandle{9}))

		d := xdr.NewDecoder(e.Bytes())
		fh, err := DecodePostOpFileHandle(d)
		require.NoError(t, err)
		assert.Nil(t, fh)

		fh, err = DecodePostOpFileHandle(d)
		require.NoError(t, err)
		assert.Equal(t, types.FileHandle{9}, fh)
		require.NoError(t, d.Done())
	})

	t.Run("DirOpArgs", func(t *testing.T) {
		e := xdr.NewEncoder()
		require.NoError(t, EncodeDirOpArgs(e, types.FileHandle{1, 2, 3, 4}, "probe.txt"))
		assert.Equal(t, 8+xdr.OpaqueSize(9), e.Len())
	})
}
