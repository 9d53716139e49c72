package mount

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCaller struct {
	procs  []uint32
	args   [][]byte
	result []byte
}

func (s *stubCaller) Call(_ context.Context, program, version, procedure uint32, args []byte) ([]byte, error) {
	if program != rpc.ProgramMount || version != rpc.MountVersion {
		return nil, &rpc.AcceptError{Stat: rpc.ProgUnavail}
	}
	s.procs = append(s.procs, procedure)
	s.args = append(s.args, args)
	return s.result, nil
}

func TestMountRequest(t *testing.T) {
	b, err := (&MountRequest{DirPath: "/"}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, '/', 0, 0, 0}, b)

	got, err := DecodeMountRequest(b)
	require.NoError(t, err)
	assert.Equal(t, "/", got.DirPath)

	_, err = (&MountRequest{DirPath: strings.Repeat("a", MaxPathLen+1)}).Encode()
	assert.Error(t, err)
}

func TestMountResponse(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		in := &MountResponse{Status: MountOK, FileHandle: []byte{1, 2, 3, 4, 5}, AuthFlavors: []uint32{0}}
		b, err := in.Encode()
		require.NoError(t, err)
		assert.Equal(t, []byte{
			0, 0, 0, 0,
			0, 0, 0, 5, 1, 2, 3, 4, 5, 0, 0, 0,
			0, 0, 0, 1, 0, 0, 0, 0,
		}, b)

		got, err := DecodeMountResponse(b)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("ErrorStatusHasNoBody", func(t *testing.T) {
		got, err := DecodeMountResponse([]byte{0, 0, 0, 13})
		require.NoError(t, err)
		assert.Equal(t, uint32(MountErrAccess), got.Status)
		assert.Nil(t, got.FileHandle)

		_, err = DecodeMountResponse([]byte{0, 0, 0, 13, 0, 0, 0, 0})
		assert.True(t, errors.Is(err, xdr.ErrTrailingBytes))
	})

	t.Run("OversizedHandle", func(t *testing.T) {
		e := xdr.NewEncoder()
		e.Uint32(MountOK)
		e.Opaque(make([]byte, 65))
		e.Uint32Array(nil)

		_, err := DecodeMountResponse(e.Bytes())
		assert.True(t, errors.Is(err, xdr.ErrTooLong))

		var de *xdr.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 4, de.Offset)
		assert.Equal(t, "mountres3.fhandle", de.Field)
	})
}

func TestExportResponse(t *testing.T) {
	in := &ExportResponse{Entries: []ExportEntry{
		{Directory: "/"},
		{Directory: "/data", Groups: []string{"10.0.0.0/8", "@eng"}},
	}}
	b, err := in.Encode()
	require.NoError(t, err)

	got, err := DecodeExportResponse(b)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	empty, err := DecodeExportResponse([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, empty.Entries)

	_, err = DecodeExportResponse(b[:len(b)-4])
	assert.True(t, errors.Is(err, xdr.ErrTruncated))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "MNT3_OK", StatusString(MountOK))
	assert.Equal(t, "MNT3ERR_NOENT", StatusString(MountErrNoEnt))
	assert.Equal(t, "UNKNOWN_7", StatusString(7))

	assert.Equal(t, "MNT", ProcedureName(MountProcMnt))
	assert.Equal(t, "PROC_9", ProcedureName(9))
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	sc := &stubCaller{result: []byte{0, 0, 0, 0, 0, 0, 0, 1, 9, 0, 0, 0, 0, 0, 0, 0}}
	resp, err := NewClient(sc).Mount(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, resp.FileHandle)
	assert.Empty(t, resp.AuthFlavors)
	assert.Equal(t, []uint32{MountProcMnt}, sc.procs)

	sc = &stubCaller{result: []byte{}}
	c := NewClient(sc)
	require.NoError(t, c.Null(ctx))
	require.NoError(t, c.Umount(ctx, "/"))
	assert.Equal(t, []uint32{MountProcNull, MountProcUmnt}, sc.procs)

	sc.result = []byte{0, 0, 0, 0}
	exports, err := c.Export(ctx)
	require.NoError(t, err)
	assert.Empty(t, exports.Entries)
}
