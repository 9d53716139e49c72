package v3

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

var (
	rootHandle = types.FileHandle{0xAA, 0xBB, 0xCC, 0xDD}
	fileHandle = types.FileHandle{1, 2, 3, 4, 5, 6, 7, 8}
)

func testAttr(fileid, size uint64) *types.FileAttr {
	return &types.FileAttr{
		Type:   types.FileTypeRegular,
		Mode:   0644,
		Nlink:  1,
		Size:   size,
		Fileid: fileid,
		Mtime:  types.TimeVal{Seconds: 100},
	}
}

func decodeErr(t *testing.T, err error) *xdr.DecodeError {
	t.Helper()
	var de *xdr.DecodeError
	require.True(t, errors.As(err, &de), "expected *xdr.DecodeError, got %v", err)
	return de
}

type recordedCall struct {
	program, version, procedure uint32
	args                        []byte
}

// fakeCaller returns a canned result and records the call it received.
type fakeCaller struct {
	calls  []recordedCall
	result []byte
	err    error
}

func (f *fakeCaller) Call(_ context.Context, program, version, procedure uint32, args []byte) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{program, version, procedure, args})
	return f.result, f.err
}

func mustEncode(t *testing.T, enc encoder) []byte {
	t.Helper()
	b, err := enc.Encode()
	require.NoError(t, err)
	return b
}

// ============================================================================
// WRITE / COMMIT Tests
// ============================================================================

func TestWriteRequestEncoding(t *testing.T) {
	req := &WriteRequest{Handle: rootHandle, Offset: 0, Stable: types.UnstableWrite, Data: []byte("0123456789")}
	b := mustEncode(t, req)

	assert.Equal(t, []byte{
		0, 0, 0, 4, 0xAA, 0xBB, 0xCC, 0xDD, // file
		0, 0, 0, 0, 0, 0, 0, 0, // offset
		0, 0, 0, 10, // count
		0, 0, 0, 0, // UNSTABLE
		0, 0, 0, 10, '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 0, 0, // data
	}, b)

	got, err := DecodeWriteRequest(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), got.Count)
	assert.Equal(t, req.Data, got.Data)

	explicit := mustEncode(t, &WriteRequest{Handle: rootHandle, Count: 3, Data: []byte("0123456789")})
	assert.Equal(t, []byte{0, 0, 0, 3}, explicit[16:20], "explicit count is sent verbatim")

	_, err = (&WriteRequest{Handle: rootHandle, Stable: 3}).Encode()
	assert.Error(t, err)
}

func TestWriteResponse(t *testing.T) {
	verf := types.WriteVerifier{1, 2, 3, 4, 5, 6, 7, 8}

	t.Run("OK", func(t *testing.T) {
		in := &WriteResponse{
			Status:    types.NFS3OK,
			Wcc:       types.WccData{After: testAttr(7, 10)},
			Count:     10,
			Committed: types.UnstableWrite,
			Verf:      verf,
		}
		b := mustEncode(t, in)
		assert.Len(t, b, 4+92+4+4+8)

		got, err := DecodeWriteResponse(b)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("FailureOmitsResok", func(t *testing.T) {
		b := mustEncode(t, &WriteResponse{Status: types.NFS3ErrNoSpc})
		assert.Equal(t, []byte{0, 0, 0, 28, 0, 0, 0, 0, 0, 0, 0, 0}, b)

		got, err := DecodeWriteResponse(b)
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrNoSpc), got.Status)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		b := mustEncode(t, &WriteResponse{Status: types.NFS3ErrIO})
		_, err := DecodeWriteResponse(append(b, 0, 0, 0, 0))
		assert.True(t, errors.Is(err, xdr.ErrTrailingBytes))
		assert.Equal(t, len(b), decodeErr(t, err).Offset)
	})

	t.Run("TruncatedVerifier", func(t *testing.T) {
		b := mustEncode(t, &WriteResponse{Status: types.NFS3OK, Verf: verf})
		_, err := DecodeWriteResponse(b[:len(b)-3])
		assert.True(t, errors.Is(err, xdr.ErrTruncated))

		de := decodeErr(t, err)
		assert.Equal(t, "write3res.verf", de.Field)
		assert.Equal(t, 20, de.Offset)
	})

	t.Run("BadCommitted", func(t *testing.T) {
		b := mustEncode(t, &WriteResponse{Status: types.NFS3OK, Committed: types.FileSyncWrite})
		b[19] = 9
		_, err := DecodeWriteResponse(b)
		assert.True(t, errors.Is(err, xdr.ErrBadDiscriminant))
		assert.Equal(t, "write3res.committed", decodeErr(t, err).Field)
	})
}

func TestCommit(t *testing.T) {
	req := &CommitRequest{Handle: fileHandle}
	b := mustEncode(t, req)
	assert.Len(t, b, 4+8+8+4)

	gotReq, err := DecodeCommitRequest(b)
	require.NoError(t, err)
	assert.Equal(t, req, gotReq)

	resp := &CommitResponse{Status: types.NFS3OK, Verf: types.WriteVerifier{9, 9, 9, 9, 9, 9, 9, 9}}
	got, err := DecodeCommitResponse(mustEncode(t, resp))
	require.NoError(t, err)
	assert.Equal(t, resp, got)

	failed, err := DecodeCommitResponse([]byte{0, 0, 0, 5, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint32(types.NFS3ErrIO), failed.Status)
	assert.Equal(t, types.WriteVerifier{}, failed.Verf)
}

// ============================================================================
// LOOKUP / CREATE / REMOVE / RENAME Tests
// ============================================================================

func TestLookupResponse(t *testing.T) {
	t.Run("NoEntIsNotAnError", func(t *testing.T) {
		got, err := DecodeLookupResponse([]byte{0, 0, 0, 2, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrNoEnt), got.Status)
		assert.Nil(t, got.Handle)
		assert.Nil(t, got.DirAttr)
	})

	t.Run("OK", func(t *testing.T) {
		in := &LookupResponse{Status: types.NFS3OK, Handle: fileHandle, ObjAttr: testAttr(2, 0), DirAttr: testAttr(1, 0)}
		got, err := DecodeLookupResponse(mustEncode(t, in))
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("TruncatedHandle", func(t *testing.T) {
		_, err := DecodeLookupResponse([]byte{0, 0, 0, 0})
		de := decodeErr(t, err)
		assert.Equal(t, 4, de.Offset)
		assert.Equal(t, "lookup3res.object", de.Field)
	})
}

func TestLookupRequestRejectsLongName(t *testing.T) {
	e := xdr.NewEncoder()
	e.Opaque(rootHandle)
	e.String(string(make([]byte, types.MaxNameLen+1)))

	_, err := DecodeLookupRequest(e.Bytes())
	assert.True(t, errors.Is(err, xdr.ErrTooLong))
	assert.Equal(t, "lookup3args.what.name", decodeErr(t, err).Field)
}

func TestCreateRequest(t *testing.T) {
	t.Run("Unchecked", func(t *testing.T) {
		req := &CreateRequest{
			DirHandle: rootHandle,
			Filename:  "probe.txt",
			Mode:      types.CreateUnchecked,
			Attrs:     types.SetAttrs{Mode: types.Uint32(0644)},
		}
		b := mustEncode(t, req)
		assert.Len(t, b, 8+xdr.OpaqueSize(9)+4+28)

		got, err := DecodeCreateRequest(b)
		require.NoError(t, err)
		assert.Equal(t, req, got)
	})

	t.Run("Exclusive", func(t *testing.T) {
		req := &CreateRequest{
			DirHandle: rootHandle,
			Filename:  "x",
			Mode:      types.CreateExclusive,
			Verf:      types.CreateVerifier{1, 2, 3, 4, 5, 6, 7, 8},
		}
		b := mustEncode(t, req)
		assert.Equal(t, []byte{0, 0, 0, 2, 1, 2, 3, 4, 5, 6, 7, 8}, b[len(b)-12:])

		got, err := DecodeCreateRequest(b)
		require.NoError(t, err)
		assert.Equal(t, req, got)
	})

	t.Run("InvalidMode", func(t *testing.T) {
		_, err := (&CreateRequest{DirHandle: rootHandle, Filename: "x", Mode: 3}).Encode()
		assert.Error(t, err)

		e := xdr.NewEncoder()
		e.Opaque(rootHandle)
		e.String("x")
		e.Uint32(3)
		_, err = DecodeCreateRequest(e.Bytes())
		assert.True(t, errors.Is(err, xdr.ErrBadDiscriminant))
		assert.Equal(t, 16, decodeErr(t, err).Offset)
	})
}

func TestCreateResponse(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		in := &CreateResponse{
			Status: types.NFS3OK,
			Handle: fileHandle,
			Attr:   testAttr(5, 0),
			DirWcc: types.WccData{Before: &types.WccAttr{Size: 4096}, After: testAttr(1, 4096)},
		}
		got, err := DecodeCreateResponse(mustEncode(t, in))
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("HandleAbsent", func(t *testing.T) {
		got, err := DecodeCreateResponse([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.Nil(t, got.Handle)
		assert.Nil(t, got.Attr)
	})

	t.Run("FailureCarriesOnlyWcc", func(t *testing.T) {
		got, err := DecodeCreateResponse([]byte{0, 0, 0, 17, 0, 0, 0, 0, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrExist), got.Status)
	})

	t.Run("MkdirSharesLayout", func(t *testing.T) {
		got, err := DecodeMkdirResponse([]byte{0, 0, 0, 17, 0, 0, 0, 0, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrExist), got.Status)

		_, err = DecodeMkdirResponse([]byte{0, 0, 0, 17, 0, 0, 0, 0})
		assert.Equal(t, "mkdir3res.dir_wcc.after", decodeErr(t, err).Field)
	})
}

func TestRemoveAndRename(t *testing.T) {
	rm := &RemoveRequest{DirHandle: rootHandle, Filename: "probe.txt"}
	gotRm, err := DecodeRemoveRequest(mustEncode(t, rm))
	require.NoError(t, err)
	assert.Equal(t, rm, gotRm)

	resp, err := DecodeRemoveResponse([]byte{0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint32(types.NFS3ErrNoEnt), resp.Status)

	rn := &RenameRequest{FromDirHandle: rootHandle, FromName: "a", ToDirHandle: rootHandle, ToName: "b"}
	gotRn, err := DecodeRenameRequest(mustEncode(t, rn))
	require.NoError(t, err)
	assert.Equal(t, rn, gotRn)

	rnResp := &RenameResponse{
		Status:     types.NFS3OK,
		FromDirWcc: types.WccData{After: testAttr(1, 0)},
		ToDirWcc:   types.WccData{Before: &types.WccAttr{}},
	}
	b := mustEncode(t, rnResp)
	assert.Len(t, b, 4+92+32)
	got, err := DecodeRenameResponse(b)
	require.NoError(t, err)
	assert.Equal(t, rnResp, got)
}

// ============================================================================
// SETATTR / READ Tests
// ============================================================================

func TestSetAttrTruncate(t *testing.T) {
	req := &SetAttrRequest{Handle: fileHandle, Attrs: types.SetAttrs{Size: types.Uint64(0)}}
	b := mustEncode(t, req)
	assert.Len(t, b, 4+8+32+4)

	got, err := DecodeSetAttrRequest(b)
	require.NoError(t, err)
	assert.Equal(t, req, got)

	guarded := &SetAttrRequest{Handle: fileHandle, Guard: types.TimeGuard{Check: true, Time: types.TimeVal{Seconds: 1}}}
	gotGuarded, err := DecodeSetAttrRequest(mustEncode(t, guarded))
	require.NoError(t, err)
	assert.Equal(t, guarded, gotGuarded)
}

func TestReadResponse(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		in := &ReadResponse{Status: types.NFS3OK, Attr: testAttr(3, 5), Count: 5, Eof: true, Data: []byte("hello")}
		b := mustEncode(t, in)
		assert.Len(t, b, 4+88+4+4+4+8)

		got, err := DecodeReadResponse(b)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("Failure", func(t *testing.T) {
		failed, err := DecodeReadResponse([]byte{0, 0, 0, 21, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrIsDir), failed.Status)
	})

	t.Run("CountMismatch", func(t *testing.T) {
		b := mustEncode(t, &ReadResponse{Status: types.NFS3OK, Count: 10, Eof: true, Data: []byte("abc")})

		_, err := DecodeReadResponse(b)
		require.Error(t, err)
		assert.True(t, errors.Is(err, xdr.ErrLengthMismatch))

		var de *xdr.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 8, de.Offset, "status and absent attributes precede count")
		assert.Equal(t, "read3res.count", de.Field)
	})
}

// ============================================================================
// READDIRPLUS Tests
// ============================================================================

func TestReadDirPlus(t *testing.T) {
	req := &ReadDirPlusRequest{DirHandle: rootHandle, DirCount: 8192, MaxCount: 32768}
	b := mustEncode(t, req)
	assert.Len(t, b, 8+8+8+4+4)
	gotReq, err := DecodeReadDirPlusRequest(b)
	require.NoError(t, err)
	assert.Equal(t, req, gotReq)

	in := &ReadDirPlusResponse{
		Status:     types.NFS3OK,
		DirAttr:    testAttr(1, 0),
		CookieVerf: types.CookieVerifier{0, 0, 0, 0, 0, 0, 0, 1},
		Entries: []types.DirEntryPlus{
			{Fileid: 1, Name: ".", Cookie: 1, Attr: testAttr(1, 0), Handle: rootHandle},
			{Fileid: 2, Name: "probe.txt", Cookie: 2},
		},
		Eof: true,
	}
	resp := mustEncode(t, in)

	got, err := DecodeReadDirPlusResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	t.Run("EmptyDirectory", func(t *testing.T) {
		empty := &ReadDirPlusResponse{Status: types.NFS3OK, Eof: true}
		got, err := DecodeReadDirPlusResponse(mustEncode(t, empty))
		require.NoError(t, err)
		assert.Empty(t, got.Entries)
		assert.True(t, got.Eof)
	})

	t.Run("TruncatedChain", func(t *testing.T) {
		_, err := DecodeReadDirPlusResponse(resp[:len(resp)-12])
		assert.True(t, errors.Is(err, xdr.ErrTruncated))
		assert.Contains(t, decodeErr(t, err).Field, "readdirplus3res.reply.entries[1]")
	})

	t.Run("BadValueFollows", func(t *testing.T) {
		bad := mustEncode(t, &ReadDirPlusResponse{Status: types.NFS3OK})
		bad[19] = 2
		_, err := DecodeReadDirPlusResponse(bad)
		assert.True(t, errors.Is(err, xdr.ErrBadDiscriminant))
		assert.Equal(t, 16, decodeErr(t, err).Offset)
	})
}

// ============================================================================
// FSSTAT / FSINFO / ACCESS / GETATTR Tests
// ============================================================================

func TestFsStatAndFsInfo(t *testing.T) {
	st := &FsStatResponse{Status: types.NFS3OK, Stat: &types.FSStat{TotalBytes: 1 << 40, FreeBytes: 1 << 30, Invarsec: 1}}
	b := mustEncode(t, st)
	assert.Len(t, b, 4+4+48+4)
	gotSt, err := DecodeFsStatResponse(b)
	require.NoError(t, err)
	assert.Equal(t, st, gotSt)

	info := &FsInfoResponse{Status: types.NFS3OK, Info: &types.FSInfo{
		RtMax: 65536, RtPref: 65536, RtMult: 4096,
		WtMax: 65536, WtPref: 65536, WtMult: 4096,
		DtPref: 8192, MaxFileSize: 1 << 62,
		TimeDelta:  types.TimeVal{Nseconds: 1},
		Properties: types.FSFHomogeneous | types.FSFCanSetTime,
	}}
	b = mustEncode(t, info)
	assert.Len(t, b, 4+4+28+8+8+4)
	gotInfo, err := DecodeFsInfoResponse(b)
	require.NoError(t, err)
	assert.Equal(t, info, gotInfo)

	_, err = (&FsInfoResponse{Status: types.NFS3OK}).Encode()
	assert.Error(t, err)
}

func TestAccessAndGetAttr(t *testing.T) {
	access := &AccessResponse{Status: types.NFS3OK, Access: types.AccessRead | types.AccessLookup}
	got, err := DecodeAccessResponse(mustEncode(t, access))
	require.NoError(t, err)
	assert.Equal(t, access, got)

	attr := &GetAttrResponse{Status: types.NFS3OK, Attr: testAttr(9, 9)}
	b := mustEncode(t, attr)
	assert.Len(t, b, 4+types.FileAttrSize)
	gotAttr, err := DecodeGetAttrResponse(b)
	require.NoError(t, err)
	assert.Equal(t, attr, gotAttr)

	stale, err := DecodeGetAttrResponse([]byte{0, 0, 0, 70})
	require.NoError(t, err)
	assert.Equal(t, uint32(types.NFS3ErrStale), stale.Status)
	assert.Nil(t, stale.Attr)
}

// ============================================================================
// Client Tests
// ============================================================================

func TestClientRoutesProcedures(t *testing.T) {
	ctx := context.Background()

	t.Run("Lookup", func(t *testing.T) {
		fc := &fakeCaller{result: []byte{0, 0, 0, 2, 0, 0, 0, 0}}
		resp, err := NewClient(fc).Lookup(ctx, &LookupRequest{DirHandle: rootHandle, Filename: "probe.txt"})
		require.NoError(t, err)
		assert.Equal(t, uint32(types.NFS3ErrNoEnt), resp.Status)

		require.Len(t, fc.calls, 1)
		assert.Equal(t, uint32(rpc.ProgramNFS), fc.calls[0].program)
		assert.Equal(t, uint32(rpc.NFSVersion), fc.calls[0].version)
		assert.Equal(t, uint32(types.NFSProcLookup), fc.calls[0].procedure)
		assert.Equal(t, mustEncode(t, &LookupRequest{DirHandle: rootHandle, Filename: "probe.txt"}), fc.calls[0].args)
	})

	t.Run("Null", func(t *testing.T) {
		fc := &fakeCaller{result: []byte{}}
		require.NoError(t, NewClient(fc).Null(ctx))
		assert.Equal(t, uint32(types.NFSProcNull), fc.calls[0].procedure)
		assert.Empty(t, fc.calls[0].args)

		fc.result = []byte{0, 0, 0, 0}
		assert.True(t, errors.Is(NewClient(fc).Null(ctx), xdr.ErrTrailingBytes))
	})

	t.Run("TransportErrorPassesThrough", func(t *testing.T) {
		fc := &fakeCaller{err: rpc.ErrTimeout}
		_, err := NewClient(fc).Commit(ctx, &CommitRequest{Handle: fileHandle})
		assert.ErrorIs(t, err, rpc.ErrTimeout)
	})

	t.Run("DecodeOffsetsCountFromResults", func(t *testing.T) {
		// status, empty wcc_data, count; committed is missing
		fc := &fakeCaller{result: []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 10}}
		_, err := NewClient(fc).Write(ctx, &WriteRequest{Handle: fileHandle, Data: []byte("x")})
		require.True(t, errors.Is(err, xdr.ErrTruncated))

		de := decodeErr(t, err)
		assert.Equal(t, 16, de.Offset)
		assert.Equal(t, "write3res.committed", de.Field)
	})

	t.Run("EncodeErrorSkipsCall", func(t *testing.T) {
		fc := &fakeCaller{}
		_, err := NewClient(fc).GetAttr(ctx, &GetAttrRequest{Handle: make(types.FileHandle, 65)})
		assert.Error(t, err)
		assert.Empty(t, fc.calls)
	})
}
