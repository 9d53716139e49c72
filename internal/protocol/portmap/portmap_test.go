package portmap

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCaller struct {
	args   []byte
	proc   uint32
	result []byte
}

func (s *stubCaller) Call(_ context.Context, program, version, procedure uint32, args []byte) ([]byte, error) {
	if program != rpc.ProgramPortmap || version != rpc.PortmapVersion {
		return nil, &rpc.AcceptError{Stat: rpc.ProgUnavail}
	}
	s.proc = procedure
	s.args = args
	return s.result, nil
}

func TestMappingEncoding(t *testing.T) {
	m := &Mapping{Prog: rpc.ProgramNFS, Vers: 3, Prot: IPProtoTCP}
	b, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0x01, 0x86, 0xA3,
		0, 0, 0, 3,
		0, 0, 0, 6,
		0, 0, 0, 0,
	}, b)

	got, err := DecodeMapping(b)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = DecodeMapping(b[:10])
	assert.True(t, errors.Is(err, xdr.ErrTruncated))
	_, err = DecodeMapping(append(b, 0, 0, 0, 0))
	assert.True(t, errors.Is(err, xdr.ErrTrailingBytes))
}

func TestDecodePort(t *testing.T) {
	port, err := DecodePort(EncodePort(2049))
	require.NoError(t, err)
	assert.Equal(t, uint32(2049), port)

	_, err = DecodePort([]byte{0, 0})
	assert.True(t, errors.Is(err, xdr.ErrTruncated))

	_, err = DecodePort([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, xdr.ErrTrailingBytes))
}

func TestDump(t *testing.T) {
	mappings := []Mapping{
		{Prog: rpc.ProgramPortmap, Vers: 2, Prot: IPProtoTCP, Port: 111},
		{Prog: rpc.ProgramNFS, Vers: 3, Prot: IPProtoTCP, Port: 2049},
	}
	b := EncodeDump(mappings)
	assert.Len(t, b, 2*(4+MappingSize)+4)

	got, err := DecodeDump(b)
	require.NoError(t, err)
	assert.Equal(t, mappings, got)

	empty, err := DecodeDump([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeDump(b[:10])
	var de *xdr.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "pmaplist[0]", de.Field)
	assert.Equal(t, 8, de.Offset)
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	sc := &stubCaller{result: EncodePort(0)}
	port, err := NewClient(sc).GetPort(ctx, 999999, 1, IPProtoTCP)
	require.NoError(t, err)
	assert.Zero(t, port)
	assert.Equal(t, uint32(PmapProcGetPort), sc.proc)
	assert.Len(t, sc.args, MappingSize)

	sc = &stubCaller{result: []byte{}}
	require.NoError(t, NewClient(sc).Null(ctx))
	assert.Nil(t, sc.args)
}

func TestProcedureName(t *testing.T) {
	assert.Equal(t, "GETPORT", ProcedureName(PmapProcGetPort))
	assert.Equal(t, "PROC_5", ProcedureName(5))
}
