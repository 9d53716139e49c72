package xdr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegers(t *testing.T) {
	t.Run("Uint32IsBigEndian", func(t *testing.T) {
		e := NewEncoder()
		e.Uint32(0x01020304)
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, e.Bytes())
	})

	t.Run("Uint64IsBigEndian", func(t *testing.T) {
		e := NewEncoder()
		e.Uint64(0x0102030405060708)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, e.Bytes())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		e := NewEncoder()
		e.Uint32(0)
		e.Uint32(0xFFFFFFFF)
		e.Uint64(1 << 40)
		e.Int32(-2)
		e.Int64(-3)

		d := NewDecoder(e.Bytes())
		u32, err := d.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0), u32)
		u32, err = d.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xFFFFFFFF), u32)
		u64, err := d.Uint64()
		require.NoError(t, err)
		assert.Equal(t, uint64(1<<40), u64)
		i32, err := d.Int32()
		require.NoError(t, err)
		assert.Equal(t, int32(-2), i32)
		i64, err := d.Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(-3), i64)
		require.NoError(t, d.Done())
	})

	t.Run("TruncatedReportsOffset", func(t *testing.T) {
		d := NewDecoder([]byte{0, 0, 0, 1, 0, 0})
		_, err := d.Uint32()
		require.NoError(t, err)

		_, err = d.Uint32()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTruncated))

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 4, de.Offset)
		assert.Equal(t, 4, d.Offset(), "failed read must not advance")
	})
}

func TestOpaque(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		size int
	}{
		{"Empty", []byte{}, 4},
		{"OneByte", []byte{0xAA}, 8},
		{"ThreeBytes", []byte{1, 2, 3}, 8},
		{"FourBytes", []byte{1, 2, 3, 4}, 8},
		{"FiveBytes", []byte{1, 2, 3, 4, 5}, 12},
		{"SevenBytes", []byte{1, 2, 3, 4, 5, 6, 7}, 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEncoder()
			e.Opaque(tc.data)
			encoded := e.Bytes()

			require.Len(t, encoded, tc.size)
			assert.Equal(t, tc.size, OpaqueSize(len(tc.data)))
			// padding must be zero
			for _, b := range encoded[4+len(tc.data):] {
				assert.Zero(t, b)
			}

			d := NewDecoder(encoded)
			got, err := d.Opaque(0)
			require.NoError(t, err)
			assert.Equal(t, tc.data, got)
			require.NoError(t, d.Done())
		})
	}

	t.Run("NextFieldStaysAligned", func(t *testing.T) {
		e := NewEncoder()
		e.Opaque([]byte{9, 9, 9})
		e.Uint32(42)

		d := NewDecoder(e.Bytes())
		_, err := d.Opaque(0)
		require.NoError(t, err)
		v, err := d.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(42), v)
	})

	t.Run("LengthBeyondBuffer", func(t *testing.T) {
		d := NewDecoder([]byte{0, 0, 0, 8, 1, 2, 3, 4})
		_, err := d.Opaque(0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTruncated))

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 4, de.Offset)
	})

	t.Run("MissingPadding", func(t *testing.T) {
		d := NewDecoder([]byte{0, 0, 0, 1, 0xAA})
		_, err := d.Opaque(0)
		assert.True(t, errors.Is(err, ErrTruncated))
	})

	t.Run("ExceedsLimit", func(t *testing.T) {
		e := NewEncoder()
		e.Opaque(make([]byte, 65))
		_, err := NewDecoder(e.Bytes()).Opaque(64)
		assert.True(t, errors.Is(err, ErrTooLong))
	})

	t.Run("FixedHasNoPrefix", func(t *testing.T) {
		e := NewEncoder()
		e.FixedOpaque([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		assert.Equal(t, 8, e.Len())

		got, err := NewDecoder(e.Bytes()).FixedOpaque(8)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)
	})
}

func TestString(t *testing.T) {
	for _, s := range []string{"", "a", "abc", "abcd", "probe.txt", "héllo"} {
		e := NewEncoder()
		e.String(s)
		assert.Equal(t, OpaqueSize(len(s)), e.Len())

		got, err := NewDecoder(e.Bytes()).String(0)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestOptional(t *testing.T) {
	t.Run("Absent", func(t *testing.T) {
		e := NewEncoder()
		called := false
		e.Optional(false, func(*Encoder) { called = true })
		assert.False(t, called)
		assert.Equal(t, []byte{0, 0, 0, 0}, e.Bytes())

		d := NewDecoder(e.Bytes())
		present, err := d.Optional(func(*Decoder) error {
			t.Fatal("decoder must not be called")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, present)
	})

	t.Run("Present", func(t *testing.T) {
		e := NewEncoder()
		e.Optional(true, func(e *Encoder) { e.Uint64(7) })
		assert.Equal(t, 12, e.Len())

		var v uint64
		d := NewDecoder(e.Bytes())
		present, err := d.Optional(func(d *Decoder) error {
			var err error
			v, err = d.Uint64()
			return err
		})
		require.NoError(t, err)
		assert.True(t, present)
		assert.Equal(t, uint64(7), v)
	})

	t.Run("BadDiscriminant", func(t *testing.T) {
		_, err := NewDecoder([]byte{0, 0, 0, 2}).Optional(func(*Decoder) error { return nil })
		assert.True(t, errors.Is(err, ErrBadDiscriminant))
	})
}

func TestUint32Array(t *testing.T) {
	e := NewEncoder()
	e.Uint32Array([]uint32{0, 1, 390003})
	assert.Equal(t, 16, e.Len())

	got, err := NewDecoder(e.Bytes()).Uint32Array(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 390003}, got)

	t.Run("CountBeyondBuffer", func(t *testing.T) {
		_, err := NewDecoder([]byte{0, 0, 0, 3, 0, 0, 0, 1}).Uint32Array(0)
		assert.True(t, errors.Is(err, ErrTruncated))
	})
}

func TestDone(t *testing.T) {
	d := NewDecoder([]byte{0, 0, 0, 1, 0, 0, 0, 2})
	_, err := d.Uint32()
	require.NoError(t, err)

	err = d.Done()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrailingBytes))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Offset)
}

func TestWithin(t *testing.T) {
	_, err := NewDecoder(nil).Uint32()
	err = Within("size", err)
	err = Within("after", err)
	assert.Contains(t, err.Error(), "after.size")
	assert.Nil(t, Within("x", nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, Within("x", plain))
}
