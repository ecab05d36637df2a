package binfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/binfile"
)

func newBuffer(t *testing.T, data []byte, opts ...binfile.BufferOption) *binfile.Buffer {
	t.Helper()
	buf, err := binfile.NewBuffer(data, opts...)
	require.NoError(t, err)
	return buf
}

// byteOnlySource hides Buffer.BytesAt so the per-byte path is exercised.
type byteOnlySource struct {
	data  []byte
	calls int
}

func (s *byteOnlySource) ByteAt(off int64) (byte, error) {
	s.calls++
	return s.data[off], nil
}

func (s *byteOnlySource) Len() int64 { return int64(len(s.data)) }

func TestInt8AtMatchesByteAt(t *testing.T) {
	t.Parallel()

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	buf := newBuffer(t, data)

	for off := range int64(len(data)) {
		u, err := binfile.ByteAt(buf, off)
		require.NoError(t, err)
		s, err := binfile.Int8At(buf, off)
		require.NoError(t, err)
		if u < 128 {
			assert.Equal(t, int(u), int(s))
		} else {
			assert.Equal(t, int(u)-256, int(s))
		}
	}
}

func TestUint16AtByteOrder(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0x01, 0x02})

	be, err := binfile.Uint16At(buf, 0, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), be)

	le, err := binfile.Uint16At(buf, 0, binfile.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), le)
}

func TestInt16At(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0xFF, 0xFE, 0x7F, 0xFF})

	v, err := binfile.Int16At(buf, 0, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v)

	v, err = binfile.Int16At(buf, 2, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, int16(32767), v)

	v, err = binfile.Int16At(buf, 0, binfile.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, int16(-257), v)
}

func TestUint32AtAllOnes(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	for _, order := range []binfile.ByteOrder{binfile.BigEndian, binfile.LittleEndian} {
		u, err := binfile.Uint32At(buf, 0, order)
		require.NoError(t, err)
		assert.Equal(t, uint32(4294967295), u, order.String())

		s, err := binfile.Int32At(buf, 0, order)
		require.NoError(t, err)
		assert.Equal(t, int32(-1), s, order.String())
	}
}

func TestUint32AtByteOrder(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0x12, 0x34, 0x56, 0x78})

	be, err := binfile.Uint32At(buf, 0, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), be)

	le, err := binfile.Uint32At(buf, 0, binfile.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x78563412), le)
}

func TestUint24At(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0x01, 0x02, 0x03, 0xFF, 0xFF, 0xFF})

	be, err := binfile.Uint24At(buf, 0, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010203), be)

	le, err := binfile.Uint24At(buf, 0, binfile.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x030201), le)

	maxv, err := binfile.Uint24At(buf, 3, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(16777215), maxv)
}

func TestIsBitSetAt(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{0b1000_0101})
	want := []bool{true, false, true, false, false, false, false, true}
	for bit, expected := range want {
		got, err := binfile.IsBitSetAt(buf, 0, bit)
		require.NoError(t, err)
		assert.Equal(t, expected, got, "bit %d", bit)
	}

	_, err := binfile.IsBitSetAt(buf, 0, 8)
	require.ErrorIs(t, err, binfile.ErrOutOfRange)
}

func TestStringAtLatin1(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte("Hello\xe9"))

	s, err := binfile.StringAt(buf, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "Hello", s)

	c, err := binfile.CharAt(buf, 5)
	require.NoError(t, err)
	assert.Equal(t, 'é', c)

	empty, err := binfile.StringAt(buf, 6, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBytesAtFallsBackToByteAt(t *testing.T) {
	t.Parallel()

	src := &byteOnlySource{data: []byte{9, 8, 7, 6}}
	b, err := binfile.BytesAt(src, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7, 6}, b)
	assert.Equal(t, 3, src.calls)

	v, err := binfile.Uint16At(src, 2, binfile.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0706), v)
}

func TestOutOfRange(t *testing.T) {
	t.Parallel()

	buf := newBuffer(t, []byte{1, 2, 3})

	_, err := binfile.ByteAt(buf, 3)
	require.ErrorIs(t, err, binfile.ErrOutOfRange)

	_, err = binfile.ByteAt(buf, -1)
	require.ErrorIs(t, err, binfile.ErrOutOfRange)

	_, err = binfile.Uint32At(buf, 0, binfile.BigEndian)
	var rerr *binfile.RangeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "uint32", rerr.Op)
	assert.Equal(t, int64(4), rerr.Width)
	assert.Equal(t, int64(3), rerr.Length)

	_, err = binfile.Uint16At(buf, 2, binfile.LittleEndian)
	require.ErrorIs(t, err, binfile.ErrOutOfRange)

	_, err = binfile.StringAt(buf, 1, -1)
	require.ErrorIs(t, err, binfile.ErrOutOfRange)
}
