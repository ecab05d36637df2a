package binfile

import (
	"fmt"
	"strings"
)

// ByteAt returns the unsigned byte at off.
func ByteAt(src ByteSource, off int64) (byte, error) {
	if err := checkBounds(src, "byte", off, 1); err != nil {
		return 0, err
	}
	return src.ByteAt(off)
}

// BytesAt returns n bytes starting at off, in order.
func BytesAt(src ByteSource, off, n int64) ([]byte, error) {
	return readField(src, "bytes", off, n)
}

// Int8At returns the byte at off interpreted as two's complement.
func Int8At(src ByteSource, off int64) (int8, error) {
	b, err := ByteAt(src, off)
	if err != nil {
		return 0, err
	}
	return int8(b), nil //nolint:gosec // two's complement reinterpretation is intended
}

// Uint16At combines two bytes at off in the given order.
func Uint16At(src ByteSource, off int64, order ByteOrder) (uint16, error) {
	v, err := uintAt(src, "uint16", off, 2, order)
	return uint16(v), err //nolint:gosec // value holds at most 16 bits
}

// Int16At is Uint16At interpreted as two's complement.
func Int16At(src ByteSource, off int64, order ByteOrder) (int16, error) {
	v, err := Uint16At(src, off, order)
	return int16(v), err //nolint:gosec // two's complement reinterpretation is intended
}

// Uint24At combines three bytes at off in the given order. The result is in [0, 16777215].
func Uint24At(src ByteSource, off int64, order ByteOrder) (uint32, error) {
	return uintAt(src, "uint24", off, 3, order)
}

// Uint32At combines four bytes at off in the given order.
func Uint32At(src ByteSource, off int64, order ByteOrder) (uint32, error) {
	return uintAt(src, "uint32", off, 4, order)
}

// Int32At is Uint32At interpreted as two's complement.
func Int32At(src ByteSource, off int64, order ByteOrder) (int32, error) {
	v, err := Uint32At(src, off, order)
	return int32(v), err //nolint:gosec // two's complement reinterpretation is intended
}

// IsBitSetAt reports whether bit (0 = least significant) of the byte at off is set.
func IsBitSetAt(src ByteSource, off int64, bit int) (bool, error) {
	if bit < 0 || bit > 7 {
		return false, fmt.Errorf("%w: bit index %d", ErrOutOfRange, bit)
	}
	b, err := ByteAt(src, off)
	if err != nil {
		return false, err
	}
	return b&(1<<bit) != 0, nil
}

// CharAt returns the byte at off as a Latin-1 code point.
func CharAt(src ByteSource, off int64) (rune, error) {
	b, err := ByteAt(src, off)
	if err != nil {
		return 0, err
	}
	return rune(b), nil
}

// StringAt returns n bytes starting at off decoded as Latin-1.
func StringAt(src ByteSource, off, n int64) (string, error) {
	b, err := readField(src, "string", off, n)
	if err != nil {
		return "", err
	}
	return latin1(b), nil
}

func uintAt(src ByteSource, op string, off, width int64, order ByteOrder) (uint32, error) {
	b, err := readField(src, op, off, width)
	if err != nil {
		return 0, err
	}
	var v uint32
	if order == BigEndian {
		for _, c := range b {
			v = v<<8 | uint32(c)
		}
		return v, nil
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v, nil
}

// readField bounds-checks [off, off+n) and returns its bytes, preferring the
// source's batch read when it has one.
func readField(src ByteSource, op string, off, n int64) ([]byte, error) {
	if err := checkBounds(src, op, off, n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	if br, ok := src.(BytesReader); ok {
		return br.BytesAt(off, n)
	}
	out := make([]byte, n)
	for i := range out {
		b, err := src.ByteAt(off + int64(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
