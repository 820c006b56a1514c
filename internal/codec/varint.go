// Package codec implements the self-describing length-tagged encoding
// shared by the compiled bytecode stream and by value serialization:
// signed varints, 4-byte little-endian floats, and length-prefixed byte
// strings.
package codec

import "errors"

// ErrTruncated is returned when a varint or length-prefixed value runs
// past the end of the available bytes.
var ErrTruncated = errors.New("codec: truncated input")

// EncodeVarint appends the variable-width little-endian encoding of n to
// dst and returns the grown slice. The first byte carries 6 payload
// bits plus a sign bit plus a continuation bit; every following byte
// carries 7 payload bits plus a continuation bit.
func EncodeVarint(dst []byte, n int64) []byte {
	sign := byte(0)
	var mag uint64
	if n < 0 {
		sign = 1
		mag = uint64(-n)
	} else {
		mag = uint64(n)
	}

	first := byte(mag & 0x3F)
	mag >>= 6
	if mag != 0 {
		first |= 0x80
	}
	first |= sign << 6
	dst = append(dst, first)

	for mag != 0 {
		b := byte(mag & 0x7F)
		mag >>= 7
		if mag != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// DecodeVarint reads one varint starting at src[0] and returns its
// value along with the number of bytes consumed.
func DecodeVarint(src []byte) (int64, int, error) {
	if len(src) == 0 {
		return 0, 0, ErrTruncated
	}
	first := src[0]
	sign := (first >> 6) & 1
	value := uint64(first & 0x3F)
	shift := uint(6)
	cont := first&0x80 != 0
	i := 1
	for cont {
		if i >= len(src) {
			return 0, 0, ErrTruncated
		}
		b := src[i]
		value |= uint64(b&0x7F) << shift
		shift += 7
		cont = b&0x80 != 0
		i++
	}
	n := int64(value)
	if sign == 1 {
		n = -n
	}
	return n, i, nil
}
