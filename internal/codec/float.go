package codec

import (
	"encoding/binary"
	"math"
)

// EncodeFloat appends the 4-byte little-endian IEEE-754 representation
// of f to dst.
func EncodeFloat(dst []byte, f float32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
	return append(dst, buf[:]...)
}

// DecodeFloat reads a 4-byte little-endian float starting at src[0].
func DecodeFloat(src []byte) (float32, int, error) {
	if len(src) < 4 {
		return 0, 0, ErrTruncated
	}
	bits := binary.LittleEndian.Uint32(src[:4])
	return math.Float32frombits(bits), 4, nil
}
