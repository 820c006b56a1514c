package codec

// EncodeBytes appends a varint length prefix followed by p itself,
// the shared representation for embedded strings, function bodies, and
// the outer bytecode frame.
func EncodeBytes(dst []byte, p []byte) []byte {
	dst = EncodeVarint(dst, int64(len(p)))
	return append(dst, p...)
}

// DecodeBytes reads a varint length prefix followed by that many bytes,
// returning the slice and total bytes consumed (prefix + payload).
func DecodeBytes(src []byte) ([]byte, int, error) {
	length, n, err := DecodeVarint(src)
	if err != nil {
		return nil, 0, err
	}
	if length < 0 {
		return nil, 0, ErrTruncated
	}
	end := n + int(length)
	if end > len(src) || end < n {
		return nil, 0, ErrTruncated
	}
	return src[n:end], end, nil
}
