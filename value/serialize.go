package value

import (
	"fmt"

	"filagree/internal/codec"
)

// Serialize encodes v as `<type-tag varint><payload>`, the format
// shared with the bytecode codec: nil has no payload, int is a varint,
// float is 4 little-endian bytes, string/function/error are
// length-prefixed bytes, and list/map are `<n><n values><m><m (key,
// value) pairs>` for the side-table. Host-callbacks carry no byte
// representation and cannot be serialized.
func Serialize(v *Value) ([]byte, error) {
	if v == nil {
		return codec.EncodeVarint(nil, int64(NilKind)), nil
	}
	out := codec.EncodeVarint(nil, int64(v.Kind))

	switch v.Kind {
	case NilKind:
		return out, nil
	case BoolKind:
		n := int64(0)
		if v.Bool {
			n = 1
		}
		return codec.EncodeVarint(out, n), nil
	case IntKind:
		return codec.EncodeVarint(out, int64(v.Int)), nil
	case FloatKind:
		return codec.EncodeFloat(out, v.Float), nil
	case StringKind:
		return codec.EncodeBytes(out, v.Str), nil
	case FunctionKind:
		return codec.EncodeBytes(out, v.Code), nil
	case ErrorKind:
		return codec.EncodeBytes(out, []byte(v.ErrMsg)), nil
	case ListKind, MapKind:
		out = codec.EncodeVarint(out, int64(len(v.Items)))
		for _, item := range v.Items {
			part, err := Serialize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		out = codec.EncodeVarint(out, int64(len(v.Table)))
		for k, val := range v.Table {
			out = codec.EncodeBytes(out, []byte(k))
			part, err := Serialize(val)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		return out, nil
	case HostCallbackKind:
		return nil, fmt.Errorf("value: host callbacks are not serializable")
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.Kind)
	}
}

// Deserialize reads one serialized value from the front of src,
// returning it along with the number of bytes consumed.
func Deserialize(src []byte) (*Value, int, error) {
	tag, pos, err := codec.DecodeVarint(src)
	if err != nil {
		return nil, 0, err
	}
	kind := Kind(tag)

	switch kind {
	case NilKind:
		return &Value{Kind: NilKind}, pos, nil
	case BoolKind:
		n, w, err := codec.DecodeVarint(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: BoolKind, Bool: n != 0}, pos + w, nil
	case IntKind:
		n, w, err := codec.DecodeVarint(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: IntKind, Int: int32(n)}, pos + w, nil
	case FloatKind:
		f, w, err := codec.DecodeFloat(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: FloatKind, Float: f}, pos + w, nil
	case StringKind:
		b, w, err := codec.DecodeBytes(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: StringKind, Str: cloneBytes(b)}, pos + w, nil
	case FunctionKind:
		b, w, err := codec.DecodeBytes(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: FunctionKind, Code: cloneBytes(b)}, pos + w, nil
	case ErrorKind:
		b, w, err := codec.DecodeBytes(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		return &Value{Kind: ErrorKind, ErrMsg: string(b)}, pos + w, nil
	case ListKind, MapKind:
		return deserializeListLike(kind, src, pos)
	default:
		return nil, 0, fmt.Errorf("value: unknown serialized kind tag %d", tag)
	}
}

func deserializeListLike(kind Kind, src []byte, pos int) (*Value, int, error) {
	count, w, err := codec.DecodeVarint(src[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += w

	items := make([]*Value, 0, count)
	for i := int64(0); i < count; i++ {
		item, w, err := Deserialize(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
		pos += w
	}

	pairCount, w, err := codec.DecodeVarint(src[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += w

	var table map[string]*Value
	if pairCount > 0 {
		table = make(map[string]*Value, pairCount)
	}
	for i := int64(0); i < pairCount; i++ {
		keyBytes, w, err := codec.DecodeBytes(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += w
		val, w, err := Deserialize(src[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += w
		table[string(keyBytes)] = val
	}

	return &Value{Kind: kind, Items: items, Table: table}, pos, nil
}

func cloneBytes(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
