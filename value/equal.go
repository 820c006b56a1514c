package value

import "bytes"

type pairKey struct{ a, b *Value }

// Equal implements the structural, recursive equality rule: strings
// compare byte-wise, floats compare bit-exact via subtraction, lists
// compare positional entries and map side-table together, and maps
// compare their side-table alone. Self-referential lists/maps are
// handled by remembering pairs already in progress, the same
// mark-bit-short-circuit idea the collector uses for cycles.
func Equal(a, b *Value) bool {
	return equalRec(a, b, make(map[pairKey]bool))
}

func equalRec(a, b *Value, seen map[pairKey]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}

	key := pairKey{a, b}
	if seen[key] {
		return true
	}
	seen[key] = true

	switch a.Kind {
	case NilKind:
		return true
	case BoolKind:
		return a.Bool == b.Bool
	case IntKind:
		return a.Int == b.Int
	case FloatKind:
		return a.Float-b.Float == 0
	case StringKind:
		return bytes.Equal(a.Str, b.Str)
	case ListKind:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !equalRec(a.Items[i], b.Items[i], seen) {
				return false
			}
		}
		return tableEqual(a.Table, b.Table, seen)
	case MapKind:
		return tableEqual(a.Table, b.Table, seen)
	case FunctionKind:
		return bytes.Equal(a.Code, b.Code)
	case ErrorKind:
		return a.ErrMsg == b.ErrMsg
	case HostCallbackKind:
		return false
	default:
		return false
	}
}

func tableEqual(a, b map[string]*Value, seen map[pairKey]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !equalRec(v, ov, seen) {
			return false
		}
	}
	return true
}
