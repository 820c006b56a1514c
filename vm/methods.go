package vm

import (
	"bytes"
	"sort"
	"strconv"

	"filagree/value"
)

// propertyMethods compute their result immediately from the receiver
// alone, the way the reference interpreter's builtin_method returns a
// plain value (not a callback) for length/type/string/list/keys/values.
var propertyMethods = map[string]bool{
	"length": true, "type": true, "string": true, "list": true,
	"keys": true, "values": true,
}

// lookupMethod resolves a built-in attribute name against receiver.
// Zero-argument property methods are computed and returned directly;
// everything else (serialize, deserialize, sort, char, has, find,
// part, remove, insert, replace) needs call-time arguments, so it
// stages receiver on the rhs stack and returns a bound host callback
// for the following CAL to invoke.
func (vm *VM) lookupMethod(receiver *value.Value, name string) *value.Value {
	f := vm.frame().Factory
	if propertyMethods[name] {
		return vm.propertyMethod(receiver, name)
	}
	switch name {
	case "serialize", "deserialize", "sort", "char", "has", "find", "part", "remove", "insert", "replace":
		vm.rhs.Push(receiver)
		return f.HostCallback(func(a *value.CallArgs) (*value.Value, error) {
			return vm.boundMethod(name, a)
		})
	default:
		raise(KindName, "no such method %q on %s", name, receiver.TypeName())
		return nil
	}
}

func (vm *VM) propertyMethod(receiver *value.Value, name string) *value.Value {
	f := vm.frame().Factory
	switch name {
	case "length":
		switch receiver.Kind {
		case value.ListKind:
			return f.Int(int32(len(receiver.Items)))
		case value.StringKind:
			return f.Int(int32(len(receiver.Str)))
		case value.MapKind:
			return f.Int(int32(len(receiver.Table)))
		default:
			raise(KindType, "no length for %s", receiver.TypeName())
		}
	case "type":
		return f.String([]byte(receiver.TypeName()))
	case "string":
		return f.String(stringify(receiver))
	case "list":
		switch receiver.Kind {
		case value.ListKind:
			return f.List(append([]*value.Value{}, receiver.Items...))
		case value.MapKind:
			return f.List(sortedValues(receiver.Table))
		case value.StringKind:
			items := make([]*value.Value, len(receiver.Str))
			for i := range receiver.Str {
				items[i] = f.String(receiver.Str[i : i+1])
			}
			return f.List(items)
		default:
			raise(KindType, "cannot list a %s", receiver.TypeName())
		}
	case "keys":
		return f.List(sortedKeys(f, receiver.Table))
	case "values":
		return f.List(sortedValues(receiver.Table))
	}
	return nil
}

func sortedKeyStrings(table map[string]*value.Value) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(f *value.Factory, table map[string]*value.Value) []*value.Value {
	keys := sortedKeyStrings(table)
	out := make([]*value.Value, len(keys))
	for i, k := range keys {
		out[i] = f.String([]byte(k))
	}
	return out
}

func sortedValues(table map[string]*value.Value) []*value.Value {
	keys := sortedKeyStrings(table)
	out := make([]*value.Value, len(keys))
	for i, k := range keys {
		out[i] = table[k]
	}
	return out
}

func stringify(v *value.Value) []byte {
	switch v.Kind {
	case value.NilKind:
		return []byte("nil")
	case value.BoolKind:
		if v.Bool {
			return []byte("true")
		}
		return []byte("false")
	case value.IntKind:
		return []byte(strconv.Itoa(int(v.Int)))
	case value.FloatKind:
		return []byte(strconv.FormatFloat(float64(v.Float), 'g', -1, 32))
	case value.StringKind:
		return append([]byte{}, v.Str...)
	default:
		return []byte(v.TypeName())
	}
}

// boundMethod implements the call-time half of the attribute methods:
// a.Receiver is the value GET staged on rhs, a.Args the explicit call
// arguments, mirroring the reference interpreter's cfnc_* family, each
// of which treated args[0] as self and the rest as its own parameters.
func (vm *VM) boundMethod(name string, a *value.CallArgs) (*value.Value, error) {
	f := vm.frame().Factory
	self := a.Receiver

	switch name {
	case "char":
		if self.Kind != value.StringKind {
			raise(KindType, "char on a non-string")
		}
		i := int(a.Arg(0).Int)
		if i < 0 || i >= len(self.Str) {
			raise(KindBounds, "char index %d out of range", i)
		}
		return f.Int(int32(self.Str[i])), nil

	case "sort":
		return vm.sortList(self, a.Arg(0))

	case "part":
		return vm.chop(self, a, true)

	case "remove":
		return vm.chop(self, a, false)

	case "find":
		return vm.find(self, a, false)

	case "has":
		return vm.find(self, a, true)

	case "insert":
		return vm.insert(self, a)

	case "replace":
		return vm.replace(self, a)

	case "serialize":
		bits, err := value.Serialize(self)
		if err != nil {
			return nil, err
		}
		return f.String(bits), nil

	case "deserialize":
		if self.Kind != value.StringKind {
			raise(KindType, "deserialize on a non-string")
		}
		v, _, err := value.Deserialize(self.Str)
		if err != nil {
			return nil, err
		}
		return f.Copy(v), nil
	}
	return nil, nil
}

// sortList sorts a copy of self's items ascending, using an installed
// language-function comparator if one was passed, or falling back to
// natural ordering over ints, floats, and strings.
func (vm *VM) sortList(self *value.Value, comparator *value.Value) (*value.Value, error) {
	if self.Kind != value.ListKind {
		raise(KindType, "sorting a non-list")
	}
	items := append([]*value.Value{}, self.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		if comparator != nil {
			result := vm.invoke(comparator, []*value.Value{items[i], items[j]})
			return result.Int < 0
		}
		return lessNatural(items[i], items[j])
	})
	return vm.frame().Factory.List(items), nil
}

func lessNatural(a, b *value.Value) bool {
	switch {
	case a.Kind == value.IntKind && b.Kind == value.IntKind:
		return a.Int < b.Int
	case a.Kind == value.FloatKind || b.Kind == value.FloatKind:
		return asFloat(a) < asFloat(b)
	case a.Kind == value.StringKind && b.Kind == value.StringKind:
		return bytes.Compare(a.Str, b.Str) < 0
	default:
		raise(KindType, "incompatible types for comparison")
		return false
	}
}

// chop implements part/remove: part copies out [start, start+length);
// remove copies self with that span deleted. length defaults to the
// rest of self for part, or 1 for remove.
func (vm *VM) chop(self *value.Value, a *value.CallArgs, part bool) (*value.Value, error) {
	start := int(a.Arg(0).Int)
	var length int
	if l := a.Arg(1); l != nil {
		length = int(l.Int)
	} else if part {
		length = sizeOf(self) - start
	} else {
		length = 1
	}
	if start < 0 || length < 0 || start+length > sizeOf(self) {
		raise(KindBounds, "chop range [%d,%d) out of bounds", start, start+length)
	}

	switch self.Kind {
	case value.StringKind:
		if part {
			return vm.frame().Factory.String(self.Str[start : start+length]), nil
		}
		kept := append([]byte{}, self.Str[:start]...)
		kept = append(kept, self.Str[start+length:]...)
		return vm.frame().Factory.String(kept), nil
	case value.ListKind:
		if part {
			return vm.frame().Factory.List(append([]*value.Value{}, self.Items[start:start+length]...)), nil
		}
		kept := append([]*value.Value{}, self.Items[:start]...)
		kept = append(kept, self.Items[start+length:]...)
		return vm.frame().Factory.List(kept), nil
	default:
		raise(KindType, "part/remove on a %s", self.TypeName())
		return nil, nil
	}
}

func sizeOf(v *value.Value) int {
	if v.Kind == value.StringKind {
		return len(v.Str)
	}
	return len(v.Items)
}

// find locates sought within self: substring search for strings,
// element search for lists, falling back to a side-table key lookup.
// has returns a bool instead of an index/value.
func (vm *VM) find(self *value.Value, a *value.CallArgs, has bool) (*value.Value, error) {
	f := vm.frame().Factory
	sought := a.Arg(0)

	if self.Kind == value.StringKind && sought.Kind == value.StringKind {
		start := 0
		if s := a.Arg(1); s != nil {
			start = int(s.Int)
		}
		idx := bytes.Index(self.Str[min(start, len(self.Str)):], sought.Str)
		if idx >= 0 {
			idx += start
		}
		if has {
			return f.Bool(idx >= 0), nil
		}
		return f.Int(int32(idx)), nil
	}

	if self.Kind == value.ListKind {
		for _, item := range self.Items {
			if value.Equal(item, sought) {
				if has {
					return f.Bool(true), nil
				}
				return item, nil
			}
		}
	}
	if self.Table != nil && sought.Kind == value.StringKind {
		if v, ok := self.Table[string(sought.Str)]; ok {
			if has {
				return f.Bool(true), nil
			}
			return v, nil
		}
	}
	if has {
		return f.Bool(false), nil
	}
	return f.Nil(), nil
}

// insert splices insertion into self at position, mutating self in
// place and returning the joined result, matching cfnc_insert.
func (vm *VM) insert(self *value.Value, a *value.CallArgs) (*value.Value, error) {
	insertion := a.Arg(0)
	position := sizeOf(self)
	if p := a.Arg(1); p != nil {
		position = int(p.Int)
	}
	if position < 0 || position > sizeOf(self) {
		raise(KindBounds, "insert position %d out of bounds", position)
	}

	switch self.Kind {
	case value.StringKind:
		if insertion.Kind != value.StringKind {
			raise(KindType, "inserting a non-string into a string")
		}
		joined := append([]byte{}, self.Str[:position]...)
		joined = append(joined, insertion.Str...)
		joined = append(joined, self.Str[position:]...)
		self.Str = joined
		return vm.frame().Factory.String(joined), nil
	case value.ListKind:
		joined := append([]*value.Value{}, self.Items[:position]...)
		joined = append(joined, insertion)
		joined = append(joined, self.Items[position:]...)
		self.Items = joined
		return vm.frame().Factory.List(append([]*value.Value{}, joined...)), nil
	default:
		raise(KindType, "bad insertion destination %s", self.TypeName())
		return nil, nil
	}
}

// replace implements the two cfnc_replace forms: (sought, replacement
// [, startIndex]) substring replacement, and (start, length,
// replacement) positional splice.
func (vm *VM) replace(self *value.Value, a *value.CallArgs) (*value.Value, error) {
	if self.Kind != value.StringKind {
		raise(KindType, "replace on a non-string")
	}
	x, y := a.Arg(0), a.Arg(1)
	if x == nil || y == nil {
		raise(KindType, "replace needs at least two arguments")
	}

	if x.Kind == value.StringKind {
		if y.Kind != value.StringKind {
			raise(KindType, "non-string replacement")
		}
		if c := a.Arg(2); c != nil {
			start := int(c.Int)
			idx := bytes.Index(self.Str[min(start, len(self.Str)):], x.Str)
			if idx < 0 {
				return vm.frame().Factory.String(self.Str), nil
			}
			idx += start
			return vm.frame().Factory.String(spliceBytes(self.Str, idx, len(x.Str), y.Str)), nil
		}
		out := append([]byte{}, self.Str...)
		for offset := 0; ; {
			idx := bytes.Index(out[offset:], x.Str)
			if idx < 0 {
				break
			}
			idx += offset
			out = spliceBytes(out, idx, len(x.Str), y.Str)
			offset = idx + len(y.Str)
		}
		return vm.frame().Factory.String(out), nil
	}

	if x.Kind == value.IntKind {
		start := int(x.Int)
		length := int(y.Int)
		replacement := a.Arg(2)
		if replacement == nil {
			raise(KindType, "replace needs a replacement string")
		}
		return vm.frame().Factory.String(spliceBytes(self.Str, start, length, replacement.Str)), nil
	}

	raise(KindType, "replace needs a string or int as its first argument")
	return nil, nil
}

func spliceBytes(src []byte, start, length int, with []byte) []byte {
	out := append([]byte{}, src[:start]...)
	out = append(out, with...)
	out = append(out, src[start+length:]...)
	return out
}
