package hostlib

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"filagree/internal/container"
	"filagree/value"
)

// stringify renders v the way sys.print shows it, independent of the
// vm package's own built-in `string` method so hostlib stays a leaf
// package the vm package never has to import.
func stringify(v *value.Value) string {
	if v == nil {
		return "nil"
	}
	switch v.Kind {
	case value.NilKind:
		return "nil"
	case value.BoolKind:
		return strconv.FormatBool(v.Bool)
	case value.IntKind:
		return strconv.Itoa(int(v.Int))
	case value.FloatKind:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case value.StringKind:
		return string(v.Str)
	case value.ListKind:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = stringify(item)
		}
		return fmt.Sprintf("%v", parts)
	default:
		return v.TypeName()
	}
}

// cfncPrint writes each argument's stringified form on its own line,
// grounded on sys_print's loop over its argument list's tail.
func cfncPrint(stdout io.Writer) value.HostFunc {
	return func(a *value.CallArgs) (*value.Value, error) {
		for _, arg := range a.Args {
			if _, err := fmt.Fprintln(stdout, stringify(arg)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
}

// cfncWrite serializes its first argument and writes the resulting
// bytes to the path named by its second, mirroring sys_write/sys_save.
func cfncWrite(a *value.CallArgs) (*value.Value, error) {
	v, path := a.Arg(0), a.Arg(1)
	if v == nil || path == nil || path.Kind != value.StringKind {
		return nil, fmt.Errorf("write needs a value and a path string")
	}
	bits, err := value.Serialize(v)
	if err != nil {
		return nil, err
	}
	if err := container.WriteFile(string(path.Str), bits); err != nil {
		return nil, err
	}
	return &value.Value{Kind: value.IntKind, Int: int32(len(bits))}, nil
}

// cfncRead reads the whole file named by its argument into a string
// value, mirroring sys_read.
func cfncRead(a *value.CallArgs) (*value.Value, error) {
	path := a.Arg(0)
	if path == nil || path.Kind != value.StringKind {
		return nil, fmt.Errorf("read needs a path string")
	}
	bits, err := container.ReadFile(string(path.Str))
	if err != nil {
		return nil, err
	}
	return &value.Value{Kind: value.StringKind, Str: bits}, nil
}

// cfncAtoi parses the leading signed integer out of its string
// argument starting at an optional offset, returning a source-tuple
// of (parsed value, characters consumed, counting a leading minus sign)
// exactly as sys_atoi does.
func cfncAtoi(a *value.CallArgs) (*value.Value, error) {
	str := a.Arg(0)
	if str == nil || str.Kind != value.StringKind {
		return nil, fmt.Errorf("atoi needs a string")
	}
	offset := 0
	if o := a.Arg(1); o != nil {
		offset = int(o.Int)
	}
	s := str.Str
	i := 0
	negative := false
	if offset+i < len(s) && s[offset+i] == '-' {
		negative = true
		i++
	}
	n := 0
	for offset+i < len(s) && s[offset+i] >= '0' && s[offset+i] <= '9' {
		n = n*10 + int(s[offset+i]-'0')
		i++
	}
	if negative {
		n = -n
	}
	return &value.Value{Kind: value.ListKind, Items: []*value.Value{
		{Kind: value.IntKind, Int: int32(n)},
		{Kind: value.IntKind, Int: int32(i)},
	}}, nil
}

// cfncSort returns an ascending-sorted copy of its list argument.
// Unlike the per-value `sort` method in the vm package, this top-level
// sys.sort has no access to the executing VM and so cannot invoke a
// language-function comparator; it only supports natural ordering.
func cfncSort(a *value.CallArgs) (*value.Value, error) {
	lst := a.Arg(0)
	if lst == nil || lst.Kind != value.ListKind {
		return nil, fmt.Errorf("sort needs a list")
	}
	items := append([]*value.Value{}, lst.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return lessNatural(items[i], items[j])
	})
	return &value.Value{Kind: value.ListKind, Items: items}, nil
}

func lessNatural(a, b *value.Value) bool {
	switch {
	case a.Kind == value.IntKind && b.Kind == value.IntKind:
		return a.Int < b.Int
	case a.Kind == value.FloatKind || b.Kind == value.FloatKind:
		return asFloat(a) < asFloat(b)
	default:
		return bytes.Compare([]byte(stringify(a)), []byte(stringify(b))) < 0
	}
}

func asFloat(v *value.Value) float64 {
	if v.Kind == value.FloatKind {
		return float64(v.Float)
	}
	return float64(v.Int)
}

// cfncFind locates its second argument within its first, returning the
// byte offset (strings) or element index (lists), or -1 if absent.
func cfncFind(a *value.CallArgs) (*value.Value, error) {
	haystack, needle := a.Arg(0), a.Arg(1)
	if haystack == nil || needle == nil {
		return nil, fmt.Errorf("find needs a haystack and a needle")
	}
	switch haystack.Kind {
	case value.StringKind:
		if needle.Kind != value.StringKind {
			return nil, fmt.Errorf("find in a string needs a string needle")
		}
		return &value.Value{Kind: value.IntKind, Int: int32(bytes.Index(haystack.Str, needle.Str))}, nil
	case value.ListKind:
		for i, item := range haystack.Items {
			if value.Equal(item, needle) {
				return &value.Value{Kind: value.IntKind, Int: int32(i)}, nil
			}
		}
		return &value.Value{Kind: value.IntKind, Int: -1}, nil
	default:
		return nil, fmt.Errorf("cannot find within a %s", haystack.TypeName())
	}
}

func cfncSerialize(a *value.CallArgs) (*value.Value, error) {
	v := a.Arg(0)
	if v == nil {
		return nil, fmt.Errorf("serialize needs a value")
	}
	bits, err := value.Serialize(v)
	if err != nil {
		return nil, err
	}
	return &value.Value{Kind: value.StringKind, Str: bits}, nil
}

func cfncDeserialize(a *value.CallArgs) (*value.Value, error) {
	str := a.Arg(0)
	if str == nil || str.Kind != value.StringKind {
		return nil, fmt.Errorf("deserialize needs a string")
	}
	v, _, err := value.Deserialize(str.Str)
	if err != nil {
		return nil, err
	}
	return v, nil
}
