package value

import "filagree/internal/container"

// Factory allocates values on behalf of one frame: every value it
// produces is appended to roots (that frame's all-values GC root list)
// and counted, the way the teacher's Environment binds every value it
// sees into one place — generalized here from a bare map[string]any to
// the tagged Value union plus a soft-cap trigger the VM uses to decide
// when to collect.
type Factory struct {
	roots     *container.DynamicArray[*Value]
	count     int
	softCap   int
	onSoftCap func()
}

// NewFactory returns a Factory that tracks allocations into roots,
// invoking onSoftCap once more than softCap values have been allocated
// since the last trigger. A softCap of 0 disables the trigger.
func NewFactory(roots *container.DynamicArray[*Value], softCap int, onSoftCap func()) *Factory {
	return &Factory{roots: roots, softCap: softCap, onSoftCap: onSoftCap}
}

func (f *Factory) track(v *Value) *Value {
	f.roots.Add(v)
	f.count++
	if f.softCap > 0 && f.count > f.softCap {
		if f.onSoftCap != nil {
			f.onSoftCap()
		}
		f.count = 0
	}
	return v
}

func (f *Factory) Nil() *Value          { return f.track(&Value{Kind: NilKind}) }
func (f *Factory) Bool(b bool) *Value   { return f.track(&Value{Kind: BoolKind, Bool: b}) }
func (f *Factory) Int(n int32) *Value   { return f.track(&Value{Kind: IntKind, Int: n}) }
func (f *Factory) Float(x float32) *Value { return f.track(&Value{Kind: FloatKind, Float: x}) }

func (f *Factory) String(s []byte) *Value {
	return f.track(&Value{Kind: StringKind, Str: cloneBytes(s)})
}

func (f *Factory) List(items []*Value) *Value {
	return f.track(&Value{Kind: ListKind, Items: items})
}

func (f *Factory) Map(table map[string]*Value) *Value {
	return f.track(&Value{Kind: MapKind, Table: table})
}

// Function allocates a function value carrying code, optionally
// capturing env (the enclosing frame's bindings at the moment the
// function literal is evaluated) under ReservedEnvKey.
func (f *Factory) Function(code []byte, env map[string]*Value) *Value {
	v := &Value{Kind: FunctionKind, Code: code}
	if env != nil {
		v.Table = map[string]*Value{ReservedEnvKey: {Kind: MapKind, Table: env}}
	}
	return f.track(v)
}

// BuildList tracks a list value built from items, coalescing any
// map-kind item into the result's side-table the way a table literal's
// mixed positional/keyed elements are meant to merge.
func (f *Factory) BuildList(items []*Value) *Value {
	return f.track(BuildList(items))
}

// BuildMap tracks a map value built by pairing items into (key, value)
// entries.
func (f *Factory) BuildMap(items []*Value) (*Value, error) {
	m, err := BuildMap(items)
	if err != nil {
		return nil, err
	}
	return f.track(m), nil
}

func (f *Factory) HostCallback(fn HostFunc) *Value {
	return f.track(&Value{Kind: HostCallbackKind, Host: fn})
}

func (f *Factory) Error(msg string) *Value {
	return f.track(&Value{Kind: ErrorKind, ErrMsg: msg})
}

// Copy implements variable_copy: a deep copy for strings (an
// independent byte slice), a shallow copy for everything else — lists,
// maps, and functions keep sharing their underlying Items/Table/Code so
// mutation through one alias is observable through the other, which is
// intentional.
func (f *Factory) Copy(v *Value) *Value {
	if v == nil {
		return f.Nil()
	}
	switch v.Kind {
	case NilKind:
		return f.Nil()
	case BoolKind:
		return f.Bool(v.Bool)
	case IntKind:
		return f.Int(v.Int)
	case FloatKind:
		return f.Float(v.Float)
	case StringKind:
		return f.String(v.Str)
	default:
		cp := *v
		cp.marked = false
		return f.track(&cp)
	}
}
