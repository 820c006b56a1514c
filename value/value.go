// Package value implements the tagged runtime value the virtual machine
// operates on: nil, bool, int32, float32, byte-string, list (with an
// optional string-keyed side-table), map, function, host-callback, and
// error. Every value a running program touches is allocated through a
// Factory so the collector can find it again.
package value

// Kind discriminates which variant of the tagged union a Value holds.
type Kind int

const (
	NilKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
	ListKind
	MapKind
	FunctionKind
	HostCallbackKind
	ErrorKind
)

var kindNames = map[Kind]string{
	NilKind:          "nil",
	BoolKind:         "bool",
	IntKind:          "int",
	FloatKind:        "float",
	StringKind:       "string",
	ListKind:         "list",
	MapKind:          "map",
	FunctionKind:     "function",
	HostCallbackKind: "host-callback",
	ErrorKind:        "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// CallArgs is what a host callback receives: Args is the call site's
// positional arguments, bundled by the compiler into a fixed-size
// source-tuple so a callback never has to guess how many it was given;
// Receiver carries the bound self/callee value for method-style
// dispatch (nil when the call had none).
type CallArgs struct {
	Args     []*Value
	Receiver *Value
}

// Arg returns the i'th positional argument, or nil if fewer were
// supplied — the convention every variable-arity host builtin
// (sort's optional comparator, find's optional start index, ...) uses
// for its optional trailing parameters.
func (a *CallArgs) Arg(i int) *Value {
	if i < 0 || i >= len(a.Args) {
		return nil
	}
	return a.Args[i]
}

// HostFunc is the shape of a host-provided callback.
type HostFunc func(a *CallArgs) (*Value, error)

// Value is the single runtime representation for every kind. Only the
// fields relevant to Kind are populated; the rest stay at zero value.
// Items and Table together back list values (positional entries plus
// an optional map side-table); Table alone backs map values; Code
// backs function values, with a captured closure environment stored
// under ReservedEnvKey in the function's own Table.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int32
	Float float32
	Str   []byte

	Items []*Value
	Table map[string]*Value

	Code []byte
	Host HostFunc

	ErrMsg string

	marked bool
}

// ReservedEnvKey is the side-table key under which a function value's
// captured closure environment (itself a Map-kind value) is stored.
const ReservedEnvKey = "__env__"

// TypeName reports the built-in `type` method's result for v.
func (v *Value) TypeName() string {
	if v == nil {
		return NilKind.String()
	}
	return v.Kind.String()
}

// Truthy implements the falsiness rule IF relies on: nil, boolean
// false, and integer 0 are falsy; everything else is truthy.
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case NilKind:
		return false
	case BoolKind:
		return v.Bool
	case IntKind:
		return v.Int != 0
	default:
		return true
	}
}

// Env returns the closure environment captured by a function value, or
// nil if v isn't a function or captured nothing.
func (v *Value) Env() map[string]*Value {
	if v == nil || v.Table == nil {
		return nil
	}
	envVal, ok := v.Table[ReservedEnvKey]
	if !ok || envVal.Kind != MapKind {
		return nil
	}
	return envVal.Table
}

// Mark sets v's GC mark bit and recurses into its reachable children.
// The bit check before recursing makes Mark safe on cyclic structures:
// a value already marked this pass is never visited twice.
func (v *Value) Mark() {
	if v == nil || v.marked {
		return
	}
	v.marked = true
	for _, item := range v.Items {
		item.Mark()
	}
	for _, child := range v.Table {
		child.Mark()
	}
}

// Unmark clears v's GC mark bit, done for survivors at the end of a
// sweep so the next collection starts clean.
func (v *Value) Unmark() {
	if v != nil {
		v.marked = false
	}
}

// Marked reports whether v survived the current mark phase.
func (v *Value) Marked() bool {
	return v != nil && v.marked
}
