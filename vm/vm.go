// Package vm executes the linear bytecode the compiler package produces.
// It owns three stacks — operand, frame, and an auxiliary rhs stack used
// to stage a bound method's receiver across a call — plus a
// mark-and-sweep collector triggered by each frame's value factory,
// generalized from the teacher's single-stack, single-instruction
// interpreter into the spec's three-stack execution model.
package vm

import (
	"bytes"
	"io"
	"os"

	"filagree/compiler"
	"filagree/internal/codec"
	"filagree/internal/container"
	"filagree/value"
)

// VM is one execution context: three stacks plus the I/O and host
// bindings an Option installs at construction time.
type VM struct {
	operand *container.Stack[*value.Value]
	frames  *container.Stack[*Frame]
	rhs     *container.Stack[*value.Value]

	stdout       io.Writer
	softCap      int
	hostResolver HostResolver
}

// New builds a VM with its root frame pushed, ready to Run a program.
// The root frame has no enclosing function (Fn is nil) and is where
// top-level bindings live; a name bound neither in the current frame
// nor here falls through to the host resolver, which supplies sys.
func New(opts ...Option) *VM {
	vm := &VM{
		operand: container.NewStack[*value.Value](),
		frames:  container.NewStack[*Frame](),
		rhs:     container.NewStack[*value.Value](),
		stdout:  os.Stdout,
	}
	for _, opt := range defaultOptions() {
		opt(vm)
	}
	for _, opt := range opts {
		opt(vm)
	}
	root := newFrame(nil, vm.softCap, vm.collect)
	vm.frames.Push(root)
	return vm
}

// Run decodes the outer length-prefixed stream Compile produced and
// executes it in the root frame, returning whatever value is left on
// top of the operand stack (nil if the program pushed nothing).
func (vm *VM) Run(stream []byte) (result *value.Value, err error) {
	code, _, derr := codec.DecodeBytes(stream)
	if derr != nil {
		return nil, derr
	}
	depth := vm.operand.Len()
	err = runProtected(func() {
		vm.exec(code)
	})
	if err != nil {
		return nil, err
	}
	if vm.operand.Len() > depth {
		result = vm.operand.Peek()
	}
	return result, nil
}

func (vm *VM) frame() *Frame { return vm.frames.Peek() }

func (vm *VM) popOperand() *value.Value {
	if vm.operand.Empty() {
		raise(KindUnderflow, "operand stack underflow")
	}
	return vm.operand.Pop()
}

// popN pops n values and returns them in their original push (i.e.
// left-to-right source) order, undoing the stack's LIFO order.
func (vm *VM) popN(n int) []*value.Value {
	out := make([]*value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.popOperand()
	}
	return out
}

// lookup resolves a VAR name: the active frame (its closure env, then
// its own bindings), then the root frame's bindings (globals), then
// the installed host resolver (sys and friends). An unbound name is a
// runtime fault, not a silently-produced nil.
func (vm *VM) lookup(name string) *value.Value {
	if v, ok := vm.frame().Lookup(name); ok {
		return v
	}
	root := vm.frames.PeekAt(vm.frames.Len() - 1)
	if root != vm.frame() {
		if v, ok := root.Vars[name]; ok {
			return v
		}
	}
	if vm.hostResolver != nil {
		if v, ok := vm.hostResolver(name); ok {
			return v
		}
	}
	raise(KindName, "undefined variable %q", name)
	return nil
}

// capture snapshots the active frame's current bindings for a function
// literal's closure environment: a shallow copy, so later rebinding a
// name in the defining frame doesn't retroactively change what the
// closure sees, but mutating a captured value's own contents does.
func (vm *VM) capture() map[string]*value.Value {
	cur := vm.frame().Vars
	env := make(map[string]*value.Value, len(cur))
	for k, v := range cur {
		env[k] = v
	}
	return env
}

// truthyForBranch is the stricter rule IF and the loop condition apply:
// only nil, bool, and int are valid operands; anything else is a type
// fault rather than silently truthy, matching the reference
// interpreter's test_operand().
func truthyForBranch(v *value.Value) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case value.NilKind, value.BoolKind, value.IntKind:
		return v.Truthy()
	default:
		raise(KindType, "if/while condition must be nil, bool, or int, got %s", v.TypeName())
		return false
	}
}

// exec runs one instruction stream to completion against the VM's
// shared stacks, honoring IF/JMP's relative byte offsets.
func (vm *VM) exec(code []byte) {
	ip := 0
	for ip < len(code) {
		op := compiler.Opcode(code[ip])
		next := ip + 1

		switch op {
		case compiler.OP_NIL:
			vm.operand.Push(vm.frame().Factory.Nil())

		case compiler.OP_BOOL:
			n, width, err := codec.DecodeVarint(code[next:])
			must(err)
			vm.operand.Push(vm.frame().Factory.Bool(n != 0))
			next += width

		case compiler.OP_INT:
			n, width, err := codec.DecodeVarint(code[next:])
			must(err)
			vm.operand.Push(vm.frame().Factory.Int(int32(n)))
			next += width

		case compiler.OP_FLT:
			f, width, err := codec.DecodeFloat(code[next:])
			must(err)
			vm.operand.Push(vm.frame().Factory.Float(f))
			next += width

		case compiler.OP_STR:
			s, width, err := codec.DecodeBytes(code[next:])
			must(err)
			vm.operand.Push(vm.frame().Factory.String(s))
			next += width

		case compiler.OP_VAR:
			name, width, err := codec.DecodeBytes(code[next:])
			must(err)
			vm.operand.Push(vm.lookup(string(name)))
			next += width

		case compiler.OP_SET:
			name, width, err := codec.DecodeBytes(code[next:])
			must(err)
			vm.frame().Set(string(name), vm.popOperand())
			next += width

		case compiler.OP_FNC:
			body, width, err := codec.DecodeBytes(code[next:])
			must(err)
			vm.operand.Push(vm.frame().Factory.Function(body, vm.capture()))
			next += width

		case compiler.OP_LST:
			n, width, err := codec.DecodeVarint(code[next:])
			must(err)
			items := vm.popN(int(n))
			vm.operand.Push(vm.frame().Factory.BuildList(items))
			next += width

		case compiler.OP_MAP:
			n, width, err := codec.DecodeVarint(code[next:])
			must(err)
			items := vm.popN(int(n) * 2)
			m, err := vm.frame().Factory.BuildMap(items)
			must(err)
			vm.operand.Push(m)
			next += width

		case compiler.OP_GET:
			vm.execGet()

		case compiler.OP_PUT:
			vm.execPut()

		case compiler.OP_ADD, compiler.OP_SUB, compiler.OP_MUL, compiler.OP_DIV,
			compiler.OP_EQ, compiler.OP_NEQ, compiler.OP_GT, compiler.OP_LT,
			compiler.OP_AND, compiler.OP_OR:
			vm.execBinary(op)

		case compiler.OP_NOT, compiler.OP_NEG:
			vm.execUnary(op)

		case compiler.OP_IF:
			offset, _, err := codec.DecodeVarint(code[next : next+compiler.JumpWidth])
			must(err)
			next += compiler.JumpWidth
			cond := vm.popOperand()
			if !truthyForBranch(cond) {
				next += int(offset)
			}

		case compiler.OP_JMP:
			offset, _, err := codec.DecodeVarint(code[next : next+compiler.JumpWidth])
			must(err)
			next += int(offset)

		case compiler.OP_CAL:
			vm.execCall()

		default:
			raise(KindOpcode, "unknown opcode %d at offset %d", op, ip)
		}
		ip = next
	}
}

func must(err error) {
	if err != nil {
		raise(KindOpcode, "%s", err)
	}
}

// execGet implements GET: index was pushed first, the indexable
// second, so the indexable is on top. Integer indices read
// positionally (list item or string byte); string indices consult the
// side-table first, falling back to the built-in method table.
func (vm *VM) execGet() {
	iterable := vm.popOperand()
	index := vm.popOperand()

	switch index.Kind {
	case value.IntKind:
		vm.operand.Push(vm.getPositional(iterable, int(index.Int)))
	case value.StringKind:
		key := string(index.Str)
		if iterable.Table != nil {
			if v, ok := iterable.Table[key]; ok {
				vm.operand.Push(v)
				return
			}
		}
		vm.operand.Push(vm.lookupMethod(iterable, key))
		return
	default:
		raise(KindType, "GET index must be int or string, got %s", index.TypeName())
	}
}

func (vm *VM) getPositional(iterable *value.Value, i int) *value.Value {
	switch iterable.Kind {
	case value.ListKind:
		v, ok := iterable.ListGet(i)
		if !ok {
			raise(KindBounds, "list index %d out of range (len %d)", i, len(iterable.Items))
		}
		return v
	case value.StringKind:
		if i < 0 || i >= len(iterable.Str) {
			raise(KindBounds, "string index %d out of range (len %d)", i, len(iterable.Str))
		}
		return vm.frame().Factory.String(iterable.Str[i : i+1])
	default:
		raise(KindType, "cannot index %s with an integer", iterable.TypeName())
		return nil
	}
}

// execPut implements PUT: the value being assigned was pushed first
// (deepest), then the index, then the indexable on top.
func (vm *VM) execPut() {
	iterable := vm.popOperand()
	index := vm.popOperand()
	val := vm.popOperand()

	switch index.Kind {
	case value.IntKind:
		if iterable.Kind != value.ListKind || !iterable.ListSet(int(index.Int), val) {
			raise(KindBounds, "list index %d out of range for assignment", index.Int)
		}
	case value.StringKind:
		iterable.TablePut(string(index.Str), val)
	default:
		raise(KindType, "PUT index must be int or string, got %s", index.TypeName())
	}
}

// execBinary pops right then left (right was pushed last) and applies
// op, promoting to float when either operand is float, concatenating
// when either is a string, and concatenating side-table-aware when the
// left operand is a list — the same dispatch order the reference
// interpreter's binary_op uses.
func (vm *VM) execBinary(op compiler.Opcode) {
	right := vm.popOperand()
	left := vm.popOperand()

	if op == compiler.OP_EQ {
		vm.operand.Push(vm.frame().Factory.Bool(value.Equal(left, right)))
		return
	}
	if op == compiler.OP_NEQ {
		vm.operand.Push(vm.frame().Factory.Bool(!value.Equal(left, right)))
		return
	}
	if op == compiler.OP_AND {
		vm.operand.Push(vm.frame().Factory.Bool(left.Truthy() && right.Truthy()))
		return
	}
	if op == compiler.OP_OR {
		vm.operand.Push(vm.frame().Factory.Bool(left.Truthy() || right.Truthy()))
		return
	}

	isStr := left.Kind == value.StringKind || right.Kind == value.StringKind
	isNum := func(v *value.Value) bool { return v.Kind == value.IntKind || v.Kind == value.FloatKind }
	isFloat := (left.Kind == value.FloatKind && isNum(right)) || (right.Kind == value.FloatKind && isNum(left))

	switch {
	case isStr:
		vm.operand.Push(vm.execStringOp(op, left, right))
	case isFloat:
		vm.operand.Push(vm.execFloatOp(op, asFloat(left), asFloat(right)))
	case left.Kind == value.IntKind && right.Kind == value.IntKind:
		vm.operand.Push(vm.execIntOp(op, left.Int, right.Int))
	case left.Kind == value.ListKind:
		vm.operand.Push(vm.execListOp(op, left, right))
	default:
		raise(KindType, "unsupported operand types %s and %s", left.TypeName(), right.TypeName())
	}
}

func asFloat(v *value.Value) float32 {
	if v.Kind == value.FloatKind {
		return v.Float
	}
	return float32(v.Int)
}

func stringOf(v *value.Value) []byte {
	if v.Kind == value.StringKind {
		return v.Str
	}
	return []byte(v.TypeName())
}

func (vm *VM) execStringOp(op compiler.Opcode, left, right *value.Value) *value.Value {
	switch op {
	case compiler.OP_ADD:
		return vm.frame().Factory.String(append(append([]byte{}, stringOf(left)...), stringOf(right)...))
	case compiler.OP_GT:
		return vm.frame().Factory.Bool(bytes.Compare(stringOf(left), stringOf(right)) > 0)
	case compiler.OP_LT:
		return vm.frame().Factory.Bool(bytes.Compare(stringOf(left), stringOf(right)) < 0)
	default:
		raise(KindType, "unsupported string operator")
		return nil
	}
}

func (vm *VM) execIntOp(op compiler.Opcode, m, n int32) *value.Value {
	f := vm.frame().Factory
	switch op {
	case compiler.OP_ADD:
		return f.Int(m + n)
	case compiler.OP_SUB:
		return f.Int(m - n)
	case compiler.OP_MUL:
		return f.Int(m * n)
	case compiler.OP_DIV:
		if n == 0 {
			raise(KindType, "integer division by zero")
		}
		return f.Int(m / n)
	case compiler.OP_GT:
		return f.Bool(m > n)
	case compiler.OP_LT:
		return f.Bool(m < n)
	default:
		raise(KindType, "unsupported integer operator")
		return nil
	}
}

func (vm *VM) execFloatOp(op compiler.Opcode, m, n float32) *value.Value {
	f := vm.frame().Factory
	switch op {
	case compiler.OP_ADD:
		return f.Float(m + n)
	case compiler.OP_SUB:
		return f.Float(m - n)
	case compiler.OP_MUL:
		return f.Float(m * n)
	case compiler.OP_DIV:
		return f.Float(m / n)
	case compiler.OP_GT:
		return f.Bool(m > n)
	case compiler.OP_LT:
		return f.Bool(m < n)
	default:
		raise(KindType, "unsupported float operator")
		return nil
	}
}

func (vm *VM) execListOp(op compiler.Opcode, left, right *value.Value) *value.Value {
	if op != compiler.OP_ADD {
		raise(KindType, "unsupported list operator")
	}
	if right.Kind != value.ListKind {
		raise(KindType, "cannot add %s to a list", right.TypeName())
	}
	items := append(append([]*value.Value{}, left.Items...), right.Items...)
	result := vm.frame().Factory.List(items)
	for k, v := range left.Table {
		result.TablePut(k, v)
	}
	for k, v := range right.Table {
		result.TablePut(k, v)
	}
	return result
}

func (vm *VM) execUnary(op compiler.Opcode) {
	v := vm.popOperand()
	f := vm.frame().Factory
	switch op {
	case compiler.OP_NOT:
		vm.operand.Push(f.Bool(!v.Truthy()))
	case compiler.OP_NEG:
		switch v.Kind {
		case value.NilKind:
			vm.operand.Push(f.Nil())
		case value.IntKind:
			vm.operand.Push(f.Int(-v.Int))
		case value.FloatKind:
			vm.operand.Push(f.Float(-v.Float))
		default:
			raise(KindType, "cannot negate %s", v.TypeName())
		}
	}
}

// execCall implements CAL. The compiler always bundles a call's
// arguments into one source-tuple with LST ahead of the callee, so CAL
// pops exactly two things: the callee, then the tuple.
//
// For a language function, the tuple's items are re-pushed onto the
// shared operand stack in their original left-to-right order and a
// fresh frame is entered; the callee's leading right-to-left SET
// prologue then consumes exactly those values, nothing more. For a
// host callback, the tuple is handed over directly, along with
// whatever receiver GET's method-dispatch fallback staged on rhs.
func (vm *VM) execCall() {
	callee := vm.popOperand()
	tuple := vm.popOperand()
	if tuple.Kind != value.ListKind {
		raise(KindType, "call arguments must be a tuple, got %s", tuple.TypeName())
	}

	switch callee.Kind {
	case value.FunctionKind:
		for _, arg := range tuple.Items {
			vm.operand.Push(arg)
		}
		frame := newFrame(callee, vm.softCap, vm.collect)
		vm.frames.Push(frame)
		vm.exec(callee.Code)
		vm.frames.Pop()

	case value.HostCallbackKind:
		var recv *value.Value
		if !vm.rhs.Empty() {
			recv = vm.rhs.Pop()
		}
		result, err := callee.Host(&value.CallArgs{Args: tuple.Items, Receiver: recv})
		if err != nil {
			raise(KindHost, "%s", wrapHostError(err).Message)
		}
		if result != nil {
			vm.operand.Push(result)
		}

	default:
		raise(KindType, "cannot call a %s value", callee.TypeName())
	}
}

// invoke runs a language function value with an explicit argument list,
// reusing execCall's FunctionKind branch logic for callers (like a
// sort comparator) that need to call back into user code directly
// rather than through a compiled CAL instruction.
func (vm *VM) invoke(fn *value.Value, args []*value.Value) *value.Value {
	if fn.Kind != value.FunctionKind {
		raise(KindType, "cannot call a %s value", fn.TypeName())
	}
	for _, arg := range args {
		vm.operand.Push(arg)
	}
	frame := newFrame(fn, vm.softCap, vm.collect)
	vm.frames.Push(frame)
	vm.exec(fn.Code)
	vm.frames.Pop()
	return vm.popOperand()
}
