package vm

import (
	"filagree/internal/container"
	"filagree/value"
)

// collect runs one mark-and-sweep pass, invoked by a frame's Factory
// once it has made more allocations than its soft cap since its last
// trigger. Roots are every
// frame currently on the frame stack (its named-variable bindings),
// the operand stack, and the rhs stack, per the reference interpreter's
// "roots live everywhere a value could still be reached from" rule.
func (vm *VM) collect() {
	for i := 0; i < vm.frames.Len(); i++ {
		f := vm.frames.PeekAt(i)
		for _, v := range f.Vars {
			v.Mark()
		}
		if f.Fn != nil {
			f.Fn.Mark()
		}
	}
	for i := 0; i < vm.operand.Len(); i++ {
		vm.operand.PeekAt(i).Mark()
	}
	for i := 0; i < vm.rhs.Len(); i++ {
		vm.rhs.PeekAt(i).Mark()
	}

	for i := 0; i < vm.frames.Len(); i++ {
		sweep(vm.frames.PeekAt(i).AllValues)
	}
}

// sweep walks one frame's all-values list, dropping anything whose
// mark bit never got set this pass and clearing the bit on survivors
// so the next collection starts clean.
func sweep(all *container.DynamicArray[*value.Value]) {
	src := all.Slice()
	kept := src[:0]
	for _, v := range src {
		if v.Marked() {
			v.Unmark()
			kept = append(kept, v)
		}
	}
	all.Resize(len(kept))
}
