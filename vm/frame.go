package vm

import (
	"filagree/internal/container"
	"filagree/value"
)

// Frame is one function activation: a named-variable scope plus the
// GC root set (all-values list) for every value allocated while that
// activation was live. The root VM frame's Vars holds top-level
// bindings; host modules like sys are not bound there but come from the
// VM's host resolver when a name is found in no frame.
type Frame struct {
	Vars      map[string]*value.Value
	AllValues *container.DynamicArray[*value.Value]
	Factory   *value.Factory
	Fn        *value.Value // the function value this frame is running, nil for the root frame
}

// newFrame allocates a fresh frame with its own GC roots, wiring its
// Factory's soft-cap trigger back to vm's collector.
func newFrame(fn *value.Value, softCap int, onSoftCap func()) *Frame {
	roots := container.NewDynamicArray[*value.Value]()
	return &Frame{
		Vars:      make(map[string]*value.Value),
		AllValues: roots,
		Factory:   value.NewFactory(roots, softCap, onSoftCap),
		Fn:        fn,
	}
}

// Lookup resolves name per §4.G's order: the function's captured
// closure environment first (if any), then this frame's own bindings.
// The caller falls back further to the root frame.
func (f *Frame) Lookup(name string) (*value.Value, bool) {
	if f.Fn != nil {
		if env := f.Fn.Env(); env != nil {
			if v, ok := env[name]; ok {
				return v, true
			}
		}
	}
	v, ok := f.Vars[name]
	return v, ok
}

// Set always binds in this frame, creating the binding if absent.
func (f *Frame) Set(name string, v *value.Value) {
	f.Vars[name] = v
}
