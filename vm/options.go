package vm

import (
	"io"
	"os"

	"filagree/value"
)

// Option configures a VM at construction time, grounded on the
// functional-options pattern used for virtual-machine construction
// elsewhere in the example corpus.
type Option func(*VM)

// WithStdout sets the writer stored on the VM. No instruction or
// built-in method writes to it; sys.print writes to the writer given
// to hostlib.NewResolver.
func WithStdout(w io.Writer) Option {
	return func(v *VM) { v.stdout = w }
}

// WithSoftCap sets how many allocations a frame's Factory may make
// since its last trigger before a collection runs. Zero disables the
// trigger.
func WithSoftCap(n int) Option {
	return func(v *VM) { v.softCap = n }
}

// HostResolver looks up a host module or built-in by name, returning
// ok=false if name isn't a recognized host binding.
type HostResolver func(name string) (*value.Value, bool)

// WithHostResolver installs the function VAR falls back to once a name
// resolves neither in the current frame nor the root frame.
func WithHostResolver(r HostResolver) Option {
	return func(v *VM) { v.hostResolver = r }
}

func defaultOptions() []Option {
	return []Option{WithStdout(os.Stdout)}
}
