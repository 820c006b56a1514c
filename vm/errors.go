package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuntimeError is the sentinel error value Run returns when a program
// traps: type mismatches, out-of-range indices, unbound names, unknown
// opcodes, and host-callback failures all surface through it.
type RuntimeError struct {
	Kind    string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("💥 RuntimeError[%s]: %s", e.Kind, e.Message)
}

const (
	KindType      = "type"
	KindBounds    = "bounds"
	KindName      = "name"
	KindHost      = "host"
	KindOpcode    = "opcode"
	KindUnderflow = "underflow"
)

// fault is panicked from deep inside the dispatch loop to unwind
// straight back to Run's recover point, the longjmp-equivalent
// non-local exit spec.md calls for. Adapted from the teacher corpus's
// goroutine+channel panic-recovery idiom to a plain defer/recover pair,
// since this VM is single-threaded and cooperative by design.
type fault struct {
	err *RuntimeError
}

func raise(kind, format string, args ...any) {
	panic(fault{err: &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}})
}

// runProtected invokes f, converting any fault panic into a returned
// error; any other panic (a programmer error, not a language-level
// fault) is re-raised so it surfaces as a real crash during development.
func runProtected(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if flt, ok := r.(fault); ok {
				err = flt.err
				return
			}
			panic(r)
		}
	}()
	f()
	return nil
}

// wrapHostError folds a host callback's Go error into a RuntimeError
// whose message is the error text prefixed with "host callback"; the
// original error value and its cause chain are not kept.
func wrapHostError(err error) *RuntimeError {
	return &RuntimeError{Kind: KindHost, Message: errors.Wrap(err, "host callback").Error()}
}
