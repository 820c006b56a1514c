// Package hostlib bridges the virtual machine to the outside world. It
// builds the "sys" module lazily the first time a running program asks
// for it, generalizing the teacher's direct os/bufio calls inside the
// tree-walking interpreter's built-in functions into a value.HostFunc
// table the vm package's CAL instruction can invoke uniformly alongside
// ordinary language functions.
package hostlib

import (
	"io"
	"os"

	"filagree/value"

	"filagree/vm"
)

// FindHostVar is the default resolver, writing sys.print's output to
// stdout. Wire it in with vm.WithHostResolver(hostlib.FindHostVar).
var FindHostVar = NewResolver(os.Stdout)

// NewResolver builds a vm.HostResolver whose sys.print writes to stdout,
// so a REPL or a test can capture sys.print's output without touching
// the process's real standard output. The sys module is built on the
// first lookup of "sys" and reused afterwards.
func NewResolver(stdout io.Writer) vm.HostResolver {
	var sys *value.Value
	return func(name string) (*value.Value, bool) {
		if name != "sys" {
			return nil, false
		}
		if sys == nil {
			sys = buildSysModule(stdout)
		}
		return sys, true
	}
}

func buildSysModule(stdout io.Writer) *value.Value {
	table := map[string]*value.Value{
		"print":       hostFn(cfncPrint(stdout)),
		"write":       hostFn(cfncWrite),
		"read":        hostFn(cfncRead),
		"atoi":        hostFn(cfncAtoi),
		"sort":        hostFn(cfncSort),
		"find":        hostFn(cfncFind),
		"serialize":   hostFn(cfncSerialize),
		"deserialize": hostFn(cfncDeserialize),
	}
	return &value.Value{Kind: value.MapKind, Table: table}
}

func hostFn(fn value.HostFunc) *value.Value {
	return &value.Value{Kind: value.HostCallbackKind, Host: fn}
}
