package debugger

import (
	"github.com/wnxd/xamldbg/host"
)

type DbgCtor func(host.Host, Options) (Debugger, error)

var dbgMap = make(map[uint64]DbgCtor)

// Register binds a constructor to a target pointer size.
func Register(pointerSize uint64, ctor DbgCtor) bool {
	if _, ok := dbgMap[pointerSize]; ok {
		return false
	}
	dbgMap[pointerSize] = ctor
	return true
}
