package debugger

import (
	"github.com/wnxd/xamldbg/encoding"
)

type memoryManager struct {
	dbg Debugger
}

func (mm *memoryManager) ctor(dbg Debugger) {
	mm.dbg = dbg
}

func (mm *memoryManager) MemExtract(addr uint64, val any) error {
	stream := PointerStream(mm.dbg.ToPointer(addr), int(mm.dbg.PointerSize()))
	return encoding.Decode(stream, val)
}
