package snapshot

import (
	"github.com/wnxd/xamldbg/host"
)

type Thread struct {
	TID       uint32     `yaml:"id"`
	TEBAddr   uint64     `yaml:"teb"`
	FrameList []Frame    `yaml:"frames"`
	Exception *Exception `yaml:"exception"`

	snap *Snapshot
}

type Frame struct {
	IP     uint64   `yaml:"ip"`
	SP     uint64   `yaml:"sp"`
	Name   string   `yaml:"name"`
	Params []uint64 `yaml:"params"`
}

type Exception struct {
	Code    uint32   `yaml:"code"`
	Flags   uint32   `yaml:"flags"`
	Address uint64   `yaml:"address"`
	Params  []uint64 `yaml:"params"`
}

func (th *Thread) ID() uint32 {
	return th.TID
}

func (th *Thread) TEB() uint64 {
	return th.TEBAddr
}

func (th *Thread) Frames() ([]host.Frame, error) {
	frames := make([]host.Frame, 0, len(th.FrameList))
	for _, f := range th.FrameList {
		name := f.Name
		if name == "" && th.snap != nil {
			name, _ = th.snap.SymbolName(f.IP)
		}
		frames = append(frames, host.Frame{InstructionOffset: f.IP, StackOffset: f.SP, Name: name, Params: f.Params})
	}
	return frames, nil
}

func (th *Thread) LastException() (*host.ExceptionRecord, error) {
	if th.Exception == nil {
		return nil, nil
	}
	e := th.Exception
	return &host.ExceptionRecord{Code: e.Code, Flags: e.Flags, Address: e.Address, Params: e.Params}, nil
}
