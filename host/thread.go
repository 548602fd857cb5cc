package host

const STATUS_STOWED_EXCEPTION = 0xC000027B

type Thread interface {
	ID() uint32
	TEB() uint64
	Frames() ([]Frame, error)
	LastException() (*ExceptionRecord, error)
}

type Frame struct {
	InstructionOffset uint64
	StackOffset       uint64
	Name              string
	Params            []uint64
}

type ExceptionRecord struct {
	Code    uint32
	Flags   uint32
	Address uint64
	Params  []uint64
}

func (r *ExceptionRecord) IsStowed() bool {
	return r != nil && r.Code == STATUS_STOWED_EXCEPTION
}
