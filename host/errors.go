package host

import (
	"errors"
	"fmt"
)

var (
	ErrMemoryUnavailable  = errors.New("memory unavailable")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrTypeNotFound       = errors.New("type not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrCommandUnsupported = errors.New("command unsupported")
)

type MemoryError struct {
	Addr uint64
	Size uint64
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory unavailable, addr: %016X, size: %d", e.Addr, e.Size)
}

func (e *MemoryError) Is(target error) bool {
	return target == ErrMemoryUnavailable
}
