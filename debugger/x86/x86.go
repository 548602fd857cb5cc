package x86

import (
	"github.com/wnxd/xamldbg/debugger"
	internal "github.com/wnxd/xamldbg/internal/debugger/x86"
)

var _ = debugger.Register(internal.POINTER_SIZE, internal.NewX86Debugger)
