package amd64

import (
	"github.com/wnxd/xamldbg/debugger"
	internal "github.com/wnxd/xamldbg/internal/debugger/amd64"
)

var _ = debugger.Register(internal.POINTER_SIZE, internal.NewAmd64Debugger)
