package exception

import (
	"strings"
)

// DenyList holds name fragments of exception raising and dispatch plumbing.
var DenyList = []string{
	"KERNELBASE!RaiseException",
	"KERNELBASE!RaiseFailFastException",
	"ntdll!",
	"combase!",
	"vcruntime",
	"ucrtbase!",
	"!RoOriginateError",
	"!RoTransformError",
	"!RoFailFastWithErrorContext",
	"!_CxxThrowException",
	"winrt::throw_hresult",
	"winrt::hresult_error::hresult_error",
	"winrt::impl::",
	"wil::details::",
	"ErrorHelper::",
	"ErrorContext",
	"OriginateError",
	"ReportError",
	"FailFast",
	"StowedException",
	"ThrowHelper",
}

// Blame returns the first frame not matching the deny list.
func Blame(stack []Frame) (*Frame, bool) {
	for i := range stack {
		if denied(stack[i].Name) {
			continue
		}
		return &stack[i], true
	}
	return nil, false
}

// Clean drops the deny listed frames.
func Clean(stack []Frame) []Frame {
	var clean []Frame
	for _, f := range stack {
		if !denied(f.Name) {
			clean = append(clean, f)
		}
	}
	return clean
}

func denied(name string) bool {
	for _, deny := range DenyList {
		if strings.Contains(name, deny) {
			return true
		}
	}
	return false
}
