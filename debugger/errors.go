package debugger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wnxd/xamldbg/host"
)

const (
	HeapNotAvailable    = "(-- heap not available --)"
	SymbolsNotAvailable = "(-- symbols not available --)"
)

var (
	ErrSymbolUnavailable       = errors.New("symbol unavailable")
	ErrMemoryUnavailable       = host.ErrMemoryUnavailable
	ErrTypeInferenceFailed     = errors.New("type inference failed")
	ErrAmbiguousModule         = errors.New("ambiguous module")
	ErrFrameworkNotLoaded      = errors.New("framework module not loaded")
	ErrModuleNotFound          = errors.New("module not found")
	ErrArgumentInvalid         = errors.New("argument invalid")
	ErrPointerSizeUnsupported  = errors.New("pointer size unsupported")
	ErrTLSExpansionUnavailable = errors.New("tls expansion slots unavailable")
)

type SymbolUnavailableError struct {
	Module string
	Symbol string
}

type AmbiguousModuleError struct {
	Candidates []string
}

func (e *SymbolUnavailableError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("symbols for module %s not loaded", e.Module)
	}
	return fmt.Sprintf("symbol %s!%s unavailable", e.Module, e.Symbol)
}

func (e *SymbolUnavailableError) Is(target error) bool {
	return target == ErrSymbolUnavailable
}

func (e *AmbiguousModuleError) Error() string {
	return fmt.Sprintf("ambiguous framework module: %s are all loaded, choose one", strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousModuleError) Is(target error) bool {
	return target == ErrAmbiguousModule
}

// Placeholder renders a read failure the way a partial structure shows it.
func Placeholder(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMemoryUnavailable):
		return HeapNotAvailable
	case errors.Is(err, ErrSymbolUnavailable):
		return SymbolsNotAvailable
	}
	return "(-- " + err.Error() + " --)"
}
