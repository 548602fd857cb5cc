package command

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/wnxd/xamldbg/debugger"
)

// ParseAddress reads an address the way the debugger prints them: hex by
// default, with optional 0x prefix and ` separators. 0n selects decimal.
func ParseAddress(s string) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "`", "")
	if strings.HasPrefix(s, "0n") {
		v, err := strconv.ParseUint(s[2:], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(debugger.ErrArgumentInvalid, "address %q", s)
		}
		return v, nil
	}
	if !strings.HasPrefix(strings.ToLower(s), "0x") {
		s = "0x" + s
	}
	v, err := cast.ToUint64E(s)
	if err != nil {
		return 0, errors.Wrapf(debugger.ErrArgumentInvalid, "address %q", s)
	}
	return v, nil
}

// ParseCount reads an optional decimal count. ok is false when the argument was
// not given.
func ParseCount(args []string, i int) (count int, ok bool, err error) {
	if i >= len(args) || strings.TrimSpace(args[i]) == "" {
		return 0, false, nil
	}
	count, err = cast.ToIntE(strings.TrimSpace(args[i]))
	if err != nil || count < 0 {
		return 0, false, errors.Wrapf(debugger.ErrArgumentInvalid, "count %q", args[i])
	}
	return count, true, nil
}
