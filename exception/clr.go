package exception

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ClrObject is a managed object decoded through the host's managed runtime
// dump commands.
type ClrObject struct {
	Addr        uint64
	CCW         uint64
	MethodTable uint64
	TypeName    string
	IsException bool
	Message     string
	HResult     uint32
	Stack       []string
	Inner       *ClrObject
	InnerErr    error
}

// ClrObject resolves addr, either a managed object or a COM callable wrapper,
// to its managed object.
func (d *Decoder) ClrObject(addr uint64) (*ClrObject, error) {
	return d.clrObject(addr, 0)
}

func (d *Decoder) clrObject(addr uint64, depth int) (*ClrObject, error) {
	obj := &ClrObject{Addr: addr}
	if lines, err := d.execute("!dumpccw %#x", addr); err == nil {
		if managed, ok := field(lines, "Managed object:"); ok {
			if v, ok := parseAddr(managed); ok {
				obj.CCW, obj.Addr = addr, v
			}
		}
	}
	lines, err := d.execute("!dumpobj -nofields %#x", obj.Addr)
	if err != nil {
		return nil, errors.Wrapf(ErrNotManaged, "%#x: %v", obj.Addr, err)
	}
	name, ok := field(lines, "Name:")
	if !ok || name == "" {
		return nil, errors.Wrapf(ErrNotManaged, "%#x", obj.Addr)
	}
	obj.TypeName = name
	if mt, ok := field(lines, "MethodTable:"); ok {
		obj.MethodTable, _ = parseAddr(mt)
	}
	lines, err = d.execute("!pe %#x", obj.Addr)
	if err != nil {
		return obj, nil
	}
	if _, ok := field(lines, "Exception type:"); !ok {
		return obj, nil
	}
	obj.IsException = true
	obj.Message, _ = field(lines, "Message:")
	if obj.Message == "<none>" {
		obj.Message = ""
	}
	if hr, ok := field(lines, "HResult:"); ok {
		v, _ := strconv.ParseUint(hr, 16, 32)
		obj.HResult = uint32(v)
	}
	obj.Stack = stackTrace(lines)
	if inner, ok := field(lines, "InnerException:"); ok && inner != "<none>" {
		if addr, ok := innerAddress(inner); ok {
			if depth+1 > d.MaxDepth {
				obj.InnerErr = ErrNestingTooDeep
			} else {
				obj.Inner, obj.InnerErr = d.clrObject(addr, depth+1)
			}
		}
	}
	return obj, nil
}

func (d *Decoder) clrReport(addr uint64, depth int) *Report {
	obj, err := d.clrObject(addr, depth)
	if err != nil {
		return &Report{Kind: KindCLR, Addr: addr, Err: err}
	}
	return obj.report()
}

// CLR reports a managed exception, its stack and inner exceptions.
func (d *Decoder) CLR(addr uint64) *Report {
	return d.clrReport(addr, 0)
}

func (obj *ClrObject) report() *Report {
	r := &Report{Kind: KindCLR, Addr: obj.Addr, HResult: obj.HResult, Type: obj.TypeName, Message: obj.Message}
	for _, line := range obj.Stack {
		r.Stack = append(r.Stack, Frame{Name: line})
	}
	r.Blame, _ = Blame(r.Stack)
	switch {
	case obj.Inner != nil:
		r.NestedType = "InnerException"
		r.Nested = obj.Inner.report()
	case obj.InnerErr != nil:
		r.NestedType = "InnerException"
		r.Nested = &Report{Kind: KindCLR, Err: obj.InnerErr, Unavailable: true}
	}
	return r
}

func (obj *ClrObject) String() string {
	s := fmt.Sprintf("%s @ %#x", obj.TypeName, obj.Addr)
	if obj.CCW != 0 {
		s += fmt.Sprintf(" (ccw %#x)", obj.CCW)
	}
	if obj.IsException {
		s += fmt.Sprintf(" hr=%#08x %q", obj.HResult, obj.Message)
	}
	return s
}

func (d *Decoder) execute(format string, args ...any) ([]string, error) {
	return d.dbg.Host().Execute(fmt.Sprintf(format, args...))
}

func field(lines []string, key string) (string, bool) {
	for _, line := range lines {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), key); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// stackTrace collects the function column of the generated stack trace.
func stackTrace(lines []string) []string {
	var (
		stack []string
		in    bool
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "StackTrace (generated):"):
			in = true
		case !in:
		case trimmed == "", strings.HasPrefix(trimmed, "StackTraceString:"):
			return stack
		case strings.HasPrefix(trimmed, "SP "):
		default:
			fields := strings.Fields(trimmed)
			if len(fields) >= 3 {
				stack = append(stack, strings.Join(fields[2:], " "))
			}
		}
	}
	return stack
}

func innerAddress(s string) (uint64, bool) {
	const marker = "!PrintException "
	if i := strings.Index(s, marker); i >= 0 {
		rest := strings.Fields(s[i+len(marker):])
		if len(rest) > 0 {
			return parseAddr(rest[0])
		}
	}
	return 0, false
}

func parseAddr(s string) (uint64, bool) {
	s = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(s), "`", ""), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}
