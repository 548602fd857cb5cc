package exception

import (
	"fmt"
	"io"
	"strings"

	"github.com/wnxd/xamldbg/debugger"
)

type Kind string

const (
	KindStowed       Kind = "stowed"
	KindErrorContext Kind = "xaml"
	KindRestricted   Kind = "restricted"
	KindCLR          Kind = "clr"
	KindHResultError Kind = "hresult_error"
	KindCxx          Kind = "c++"
	KindWin32        Kind = "win32"
)

type Form uint32

const (
	FormBinary Form = 1
	FormText   Form = 2
)

type Frame struct {
	Addr uint64
	Name string
}

// Report is the uniform view every decoder produces.
type Report struct {
	Kind        Kind
	Addr        uint64
	Signature   string
	Form        Form
	ThreadID    uint32
	HResult     uint32
	Type        string
	Message     string
	Stack       []Frame
	Blame       *Frame
	NestedType  string
	Nested      *Report
	Unavailable bool
	Err         error
}

func unavailable(kind Kind, addr uint64, err error) *Report {
	return &Report{Kind: kind, Addr: addr, Unavailable: true, Err: err}
}

func (f Form) String() string {
	switch f {
	case FormBinary:
		return "binary"
	case FormText:
		return "text"
	}
	return fmt.Sprintf("form(%d)", uint32(f))
}

func (f Frame) String() string {
	if f.Name == "" {
		return fmt.Sprintf("%#x", f.Addr)
	}
	return fmt.Sprintf("%#x %s", f.Addr, f.Name)
}

// Format writes the report and at most frames stack frames of each level; a
// negative count prints all of them.
func (r *Report) Format(w io.Writer, frames int) error {
	return r.format(w, frames, 0)
}

func (r *Report) format(w io.Writer, frames, depth int) error {
	indent := strings.Repeat("  ", depth)
	if r.Unavailable {
		_, err := fmt.Fprintf(w, "%s%s %#x %s\n", indent, r.Kind, r.Addr, debugger.Placeholder(r.Err))
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %#x", indent, r.Kind, r.Addr)
	if r.Signature != "" {
		fmt.Fprintf(&b, " %s %s", r.Signature, r.Form)
	}
	if r.HResult != 0 {
		fmt.Fprintf(&b, " hr=%#08x", r.HResult)
	}
	if r.Type != "" {
		fmt.Fprintf(&b, " type=%s", r.Type)
	}
	b.WriteByte('\n')
	if r.Message != "" {
		fmt.Fprintf(&b, "%s  message: %s\n", indent, r.Message)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "%s  error: %s\n", indent, debugger.Placeholder(r.Err))
	}
	if r.Blame != nil {
		fmt.Fprintf(&b, "%s  blame: %s\n", indent, r.Blame)
	}
	for i, f := range r.Stack {
		if frames >= 0 && i >= frames {
			fmt.Fprintf(&b, "%s  ... %d more frames\n", indent, len(r.Stack)-i)
			break
		}
		fmt.Fprintf(&b, "%s  %02d %s\n", indent, i, f)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if r.Nested == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s  nested %s:\n", indent, r.NestedType); err != nil {
		return err
	}
	return r.Nested.format(w, frames, depth+1)
}

func (r *Report) String() string {
	var b strings.Builder
	r.Format(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}
