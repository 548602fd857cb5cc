package model

import (
	"github.com/wnxd/xamldbg/debugger"
)

// String is a view over the framework's counted UTF-16 string storage
// (xstring_ptr_storage and xephemeral_string_ptr).
type String struct {
	debugger.TypedAddress
}

func NewString(t *Target, addr uint64, typ string) (String, error) {
	ta, err := t.Typed(addr, typ)
	return String{ta}, err
}

func (s String) Value() (string, error) {
	count, err := debugger.Field[uint32](s.TypedAddress, "Count")
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}
	buf, err := s.ReadPointer("Buffer")
	if err != nil {
		return "", err
	}
	if buf.IsNil() {
		return "", nil
	}
	return buf.MemReadWideString(int(count))
}

func (s String) String() string {
	v, err := s.Value()
	if err != nil {
		return debugger.Placeholder(err)
	}
	return v
}

func readString(ta debugger.TypedAddress, field string) (string, error) {
	storage, err := ta.Embedded(field, "xstring_ptr_storage")
	if err != nil {
		return "", err
	}
	return String{storage}.Value()
}
