package exception

import "errors"

var (
	ErrSignatureUnknown = errors.New("unknown stowed exception signature")
	ErrNestingTooDeep   = errors.New("nested exception depth exceeded")
	ErrNotException     = errors.New("object is not an exception")
	ErrNotManaged       = errors.New("object is not a managed object")
	ErrNoThrowFrame     = errors.New("no throw frame on the stack")
)
