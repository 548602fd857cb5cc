package layout

import "errors"

var (
	ErrTableNotFound = errors.New("layout table not found")
	ErrTypeNotFound  = errors.New("layout type not found")
	ErrFieldNotFound = errors.New("layout field not found")
	ErrKindInvalid   = errors.New("layout kind invalid")
)
