package parse

import "fmt"

// ParseError reports malformed serialized JSON in a text form field.
// Callers recover from it locally by treating the field as unchanged.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
