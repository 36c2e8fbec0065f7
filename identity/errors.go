package identity

import "fmt"

// Code classifies identity failures.
type Code string

const (
	CodeMalformedEvent Code = "MALFORMED_EVENT"
	CodeInvalidKey     Code = "INVALID_KEY"
)

func (c Code) String() string {
	switch c {
	case CodeMalformedEvent:
		return "malformed event"
	case CodeInvalidKey:
		return "invalid key"
	}
	return string(c)
}

// Error is returned by every operation in this package. Match it with
// errors.Is against ErrMalformedEvent or ErrInvalidKey.
type Error struct {
	Code  Code
	Field string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the bare sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Field == "" && t.Msg == ""
}

var (
	ErrMalformedEvent = &Error{Code: CodeMalformedEvent}
	ErrInvalidKey     = &Error{Code: CodeInvalidKey}
)

func malformed(field, msg string, cause error) error {
	return &Error{Code: CodeMalformedEvent, Field: field, Msg: msg, Cause: cause}
}

func invalidKey(msg string, cause error) error {
	return &Error{Code: CodeInvalidKey, Msg: msg, Cause: cause}
}
