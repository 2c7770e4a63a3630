package transpiler

import "fmt"

// ErrorKind is the transpiler's error taxonomy (spec §4.3, §6 "Failure
// modes"). Callers (the admin path) propagate these; the pipeline itself
// never executes an unparsed rule.
type ErrorKind string

const (
	ErrInvalidYaml       ErrorKind = "InvalidYaml"
	ErrUnknownModifier   ErrorKind = "UnknownModifier"
	ErrInvalidCondition  ErrorKind = "InvalidCondition"
	ErrUnsupportedFeature ErrorKind = "UnsupportedFeature"
)

// Error wraps an ErrorKind with a descriptive message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, returning "" if err is not a
// *Error.
func KindOf(err error) ErrorKind {
	if te, ok := err.(*Error); ok {
		return te.Kind
	}
	return ""
}
