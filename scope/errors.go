package scope

import "errors"

// Validation failures. They are raised before any I/O.
var (
	ErrInvalidScopeCombination = errors.New("invalid scope combination")
	ErrMissingQuery            = errors.New("missing query")
	ErrUnknownScope            = errors.New("unknown scope")
	ErrEmptyPlan               = errors.New("empty export plan")
)

// ValidationError reports a rejected scope selection.
type ValidationError struct {
	// Err is one of the validation sentinels above.
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
