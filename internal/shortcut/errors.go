package shortcut

import "errors"

// Rejection reasons. The error text is shown to the user as-is.
var (
	ErrEmpty      = errors.New("shortcut cannot be empty")
	ErrReserved   = errors.New("reserved shortcut")
	ErrDegenerate = errors.New("shortcut cannot be all modifiers or all non-modifiers")
	ErrConflict   = errors.New("shortcut conflicts with an existing binding")
)

// ConflictError identifies the binding a rejected chord collides with.
// errors.Is(err, ErrConflict) holds for every ConflictError.
type ConflictError struct {
	Action  string
	Binding string
}

func (e *ConflictError) Error() string { return ErrConflict.Error() }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsUserInput reports whether err is one of the recoverable rejection reasons.
func IsUserInput(err error) bool {
	return errors.Is(err, ErrEmpty) ||
		errors.Is(err, ErrReserved) ||
		errors.Is(err, ErrDegenerate) ||
		errors.Is(err, ErrConflict)
}
