package content

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by InvariantViolation.
var (
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrUnknownBlock     = errors.New("unknown block")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownList      = errors.New("unknown list")
	ErrItemOutOfRange   = errors.New("list item out of range")
	ErrInvalidPath      = errors.New("invalid path")
	ErrInvalidKind      = errors.New("invalid block kind")
)

// InvariantViolation reports a programming error such as addressing a block
// that does not exist. The document is left untouched when one is returned.
type InvariantViolation struct {
	Op     string
	Target string
	Err    error
}

func (e *InvariantViolation) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}

func violation(op, target string, err error) error {
	return &InvariantViolation{Op: op, Target: target, Err: err}
}

// IsInvariantViolation reports whether err is or wraps an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
