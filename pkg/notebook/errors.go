package notebook

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched (via errors.Is) by every NotFoundError.
var ErrNotFound = errors.New("not found")

// Kinds of things a NotFoundError can refer to.
const (
	KindNotebook = "notebook"
	KindFunction = "function"
)

// NotFoundError reports an unreadable notebook or an undefined function name.
type NotFoundError struct {
	Kind string // KindNotebook or KindFunction
	Name string // notebook path or function name
	Err  error  // underlying cause, if any
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindNotebook:
		if e.Err != nil {
			return fmt.Sprintf("error opening the notebook %s: %v", e.Name, e.Err)
		}
		return fmt.Sprintf("error opening the notebook %s", e.Name)
	default:
		return fmt.Sprintf("%s doesn't exist in the notebook", e.Name)
	}
}

// Unwrap returns the underlying cause.
func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) true for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// MalformedCellError describes a code cell whose source array could not be
// delimited. It is never returned from construction; the cell is skipped and
// the error is kept as a diagnostic.
type MalformedCellError struct {
	Line   int // zero-based line of the cell type marker
	Reason string
}

func (e *MalformedCellError) Error() string {
	return fmt.Sprintf("malformed code cell at line %d: %s", e.Line+1, e.Reason)
}
