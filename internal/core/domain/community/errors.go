package community

import "errors"

// ErrNotFound is returned when a community entity does not exist.
var ErrNotFound = errors.New("entity not found")

// IsNotFound reports whether the error wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
