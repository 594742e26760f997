package utils

import (
	"strconv"

	"github.com/pkg/errors"
)

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// OptionalBool parses s into a bool pointer. An empty string yields nil so the
// field is left out of partial updates.
func OptionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.Wrapf(err, "[OptionalBool] %q is not a boolean", s)
	}
	return Ptr(b), nil
}
