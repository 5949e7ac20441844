package research

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a session id is not registered.
	ErrNotFound = errors.New("session not found")

	// ErrEmptyResult is returned when a page fetch succeeds but carries no
	// entities.
	ErrEmptyResult = errors.New("no results returned")

	// ErrNoMatches is returned when a direct match finds no businesses.
	ErrNoMatches = errors.New("no companies found")

	// ErrValidation wraps malformed input rejected before any network call.
	ErrValidation = errors.New("invalid request")
)

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
