package store

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks every failure of the backing database.
var ErrUnavailable = errors.New("store unavailable")

// Error carries the failed operation and the driver error.
// errors.Is(err, ErrUnavailable) holds for every *Error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	s.failures.Add(1)
	return &Error{Op: op, Err: err}
}
