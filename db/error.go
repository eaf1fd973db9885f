package db

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame           = errors.New("db: bad frame data")
	ErrRemoteTable              = errors.New("db: remote table error")
	ErrRemoteUnavailable        = errors.New("db: internal server error")
	ErrUnsupportedWithoutSchema = errors.New("db: get decoded value is not supported")
	ErrInvalidPartition         = errors.New("db: traverse invalid pid")
	ErrNoTable                  = errors.New("db: no such table")
	ErrExhausted                = errors.New("db: cursor exhausted")
	ErrNoRecord                 = errors.New("db: no current record")
	ErrInvalidConfig            = errors.New("db: invalid config")
)

// RemoteTableError is returned when a tablet answers with a non-zero code.
type RemoteTableError struct {
	Code int32
	Msg  string
}

func (e *RemoteTableError) Error() string {
	return fmt.Sprintf("db: remote table error %d: %s", e.Code, e.Msg)
}

func (e *RemoteTableError) Is(target error) bool {
	return target == ErrRemoteTable
}

// unavailableError marks a failure to reach a tablet. It matches
// ErrRemoteUnavailable and keeps the transport error as its cause.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return ErrRemoteUnavailable.Error() + ": " + e.cause.Error()
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}
