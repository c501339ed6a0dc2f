package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity marks failures where the backend could not be reached.
	// Only errors matching it may trigger a local-cache fallback.
	ErrConnectivity = errors.New("backend unreachable")

	ErrUnavailable     = errors.New("unavailable while offline")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("not logged in")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInFlight        = errors.New("operation already in progress")
	ErrCorruptCache    = errors.New("corrupt cache entry")
)

// ConnectivityError wraps a transport-level failure for a single backend call.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrConnectivity, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// ApplicationError is a well-formed rejection returned by the backend.
type ApplicationError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ApplicationError) Error() string { return e.Message }

// IsConnectivity reports whether err permits a local fallback.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// AsApplication unwraps err into an ApplicationError when it is one.
func AsApplication(err error) (*ApplicationError, bool) {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
