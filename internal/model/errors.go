package model

import (
	"errors"
	"fmt"
)

// Caller-recoverable error kinds. Match with errors.Is.
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrUnknownCustomer    = errors.New("unknown customer")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrCrossTenantAccess  = errors.New("cross-tenant access")
	ErrConflict           = errors.New("concurrent modification")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateCustomer  = errors.New("customer already enrolled")
	ErrInvalidInput       = errors.New("invalid input")
)

// TransitionError reports a status change that the request's current state does not allow.
type TransitionError struct {
	RequestID string
	Current   RequestStatus
	Target    RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot move from %s to %s", e.RequestID, e.Current, e.Target)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
