package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by every *UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream is matched by every *UpstreamError.
	ErrUpstream = errors.New("upstream error")
	// ErrStateConflict is matched by every *StateConflictError.
	ErrStateConflict = errors.New("state conflict")
)

// ValidationError is returned for malformed input detected locally.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError is returned when an order or a safe transaction is unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnauthorizedError is returned when a signer is not an owner of the target
// Safe.
type UnauthorizedError struct {
	Signer string
	Safe   string
	Reason string
}

func NewUnauthorizedError(signer, safe string) *UnauthorizedError {
	return &UnauthorizedError{Signer: signer, Safe: safe}
}

func (e *UnauthorizedError) Error() string {
	if e.Signer == "" {
		return fmt.Sprintf("unauthorized: %s", e.Reason)
	}
	msg := fmt.Sprintf("signer %s is not an owner of safe %s", e.Signer, e.Safe)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// UpstreamError carries a non-success response (or a transport failure, in
// which case StatusCode is 0) of an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func NewUpstreamError(service string, statusCode int, message string) *UpstreamError {
	return &UpstreamError{service, statusCode, message}
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s unreachable: %s", e.Service, e.Message)
	}
	return fmt.Sprintf(
		"%s responded with status %d: %s", e.Service, e.StatusCode, e.Message,
	)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// StateConflictError is returned when an operation is not allowed in the
// current status of a safe transaction.
type StateConflictError struct {
	SafeTxHash string
	Status     SafeTxStatus
	Operation  string
	Reason     string
}

func NewStateConflictError(
	safeTxHash string, status SafeTxStatus, op string,
) *StateConflictError {
	return &StateConflictError{
		SafeTxHash: safeTxHash,
		Status:     status,
		Operation:  op,
	}
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf(
		"cannot %s safe transaction %s in status %s",
		e.Operation, e.SafeTxHash, e.Status,
	)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}
