package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for conditions that carry no extra detail.
var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNoPriceSource = errors.New("no price source resolved")
)

// ValidationError reports malformed or missing input with field-level
// detail. Always recoverable by the caller.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthorizationError: the actor lacks the capability or ownership.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

func Unauthorized(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

// IllegalTransitionError: a state-machine violation by an otherwise
// authorized actor. Distinct from AuthorizationError on purpose.
type IllegalTransitionError struct {
	Current   string
	Attempted string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s while %s", e.Attempted, e.Current)
}

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

func Conflict(reason string) *ConflictError { return &ConflictError{Reason: reason} }

// ConfigurationInconsistencyError: a catalog reference does not match
// the declared material/shape of the request.
type ConfigurationInconsistencyError struct {
	Reason string
}

func (e *ConfigurationInconsistencyError) Error() string {
	return "configuration inconsistency: " + e.Reason
}

// InternalError wraps a storage or infrastructure failure. The wrapped
// error is logged server-side and never exposed to callers.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "internal error" }
func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an InternalError unless it is nil or already a
// domain error kind.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		nf *NotFoundError
		ae *AuthorizationError
		it *IllegalTransitionError
		ce *ConflictError
		ci *ConfigurationInconsistencyError
		ie *InternalError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ae) ||
		errors.As(err, &it) || errors.As(err, &ce) || errors.As(err, &ci) ||
		errors.As(err, &ie) ||
		errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrNoPriceSource) {
		return err
	}
	return &InternalError{Err: err}
}
