/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is a stable classification attached to every error the store returns.
// Transport layers map a Kind to a status code without inspecting messages.
type Kind string

const (
	KindInvalidIdentity Kind = "invalid-identity"
	KindValidation      Kind = "validation"
	KindUnknownVariant  Kind = "unknown-variant"
	KindAlreadyExists   Kind = "already-exists"
	KindNotFound        Kind = "not-found"
	KindCorruptRecord   Kind = "corrupt-record"
	KindUnavailable     Kind = "unavailable"
)

// Common sentinel errors
var (
	// ErrInvalidIdentity is returned when an entity identity would produce a malformed key
	ErrInvalidIdentity = errors.New("invalid entity identity")

	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation failed")

	// ErrUnknownVariant is returned when a configuration discriminator is not registered
	ErrUnknownVariant = errors.New("unknown configuration variant")

	// ErrAlreadyExists is returned when a conditional create finds an existing item
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrCorruptRecord is returned when a stored item cannot be deserialized
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrUnavailable is returned when the backend stays unreachable after retries
	ErrUnavailable = errors.New("backend unavailable")
)

// InvalidIdentityError reports a malformed entity identity.
type InvalidIdentityError struct {
	EntityType string
	EntityID   string
	Reason     string
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid identity (%s, %s): %s", e.EntityType, e.EntityID, e.Reason)
}

func (e *InvalidIdentityError) Is(target error) bool {
	return target == ErrInvalidIdentity
}

// FieldViolation is a single field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError carries the full list of field violations for one input.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnknownVariantError reports an unregistered configuration discriminator.
type UnknownVariantError struct {
	Discriminator string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown configuration variant %q", e.Discriminator)
}

func (e *UnknownVariantError) Is(target error) bool {
	return target == ErrUnknownVariant
}

// AlreadyExistsError reports a conditional create against an existing item.
type AlreadyExistsError struct {
	EntityType string
	EntityID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with id %q already exists", e.EntityType, e.EntityID)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	EntityType string
	EntityID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", e.EntityType, e.EntityID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CorruptRecordError reports a stored item that failed to deserialize.
// These indicate a data or schema defect and are never retried.
type CorruptRecordError struct {
	PK     string
	SK     string
	Reason string
	Cause  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record (%s, %s): %s", e.PK, e.SK, e.Reason)
}

func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Cause
}

// UnavailableError reports exhausted retries against a transiently failing backend.
type UnavailableError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable after %d attempts: %v", e.Operation, e.Attempts, e.Cause)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Helper constructors

// NewInvalidIdentityError creates a new InvalidIdentityError
func NewInvalidIdentityError(entityType, entityID, reason string) error {
	return &InvalidIdentityError{EntityType: entityType, EntityID: entityID, Reason: reason}
}

// NewValidationError creates a ValidationError with a single field violation
func NewValidationError(field, message string) error {
	return &ValidationError{Violations: []FieldViolation{{Field: field, Message: message}}}
}

// NewValidationErrors creates a ValidationError from a violation list
func NewValidationErrors(violations []FieldViolation) error {
	return &ValidationError{Violations: violations}
}

// NewUnknownVariantError creates a new UnknownVariantError
func NewUnknownVariantError(discriminator string) error {
	return &UnknownVariantError{Discriminator: discriminator}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, entityID string) error {
	return &AlreadyExistsError{EntityType: entityType, EntityID: entityID}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, entityID string) error {
	return &NotFoundError{EntityType: entityType, EntityID: entityID}
}

// NewCorruptRecordError creates a new CorruptRecordError
func NewCorruptRecordError(pk, sk, reason string, cause error) error {
	return &CorruptRecordError{PK: pk, SK: sk, Reason: reason, Cause: cause}
}

// NewUnavailableError creates a new UnavailableError
func NewUnavailableError(operation string, attempts int, cause error) error {
	return &UnavailableError{Operation: operation, Attempts: attempts, Cause: cause}
}

// Predicates

// IsInvalidIdentity checks if an error is an invalid identity error
func IsInvalidIdentity(err error) bool { return errors.Is(err, ErrInvalidIdentity) }

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnknownVariant checks if an error is an unknown variant error
func IsUnknownVariant(err error) bool { return errors.Is(err, ErrUnknownVariant) }

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruptRecord checks if an error is a corrupt record error
func IsCorruptRecord(err error) bool { return errors.Is(err, ErrCorruptRecord) }

// IsUnavailable checks if an error is an unavailable error
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// KindOf returns the stable Kind for an error, or an empty Kind for
// errors the store does not classify.
func KindOf(err error) Kind {
	switch {
	case IsInvalidIdentity(err):
		return KindInvalidIdentity
	case IsValidation(err):
		return KindValidation
	case IsUnknownVariant(err):
		return KindUnknownVariant
	case IsAlreadyExists(err):
		return KindAlreadyExists
	case IsNotFound(err):
		return KindNotFound
	case IsCorruptRecord(err):
		return KindCorruptRecord
	case IsUnavailable(err):
		return KindUnavailable
	default:
		return ""
	}
}

// HTTPStatus maps an error to the status code the REST layer should emit.
// Unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidIdentity, KindValidation, KindUnknownVariant:
		return http.StatusBadRequest
	case KindAlreadyExists:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
