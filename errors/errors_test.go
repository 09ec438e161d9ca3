/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		sentinel  error
		predicate func(error) bool
	}{
		{"invalid identity", NewInvalidIdentityError("STACK", "a#b", "delimiter"), ErrInvalidIdentity, IsInvalidIdentity},
		{"validation", NewValidationError("name", "too long"), ErrValidation, IsValidation},
		{"unknown variant", NewUnknownVariantError("ftp-server"), ErrUnknownVariant, IsUnknownVariant},
		{"already exists", NewAlreadyExistsError("TEAM", "t1"), ErrAlreadyExists, IsAlreadyExists},
		{"not found", NewNotFoundError("TEAM", "t1"), ErrNotFound, IsNotFound},
		{"corrupt record", NewCorruptRecordError("TEAM#t1", "METADATA", "bad payload", nil), ErrCorruptRecord, IsCorruptRecord},
		{"unavailable", NewUnavailableError("PutItem", 4, stderrors.New("throttled")), ErrUnavailable, IsUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !stderrors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tc.err)
			}
			if !tc.predicate(tc.err) {
				t.Errorf("predicate rejected %v", tc.err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NewInvalidIdentityError("", "", "empty"), KindInvalidIdentity},
		{NewValidationError("f", "m"), KindValidation},
		{NewUnknownVariantError("x"), KindUnknownVariant},
		{NewAlreadyExistsError("T", "1"), KindAlreadyExists},
		{NewNotFoundError("T", "1"), KindNotFound},
		{NewCorruptRecordError("pk", "sk", "r", nil), KindCorruptRecord},
		{NewUnavailableError("op", 1, nil), KindUnavailable},
		{stderrors.New("plain"), Kind("")},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewInvalidIdentityError("", "", "empty"), http.StatusBadRequest},
		{NewValidationError("f", "m"), http.StatusBadRequest},
		{NewUnknownVariantError("x"), http.StatusBadRequest},
		{NewAlreadyExistsError("T", "1"), http.StatusConflict},
		{NewNotFoundError("T", "1"), http.StatusNotFound},
		{NewUnavailableError("op", 1, nil), http.StatusServiceUnavailable},
		{NewCorruptRecordError("pk", "sk", "r", nil), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestValidationErrorAggregatesViolations(t *testing.T) {
	err := NewValidationErrors([]FieldViolation{
		{Field: "name", Message: "is required and must not be blank"},
		{Field: "engine", Message: "must be one of: postgres, mysql"},
	})
	msg := err.Error()
	if !strings.Contains(msg, "name") || !strings.Contains(msg, "engine") {
		t.Errorf("message drops violations: %q", msg)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewUnavailableError("Query", 4, cause)
	if !stderrors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}

	corrupt := NewCorruptRecordError("STACK#1", "METADATA", "bad configuration", cause)
	if !stderrors.Is(corrupt, cause) {
		t.Errorf("corrupt record cause not reachable through Unwrap")
	}
}
