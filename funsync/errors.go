// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by Store lookups when no row exists.
var ErrNotFound = errors.New("not found")

// ErrInvalidToken is the sentinel all authentication failures wrap.
// Sub-causes (missing header, bad signature, expired, revoked, no session)
// collapse to one client-visible kind.
var ErrInvalidToken = errors.New(ErrCodeInvalidToken)

// SyncError is a client-visible request failure. It carries the HTTP status,
// the stable error code and the human-readable description returned on the
// wire; both must remain stable for programmatic client handling.
type SyncError struct {
	Status      int
	Code        string
	Description string
	Details     map[string]any
	RetryAfter  int // seconds; emitted as Retry-After header when > 0
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func errRateLimitExceeded(description string) *SyncError {
	return &SyncError{
		Status:      http.StatusTooManyRequests,
		Code:        ErrCodeRateLimitExceeded,
		Description: description,
		RetryAfter:  RetryAfterSeconds,
	}
}

func errValidationFailed(description string, details map[string]any) *SyncError {
	return &SyncError{
		Status:      http.StatusUnprocessableEntity,
		Code:        ErrCodeValidationFailed,
		Description: description,
		Details:     details,
	}
}

func errPayloadTooLarge(maxSize, actualSize int) *SyncError {
	return &SyncError{
		Status:      http.StatusRequestEntityTooLarge,
		Code:        ErrCodePayloadTooLarge,
		Description: "Data exceeds maximum allowed size",
		Details:     map[string]any{"max_size": maxSize, "actual_size": actualSize},
	}
}

func errServerError(description string) *SyncError {
	return &SyncError{
		Status:      http.StatusInternalServerError,
		Code:        ErrCodeServerError,
		Description: description,
	}
}
