// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import "time"

// Sync modes accepted by the sync endpoint
const (
	SyncModeMerge   = "merge"
	SyncModeReplace = "replace"
	SyncModeAppend  = "append"
	SyncModeDelta   = "delta"
)

// Rate limiting defaults
const (
	DefaultClientRateLimit = 60  // syncs per minute per platform client
	DefaultUserRateLimit   = 120 // syncs per minute per user across all platforms
	RateWindow             = time.Minute
	RetryAfterSeconds      = 60
)

// Payload validation defaults
const (
	DefaultMaxDataSize = 50 * 1024 // serialized bytes
	DefaultMaxDepth    = 5         // object nesting levels
)

// ReservedKeys are field names callers may never set via sync because they
// are authoritative identity/metadata owned by the profile service.
// Compared case-insensitively at every nesting level.
var ReservedKeys = []string{
	"user_id",
	"fun_id",
	"wallet_address",
	"soul_nft",
	"id",
	"created_at",
	"updated_at",
}

// Stable error codes returned to clients
const (
	ErrCodeInvalidToken      = "invalid_token"
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeValidationFailed  = "validation_failed"
	ErrCodePayloadTooLarge   = "payload_too_large"
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeServerError       = "server_error"
)

// Category name reported when the financial branch of a sync request ran
const CategoryFinancialData = "financial_data"
