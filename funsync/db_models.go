// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import "time"

// Database entity models for the sync tables. One row per (user_id,
// client_id) pair in the two platform tables; rows are created on first
// sync and never deleted by this subsystem.

// PlatformUserData is a row in platform_user_data. The generic document is
// owned exclusively by the sync endpoint; no other writer touches it.
type PlatformUserData struct {
	UserID          string         `db:"user_id"`
	ClientID        string         `db:"client_id"`
	Data            map[string]any `db:"data"`             // jsonb document, depth <= 5, <= 50 KB
	SyncCount       int64          `db:"sync_count"`       // incremented on every sync
	LastSyncMode    string         `db:"last_sync_mode"`   // merge, replace, append or delta
	ClientTimestamp *string        `db:"client_timestamp"` // caller-supplied, opaque
	SyncedAt        time.Time      `db:"synced_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// PlatformFinancialData is a row in platform_financial_data.
type PlatformFinancialData struct {
	UserID          string  `db:"user_id"`
	ClientID        string  `db:"client_id"`
	Totals          FinancialTotals
	SyncCount       int64     `db:"sync_count"`
	ClientTimestamp *string   `db:"client_timestamp"`
	LastSyncAt      time.Time `db:"last_sync_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// CrossPlatformToken is a row in cross_platform_tokens: one issued
// cross-platform session, revocable, with an opaque access token.
type CrossPlatformToken struct {
	ID                   string    `db:"id"`
	UserID               string    `db:"user_id"`
	ClientID             string    `db:"client_id"`
	AccessToken          string    `db:"access_token"`
	AccessTokenExpiresAt time.Time `db:"access_token_expires_at"`
	IsRevoked            bool      `db:"is_revoked"`
	LastUsedAt           time.Time `db:"last_used_at"`
	CreatedAt            time.Time `db:"created_at"`
}

// UserProfile is the slice of the profiles table this subsystem reads.
// Display fields only; never authoritative state for sync payloads.
type UserProfile struct {
	ID       string `db:"id"`
	FunID    string `db:"fun_id"`
	Username string `db:"username"`
}
