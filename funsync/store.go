// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"time"
)

// Store is the persistence boundary of the sync service. PgStore backs it
// with Postgres; MemStore backs it with in-process maps for tests and
// single-binary demos.
//
// Lookups return ErrNotFound when no row exists. Upserts are keyed by
// (user_id, client_id) and replace the whole row. The two platform tables
// are written independently; no transaction spans both in one request.
type Store interface {
	// Generic per-platform document
	GetPlatformData(ctx context.Context, userID, clientID string) (*PlatformUserData, error)
	UpsertPlatformData(ctx context.Context, row *PlatformUserData) error

	// Financial counters
	GetFinancialData(ctx context.Context, userID, clientID string) (*PlatformFinancialData, error)
	UpsertFinancialData(ctx context.Context, row *PlatformFinancialData) error

	// Cross-platform sessions
	// LatestActiveSession returns the most recently used non-revoked session
	// for the user.
	LatestActiveSession(ctx context.Context, userID string) (*CrossPlatformToken, error)
	// TokenByAccessToken finds a non-revoked session by its opaque access
	// token, joined with the owning profile.
	TokenByAccessToken(ctx context.Context, accessToken string) (*CrossPlatformToken, *UserProfile, error)
	// TouchSession updates last_used_at on the (user, client) session.
	TouchSession(ctx context.Context, userID, clientID string, at time.Time) error
	// CreateSession inserts a new cross-platform session row.
	CreateSession(ctx context.Context, row *CrossPlatformToken) error

	// Profiles (read plus the dev-signin bootstrap write)
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile *UserProfile) error
}
