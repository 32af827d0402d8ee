// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Profile carries the display fields echoed back in sync responses.
type Profile struct {
	FunID    string `json:"fun_id"`
	Username string `json:"username"`
}

// Identity is the resolved caller of one sync request. Ephemeral; recomputed
// on every request, never stored by this subsystem.
type Identity struct {
	UserID   string
	ClientID string
	Profile  Profile
}

// Authenticator resolves a bearer token to an Identity. Two verification
// paths are tried in fixed order: cryptographic verification of a signed
// token (no DB hit for identity), then an opaque-token database lookup for
// credentials issued before signing was introduced. All failures collapse to
// ErrInvalidToken for the caller.
type Authenticator struct {
	jwtAuth *JWTAuth
	store   Store
	now     func() time.Time
}

// NewAuthenticator creates an authenticator over a token verifier and the
// session store.
func NewAuthenticator(jwtAuth *JWTAuth, store Store) *Authenticator {
	return &Authenticator{
		jwtAuth: jwtAuth,
		store:   store,
		now:     time.Now,
	}
}

// Authenticate extracts the bearer token from the request and resolves it.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("%w: missing or invalid Authorization header", ErrInvalidToken)
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return nil, fmt.Errorf("%w: missing or invalid Authorization header", ErrInvalidToken)
	}
	return a.Resolve(ctx, tokenString)
}

// Resolve validates a bearer token string and returns the caller identity.
func (a *Authenticator) Resolve(ctx context.Context, tokenString string) (*Identity, error) {
	if claims, err := a.jwtAuth.ValidateToken(tokenString); err == nil {
		return a.resolveSigned(ctx, claims)
	}
	// Bad signature, expired or malformed: treat the literal string as an
	// opaque lookup key.
	return a.resolveOpaque(ctx, tokenString)
}

// resolveSigned handles the fast path. The signed token does not carry which
// platform issued the active session, so the most recently used non-revoked
// session supplies the client id.
func (a *Authenticator) resolveSigned(ctx context.Context, claims *AccessClaims) (*Identity, error) {
	session, err := a.store.LatestActiveSession(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no active session found for this token", ErrInvalidToken)
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return &Identity{
		UserID:   claims.Subject,
		ClientID: session.ClientID,
		Profile:  Profile{FunID: claims.FunID, Username: claims.Username},
	}, nil
}

func (a *Authenticator) resolveOpaque(ctx context.Context, tokenString string) (*Identity, error) {
	token, profile, err := a.store.TokenByAccessToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: token not found or revoked", ErrInvalidToken)
		}
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	if token.AccessTokenExpiresAt.Before(a.now()) {
		return nil, fmt.Errorf("%w: token has expired", ErrInvalidToken)
	}
	return &Identity{
		UserID:   token.UserID,
		ClientID: token.ClientID,
		Profile:  Profile{FunID: profile.FunID, Username: profile.Username},
	}, nil
}
