package funsync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, store *MemStore, userID, clientID, accessToken string, lastUsed time.Time) {
	t.Helper()
	require.NoError(t, store.CreateSession(context.Background(), &CrossPlatformToken{
		ID:                   uuid.NewString(),
		UserID:               userID,
		ClientID:             clientID,
		AccessToken:          accessToken,
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		LastUsedAt:           lastUsed,
		CreatedAt:            lastUsed,
	}))
}

func TestAuthenticateSignedTokenFastPath(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	jwtAuth := NewJWTAuth("secret")
	a := NewAuthenticator(jwtAuth, store)

	userID := uuid.NewString()
	// Two sessions; the most recently used one supplies the client id.
	seedSession(t, store, userID, "fun_farm_client", "tok-old", time.Now().Add(-2*time.Hour))
	seedSession(t, store, userID, "fun_play_client", "tok-new", time.Now().Add(-time.Minute))

	token, err := jwtAuth.GenerateToken(userID, "FUN-0042", "bob", time.Hour)
	require.NoError(t, err)

	identity, err := a.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, userID, identity.UserID)
	require.Equal(t, "fun_play_client", identity.ClientID)
	require.Equal(t, Profile{FunID: "FUN-0042", Username: "bob"}, identity.Profile)
}

func TestAuthenticateSignedTokenNoActiveSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	jwtAuth := NewJWTAuth("secret")
	a := NewAuthenticator(jwtAuth, store)

	token, err := jwtAuth.GenerateToken(uuid.NewString(), "", "", time.Hour)
	require.NoError(t, err)

	_, err = a.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Contains(t, err.Error(), "no active session")
}

func TestAuthenticateOpaqueFallback(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	a := NewAuthenticator(NewJWTAuth("secret"), store)

	userID := uuid.NewString()
	seedSession(t, store, userID, "fun_planet_client", "legacy-opaque-token", time.Now())
	require.NoError(t, store.UpsertProfile(ctx, &UserProfile{
		ID: userID, FunID: "FUN-7", Username: "carol",
	}))

	identity, err := a.Resolve(ctx, "legacy-opaque-token")
	require.NoError(t, err)
	require.Equal(t, userID, identity.UserID)
	require.Equal(t, "fun_planet_client", identity.ClientID)
	require.Equal(t, Profile{FunID: "FUN-7", Username: "carol"}, identity.Profile)
}

func TestAuthenticateOpaqueExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	a := NewAuthenticator(NewJWTAuth("secret"), store)

	require.NoError(t, store.CreateSession(ctx, &CrossPlatformToken{
		ID:                   uuid.NewString(),
		UserID:               uuid.NewString(),
		ClientID:             "fun_farm_client",
		AccessToken:          "expired-token",
		AccessTokenExpiresAt: time.Now().Add(-time.Minute),
		LastUsedAt:           time.Now(),
		CreatedAt:            time.Now(),
	}))

	_, err := a.Resolve(ctx, "expired-token")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Contains(t, err.Error(), "expired")
}

func TestAuthenticateUnknownToken(t *testing.T) {
	a := NewAuthenticator(NewJWTAuth("secret"), NewMemStore())
	_, err := a.Resolve(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateHeaderParsing(t *testing.T) {
	a := NewAuthenticator(NewJWTAuth("secret"), NewMemStore())

	r, _ := http.NewRequest(http.MethodPost, "/sso/sync-data", nil)
	_, err := a.Authenticate(context.Background(), r)
	require.ErrorIs(t, err, ErrInvalidToken)

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = a.Authenticate(context.Background(), r)
	require.ErrorIs(t, err, ErrInvalidToken)
}
