package funsync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	fsync "github.com/MinhTriCamlycoin/funprofile-fork/funsync"
)

// IntegrationTestHarness runs the full sync stack against a TestContainer
// PostgreSQL: PgStore, SyncService and the HTTP handlers behind httptest.
type IntegrationTestHarness struct {
	t         *testing.T
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *fsync.PgStore
	jwtAuth   *fsync.JWTAuth
	server    *httptest.Server
	logger    *slog.Logger
}

func NewIntegrationTestHarness(t *testing.T) *IntegrationTestHarness {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in -short mode")
	}
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("funsync_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	store, err := fsync.NewPgStore(ctx, pool, logger)
	require.NoError(t, err)

	jwtAuth := fsync.NewJWTAuth("integration-test-secret")
	service := fsync.NewSyncService(store, nil, logger)
	handlers := fsync.NewHTTPSyncHandlers(service, fsync.NewAuthenticator(jwtAuth, store), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sso/sync-data", handlers.HandleSyncData)
	mux.HandleFunc("OPTIONS /sso/sync-data", handlers.HandleSyncData)
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	server := httptest.NewServer(mux)

	h := &IntegrationTestHarness{
		t:         t,
		ctx:       ctx,
		container: container,
		pool:      pool,
		store:     store,
		jwtAuth:   jwtAuth,
		server:    server,
		logger:    logger,
	}
	t.Cleanup(h.Cleanup)
	return h
}

func (h *IntegrationTestHarness) Cleanup() {
	if h.server != nil {
		h.server.Close()
	}
	if h.pool != nil {
		h.pool.Close()
	}
	if h.container != nil {
		_ = h.container.Terminate(h.ctx)
	}
}

// NewSignedUser provisions a profile and an active session, and returns
// (userID, clientID, bearer token) for a signed-token caller.
func (h *IntegrationTestHarness) NewSignedUser(funID, username, clientID string) (string, string, string) {
	userID := uuid.NewString()
	require.NoError(h.t, h.store.UpsertProfile(h.ctx, &fsync.UserProfile{
		ID: userID, FunID: funID, Username: username,
	}))

	token, err := h.jwtAuth.GenerateToken(userID, funID, username, time.Hour)
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.CreateSession(h.ctx, &fsync.CrossPlatformToken{
		ID:                   uuid.NewString(),
		UserID:               userID,
		ClientID:             clientID,
		AccessToken:          token,
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		LastUsedAt:           time.Now(),
		CreatedAt:            time.Now(),
	}))
	return userID, clientID, token
}

// NewOpaqueUser provisions a profile and a session keyed by an opaque
// (non-JWT) access token.
func (h *IntegrationTestHarness) NewOpaqueUser(funID, username, clientID string) (string, string, string) {
	userID := uuid.NewString()
	require.NoError(h.t, h.store.UpsertProfile(h.ctx, &fsync.UserProfile{
		ID: userID, FunID: funID, Username: username,
	}))

	opaque := "cpt_" + uuid.NewString()
	require.NoError(h.t, h.store.CreateSession(h.ctx, &fsync.CrossPlatformToken{
		ID:                   uuid.NewString(),
		UserID:               userID,
		ClientID:             clientID,
		AccessToken:          opaque,
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		LastUsedAt:           time.Now(),
		CreatedAt:            time.Now(),
	}))
	return userID, clientID, opaque
}

func (h *IntegrationTestHarness) Sync(token, body string) (*http.Response, []byte) {
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/sso/sync-data", strings.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, raw
}

func TestPgSyncEndToEnd(t *testing.T) {
	h := NewIntegrationTestHarness(t)
	userID, clientID, token := h.NewSignedUser("FUN-1001", "alice", "fun_farm_client")

	resp, raw := h.Sync(token, `{"sync_mode":"merge","data":{"level":3,"inventory":{"seeds":5}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var syncResp fsync.SyncResponse
	require.NoError(t, json.Unmarshal(raw, &syncResp))
	require.True(t, syncResp.Success)
	require.Equal(t, int64(1), syncResp.SyncCount)
	require.Equal(t, "FUN-1001", syncResp.User.FunID)

	row, err := h.store.GetPlatformData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, int64(1), row.SyncCount)
	require.Equal(t, "merge", row.LastSyncMode)
	require.Equal(t, float64(3), row.Data["level"])

	// Second sync deep-merges into the persisted jsonb document.
	resp, raw = h.Sync(token, `{"sync_mode":"merge","data":{"level":4,"inventory":{"water":2}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &syncResp))
	require.Equal(t, int64(2), syncResp.SyncCount)

	row, err = h.store.GetPlatformData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"level":     float64(4),
		"inventory": map[string]any{"seeds": float64(5), "water": float64(2)},
	}, row.Data)
}

func TestPgReplaceAndAppendModes(t *testing.T) {
	h := NewIntegrationTestHarness(t)
	userID, clientID, token := h.NewSignedUser("FUN-1002", "bob", "fun_play_client")

	resp, _ := h.Sync(token, `{"sync_mode":"replace","data":{"a":1,"tags":["x"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.Sync(token, `{"sync_mode":"replace","data":{"b":2}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	row, err := h.store.GetPlatformData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"b": float64(2)}, row.Data)
	require.Equal(t, "replace", row.LastSyncMode)

	// append keeps existing values and unions arrays.
	resp, _ = h.Sync(token, `{"sync_mode":"append","data":{"b":99,"tags":["y"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.Sync(token, `{"sync_mode":"append","data":{"tags":["y","z"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	row, err = h.store.GetPlatformData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, float64(2), row.Data["b"])
	require.Equal(t, []any{"y", "z"}, row.Data["tags"])
}

func TestPgFinancialDeltaAccumulation(t *testing.T) {
	h := NewIntegrationTestHarness(t)
	userID, clientID, token := h.NewSignedUser("FUN-1003", "carol", "fun_casino_client")

	resp, _ := h.Sync(token, `{"sync_mode":"delta","financial_delta":{"bet_delta":100,"win_delta":40}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw := h.Sync(token, `{"sync_mode":"delta","financial_delta":{"bet_delta":50,"loss_delta":10}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var syncResp fsync.SyncResponse
	require.NoError(t, json.Unmarshal(raw, &syncResp))
	require.NotNil(t, syncResp.FinancialData)
	require.Equal(t, float64(150), syncResp.FinancialData.TotalBet)

	row, err := h.store.GetFinancialData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, float64(150), row.Totals.TotalBet)
	require.Equal(t, float64(40), row.Totals.TotalWin)
	require.Equal(t, float64(10), row.Totals.TotalLoss)
	require.Equal(t, int64(2), row.SyncCount)

	// Absolute snapshot overwrites only the fields it names.
	resp, _ = h.Sync(token, `{"sync_mode":"merge","financial_data":{"total_bet":500}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	row, err = h.store.GetFinancialData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, float64(500), row.Totals.TotalBet)
	require.Equal(t, float64(40), row.Totals.TotalWin)
}

func TestPgOpaqueTokenFallback(t *testing.T) {
	h := NewIntegrationTestHarness(t)
	userID, clientID, opaque := h.NewOpaqueUser("FUN-1004", "dave", "fun_bridge_client")

	before, err := h.store.LatestActiveSession(h.ctx, userID)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	resp, raw := h.Sync(opaque, `{"sync_mode":"merge","data":{"bridge":true}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var syncResp fsync.SyncResponse
	require.NoError(t, json.Unmarshal(raw, &syncResp))
	require.Equal(t, fsync.Profile{FunID: "FUN-1004", Username: "dave"}, syncResp.User)

	row, err := h.store.GetPlatformData(h.ctx, userID, clientID)
	require.NoError(t, err)
	require.Equal(t, true, row.Data["bridge"])

	// Successful sync touches last_used_at on the session.
	after, err := h.store.LatestActiveSession(h.ctx, userID)
	require.NoError(t, err)
	require.True(t, after.LastUsedAt.After(before.LastUsedAt))
}

func TestPgValidationFailureWritesNothing(t *testing.T) {
	h := NewIntegrationTestHarness(t)
	userID, clientID, token := h.NewSignedUser("FUN-1005", "erin", "fun_farm_client")

	resp, _ := h.Sync(token,
		`{"sync_mode":"merge","data":{"nested":{"user_id":"spoof"}},"financial_delta":{"bet_delta":10}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	_, err := h.store.GetPlatformData(h.ctx, userID, clientID)
	require.ErrorIs(t, err, fsync.ErrNotFound)
	_, err = h.store.GetFinancialData(h.ctx, userID, clientID)
	require.ErrorIs(t, err, fsync.ErrNotFound)
}

func TestPgUnknownBearerRejected(t *testing.T) {
	h := NewIntegrationTestHarness(t)

	resp, raw := h.Sync("cpt_"+uuid.NewString(), `{"sync_mode":"merge","data":{"a":1}}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var errResp fsync.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &errResp))
	require.Equal(t, "invalid_token", errResp.Error)
}
