// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ServiceConfig holds configuration for the sync service
type ServiceConfig struct {
	AppName         string          // Application name for logging
	ClientRateLimit int             // Syncs per minute per platform client (default 60)
	UserRateLimit   int             // Syncs per minute per user (default 120)
	Rules           ValidationRules // Payload limits; zero value means defaults

	// Optional limiter overrides, e.g. RedisLimiter for multi-instance
	// deployments. When nil, in-memory fixed-window limiters are used.
	ClientLimiter RateLimiter
	UserLimiter   RateLimiter
}

// SyncService orchestrates one sync request: rate limiting, validation,
// merge, financial accumulation, persistence, response assembly.
// Authentication happens before the service is called.
type SyncService struct {
	store         Store
	logger        *slog.Logger
	rules         ValidationRules
	clientLimiter RateLimiter
	userLimiter   RateLimiter
	now           func() time.Time
}

// NewSyncService creates a sync service over a Store.
func NewSyncService(store Store, config *ServiceConfig, logger *slog.Logger) *SyncService {
	if config == nil {
		config = &ServiceConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.AppName != "" {
		logger = logger.With("app", config.AppName)
	}

	rules := config.Rules
	if rules.MaxDataSize == 0 {
		rules.MaxDataSize = DefaultMaxDataSize
	}
	if rules.MaxDepth == 0 {
		rules.MaxDepth = DefaultMaxDepth
	}
	if rules.ReservedKeys == nil {
		rules.ReservedKeys = ReservedKeys
	}

	clientLimit := config.ClientRateLimit
	if clientLimit == 0 {
		clientLimit = DefaultClientRateLimit
	}
	userLimit := config.UserRateLimit
	if userLimit == 0 {
		userLimit = DefaultUserRateLimit
	}

	clientLimiter := config.ClientLimiter
	if clientLimiter == nil {
		clientLimiter = NewWindowLimiter(clientLimit, RateWindow)
	}
	userLimiter := config.UserLimiter
	if userLimiter == nil {
		userLimiter = NewWindowLimiter(userLimit, RateWindow)
	}

	return &SyncService{
		store:         store,
		logger:        logger,
		rules:         rules,
		clientLimiter: clientLimiter,
		userLimiter:   userLimiter,
		now:           time.Now,
	}
}

// ProcessSync runs one authenticated sync request. Taxonomy failures come
// back as *SyncError; anything else is an internal error the handler maps to
// server_error. No state is mutated on validation or rate-limit failures.
func (s *SyncService) ProcessSync(ctx context.Context, identity *Identity, req *SyncRequest) (*SyncResponse, error) {
	// Client limit first, then user limit. A denial must not consume the
	// other limiter's budget; Allow does not count denied requests.
	allowed, err := s.clientLimiter.Allow(ctx, identity.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client rate limiter: %w", err)
	}
	if !allowed {
		return nil, errRateLimitExceeded("Client rate limit exceeded. Maximum 60 syncs per minute.")
	}
	allowed, err = s.userLimiter.Allow(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("user rate limiter: %w", err)
	}
	if !allowed {
		return nil, errRateLimitExceeded("User rate limit exceeded. Maximum 120 syncs per minute across all platforms.")
	}

	syncMode := req.SyncMode
	if syncMode == "" {
		syncMode = SyncModeMerge
	}
	if !IsValidSyncMode(syncMode) {
		return nil, errValidationFailed(
			`Invalid sync_mode. Must be "merge", "replace", "append", or "delta"`, nil)
	}

	// A data value that is not a JSON object is ignored, same as an absent
	// one. Validation runs before either branch persists anything.
	data := decodeDataObject(req.Data)
	dataSize := 0
	if data != nil {
		size, verr := s.rules.ValidateData(data)
		if verr != nil {
			return nil, verr
		}
		dataSize = size
	}

	syncedAt := s.now().UTC()
	resp := &SyncResponse{
		Success:           true,
		SyncedAt:          syncedAt.Format(time.RFC3339),
		SyncMode:          syncMode,
		CategoriesUpdated: []string{},
		User:              identity.Profile,
	}

	if req.FinancialData != nil || req.FinancialDelta != nil {
		totals, err := s.syncFinancial(ctx, identity, req, syncMode, syncedAt)
		if err != nil {
			return nil, err
		}
		resp.FinancialData = totals
		resp.CategoriesUpdated = append(resp.CategoriesUpdated, CategoryFinancialData)
	}

	if data != nil {
		syncCount, err := s.syncPlatformData(ctx, identity, req, data, syncMode, syncedAt)
		if err != nil {
			return nil, err
		}
		resp.SyncCount = syncCount
		resp.DataSize = dataSize
		if len(req.Categories) > 0 {
			resp.CategoriesUpdated = append(resp.CategoriesUpdated, req.Categories...)
		} else {
			resp.CategoriesUpdated = append(resp.CategoriesUpdated, topLevelKeys(data)...)
		}
	}

	// Best effort; a sync that persisted should not fail on the session touch.
	if err := s.store.TouchSession(ctx, identity.UserID, identity.ClientID, syncedAt); err != nil {
		s.logger.Warn("failed to touch session",
			"error", err, "user_id", identity.UserID, "client_id", identity.ClientID)
	}

	s.logger.Info("synced data",
		"user_id", identity.UserID,
		"client_id", identity.ClientID,
		"mode", syncMode,
		"size", dataSize,
		"count", resp.SyncCount)

	return resp, nil
}

// syncFinancial applies either the delta or the absolute update to the
// stored counters and persists the result.
func (s *SyncService) syncFinancial(ctx context.Context, identity *Identity, req *SyncRequest, syncMode string, syncedAt time.Time) (*FinancialTotals, error) {
	existing, err := s.store.GetFinancialData(ctx, identity.UserID, identity.ClientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("financial data lookup failed", "error", err, "user_id", identity.UserID)
		return nil, errServerError("Failed to sync financial data")
	}

	current := FinancialTotals{}
	var prevSyncCount int64
	if existing != nil {
		current = existing.Totals
		prevSyncCount = existing.SyncCount
	}

	totals := current
	switch {
	case syncMode == SyncModeDelta && req.FinancialDelta != nil:
		totals = current.ApplyDelta(req.FinancialDelta)
	case req.FinancialData != nil:
		totals = current.ApplyPatch(req.FinancialData)
	}

	row := &PlatformFinancialData{
		UserID:          identity.UserID,
		ClientID:        identity.ClientID,
		Totals:          totals,
		SyncCount:       prevSyncCount + 1,
		ClientTimestamp: req.ClientTimestamp,
		LastSyncAt:      syncedAt,
		UpdatedAt:       syncedAt,
	}
	if err := s.store.UpsertFinancialData(ctx, row); err != nil {
		s.logger.Error("financial data upsert failed", "error", err, "user_id", identity.UserID)
		return nil, errServerError("Failed to sync financial data")
	}

	s.logger.Info("synced financial data",
		"user_id", identity.UserID, "client_id", identity.ClientID, "mode", syncMode)
	return &totals, nil
}

// syncPlatformData merges the validated payload into the stored document and
// persists it. Read-modify-write without a spanning transaction: concurrent
// syncs for the same (user, client) race and the last upsert wins.
func (s *SyncService) syncPlatformData(ctx context.Context, identity *Identity, req *SyncRequest, data map[string]any, syncMode string, syncedAt time.Time) (int64, error) {
	existing, err := s.store.GetPlatformData(ctx, identity.UserID, identity.ClientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("platform data lookup failed", "error", err, "user_id", identity.UserID)
		return 0, errServerError("Failed to sync data")
	}

	existingData := map[string]any{}
	var prevSyncCount int64
	if existing != nil {
		existingData = existing.Data
		prevSyncCount = existing.SyncCount
	}

	// Delta mode only changes financial semantics; the generic document
	// still deep-merges.
	effectiveMode := syncMode
	if effectiveMode == SyncModeDelta {
		effectiveMode = SyncModeMerge
	}
	merged := Merge(existingData, data, effectiveMode)

	row := &PlatformUserData{
		UserID:          identity.UserID,
		ClientID:        identity.ClientID,
		Data:            merged,
		SyncCount:       prevSyncCount + 1,
		LastSyncMode:    syncMode,
		ClientTimestamp: req.ClientTimestamp,
		SyncedAt:        syncedAt,
		UpdatedAt:       syncedAt,
	}
	if err := s.store.UpsertPlatformData(ctx, row); err != nil {
		s.logger.Error("platform data upsert failed", "error", err, "user_id", identity.UserID)
		return 0, errServerError("Failed to sync data")
	}
	return row.SyncCount, nil
}

// decodeDataObject returns the payload as a map when it is a JSON object,
// nil otherwise.
func decodeDataObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil
	}
	return obj
}

func topLevelKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
