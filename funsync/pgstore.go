// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists sync state in PostgreSQL. It does not own the pool; the
// caller manages pool lifecycle.
type PgStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgStore creates a PgStore and creates the sync tables if they don't exist.
func NewPgStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PgStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PgStore{pool: pool, logger: logger}
	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("initialize sync schema: %w", err)
	}
	return s, nil
}

func (s *PgStore) initializeSchema(ctx context.Context) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS platform_user_data (
			user_id          TEXT        NOT NULL,
			client_id        TEXT        NOT NULL,
			data             JSONB       NOT NULL DEFAULT '{}'::jsonb,
			sync_count       BIGINT      NOT NULL DEFAULT 0,
			last_sync_mode   TEXT        NOT NULL DEFAULT 'merge',
			client_timestamp TEXT,
			synced_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, client_id)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS platform_financial_data (
			user_id          TEXT           NOT NULL,
			client_id        TEXT           NOT NULL,
			total_deposit    DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_withdraw   DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_bet        DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_win        DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_loss       DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_profit     DOUBLE PRECISION NOT NULL DEFAULT 0,
			sync_count       BIGINT         NOT NULL DEFAULT 0,
			client_timestamp TEXT,
			last_sync_at     TIMESTAMPTZ    NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ    NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, client_id)
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS profiles (
			id         TEXT PRIMARY KEY,
			fun_id     TEXT NOT NULL DEFAULT '',
			username   TEXT NOT NULL DEFAULT ''
		)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS cross_platform_tokens (
			id                      TEXT        PRIMARY KEY,
			user_id                 TEXT        NOT NULL,
			client_id               TEXT        NOT NULL,
			access_token            TEXT        NOT NULL,
			access_token_expires_at TIMESTAMPTZ NOT NULL,
			is_revoked              BOOLEAN     NOT NULL DEFAULT FALSE,
			last_used_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_cross_platform_tokens_access_token
			ON cross_platform_tokens (access_token) WHERE NOT is_revoked`,

		/*language=postgresql*/ `CREATE INDEX IF NOT EXISTS idx_cross_platform_tokens_user_last_used
			ON cross_platform_tokens (user_id, last_used_at DESC) WHERE NOT is_revoked`,
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, migration := range migrations {
			if _, err := tx.Exec(ctx, migration); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
		return nil
	})
}

func (s *PgStore) GetPlatformData(ctx context.Context, userID, clientID string) (*PlatformUserData, error) {
	var row PlatformUserData
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, client_id, data, sync_count, last_sync_mode, client_timestamp, synced_at, updated_at
		FROM platform_user_data
		WHERE user_id = @user_id AND client_id = @client_id`,
		pgx.NamedArgs{"user_id": userID, "client_id": clientID},
	).Scan(&row.UserID, &row.ClientID, &data, &row.SyncCount, &row.LastSyncMode,
		&row.ClientTimestamp, &row.SyncedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get platform data: %w", err)
	}
	if err := json.Unmarshal(data, &row.Data); err != nil {
		return nil, fmt.Errorf("decode platform data document: %w", err)
	}
	return &row, nil
}

func (s *PgStore) UpsertPlatformData(ctx context.Context, row *PlatformUserData) error {
	data, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("encode platform data document: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO platform_user_data
			(user_id, client_id, data, sync_count, last_sync_mode, client_timestamp, synced_at, updated_at)
		VALUES
			(@user_id, @client_id, @data, @sync_count, @last_sync_mode, @client_timestamp, @synced_at, @updated_at)
		ON CONFLICT (user_id, client_id) DO UPDATE SET
			data             = EXCLUDED.data,
			sync_count       = EXCLUDED.sync_count,
			last_sync_mode   = EXCLUDED.last_sync_mode,
			client_timestamp = EXCLUDED.client_timestamp,
			synced_at        = EXCLUDED.synced_at,
			updated_at       = EXCLUDED.updated_at`,
		pgx.NamedArgs{
			"user_id":          row.UserID,
			"client_id":        row.ClientID,
			"data":             data,
			"sync_count":       row.SyncCount,
			"last_sync_mode":   row.LastSyncMode,
			"client_timestamp": row.ClientTimestamp,
			"synced_at":        row.SyncedAt,
			"updated_at":       row.UpdatedAt,
		})
	if err != nil {
		return fmt.Errorf("upsert platform data: %w", err)
	}
	return nil
}

func (s *PgStore) GetFinancialData(ctx context.Context, userID, clientID string) (*PlatformFinancialData, error) {
	var row PlatformFinancialData
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, client_id,
		       total_deposit, total_withdraw, total_bet, total_win, total_loss, total_profit,
		       sync_count, client_timestamp, last_sync_at, updated_at
		FROM platform_financial_data
		WHERE user_id = @user_id AND client_id = @client_id`,
		pgx.NamedArgs{"user_id": userID, "client_id": clientID},
	).Scan(&row.UserID, &row.ClientID,
		&row.Totals.TotalDeposit, &row.Totals.TotalWithdraw, &row.Totals.TotalBet,
		&row.Totals.TotalWin, &row.Totals.TotalLoss, &row.Totals.TotalProfit,
		&row.SyncCount, &row.ClientTimestamp, &row.LastSyncAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get financial data: %w", err)
	}
	return &row, nil
}

func (s *PgStore) UpsertFinancialData(ctx context.Context, row *PlatformFinancialData) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO platform_financial_data
			(user_id, client_id,
			 total_deposit, total_withdraw, total_bet, total_win, total_loss, total_profit,
			 sync_count, client_timestamp, last_sync_at, updated_at)
		VALUES
			(@user_id, @client_id,
			 @total_deposit, @total_withdraw, @total_bet, @total_win, @total_loss, @total_profit,
			 @sync_count, @client_timestamp, @last_sync_at, @updated_at)
		ON CONFLICT (user_id, client_id) DO UPDATE SET
			total_deposit    = EXCLUDED.total_deposit,
			total_withdraw   = EXCLUDED.total_withdraw,
			total_bet        = EXCLUDED.total_bet,
			total_win        = EXCLUDED.total_win,
			total_loss       = EXCLUDED.total_loss,
			total_profit     = EXCLUDED.total_profit,
			sync_count       = EXCLUDED.sync_count,
			client_timestamp = EXCLUDED.client_timestamp,
			last_sync_at     = EXCLUDED.last_sync_at,
			updated_at       = EXCLUDED.updated_at`,
		pgx.NamedArgs{
			"user_id":          row.UserID,
			"client_id":        row.ClientID,
			"total_deposit":    row.Totals.TotalDeposit,
			"total_withdraw":   row.Totals.TotalWithdraw,
			"total_bet":        row.Totals.TotalBet,
			"total_win":        row.Totals.TotalWin,
			"total_loss":       row.Totals.TotalLoss,
			"total_profit":     row.Totals.TotalProfit,
			"sync_count":       row.SyncCount,
			"client_timestamp": row.ClientTimestamp,
			"last_sync_at":     row.LastSyncAt,
			"updated_at":       row.UpdatedAt,
		})
	if err != nil {
		return fmt.Errorf("upsert financial data: %w", err)
	}
	return nil
}

func (s *PgStore) LatestActiveSession(ctx context.Context, userID string) (*CrossPlatformToken, error) {
	var row CrossPlatformToken
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, client_id, access_token, access_token_expires_at, is_revoked, last_used_at, created_at
		FROM cross_platform_tokens
		WHERE user_id = @user_id AND NOT is_revoked
		ORDER BY last_used_at DESC
		LIMIT 1`,
		pgx.NamedArgs{"user_id": userID},
	).Scan(&row.ID, &row.UserID, &row.ClientID, &row.AccessToken,
		&row.AccessTokenExpiresAt, &row.IsRevoked, &row.LastUsedAt, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest active session: %w", err)
	}
	return &row, nil
}

func (s *PgStore) TokenByAccessToken(ctx context.Context, accessToken string) (*CrossPlatformToken, *UserProfile, error) {
	var row CrossPlatformToken
	var profile UserProfile
	err := s.pool.QueryRow(ctx, `
		SELECT t.id, t.user_id, t.client_id, t.access_token, t.access_token_expires_at,
		       t.is_revoked, t.last_used_at, t.created_at,
		       COALESCE(p.id, t.user_id), COALESCE(p.fun_id, ''), COALESCE(p.username, '')
		FROM cross_platform_tokens t
		LEFT JOIN profiles p ON p.id = t.user_id
		WHERE t.access_token = @access_token AND NOT t.is_revoked`,
		pgx.NamedArgs{"access_token": accessToken},
	).Scan(&row.ID, &row.UserID, &row.ClientID, &row.AccessToken, &row.AccessTokenExpiresAt,
		&row.IsRevoked, &row.LastUsedAt, &row.CreatedAt,
		&profile.ID, &profile.FunID, &profile.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("token lookup: %w", err)
	}
	return &row, &profile, nil
}

func (s *PgStore) TouchSession(ctx context.Context, userID, clientID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE cross_platform_tokens
		SET last_used_at = @at
		WHERE user_id = @user_id AND client_id = @client_id`,
		pgx.NamedArgs{"user_id": userID, "client_id": clientID, "at": at})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *PgStore) CreateSession(ctx context.Context, row *CrossPlatformToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cross_platform_tokens
			(id, user_id, client_id, access_token, access_token_expires_at, is_revoked, last_used_at, created_at)
		VALUES
			(@id, @user_id, @client_id, @access_token, @access_token_expires_at, @is_revoked, @last_used_at, @created_at)`,
		pgx.NamedArgs{
			"id":                      row.ID,
			"user_id":                 row.UserID,
			"client_id":               row.ClientID,
			"access_token":            row.AccessToken,
			"access_token_expires_at": row.AccessTokenExpiresAt,
			"is_revoked":              row.IsRevoked,
			"last_used_at":            row.LastUsedAt,
			"created_at":              row.CreatedAt,
		})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PgStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var profile UserProfile
	err := s.pool.QueryRow(ctx, `
		SELECT id, fun_id, username FROM profiles WHERE id = @id`,
		pgx.NamedArgs{"id": userID},
	).Scan(&profile.ID, &profile.FunID, &profile.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (s *PgStore) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, fun_id, username)
		VALUES (@id, @fun_id, @username)
		ON CONFLICT (id) DO UPDATE SET
			fun_id   = EXCLUDED.fun_id,
			username = EXCLUDED.username`,
		pgx.NamedArgs{"id": profile.ID, "fun_id": profile.FunID, "username": profile.Username})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
