// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import "encoding/json"

// REST/JSON models for the sync HTTP API

// SyncRequest is the body of a POST sync request. Identity comes from the
// Authorization header, never from the body.
type SyncRequest struct {
	SyncMode        string          `json:"sync_mode"`         // defaults to "merge"
	Data            json.RawMessage `json:"data,omitempty"`    // generic platform JSON object
	Categories      []string        `json:"categories,omitempty"`
	ClientTimestamp *string         `json:"client_timestamp,omitempty"`
	FinancialData   *FinancialPatch `json:"financial_data,omitempty"`  // absolute values
	FinancialDelta  *FinancialDelta `json:"financial_delta,omitempty"` // used only when sync_mode == "delta"
}

// SyncResponse is the success body of a sync request.
type SyncResponse struct {
	Success           bool             `json:"success"`
	SyncedAt          string           `json:"synced_at"`
	SyncMode          string           `json:"sync_mode"`
	SyncCount         int64            `json:"sync_count"`
	CategoriesUpdated []string         `json:"categories_updated"`
	DataSize          int              `json:"data_size"`
	User              Profile          `json:"user"`
	FinancialData     *FinancialTotals `json:"financial_data,omitempty"`
}

// ErrorResponse is the body of every error path. Error holds a stable code
// string for programmatic client handling.
type ErrorResponse struct {
	Error            string         `json:"error"`
	ErrorDescription string         `json:"error_description"`
	Details          map[string]any `json:"details,omitempty"`
	RetryAfter       int            `json:"retry_after,omitempty"`
}
