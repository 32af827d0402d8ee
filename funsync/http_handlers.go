// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MinhTriCamlycoin/funprofile-fork/internal/auth"
)

// HTTPSyncHandlers provides the HTTP surface of the sync API
type HTTPSyncHandlers struct {
	service       *SyncService
	authenticator *Authenticator
	logger        *slog.Logger
}

// NewHTTPSyncHandlers creates a new instance of sync handlers
func NewHTTPSyncHandlers(service *SyncService, authenticator *Authenticator, logger *slog.Logger) *HTTPSyncHandlers {
	return &HTTPSyncHandlers{
		service:       service,
		authenticator: authenticator,
		logger:        logger,
	}
}

// setCORSHeaders emits the CORS headers on every response, success and error,
// so browser-based platform SDKs can call the endpoint cross-origin.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

// HandleSyncData processes one sync request: authenticate, rate limit,
// validate, merge, persist, respond.
func (h *HTTPSyncHandlers) HandleSyncData(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	// CORS preflight: headers only, no body
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest, "Method not allowed", nil, 0)
		return
	}

	ctx := r.Context()

	// Identity may already be in the context when the authenticating
	// middleware is mounted; otherwise resolve the bearer token here.
	identity := identityFromContext(ctx)
	if identity == nil {
		resolved, err := h.authenticator.Authenticate(ctx, r)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				h.writeError(w, http.StatusUnauthorized, ErrCodeInvalidToken, invalidTokenDescription(err), nil, 0)
				return
			}
			h.logger.Error("authentication failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, ErrCodeServerError, "An unexpected error occurred", nil, 0)
			return
		}
		identity = resolved
		ctx = auth.SetAuthContext(ctx, identity.UserID, identity.ClientID,
			identity.Profile.FunID, identity.Profile.Username)
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body", nil, 0)
		return
	}

	resp, err := h.service.ProcessSync(ctx, identity, &req)
	if err != nil {
		var syncErr *SyncError
		if errors.As(err, &syncErr) {
			h.writeError(w, syncErr.Status, syncErr.Code, syncErr.Description, syncErr.Details, syncErr.RetryAfter)
			return
		}
		h.logger.Error("sync processing failed",
			"error", err, "user_id", identity.UserID, "client_id", identity.ClientID)
		h.writeError(w, http.StatusInternalServerError, ErrCodeServerError, "An unexpected error occurred", nil, 0)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode sync response", "error", err, "user_id", identity.UserID)
	}
}

// Middleware authenticates the request and stores the identity in the
// context for downstream handlers. OPTIONS passes through for CORS
// preflight.
func (h *HTTPSyncHandlers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := h.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			setCORSHeaders(w)
			if errors.Is(err, ErrInvalidToken) {
				h.writeError(w, http.StatusUnauthorized, ErrCodeInvalidToken, invalidTokenDescription(err), nil, 0)
				return
			}
			h.logger.Error("authentication failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, ErrCodeServerError, "An unexpected error occurred", nil, 0)
			return
		}
		ctx := auth.SetAuthContext(r.Context(), identity.UserID, identity.ClientID,
			identity.Profile.FunID, identity.Profile.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleHealth provides a simple liveness endpoint
func (h *HTTPSyncHandlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status": "healthy", "service": "fun-profile-sync"}`))
}

// identityFromContext reconstructs the identity stored by Middleware, or
// returns nil when the handler runs standalone.
func identityFromContext(ctx context.Context) *Identity {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil
	}
	clientID, ok := auth.GetClientID(ctx)
	if !ok {
		return nil
	}
	funID, username, _ := auth.GetProfile(ctx)
	return &Identity{
		UserID:   userID,
		ClientID: clientID,
		Profile:  Profile{FunID: funID, Username: username},
	}
}

// invalidTokenDescription strips the sentinel prefix so the wire description
// carries only the human-readable sub-cause.
func invalidTokenDescription(err error) string {
	msg := err.Error()
	if trimmed, found := strings.CutPrefix(msg, ErrCodeInvalidToken+": "); found {
		return trimmed
	}
	return msg
}

// writeError writes a standardized error response
func (h *HTTPSyncHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, description string, details map[string]any, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
		Details:          details,
		RetryAfter:       retryAfter,
	}
	_ = json.NewEncoder(w).Encode(errorResponse)

	h.logger.Debug("HTTP error response",
		"status_code", statusCode,
		"error_code", errorCode,
		"description", description)
}
