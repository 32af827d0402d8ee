// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	clientIDKey contextKey = "client_id"
	funIDKey    contextKey = "fun_id"
	usernameKey contextKey = "username"
)

// SetAuthContext stores the resolved identity of a sync request in the context
func SetAuthContext(ctx context.Context, userID, clientID, funID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, clientIDKey, clientID)
	ctx = context.WithValue(ctx, funIDKey, funID)
	return context.WithValue(ctx, usernameKey, username)
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// GetClientID retrieves the platform client ID from the context
func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(clientIDKey).(string)
	return clientID, ok
}

// GetProfile retrieves the display profile fields from the context
func GetProfile(ctx context.Context) (funID, username string, ok bool) {
	funID, ok = ctx.Value(funIDKey).(string)
	if !ok {
		return "", "", false
	}
	username, ok = ctx.Value(usernameKey).(string)
	return funID, username, ok
}
