// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuth signs and verifies cross-platform access tokens
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth creates a new JWT signer/verifier
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
	}
}

// AccessClaims are the claims carried by a signed access token. The user id
// lives in the standard 'sub' claim; fun_id and username are display fields
// echoed back in sync responses, never authoritative state.
type AccessClaims struct {
	FunID    string `json:"fun_id,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken generates a signed access token for a user
func (j *JWTAuth) GenerateToken(userID, funID, username string, expiration time.Duration) (string, error) {
	claims := &AccessClaims{
		FunID:    funID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "fun-profile-sso",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a signed access token and returns the claims
func (j *JWTAuth) ValidateToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, fmt.Errorf("missing sub (user ID) in token")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
