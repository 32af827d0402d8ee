// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store for unit tests and single-binary demos.
// Not for production: state is lost on restart and not shared across
// instances.
type MemStore struct {
	mu        sync.RWMutex
	platform  map[string]*PlatformUserData      // key: userID|clientID
	financial map[string]*PlatformFinancialData // key: userID|clientID
	tokens    []*CrossPlatformToken
	profiles  map[string]*UserProfile
}

func NewMemStore() *MemStore {
	return &MemStore{
		platform:  make(map[string]*PlatformUserData),
		financial: make(map[string]*PlatformFinancialData),
		profiles:  make(map[string]*UserProfile),
	}
}

func pairKey(userID, clientID string) string {
	return userID + "|" + clientID
}

func (m *MemStore) GetPlatformData(_ context.Context, userID, clientID string) (*PlatformUserData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.platform[pairKey(userID, clientID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MemStore) UpsertPlatformData(_ context.Context, row *PlatformUserData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	m.platform[pairKey(row.UserID, row.ClientID)] = &cp
	return nil
}

func (m *MemStore) GetFinancialData(_ context.Context, userID, clientID string) (*PlatformFinancialData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.financial[pairKey(userID, clientID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MemStore) UpsertFinancialData(_ context.Context, row *PlatformFinancialData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	m.financial[pairKey(row.UserID, row.ClientID)] = &cp
	return nil
}

func (m *MemStore) LatestActiveSession(_ context.Context, userID string) (*CrossPlatformToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *CrossPlatformToken
	for _, tok := range m.tokens {
		if tok.UserID != userID || tok.IsRevoked {
			continue
		}
		if latest == nil || tok.LastUsedAt.After(latest.LastUsedAt) {
			latest = tok
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MemStore) TokenByAccessToken(_ context.Context, accessToken string) (*CrossPlatformToken, *UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tok := range m.tokens {
		if tok.AccessToken != accessToken || tok.IsRevoked {
			continue
		}
		cp := *tok
		profile := &UserProfile{ID: tok.UserID}
		if p, ok := m.profiles[tok.UserID]; ok {
			cpp := *p
			profile = &cpp
		}
		return &cp, profile, nil
	}
	return nil, nil, ErrNotFound
}

func (m *MemStore) TouchSession(_ context.Context, userID, clientID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.tokens {
		if tok.UserID == userID && tok.ClientID == clientID {
			tok.LastUsedAt = at
		}
	}
	return nil
}

func (m *MemStore) CreateSession(_ context.Context, row *CrossPlatformToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	m.tokens = append(m.tokens, &cp)
	return nil
}

func (m *MemStore) GetProfile(_ context.Context, userID string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

func (m *MemStore) UpsertProfile(_ context.Context, profile *UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}
