// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"context"
	"sync"
	"time"
)

// RateLimiter gates sync requests per key (client id or user id). The sync
// service holds two independent instances so that a denial from one never
// consumes the other's budget.
type RateLimiter interface {
	// Allow records one request for key and reports whether it is within
	// the limit. A denied request is not counted.
	Allow(ctx context.Context, key string) (bool, error)
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// WindowLimiter is a fixed-window counter held in process memory. State
// lives for the process lifetime only: limits reset on restart and are not
// shared across instances. A key can burst up to twice the limit across a
// window boundary; that is the accepted approximation, not a bug.
type WindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWindowLimiter creates an in-memory fixed-window limiter and starts a
// background sweep that drops expired entries.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	l := &WindowLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *WindowLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		l.entries[key] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	if entry.count >= l.limit {
		return false, nil
	}
	entry.count++
	return true, nil
}

// Close stops the background sweep goroutine. Call on shutdown.
func (l *WindowLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *WindowLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, entry := range l.entries {
				if now.After(entry.resetAt) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
