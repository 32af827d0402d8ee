// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationRules bound the generic data payload accepted by a sync request.
type ValidationRules struct {
	MaxDataSize  int      // serialized bytes of the canonical JSON form
	MaxDepth     int      // object nesting levels; arrays do not add depth
	ReservedKeys []string // rejected at any depth, case-insensitively
}

// DefaultValidationRules returns the limits enforced in production.
func DefaultValidationRules() ValidationRules {
	return ValidationRules{
		MaxDataSize:  DefaultMaxDataSize,
		MaxDepth:     DefaultMaxDepth,
		ReservedKeys: ReservedKeys,
	}
}

// IsValidSyncMode reports whether mode is one of the accepted sync modes.
func IsValidSyncMode(mode string) bool {
	switch mode {
	case SyncModeMerge, SyncModeReplace, SyncModeAppend, SyncModeDelta:
		return true
	}
	return false
}

// ValidateData runs the structural checks over a generic data payload,
// short-circuiting on the first failure: size, depth, reserved keys.
// Pure; no I/O. Returns the size of the canonical encoding on success.
func (r ValidationRules) ValidateData(data map[string]any) (int, *SyncError) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return 0, errValidationFailed("Data is not serializable", nil)
	}
	size := len(encoded)
	if size > r.MaxDataSize {
		return 0, errPayloadTooLarge(r.MaxDataSize, size)
	}

	if depth := objectDepth(data, 0); depth > r.MaxDepth {
		return 0, errValidationFailed(
			fmt.Sprintf("Data exceeds maximum nesting depth of %d", r.MaxDepth),
			map[string]any{"max_depth": r.MaxDepth, "actual_depth": depth},
		)
	}

	if key := r.findReservedKey(data); key != "" {
		return 0, errValidationFailed(
			fmt.Sprintf("Reserved key %q cannot be synced", key),
			map[string]any{"reserved_keys": r.ReservedKeys},
		)
	}

	return size, nil
}

// objectDepth returns the deepest object-nesting level in v. A non-object
// value contributes its ancestor count; arrays do not open a new level and
// their elements are not descended into.
func objectDepth(v any, current int) int {
	obj, ok := v.(map[string]any)
	if !ok {
		return current
	}
	max := current
	for _, child := range obj {
		if d := objectDepth(child, current+1); d > max {
			max = d
		}
	}
	return max
}

// findReservedKey scans v for a reserved key at any object nesting level and
// returns the offending key as the caller wrote it, or "" if none. Array
// elements are not scanned, matching the depth rule.
func (r ValidationRules) findReservedKey(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for key, child := range obj {
		lower := strings.ToLower(key)
		for _, reserved := range r.ReservedKeys {
			if lower == reserved {
				return key
			}
		}
		if _, isObj := child.(map[string]any); isObj {
			if found := r.findReservedKey(child); found != "" {
				return found
			}
		}
	}
	return ""
}
