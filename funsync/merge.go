// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

import "encoding/json"

// Merge combines an incoming payload into the existing per-platform document
// according to the sync mode. Pure and total: inputs that passed validation
// always produce a result. The existing map is never mutated.
//
// Modes:
//   - replace: result is exactly incoming.
//   - append:  only keys absent from existing are copied in; when both sides
//     hold arrays the result is their duplicate-free union. Scalars and
//     objects already present are never overwritten.
//   - merge:   recursive deep merge. Nested objects merge key by key, arrays
//     union, scalars and mismatched types take the incoming value.
//
// The delta sync mode has no meaning for the generic document; callers map
// it to merge before calling here.
func Merge(existing, incoming map[string]any, mode string) map[string]any {
	switch mode {
	case SyncModeReplace:
		return incoming
	case SyncModeAppend:
		return appendMerge(existing, incoming)
	default:
		return deepMerge(existing, incoming)
	}
}

func appendMerge(existing, incoming map[string]any) map[string]any {
	result := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		result[k] = v
	}
	for k, v := range incoming {
		cur, present := result[k]
		if !present {
			result[k] = v
			continue
		}
		curArr, curOK := cur.([]any)
		incArr, incOK := v.([]any)
		if curOK && incOK {
			result[k] = unionArrays(curArr, incArr)
		}
		// Key already present and not two arrays: keep the existing value.
	}
	return result
}

func deepMerge(existing, incoming map[string]any) map[string]any {
	result := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		result[k] = v
	}
	for k, v := range incoming {
		switch inc := v.(type) {
		case map[string]any:
			if cur, ok := result[k].(map[string]any); ok {
				result[k] = deepMerge(cur, inc)
			} else {
				result[k] = deepMerge(map[string]any{}, inc)
			}
		case []any:
			if cur, ok := result[k].([]any); ok {
				result[k] = unionArrays(cur, inc)
			} else {
				result[k] = unionArrays(nil, inc)
			}
		default:
			result[k] = v
		}
	}
	return result
}

// unionArrays returns the duplicate-eliminating union of a and b, preserving
// first-seen order. Elements are compared by their canonical JSON encoding so
// that numbers and strings dedupe by value.
func unionArrays(a, b []any) []any {
	result := make([]any, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		key := canonicalKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, v)
	}
	for _, v := range b {
		key := canonicalKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, v)
	}
	return result
}

func canonicalKey(v any) string {
	enc, err := json.Marshal(v)
	if err != nil {
		// Only reachable for values that never arrive via JSON decoding.
		return "\x00unencodable"
	}
	return string(enc)
}
