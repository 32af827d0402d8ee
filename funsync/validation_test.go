package funsync

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

func TestValidateDataDepthBoundary(t *testing.T) {
	rules := DefaultValidationRules()

	// Exactly five nested object levels passes.
	fiveDeep := mustDecode(t, `{"a":{"b":{"c":{"d":{"e":1}}}}}`)
	size, verr := rules.ValidateData(fiveDeep)
	require.Nil(t, verr)
	require.Positive(t, size)

	// Six fails, citing the limit.
	sixDeep := mustDecode(t, `{"a":{"b":{"c":{"d":{"e":{"f":1}}}}}}`)
	_, verr = rules.ValidateData(sixDeep)
	require.NotNil(t, verr)
	require.Equal(t, ErrCodeValidationFailed, verr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, verr.Status)
	require.Equal(t, 5, verr.Details["max_depth"])
	require.Equal(t, 6, verr.Details["actual_depth"])
}

func TestValidateDataArraysDoNotAddDepth(t *testing.T) {
	rules := DefaultValidationRules()

	// Objects inside arrays are not descended into, matching the scan rule.
	data := mustDecode(t, `{"a":{"b":{"c":{"d":{"e":[{"deep":{"deeper":1}}]}}}}}`)
	_, verr := rules.ValidateData(data)
	require.Nil(t, verr)
}

func TestValidateDataSizeBoundary(t *testing.T) {
	rules := DefaultValidationRules()

	// {"k":"<filler>"} serializes to exactly MaxDataSize bytes.
	overhead := len(`{"k":""}`)
	filler := strings.Repeat("x", rules.MaxDataSize-overhead)
	data := map[string]any{"k": filler}
	size, verr := rules.ValidateData(data)
	require.Nil(t, verr)
	require.Equal(t, rules.MaxDataSize, size)

	// One byte larger fails with an accurate actual_size.
	data["k"] = filler + "x"
	_, verr = rules.ValidateData(data)
	require.NotNil(t, verr)
	require.Equal(t, ErrCodePayloadTooLarge, verr.Code)
	require.Equal(t, http.StatusRequestEntityTooLarge, verr.Status)
	require.Equal(t, rules.MaxDataSize, verr.Details["max_size"])
	require.Equal(t, rules.MaxDataSize+1, verr.Details["actual_size"])
}

func TestValidateDataReservedKeys(t *testing.T) {
	rules := DefaultValidationRules()

	tests := []struct {
		name string
		raw  string
		key  string
	}{
		{"top level", `{"user_id": 1}`, "user_id"},
		{"nested three levels", `{"a":{"b":{"user_id":1}}}`, "user_id"},
		{"case insensitive", `{"Wallet_Address":"0x0"}`, "Wallet_Address"},
		{"created_at", `{"stats":{"created_at":"now"}}`, "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verr := rules.ValidateData(mustDecode(t, tt.raw))
			require.NotNil(t, verr)
			require.Equal(t, ErrCodeValidationFailed, verr.Code)
			require.Contains(t, verr.Description, tt.key)
		})
	}

	// Reserved names inside array elements are not scanned.
	_, verr := rules.ValidateData(mustDecode(t, `{"list":[{"user_id":1}]}`))
	require.Nil(t, verr)

	// Non-reserved keys pass.
	_, verr = rules.ValidateData(mustDecode(t, `{"level":3,"tags":["a"]}`))
	require.Nil(t, verr)
}

func TestIsValidSyncMode(t *testing.T) {
	for _, mode := range []string{"merge", "replace", "append", "delta"} {
		require.True(t, IsValidSyncMode(mode), mode)
	}
	for _, mode := range []string{"", "MERGE", "overwrite", "patch"} {
		require.False(t, IsValidSyncMode(mode), mode)
	}
}
