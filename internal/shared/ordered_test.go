package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderedObject(t *testing.T) {
	var keys []string
	err := DecodeOrderedObject([]byte(`{"zeta": 1, "alpha": {"x": 2}, "mid": [3]}`), func(key string, _ json.RawMessage) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestDecodeOrderedObject_EmptyAndNull(t *testing.T) {
	called := false
	fn := func(string, json.RawMessage) error {
		called = true
		return nil
	}

	require.NoError(t, DecodeOrderedObject(nil, fn))
	require.NoError(t, DecodeOrderedObject([]byte("null"), fn))
	require.NoError(t, DecodeOrderedObject([]byte("{}"), fn))
	assert.False(t, called)
}

func TestDecodeOrderedObject_RejectsArrays(t *testing.T) {
	err := DecodeOrderedObject([]byte(`[1, 2]`), func(string, json.RawMessage) error { return nil })
	assert.Error(t, err)
}
