package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[payload](`{"name": "aspirin"}`)
	require.NoError(t, err)
	assert.Equal(t, "aspirin", got.Name)
}

func TestParseJSONStripsMarkdownFence(t *testing.T) {
	response := "Here is the result:\n```json\n{\"name\": \"aspirin\"}\n```\nDone."
	got, err := ParseJSON[payload](response)
	require.NoError(t, err)
	assert.Equal(t, "aspirin", got.Name)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[payload]("no json here")
	assert.Error(t, err)
}

func TestParseJSONUnterminated(t *testing.T) {
	_, err := ParseJSON[payload](`{"name": "aspirin"`)
	assert.Error(t, err)
}

func TestParseJSONInvalidPayload(t *testing.T) {
	_, err := ParseJSON[payload](`{"name": 42}`)
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab...", TruncateRunes("abcdef", 2))
	assert.Equal(t, "abcdef", TruncateRunes("abcdef", 0))
	// Rune-aware, never splits a multi-byte character.
	assert.Equal(t, "αβ...", TruncateRunes("αβγδ", 2))
}
