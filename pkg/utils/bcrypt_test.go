package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiKey(t *testing.T) {
	hash, err := EncryptApiKey("secret-key")
	assert.NoError(t, err)
	assert.True(t, MatchApiKey("secret-key", hash))
	assert.False(t, MatchApiKey("other-key", hash))
	assert.False(t, MatchApiKey("secret-key", "not-a-hash"))
}
