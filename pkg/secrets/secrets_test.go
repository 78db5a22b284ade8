package secrets

import (
	"strings"
	"testing"

	dErrors "warden/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.NoError(t, Verify("correct-horse", hash))

	err = Verify("battery-staple", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
}

func TestHash_Rejects(t *testing.T) {
	_, err := Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = Hash(strings.Repeat("a", 73))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestVerify_EmptyHash(t *testing.T) {
	err := Verify("anything", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
}
