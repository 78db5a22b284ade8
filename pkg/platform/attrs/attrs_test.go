package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	uid := uuid.MustParse("7f1d6c1e-0f7a-4c5e-9d8e-3a2b1c0d9e8f")
	list := []any{"user_id", uid, "email", "a@example.com", "count", 3, 42, "ignored", "dangling"}

	assert.Equal(t, uid.String(), ExtractString(list, "user_id"))
	assert.Equal(t, "a@example.com", ExtractString(list, "email"))
	assert.Equal(t, "3", ExtractString(list, "count"))
	assert.Equal(t, "", ExtractString(list, "missing"))
	assert.Equal(t, "", ExtractString(list, "dangling"))
}

func TestExtractBool(t *testing.T) {
	list := []any{"synthetic", true, "flag", "yes"}

	assert.True(t, ExtractBool(list, "synthetic"))
	assert.False(t, ExtractBool(list, "flag"))
	assert.False(t, ExtractBool(list, "missing"))
}
