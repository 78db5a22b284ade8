package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskContact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a***@example.com"},
		{"+15551234567", "***4567"},
		{"123", "***"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskContact(tt.in), tt.in)
	}
}
