package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoginRedirect(t *testing.T) {
	id := "9a3c2f00-0000-4000-8000-000000000000"

	tests := []struct {
		it       string
		location string
		expected string
		wantErr  bool
	}{
		{
			it:       "relative redirect",
			location: "/?id=" + id,
			expected: id,
		},
		{
			it:       "absolute redirect",
			location: "http://relay.local:8080/?id=" + id,
			expected: id,
		},
		{
			it:       "rejected back to login",
			location: "/login",
			wantErr:  true,
		},
		{
			it:       "empty location",
			location: "",
			wantErr:  true,
		},
		{
			it:       "non-uuid id",
			location: "/?id=42",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.it, func(t *testing.T) {
			got, err := parseLoginRedirect(tt.location)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoginRequiresUsername(t *testing.T) {
	_, err := Login(context.Background(), "http://localhost:8080", "")
	assert.Error(t, err)
}
