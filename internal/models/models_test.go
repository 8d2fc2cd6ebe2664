package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsSanitized(t *testing.T) {
	tests := []struct {
		name string
		in   Credentials
		want Credentials
	}{
		{
			name: "plain values untouched",
			in:   Credentials{Username: "vuk", Password: "s3cret pass"},
			want: Credentials{Username: "vuk", Password: "s3cret pass"},
		},
		{
			name: "username trimmed",
			in:   Credentials{Username: "  vuk\t", Password: " pw "},
			want: Credentials{Username: "vuk", Password: " pw "},
		},
		{
			name: "control characters removed",
			in:   Credentials{Username: "vu\x00k\r\n", Password: "p\x1bw"},
			want: Credentials{Username: "vuk", Password: "pw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Sanitized())
		})
	}
}

func TestSessionExpiry(t *testing.T) {
	s := &Session{
		ID:          "id",
		Username:    "vuk",
		Application: "shop",
		Area:        "admin",
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}
	assert.NoError(t, s.Validate())
	assert.False(t, s.IsExpired(time.Now()))
	assert.True(t, s.IsExpired(s.ExpiresAt))

	s.ExpiresAt = time.Now().Add(-time.Minute)
	assert.True(t, s.IsExpired(time.Now()))
	assert.Error(t, s.Validate())

	s.Username = ""
	assert.Error(t, s.Validate())
}
