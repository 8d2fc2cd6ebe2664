package auth

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shindakun/areagate/internal/models"
)

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func shaHash(password string) string {
	sum := sha1.Sum([]byte(password))
	return "{SHA}" + base64.StdEncoding.EncodeToString(sum[:])
}

func writeHtpasswd(t *testing.T, lines ...string) *HtpasswdVerifier {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".htpasswd")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	v := NewHtpasswdVerifier(path)
	v.cost = bcrypt.MinCost
	return v
}

func TestCredentialsPath(t *testing.T) {
	path, err := CredentialsPath("private", "shop", "admin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("private", "shop", "configurations", "admin", ".htpasswd"), path)

	for _, bad := range [][2]string{{"", "admin"}, {"shop", ".."}, {"../etc", "admin"}, {"shop", `a\b`}} {
		_, err := CredentialsPath("private", bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidName, "application=%q area=%q", bad[0], bad[1])
	}
}

func TestHtpasswdVerify(t *testing.T) {
	v := writeHtpasswd(t,
		"# administrators",
		"",
		"vuk:"+bcryptHash(t, "correct horse"),
		"legacy:"+shaHash("battery staple"),
	)

	tests := []struct {
		name  string
		creds models.Credentials
		want  Outcome
	}{
		{"bcrypt match", models.Credentials{Username: "vuk", Password: "correct horse"}, Authenticated},
		{"bcrypt mismatch", models.Credentials{Username: "vuk", Password: "wrong"}, WrongPassword},
		{"sha match", models.Credentials{Username: "legacy", Password: "battery staple"}, Authenticated},
		{"sha mismatch", models.Credentials{Username: "legacy", Password: "battery"}, WrongPassword},
		{"unknown user", models.Credentials{Username: "ghost", Password: "correct horse"}, UnknownUser},
		{"comment is not a user", models.Credentials{Username: "# administrators", Password: "x"}, UnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(context.Background(), tt.creds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHtpasswdVerifyY2Prefix(t *testing.T) {
	// htpasswd -B writes $2y$ hashes
	hash := "$2y$" + strings.TrimPrefix(bcryptHash(t, "secret"), "$2a$")
	v := writeHtpasswd(t, "vuk:"+hash)

	got, err := v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, Authenticated, got)
}

func TestHtpasswdVerifyErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		v := NewHtpasswdVerifier(filepath.Join(t.TempDir(), "missing"))
		_, err := v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "x"})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed line", func(t *testing.T) {
		v := writeHtpasswd(t, "vuk:"+shaHash("x"), "garbage-without-colon")
		_, err := v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "x"})
		assert.ErrorIs(t, err, ErrMalformedEntry)
	})

	t.Run("unsupported hash", func(t *testing.T) {
		v := writeHtpasswd(t, "vuk:$apr1$salt$hash")
		_, err := v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "x"})
		assert.ErrorIs(t, err, ErrUnsupportedHash)
		assert.Contains(t, err.Error(), "$apr1$")
	})

	t.Run("cancelled context", func(t *testing.T) {
		v := writeHtpasswd(t, "vuk:"+shaHash("x"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := v.Verify(ctx, models.Credentials{Username: "vuk", Password: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHtpasswdSetPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop", "configurations", "admin", ".htpasswd")
	v := NewHtpasswdVerifier(path)
	v.cost = bcrypt.MinCost

	require.NoError(t, v.SetPassword("vuk", "first"))
	require.NoError(t, v.SetPassword("ana", "other"))
	require.NoError(t, v.SetPassword("vuk", "second"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "vuk:"))
	assert.Equal(t, 1, strings.Count(string(data), "ana:"))

	got, err := v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "second"})
	require.NoError(t, err)
	assert.Equal(t, Authenticated, got)

	got, err = v.Verify(context.Background(), models.Credentials{Username: "vuk", Password: "first"})
	require.NoError(t, err)
	assert.Equal(t, WrongPassword, got)

	assert.ErrorIs(t, v.SetPassword("bad:name", "x"), ErrInvalidName)
	assert.ErrorIs(t, v.SetPassword(" vuk", "x"), ErrInvalidName)
	assert.ErrorIs(t, v.SetPassword("vuk", "tab\tinside"), ErrInvalidPassword)
	assert.ErrorIs(t, v.SetPassword("vuk", "line\nbreak"), ErrInvalidPassword)
	assert.Error(t, v.SetPassword("vuk", ""))
}
