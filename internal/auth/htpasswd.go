package auth

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shindakun/areagate/internal/models"
)

var (
	// ErrMalformedEntry means a credentials file line is not "user:hash"
	ErrMalformedEntry = errors.New("malformed htpasswd entry")

	// ErrUnsupportedHash means the stored hash uses a scheme we cannot check
	ErrUnsupportedHash = errors.New("unsupported htpasswd hash")

	// ErrInvalidName is returned for application, area or user names that
	// cannot be used in a credentials path or file
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidPassword means a password holds characters the login form
	// strips, so it could never be typed back
	ErrInvalidPassword = errors.New("password must not contain control characters")
)

// CredentialsPath returns the credentials file of an application area:
// {root}/{application}/configurations/{area}/.htpasswd
func CredentialsPath(root, application, area string) (string, error) {
	for _, name := range []string{application, area} {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return filepath.Join(root, application, "configurations", area, ".htpasswd"), nil
}

// HtpasswdVerifier checks credentials against an Apache style htpasswd file.
// The file is read on every call so edits take effect without a restart.
type HtpasswdVerifier struct {
	path string
	cost int
}

// NewHtpasswdVerifier creates a verifier for the file at path
func NewHtpasswdVerifier(path string) *HtpasswdVerifier {
	return &HtpasswdVerifier{
		path: path,
		cost: bcrypt.DefaultCost,
	}
}

// Path returns the credentials file location
func (v *HtpasswdVerifier) Path() string {
	return v.path
}

// Verify implements Verifier
func (v *HtpasswdVerifier) Verify(ctx context.Context, creds models.Credentials) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entries, err := v.readEntries()
	if err != nil {
		return 0, err
	}

	hash, ok := entries[creds.Username]
	if !ok {
		return UnknownUser, nil
	}

	match, err := compareHash(hash, creds.Password)
	if err != nil {
		return 0, fmt.Errorf("user %q: %w", creds.Username, err)
	}
	if !match {
		return WrongPassword, nil
	}
	return Authenticated, nil
}

// SetPassword stores a bcrypt hash for username, replacing any existing entry.
// The file and its directory are created when missing.
func (v *HtpasswdVerifier) SetPassword(username, password string) error {
	// Stored values must survive the sanitizing applied to the login form
	clean := models.Credentials{Username: username, Password: password}.Sanitized()
	if username == "" || strings.Contains(username, ":") || clean.Username != username {
		return fmt.Errorf("%w: username %q", ErrInvalidName, username)
	}
	if password == "" {
		return errors.New("password must not be empty")
	}
	if clean.Password != password {
		return ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := os.ReadFile(v.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var out bytes.Buffer
	replaced := false
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		line := scanner.Text()
		if user, _, ok := strings.Cut(line, ":"); ok && user == username {
			line = username + ":" + string(hash)
			replaced = true
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan credentials file: %w", err)
	}
	if !replaced {
		out.WriteString(username + ":" + string(hash) + "\n")
	}

	if err := os.MkdirAll(filepath.Dir(v.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	// Write to a sibling file and rename so readers never see a partial file
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}

	return nil
}

func (v *HtpasswdVerifier) readEntries() (map[string]string, error) {
	f, err := os.Open(v.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		user, hash, ok := strings.Cut(line, ":")
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("%s line %d: %w", v.path, lineNo, ErrMalformedEntry)
		}
		entries[user] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	return entries, nil
}

func compareHash(hash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2y$"), strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil

	case strings.HasPrefix(hash, "{SHA}"):
		sum := sha1.Sum([]byte(password))
		want := base64.StdEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(want), []byte(hash[len("{SHA}"):])) == 1, nil

	default:
		scheme := "crypt"
		if rest, ok := strings.CutPrefix(hash, "$"); ok {
			if id, _, found := strings.Cut(rest, "$"); found {
				scheme = "$" + id + "$"
			}
		}
		return false, fmt.Errorf("%w: %s", ErrUnsupportedHash, scheme)
	}
}
