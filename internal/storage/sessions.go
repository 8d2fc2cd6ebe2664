package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shindakun/areagate/internal/models"
)

// ErrSessionNotFound is returned when no row matches a session id
var ErrSessionNotFound = errors.New("session not found")

// CreateSession stores a new login session
func CreateSession(db *sql.DB, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, username, application, area, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		session.ID,
		session.Username,
		session.Application,
		session.Area,
		session.ExpiresAt.Unix(),
		session.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by id
func GetSession(db *sql.DB, id string) (*models.Session, error) {
	query := `
		SELECT id, username, application, area, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`

	var (
		session   models.Session
		expiresAt int64
		createdAt int64
	)
	err := db.QueryRow(query, id).Scan(
		&session.ID,
		&session.Username,
		&session.Application,
		&session.Area,
		&expiresAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.ExpiresAt = time.Unix(expiresAt, 0)
	session.CreatedAt = time.Unix(createdAt, 0)
	return &session, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func DeleteSession(db *sql.DB, id string) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired before now
// and returns how many rows were dropped
func DeleteExpiredSessions(db *sql.DB, now time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
