package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shindakun/areagate/internal/models"
)

// RecordLoginEvent appends an entry to the audit trail.
// ID and CreatedAt are filled in when empty.
func RecordLoginEvent(db *sql.DB, event *models.LoginEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO login_events (id, username, application, area, outcome, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		event.ID,
		event.Username,
		event.Application,
		event.Area,
		string(event.Outcome),
		event.RemoteAddr,
		event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record login event: %w", err)
	}

	return nil
}

// ListLoginEvents returns the most recent events for a username, newest first.
// An empty username lists events for every user.
func ListLoginEvents(db *sql.DB, username string, limit int) ([]models.LoginEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, username, application, area, outcome, remote_addr, created_at
		FROM login_events
		WHERE (? = '' OR username = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := db.Query(query, username, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list login events: %w", err)
	}
	defer rows.Close()

	var events []models.LoginEvent
	for rows.Next() {
		var (
			event      models.LoginEvent
			outcome    string
			remoteAddr sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(
			&event.ID,
			&event.Username,
			&event.Application,
			&event.Area,
			&outcome,
			&remoteAddr,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan login event: %w", err)
		}
		event.Outcome = models.LoginOutcome(outcome)
		event.RemoteAddr = remoteAddr.String
		event.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate login events: %w", err)
	}

	return events, nil
}
