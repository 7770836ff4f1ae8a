// Package audit records access decisions and credential changes to the
// access_events table for later review.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the service.
const (
	EventPinCheck     = "pin_check"
	EventAdminLogin   = "admin_login"
	EventPinAdded     = "pin_added"
	EventPinRemoved   = "pin_removed"
	EventAdminAdded   = "admin_added"
	EventAdminRemoved = "admin_removed"
)

// AccessEvent is a single entry in the access history.
type AccessEvent struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Subject   string    `json:"subject,omitempty"`
	Granted   bool      `json:"granted"`
	Reason    string    `json:"reason,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	EventType string // optional: filter by event type
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated event results.
type ListResult struct {
	Events []AccessEvent `json:"events"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Recorder defines the interface for event persistence.
type Recorder interface {
	Record(ctx context.Context, event *AccessEvent) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRecorder persists access events to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates a new event recorder.
func NewSQLiteRecorder(db *sql.DB) *SQLiteRecorder {
	return &SQLiteRecorder{db: db}
}

// Record inserts an event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRecorder) Record(ctx context.Context, event *AccessEvent) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	granted := 0
	if event.Granted {
		granted = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_events (id, event_type, subject, granted, reason, client_ip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.EventType,
		nullableString(event.Subject), granted,
		nullableString(event.Reason), nullableString(event.ClientIP),
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting access event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns events matching the filter, ordered by most recent first.
func (r *SQLiteRecorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for event queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM access_events %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting access events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, event_type, subject, granted, reason, client_ip, created_at FROM access_events %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access events: %w", err)
	}
	defer rows.Close()

	var events []AccessEvent
	for rows.Next() {
		var event AccessEvent
		var subject, reason, clientIP sql.NullString
		var granted int
		var createdAt string

		if err := rows.Scan(&event.ID, &event.EventType,
			&subject, &granted, &reason, &clientIP, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning access event: %w", err)
		}

		event.Granted = granted != 0
		if subject.Valid {
			event.Subject = subject.String
		}
		if reason.Valid {
			event.Reason = reason.String
		}
		if clientIP.Valid {
			event.ClientIP = clientIP.String
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing access event timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = t

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access events: %w", err)
	}

	if events == nil {
		events = []AccessEvent{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
