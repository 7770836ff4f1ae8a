package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PinRepository defines the interface for access PIN persistence.
//
// Deletion is keyed by the stable record ID, never by re-deriving a hash
// from plaintext: salted hashes are non-deterministic, so plaintext-based
// matching against stored hashes cannot work.
type PinRepository interface {
	Create(ctx context.Context, pin *Pin) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Pin, error)
	Count(ctx context.Context) (int, error)
}

// SQLitePinRepository implements PinRepository using SQLite.
type SQLitePinRepository struct {
	db *sql.DB
}

// NewPinRepository creates a new SQLite-backed PIN repository.
func NewPinRepository(db *sql.DB) *SQLitePinRepository {
	return &SQLitePinRepository{db: db}
}

// Create inserts a new PIN record. The ID is generated if empty.
// Duplicate PINs are permitted - there is no uniqueness constraint.
func (r *SQLitePinRepository) Create(ctx context.Context, pin *Pin) error {
	if pin.ID == "" {
		pin.ID = "pin-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	pin.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pins (id, pin_hash, label, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		pin.ID, pin.PinHash, nullString(pin.Label), nullString(pin.CreatedBy), now,
	)
	if err != nil {
		return fmt.Errorf("creating pin: %w", err)
	}

	return nil
}

// Delete removes a PIN record by its ID.
func (r *SQLitePinRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM pins WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting pin: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrPinNotFound
	}
	return nil
}

// List returns all PIN records. Order is by creation date, though callers
// scanning for a hash match must not rely on ordering.
func (r *SQLitePinRepository) List(ctx context.Context) ([]Pin, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, pin_hash, label, created_by, created_at FROM pins ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	defer rows.Close()

	var pins []Pin
	for rows.Next() {
		var p Pin
		var label, createdBy sql.NullString
		var createdAt string

		if err := rows.Scan(&p.ID, &p.PinHash, &label, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pin: %w", err)
		}

		if label.Valid {
			p.Label = label.String
		}
		if createdBy.Valid {
			p.CreatedBy = createdBy.String
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pins: %w", err)
	}

	if pins == nil {
		pins = []Pin{}
	}
	return pins, nil
}

// Count returns the total number of stored PINs.
func (r *SQLitePinRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pins").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pins: %w", err)
	}
	return count, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
