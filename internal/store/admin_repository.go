package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdminRepository defines the interface for administrator account persistence.
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	Delete(ctx context.Context, username string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteAdminRepository implements AdminRepository using SQLite.
type SQLiteAdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new SQLite-backed admin repository.
func NewAdminRepository(db *sql.DB) *SQLiteAdminRepository {
	return &SQLiteAdminRepository{db: db}
}

// Create inserts a new admin account. The ID is generated if empty.
// Returns ErrUsernameExists if the username is already taken - uniqueness
// is enforced by the storage layer, not left to callers.
func (r *SQLiteAdminRepository) Create(ctx context.Context, admin *Admin) error {
	if admin.ID == "" {
		admin.ID = "adm-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	admin.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (id, username, password_hash, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		admin.ID, admin.Username, admin.PasswordHash, nullString(admin.CreatedBy), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating admin: %w", err)
	}

	return nil
}

// GetByUsername retrieves an admin by username for login verification.
func (r *SQLiteAdminRepository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_by, created_at FROM admins WHERE username = ?",
		username)

	var a Admin
	var createdBy sql.NullString
	var createdAt string

	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &createdBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("scanning admin: %w", err)
	}

	if createdBy.Valid {
		a.CreatedBy = createdBy.String
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// List returns all admin accounts ordered by creation date.
func (r *SQLiteAdminRepository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, password_hash, created_by, created_at FROM admins ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var a Admin
		var createdBy sql.NullString
		var createdAt string

		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning admin: %w", err)
		}

		if createdBy.Valid {
			a.CreatedBy = createdBy.String
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admins: %w", err)
	}

	if admins == nil {
		admins = []Admin{}
	}
	return admins, nil
}

// Delete removes an admin account by username.
func (r *SQLiteAdminRepository) Delete(ctx context.Context, username string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM admins WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("deleting admin: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// Count returns the total number of admin accounts.
func (r *SQLiteAdminRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}
