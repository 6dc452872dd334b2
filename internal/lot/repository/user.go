package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/permissions"
)

// DirectoryUser is the locally synced copy of a user record, kept fresh by
// the user event consumer. Permission checks run against this copy so a
// slow auth service cannot stall lot operations.
type DirectoryUser struct {
	UserID      string         `db:"user_id" json:"user_id"`
	Email       string         `db:"email" json:"email"`
	Name        string         `db:"name" json:"name"`
	RoleName    string         `db:"role_name" json:"role_name"`
	Permissions pq.StringArray `db:"permissions" json:"permissions"`
	AgencyID    *string        `db:"agency_id" json:"agency_id,omitempty"`
	SyncedAt    time.Time      `db:"synced_at" json:"synced_at"`
}

// HasPermission checks the user's permission list, honoring wildcards
func (u *DirectoryUser) HasPermission(permission string) bool {
	return permissions.HasPermission(u.Permissions, permission)
}

// UserRepository handles the user directory persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID gets a directory user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*DirectoryUser, error) {
	var user DirectoryUser
	query := `SELECT * FROM user_directory WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

// Upsert creates or refreshes a directory user
func (r *UserRepository) Upsert(ctx context.Context, user *DirectoryUser) error {
	query := `
		INSERT INTO user_directory (user_id, email, name, role_name, permissions, agency_id, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET email = $2, name = $3, role_name = $4, permissions = $5, agency_id = $6, synced_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.Email, user.Name, user.RoleName, user.Permissions, user.AgencyID,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Delete evicts a directory user
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_directory WHERE user_id = $1`, userID)
	return err
}
