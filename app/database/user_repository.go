package database

import (
	"database/sql"
	"fmt"
)

// PostgresUserRepository provides the thin identity lookups the feed core
// needs. Authentication and session issuance are external.
type PostgresUserRepository struct {
	db *DB
}

var _ UserRepository = (*PostgresUserRepository)(nil)

func NewUserRepository(db *DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, created_at, updated_at, deleted_at`

func (r *PostgresUserRepository) GetByID(id string) (*User, error) {
	var u User
	err := r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) GetOrCreateByEmail(email string) (*User, error) {
	var u User
	err := r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == nil {
		return &u, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	err = r.db.QueryRow(`
		INSERT INTO users (email)
		VALUES ($1)
		RETURNING `+userColumns+`
	`, email).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		// Lost a create race; the row exists now.
		if IsUniqueViolation(err) {
			return r.GetOrCreateByEmail(email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}
