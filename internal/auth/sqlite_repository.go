package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/meteopoint/meteopoint/internal/database"
)

// SQLiteUserRepository is a SQLite implementation of UserRepository.
type SQLiteUserRepository struct {
	db *sql.DB
}

var _ UserRepository = (*SQLiteUserRepository)(nil)

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Create creates a new user.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if database.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// FindByID finds a user by their ID.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
}

// FindByUsername finds a user by username, ignoring case.
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users WHERE username = ? COLLATE NOCASE
	`, username)
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, query, arg string) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update saves changes to an existing user.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`, user.Username, user.PasswordHash, user.UpdatedAt.UTC(), user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
