package favorites

import (
	"context"
	"database/sql"
	"errors"

	"github.com/meteopoint/meteopoint/internal/database"
)

// SQLiteRepository is a SQLite implementation of Repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite favorites repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns the user's favorites, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]*Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_locations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Favorite, 0)
	for rows.Next() {
		f, err := scanSQLiteFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get retrieves one of the user's favorites.
func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (*Favorite, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_locations
		WHERE id = ? AND user_id = ?
	`, id, userID)

	f, err := scanSQLiteFavorite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Create stores a new favorite.
func (r *SQLiteRepository) Create(ctx context.Context, f *Favorite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO favorite_locations (`+favoriteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.UserID, f.Name, f.Latitude, f.Longitude, f.City, f.Country, f.CreatedAt.UTC(), f.UpdatedAt.UTC())
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update saves changes to a favorite.
func (r *SQLiteRepository) Update(ctx context.Context, f *Favorite) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE favorite_locations
		SET name = ?, latitude = ?, longitude = ?, city = ?, country = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, f.Name, f.Latitude, f.Longitude, f.City, f.Country, f.UpdatedAt.UTC(), f.ID, f.UserID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireAffected(result)
}

// Delete removes one of the user's favorites.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorite_locations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteFavorite(row rowScanner) (*Favorite, error) {
	var (
		f       Favorite
		city    sql.NullString
		country sql.NullString
	)
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.Name,
		&f.Latitude,
		&f.Longitude,
		&city,
		&country,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if city.Valid {
		f.City = &city.String
	}
	if country.Valid {
		f.Country = &country.String
	}
	return &f, nil
}

// Ensure SQLiteRepository implements Repository interface.
var _ Repository = (*SQLiteRepository)(nil)
