package favorites

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meteopoint/meteopoint/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL favorites repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const favoriteColumns = `id, user_id, name, latitude, longitude, city, country, created_at, updated_at`

// List returns the user's favorites, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*Favorite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_locations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Favorite, 0)
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get retrieves one of the user's favorites.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*Favorite, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+favoriteColumns+`
		FROM favorite_locations
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	f, err := scanFavorite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Create stores a new favorite.
func (r *PostgresRepository) Create(ctx context.Context, f *Favorite) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorite_locations (`+favoriteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.UserID, f.Name, f.Latitude, f.Longitude, f.City, f.Country, f.CreatedAt, f.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update saves changes to a favorite.
func (r *PostgresRepository) Update(ctx context.Context, f *Favorite) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE favorite_locations
		SET name = $3, latitude = $4, longitude = $5, city = $6, country = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
	`, f.ID, f.UserID, f.Name, f.Latitude, f.Longitude, f.City, f.Country, f.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the user's favorites.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM favorite_locations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFavorite(row pgx.Row) (*Favorite, error) {
	var f Favorite
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.Name,
		&f.Latitude,
		&f.Longitude,
		&f.City,
		&f.Country,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
