package favorites

import "context"

// Repository defines the interface for favorite location persistence.
// Every lookup is scoped to the owner: a favorite belonging to another user
// is reported as ErrNotFound.
type Repository interface {
	// List returns the user's favorites, newest first.
	List(ctx context.Context, userID string) ([]*Favorite, error)

	// Get retrieves one of the user's favorites.
	Get(ctx context.Context, userID, id string) (*Favorite, error)

	// Create stores a new favorite. Returns ErrDuplicate if the user already
	// saved the same coordinates.
	Create(ctx context.Context, f *Favorite) error

	// Update saves changes to a favorite. Returns ErrDuplicate if the new
	// coordinates clash with another of the user's favorites.
	Update(ctx context.Context, f *Favorite) error

	// Delete removes one of the user's favorites.
	Delete(ctx context.Context, userID, id string) error
}
