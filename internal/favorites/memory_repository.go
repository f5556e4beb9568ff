package favorites

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	favorites map[string]*Favorite
}

// NewInMemoryRepository creates a new in-memory favorites repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		favorites: make(map[string]*Favorite),
	}
}

// List returns the user's favorites, newest first.
func (r *InMemoryRepository) List(_ context.Context, userID string) ([]*Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Favorite, 0)
	for _, f := range r.favorites {
		if f.UserID == userID {
			cpy := *f
			out = append(out, &cpy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get retrieves one of the user's favorites.
func (r *InMemoryRepository) Get(_ context.Context, userID, id string) (*Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.favorites[id]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	cpy := *f
	return &cpy, nil
}

// Create stores a new favorite.
func (r *InMemoryRepository) Create(_ context.Context, f *Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clashes(f) {
		return ErrDuplicate
	}
	cpy := *f
	cpy.FormattedAddress = ""
	r.favorites[f.ID] = &cpy
	return nil
}

// Update saves changes to a favorite.
func (r *InMemoryRepository) Update(_ context.Context, f *Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.favorites[f.ID]
	if !ok || existing.UserID != f.UserID {
		return ErrNotFound
	}
	if r.clashes(f) {
		return ErrDuplicate
	}
	cpy := *f
	cpy.FormattedAddress = ""
	r.favorites[f.ID] = &cpy
	return nil
}

// Delete removes one of the user's favorites.
func (r *InMemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.favorites[id]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	delete(r.favorites, id)
	return nil
}

// clashes reports whether another favorite of the same user sits at f's
// coordinates. Callers hold the lock.
func (r *InMemoryRepository) clashes(f *Favorite) bool {
	for _, other := range r.favorites {
		if other.ID != f.ID && other.UserID == f.UserID &&
			other.Latitude == f.Latitude && other.Longitude == f.Longitude {
			return true
		}
	}
	return false
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
