package storage

import (
	"context"
	"errors"
)

var (
	// ErrDuplicate is returned when an identical entry is already stored
	ErrDuplicate = errors.New("storage: duplicate entry")

	// ErrNotFound is returned when the entry to change does not exist
	ErrNotFound = errors.New("storage: no such entry")
)

// Storage is a common interface for the phonebook backends.
// Implementations must be safe for concurrent use and must enforce
// uniqueness of the full tuple themselves
type Storage interface {
	// List returns every entry ordered by surname. An empty directory is a nil slice, not an error
	List(ctx context.Context) ([]Entry, error)

	// Exists reports whether an entry equal in all four fields is stored
	Exists(ctx context.Context, e Entry) (bool, error)

	// Insert adds the entry. Returns ErrDuplicate if an identical entry exists
	Insert(ctx context.Context, e Entry) error

	// Delete removes the entry matching all four fields and returns the number of rows removed
	Delete(ctx context.Context, e Entry) (int64, error)

	// Update replaces old with updated atomically.
	// Returns ErrNotFound if old is absent and ErrDuplicate if updated collides with another entry
	Update(ctx context.Context, old, updated Entry) error

	// Search returns entries whose surname contains fragment, ignoring ASCII case, ordered by surname
	Search(ctx context.Context, fragment string) ([]Entry, error)

	// Close releases the backend resources
	Close() error
}
