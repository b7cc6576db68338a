// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"github.com/ceinwhe/zotu/internal/domain"
)

// CatalogRepository handles the persistence of the library and its favorite/history id lists.
// The catalog store only calls it at load and save boundaries.
//
// Thread-safety: Implementations must be thread-safe.
type CatalogRepository interface {
	// LoadAllTracks returns every stored track in insertion order.
	// An empty store returns an empty slice (not an error).
	LoadAllTracks() ([]domain.Track, error)

	// GetAllIDs returns the ids stored under a category.
	// History ids are returned most recent first.
	GetAllIDs(category domain.Category) ([]string, error)

	// AddToCategory stores an id under a category.
	// Adding an id that is already present refreshes its recency.
	AddToCategory(category domain.Category, id string) error

	// RemoveFromCategory deletes an id from a category.
	// Removing an absent id is a no-op.
	RemoveFromCategory(category domain.Category, id string) error

	// ClearCategory deletes every id of a category.
	ClearCategory(category domain.Category) error

	// SaveTracks inserts or replaces tracks by ID.
	SaveTracks(tracks []domain.Track) error

	// DeleteTracks removes tracks by ID. Unknown ids are ignored.
	DeleteTracks(ids []string) error

	// Close releases the underlying storage.
	Close() error
}

// PreferencesRepository handles the persistence of user preferences.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveLoopMode persists the loop mode.
	SaveLoopMode(mode domain.LoopMode) error

	// LoadLoopMode retrieves the saved loop mode.
	// If none was saved, returns domain.LoopList.
	LoadLoopMode() (domain.LoopMode, error)

	// SaveVolume persists the volume level.
	SaveVolume(volume float64) error

	// LoadVolume retrieves the saved volume level.
	// If none was saved, returns 0.8.
	LoadVolume() (float64, error)

	// SaveMusicDir persists the music directory.
	SaveMusicDir(dir string) error

	// LoadMusicDir retrieves the music directory, or "" if none was saved.
	LoadMusicDir() (string, error)

	// SaveLastView persists the collection that was last selected.
	SaveLastView(kind domain.ViewKind) error

	// LoadLastView retrieves the last selected collection.
	// If none was saved, returns domain.ViewLibrary.
	LoadLastView() (domain.ViewKind, error)
}
