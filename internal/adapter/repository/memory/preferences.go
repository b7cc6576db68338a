package memory

import (
	"sync"


	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

const (
	keyLoopMode = "preferences.loop_mode"
	keyVolume   = "preferences.volume"
	keyMusicDir = "preferences.music_dir"
	keyLastView = "preferences.last_view"

	defaultVolume = 0.8
)

// PreferencesRepository implements ports.PreferencesRepository over a Store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs Store
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences' repository.
func NewPreferencesRepository(prefs Store) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveVolume persists the volume level.
func (r *PreferencesRepository) SaveVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetFloat(keyVolume, volume)
	return nil
}

// LoadVolume retrieves the saved volume level.
func (r *PreferencesRepository) LoadVolume() (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.FloatWithFallback(keyVolume, defaultVolume), nil
}

// SaveLoopMode persists the loop mode by name.
func (r *PreferencesRepository) SaveLoopMode(mode domain.LoopMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyLoopMode, mode.String())
	return nil
}

// LoadLoopMode retrieves the saved loop mode.
// A value that no longer parses is reported and replaced by domain.LoopList.
func (r *PreferencesRepository) LoadLoopMode() (domain.LoopMode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mode, err := domain.ParseLoopMode(r.prefs.String(keyLoopMode))
	if err != nil {
		return domain.LoopList, domain.NewRepositoryError("load", "memory", "invalid loop mode", err)
	}
	return mode, nil
}

// SaveMusicDir persists the music directory.
func (r *PreferencesRepository) SaveMusicDir(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyMusicDir, dir)
	return nil
}

// LoadMusicDir retrieves the music directory.
func (r *PreferencesRepository) LoadMusicDir() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyMusicDir), nil
}

// SaveLastView persists the selected collection by name.
func (r *PreferencesRepository) SaveLastView(kind domain.ViewKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyLastView, kind.String())
	return nil
}

// LoadLastView retrieves the selected collection.
func (r *PreferencesRepository) LoadLastView() (domain.ViewKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, err := domain.ParseViewKind(r.prefs.String(keyLastView))
	if err != nil {
		return domain.ViewLibrary, domain.NewRepositoryError("load", "memory", "invalid view", err)
	}
	return kind, nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyLoopMode)
	r.prefs.RemoveValue(keyVolume)
	r.prefs.RemoveValue(keyMusicDir)
	r.prefs.RemoveValue(keyLastView)

	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
