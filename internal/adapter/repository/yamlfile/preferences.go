// Package yamlfile stores preferences in the play_info and media_file
// sections of the YAML config file.
package yamlfile

import (
	"github.com/ceinwhe/zotu/internal/config"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// PreferencesRepository implements ports.PreferencesRepository on top of
// config.Update. Every save rewrites the file; other sections are preserved.
//
// Thread-safe: config.Update serializes writers.
type PreferencesRepository struct {
	path string
}

// NewPreferencesRepository creates a repository backed by the config file at path.
func NewPreferencesRepository(path string) *PreferencesRepository {
	return &PreferencesRepository{path: path}
}

func (r *PreferencesRepository) read(op string) (*config.Config, error) {
	cfg, err := config.Read(r.path)
	if err != nil {
		return nil, domain.NewRepositoryError(op, "yamlfile", "failed to read config", err)
	}
	return cfg, nil
}

func (r *PreferencesRepository) update(op string, fn func(*config.Config)) error {
	if err := config.Update(r.path, fn); err != nil {
		return domain.NewRepositoryError(op, "yamlfile", "failed to update config", err)
	}
	return nil
}

// SaveLoopMode persists the loop mode.
func (r *PreferencesRepository) SaveLoopMode(mode domain.LoopMode) error {
	return r.update("save_loop_mode", func(c *config.Config) {
		c.PlayInfo.LoopMode = mode.String()
	})
}

// LoadLoopMode retrieves the saved loop mode.
func (r *PreferencesRepository) LoadLoopMode() (domain.LoopMode, error) {
	cfg, err := r.read("load_loop_mode")
	if err != nil {
		return domain.LoopList, err
	}
	return domain.ParseLoopMode(cfg.PlayInfo.LoopMode)
}

// SaveVolume persists the volume level.
func (r *PreferencesRepository) SaveVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}
	return r.update("save_volume", func(c *config.Config) {
		c.PlayInfo.SetVolume(volume)
	})
}

// LoadVolume retrieves the saved volume level.
func (r *PreferencesRepository) LoadVolume() (float64, error) {
	cfg, err := r.read("load_volume")
	if err != nil {
		return config.DefaultVolume, err
	}
	return cfg.PlayInfo.VolumeLevel(), nil
}

// SaveMusicDir persists the music directory.
func (r *PreferencesRepository) SaveMusicDir(dir string) error {
	return r.update("save_music_dir", func(c *config.Config) {
		c.MediaFile.MusicDirectory = dir
	})
}

// LoadMusicDir retrieves the music directory.
func (r *PreferencesRepository) LoadMusicDir() (string, error) {
	cfg, err := r.read("load_music_dir")
	if err != nil {
		return "", err
	}
	return cfg.MediaFile.MusicDirectory, nil
}

// SaveLastView persists the selected collection.
func (r *PreferencesRepository) SaveLastView(kind domain.ViewKind) error {
	return r.update("save_last_view", func(c *config.Config) {
		c.PlayInfo.View = kind.String()
	})
}

// LoadLastView retrieves the selected collection.
func (r *PreferencesRepository) LoadLastView() (domain.ViewKind, error) {
	cfg, err := r.read("load_last_view")
	if err != nil {
		return domain.ViewLibrary, err
	}
	return domain.ParseViewKind(cfg.PlayInfo.View)
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
