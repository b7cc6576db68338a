// Package service provides business logic for the Zotu music player.
package service

import (
	"log/slog"
	"sync"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// DefaultVolume is used until a volume has been saved.
const DefaultVolume = 0.8

// PreferenceService caches user preferences and writes changes through to the repository.
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PreferencesRepository

	// Cached preferences
	loopMode domain.LoopMode
	volume   float64
	musicDir string
	lastView domain.ViewKind

	mu sync.RWMutex
}

// NewPreferenceService creates a new preference service and loads the saved values.
// Values that fail to load keep their defaults.
func NewPreferenceService(logger *slog.Logger, repository ports.PreferencesRepository) *PreferenceService {
	s := &PreferenceService{
		logger:     logger,
		repository: repository,
		volume:     DefaultVolume,
	}
	s.load()
	logger.Debug("preference service initialized",
		slog.String("loop_mode", s.loopMode.String()),
		slog.Float64("volume", s.volume))
	return s
}

func (s *PreferenceService) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode, err := s.repository.LoadLoopMode(); err == nil {
		s.loopMode = mode
	} else {
		s.logger.Warn("failed to load loop mode", slog.Any("error", err))
	}
	if vol, err := s.repository.LoadVolume(); err == nil {
		s.volume = vol
	} else {
		s.logger.Warn("failed to load volume", slog.Any("error", err))
	}
	if dir, err := s.repository.LoadMusicDir(); err == nil {
		s.musicDir = dir
	}
	if view, err := s.repository.LoadLastView(); err == nil {
		s.lastView = view
	}
}

// LoopMode returns the saved loop mode.
func (s *PreferenceService) LoopMode() domain.LoopMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loopMode
}

// SetLoopMode saves the loop mode.
func (s *PreferenceService) SetLoopMode(mode domain.LoopMode) error {
	s.mu.Lock()
	s.loopMode = mode
	s.mu.Unlock()
	return s.repository.SaveLoopMode(mode)
}

// Volume returns the saved volume (0.0 to 1.0).
func (s *PreferenceService) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// SetVolume saves the volume.
func (s *PreferenceService) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	return s.repository.SaveVolume(volume)
}

// MusicDir returns the saved music directory.
func (s *PreferenceService) MusicDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.musicDir
}

// SetMusicDir saves the music directory.
func (s *PreferenceService) SetMusicDir(dir string) error {
	s.mu.Lock()
	s.musicDir = dir
	s.mu.Unlock()
	return s.repository.SaveMusicDir(dir)
}

// LastView returns the collection selected in the previous session.
func (s *PreferenceService) LastView() domain.ViewKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastView
}

// SetLastView saves the selected collection.
func (s *PreferenceService) SetLastView(kind domain.ViewKind) error {
	s.mu.Lock()
	s.lastView = kind
	s.mu.Unlock()
	return s.repository.SaveLastView(kind)
}
