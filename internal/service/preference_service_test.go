package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/logger"
)

// mockPreferencesRepository is an in-memory PreferencesRepository for service tests.
type mockPreferencesRepository struct {
	mu       sync.Mutex
	loopMode domain.LoopMode
	volume   float64
	musicDir string
	lastView domain.ViewKind
	saves    int
	fail     bool
}

func newMockPreferencesRepository() *mockPreferencesRepository {
	return &mockPreferencesRepository{volume: DefaultVolume}
}

func (m *mockPreferencesRepository) save(apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	apply()
	m.saves++
	return nil
}

func (m *mockPreferencesRepository) SaveLoopMode(mode domain.LoopMode) error {
	return m.save(func() { m.loopMode = mode })
}

func (m *mockPreferencesRepository) LoadLoopMode() (domain.LoopMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return domain.LoopList, errRepoDown
	}
	return m.loopMode, nil
}

func (m *mockPreferencesRepository) SaveVolume(volume float64) error {
	return m.save(func() { m.volume = volume })
}

func (m *mockPreferencesRepository) LoadVolume() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errRepoDown
	}
	return m.volume, nil
}

func (m *mockPreferencesRepository) SaveMusicDir(dir string) error {
	return m.save(func() { m.musicDir = dir })
}

func (m *mockPreferencesRepository) LoadMusicDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errRepoDown
	}
	return m.musicDir, nil
}

func (m *mockPreferencesRepository) SaveLastView(kind domain.ViewKind) error {
	return m.save(func() { m.lastView = kind })
}

func (m *mockPreferencesRepository) LoadLastView() (domain.ViewKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return domain.ViewLibrary, errRepoDown
	}
	return m.lastView, nil
}

func TestPreferenceService_Defaults(t *testing.T) {
	service := NewPreferenceService(logger.NewTestLogger(), newMockPreferencesRepository())

	assert.Equal(t, domain.LoopList, service.LoopMode())
	assert.Equal(t, DefaultVolume, service.Volume())
	assert.Empty(t, service.MusicDir())
	assert.Equal(t, domain.ViewLibrary, service.LastView())
}

func TestPreferenceService_LoadsSavedValues(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.loopMode = domain.LoopRandom
	repo.volume = 0.3
	repo.musicDir = "/music"
	repo.lastView = domain.ViewFavorites

	service := NewPreferenceService(logger.NewTestLogger(), repo)

	assert.Equal(t, domain.LoopRandom, service.LoopMode())
	assert.Equal(t, 0.3, service.Volume())
	assert.Equal(t, "/music", service.MusicDir())
	assert.Equal(t, domain.ViewFavorites, service.LastView())
}

func TestPreferenceService_LoadFailureKeepsDefaults(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.fail = true

	service := NewPreferenceService(logger.NewTestLogger(), repo)

	assert.Equal(t, domain.LoopList, service.LoopMode())
	assert.Equal(t, DefaultVolume, service.Volume())
}

func TestPreferenceService_WritesThrough(t *testing.T) {
	repo := newMockPreferencesRepository()
	service := NewPreferenceService(logger.NewTestLogger(), repo)

	require.NoError(t, service.SetLoopMode(domain.LoopSingle))
	require.NoError(t, service.SetVolume(0.5))
	require.NoError(t, service.SetMusicDir("/srv/music"))
	require.NoError(t, service.SetLastView(domain.ViewHistory))

	assert.Equal(t, domain.LoopSingle, repo.loopMode)
	assert.Equal(t, 0.5, repo.volume)
	assert.Equal(t, "/srv/music", repo.musicDir)
	assert.Equal(t, domain.ViewHistory, repo.lastView)
	assert.Equal(t, 4, repo.saves)

	assert.Equal(t, domain.LoopSingle, service.LoopMode())
	assert.Equal(t, 0.5, service.Volume())
}

func TestPreferenceService_SetVolumeValidates(t *testing.T) {
	repo := newMockPreferencesRepository()
	service := NewPreferenceService(logger.NewTestLogger(), repo)

	assert.ErrorIs(t, service.SetVolume(1.01), domain.ErrInvalidVolume)
	assert.ErrorIs(t, service.SetVolume(-1), domain.ErrInvalidVolume)
	assert.Equal(t, DefaultVolume, service.Volume())
	assert.Zero(t, repo.saves)
}

func TestPreferenceService_SaveFailureReturnsError(t *testing.T) {
	repo := newMockPreferencesRepository()
	service := NewPreferenceService(logger.NewTestLogger(), repo)
	repo.fail = true

	assert.ErrorIs(t, service.SetLoopMode(domain.LoopRandom), errRepoDown)
	assert.Equal(t, domain.LoopRandom, service.LoopMode(), "cached value follows the request")
}
