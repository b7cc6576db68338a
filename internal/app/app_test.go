package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceinwhe/zotu/internal/config"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/testutil"
)

// Helper to write a config file into a fresh directory and return its path
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio: {backend: mock}\n"+content), 0o644))
	return path
}

func newTestApplication(t *testing.T, configPath string) *Application {
	t.Helper()
	app, err := NewApplication(Config{
		ConfigPath: configPath,
		LogOutput:  io.Discard,
	})
	require.NoError(t, err)
	return app
}

// writeMusic writes short silent WAV files and returns their directory.
func writeMusic(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, wav.Encode(f, beep.Silence(format.SampleRate.N(200*time.Millisecond)), format))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "/tmp/zotu-test.yaml")

	cfg := DefaultConfig()
	assert.Equal(t, "/tmp/zotu-test.yaml", cfg.ConfigPath)
	assert.False(t, cfg.UseMockAudio)
}

func TestNewApplication(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreStorageGoroutines()...)

	path := filepath.Join(t.TempDir(), "zotu", "config.yaml")
	app, err := NewApplication(Config{ConfigPath: path, UseMockAudio: true, LogOutput: io.Discard})
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.FileExists(t, path, "a default config is written")
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "zotu.db"))

	assert.NotNil(t, app.Catalog())
	assert.NotNil(t, app.Playback())
	assert.NotNil(t, app.Library())
	assert.NotNil(t, app.Preferences())
	assert.NotNil(t, app.EventBus())
	assert.NotNil(t, app.Logger())
	assert.Equal(t, "sqlite", app.Settings().Storage.Backend)
	assert.Equal(t, domain.ViewLibrary, app.View().Kind)

	// Shutdown again should not panic
	app.Shutdown()
	app.Shutdown()
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	_, err := NewApplication(Config{
		ConfigPath: writeTestConfig(t, "play_info: {loop_mode: sideways}\n"),
		LogOutput:  io.Discard,
	})
	assert.Error(t, err)
}

func TestApplication_ImportAndPlay(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreStorageGoroutines()...)

	configPath := writeTestConfig(t, "")
	music := writeMusic(t, "one.wav", "two.wav", "three.wav")

	app := newTestApplication(t, configPath)
	defer app.Shutdown()

	report, err := app.Import(context.Background(), music)
	require.NoError(t, err)
	assert.Len(t, report.Added, 3)
	assert.Equal(t, 3, app.Catalog().Len())

	library := app.Catalog().Library()
	require.NoError(t, app.PlayTrack(library[1].ID))

	np, ok := app.Playback().NowPlaying()
	require.True(t, ok)
	assert.Equal(t, library[1].ID, np.ID)
	assert.Equal(t, 3, app.Playback().State().PlaylistLength, "the library view is loaded first")

	history := app.Catalog().History()
	require.Len(t, history, 1)
	assert.Equal(t, library[1].ID, history[0].ID)

	cfg, err := config.Read(configPath)
	require.NoError(t, err)
	assert.Equal(t, music, cfg.MediaFile.MusicDirectory)
}

func TestApplication_PlayTrack_Unknown(t *testing.T) {
	app := newTestApplication(t, writeTestConfig(t, ""))
	defer app.Shutdown()

	assert.ErrorIs(t, app.PlayTrack("missing"), domain.ErrTrackNotFound)
	assert.False(t, app.Playback().HasPlaylist())
}

func TestApplication_SelectView(t *testing.T) {
	app := newTestApplication(t, writeTestConfig(t, ""))
	defer app.Shutdown()

	_, err := app.Import(context.Background(), writeMusic(t, "alpha.wav", "beta.wav", "gamma.wav"))
	require.NoError(t, err)

	beta := app.Catalog().Search("beta")
	require.Len(t, beta, 1)
	require.True(t, app.Catalog().AddToFavorites(beta[0].ID))

	assert.Equal(t, 1, app.SelectView(domain.View{Kind: domain.ViewFavorites}))
	assert.Equal(t, 1, app.Playback().State().PlaylistLength)

	assert.Equal(t, 1, app.SelectView(domain.View{Kind: domain.ViewSearch, Query: "MM"}))
	assert.Equal(t, domain.ViewSearch, app.View().Kind)

	assert.Equal(t, 3, app.SelectView(domain.View{Kind: domain.ViewLibrary}))
}

func TestApplication_RestoresState(t *testing.T) {
	configPath := writeTestConfig(t, "")
	music := writeMusic(t, "a.wav", "b.wav")

	first := newTestApplication(t, configPath)
	_, err := first.Import(context.Background(), music)
	require.NoError(t, err)
	id := first.Catalog().Library()[0].ID
	require.True(t, first.Catalog().AddToFavorites(id))

	first.Playback().SetLoopMode(domain.LoopRandom)
	require.NoError(t, first.Playback().SetVolume(0.3))
	first.SelectView(domain.View{Kind: domain.ViewFavorites})
	first.Shutdown()

	second := newTestApplication(t, configPath)
	defer second.Shutdown()

	assert.Equal(t, 2, second.Catalog().Len())
	assert.True(t, second.Catalog().IsFavorite(id))
	assert.Equal(t, domain.LoopRandom, second.Playback().LoopMode())
	assert.InDelta(t, 0.3, second.Playback().State().Volume, 1e-9)
	assert.Equal(t, domain.ViewFavorites, second.View().Kind)
}

func TestApplication_SearchViewRestoresAsLibrary(t *testing.T) {
	app := newTestApplication(t, writeTestConfig(t, "play_info: {view: search}\n"))
	defer app.Shutdown()

	assert.Equal(t, domain.ViewLibrary, app.View().Kind)
}

func TestApplication_MemoryBackend(t *testing.T) {
	prefs := test.NewApp().Preferences()
	configPath := writeTestConfig(t, "storage: {backend: memory}\n")
	music := writeMusic(t, "x.wav")

	first, err := NewApplication(Config{ConfigPath: configPath, Preferences: prefs, LogOutput: io.Discard})
	require.NoError(t, err)
	_, err = first.Import(context.Background(), music)
	require.NoError(t, err)
	first.Playback().SetLoopMode(domain.LoopSingle)
	first.Shutdown()

	assert.NoFileExists(t, filepath.Join(filepath.Dir(configPath), "zotu.db"))

	second, err := NewApplication(Config{ConfigPath: configPath, Preferences: prefs, LogOutput: io.Discard})
	require.NoError(t, err)
	defer second.Shutdown()

	assert.Equal(t, 1, second.Catalog().Len())
	assert.Equal(t, domain.LoopSingle, second.Playback().LoopMode())
	assert.Equal(t, music, second.Preferences().MusicDir())
}

func TestApplication_MemoryBackendIsVolatile(t *testing.T) {
	configPath := writeTestConfig(t, "storage: {backend: memory}\n")

	first, err := NewApplication(Config{ConfigPath: configPath, LogOutput: io.Discard})
	require.NoError(t, err)
	_, err = first.Import(context.Background(), writeMusic(t, "x.wav"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Catalog().Len())
	first.Shutdown()

	second, err := NewApplication(Config{ConfigPath: configPath, LogOutput: io.Discard})
	require.NoError(t, err)
	defer second.Shutdown()

	assert.Zero(t, second.Catalog().Len())
}

func TestApplication_RunWithoutMusicDir(t *testing.T) {
	app := newTestApplication(t, writeTestConfig(t, ""))
	defer app.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, app.Run(ctx))
}

func TestApplication_RunRefreshesMusicDir(t *testing.T) {
	music := writeMusic(t, "song.wav")
	app := newTestApplication(t, writeTestConfig(t, "media_file: {music_directory: "+music+"}\n"))
	defer app.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	assert.Eventually(t, func() bool { return app.Catalog().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.FullString(), "Zotu")

	info.GitTag = "v1.2.0"
	assert.Contains(t, info.FullString(), "v1.2.0")
}
