// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/cockroachdb/errors"

	"github.com/ceinwhe/zotu/internal/adapter/audio/mock"
	"github.com/ceinwhe/zotu/internal/adapter/audio/native"
	"github.com/ceinwhe/zotu/internal/adapter/eventbus"
	"github.com/ceinwhe/zotu/internal/adapter/metadata"
	"github.com/ceinwhe/zotu/internal/adapter/repository/memory"
	"github.com/ceinwhe/zotu/internal/adapter/repository/sqlite"
	"github.com/ceinwhe/zotu/internal/adapter/repository/yamlfile"
	"github.com/ceinwhe/zotu/internal/config"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/logger"
	"github.com/ceinwhe/zotu/internal/ports"
	"github.com/ceinwhe/zotu/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Restoring and saving the play state kept in the config file
// - Managing the application lifecycle (startup, shutdown)
type Application struct {
	// Core dependencies
	logger     *slog.Logger
	cfg        *config.Config
	configPath string

	// Infrastructure
	eventBus ports.EventBus
	output   ports.AudioOutput

	// Repositories
	catalogRepo     ports.CatalogRepository
	preferencesRepo ports.PreferencesRepository

	// Services
	catalogService    *service.CatalogService
	playbackService   *service.PlaybackService
	libraryService    *service.LibraryService
	preferenceService *service.PreferenceService

	// State
	view          domain.View
	subscriptions []domain.SubscriptionID

	mu           sync.Mutex
	shutdownOnce sync.Once
}

// Config holds application configuration.
type Config struct {
	// ConfigPath is the YAML config file. It is created with defaults when missing.
	ConfigPath string

	// UseMockAudio forces the mock audio output regardless of audio.backend
	UseMockAudio bool

	// Preferences backs the memory storage backend, e.g. a fyne.App's
	// preferences. nil uses a volatile in-memory store.
	Preferences fyne.Preferences

	// LogOutput receives log records (nil for stderr)
	LogOutput io.Writer
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		ConfigPath: config.DefaultPath(),
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(appCfg Config) (*Application, error) {
	app := &Application{configPath: appCfg.ConfigPath}

	// Step 1: Load configuration
	cfg, err := config.LoadOrCreate(appCfg.ConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	app.cfg = cfg

	// Step 2: Create logger
	loggerCfg := logger.FromSettings(cfg.Log.Level, cfg.Log.Format)
	loggerCfg.Output = appCfg.LogOutput
	app.logger = logger.NewLogger(loggerCfg)
	app.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().Version),
		slog.String("config", appCfg.ConfigPath),
		slog.String("storage", cfg.Storage.Backend))

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))

	// Step 4: Create repositories
	if err := app.openRepositories(appCfg); err != nil {
		app.Shutdown()
		return nil, err
	}

	// Step 5: Create an audio output
	if app.output, err = app.openOutput(appCfg.UseMockAudio); err != nil {
		app.Shutdown()
		return nil, err
	}

	// Step 6: Create services (with dependency injection)
	policy, err := service.ParseStalePolicy(cfg.Catalog.StaleEntries)
	if err != nil {
		app.Shutdown()
		return nil, err
	}
	app.catalogService, err = service.LoadCatalogService(
		app.logger.With(slog.String("service", "catalog")),
		app.eventBus,
		app.catalogRepo,
		policy,
	)
	if err != nil {
		app.Shutdown()
		return nil, err
	}

	app.preferenceService = service.NewPreferenceService(
		app.logger.With(slog.String("service", "preference")),
		app.preferencesRepo,
	)

	app.playbackService = service.NewPlaybackService(
		app.logger.With(slog.String("service", "playback")),
		app.output,
		app.eventBus,
		cfg.Playback.AutoNextInterval,
	)

	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		metadata.NewExtractor(
			app.logger.With(slog.String("component", "metadata")),
			config.ResolvePath(appCfg.ConfigPath, cfg.CoversDir),
		),
		app.catalogRepo,
		app.catalogService,
		app.eventBus,
	)

	// Step 7: Load saved state
	app.loadSavedState()

	// Step 8: Record listens and persist play state changes
	app.subscribe()

	return app, nil
}

// openRepositories creates the catalog and preferences repositories for the
// configured storage backend.
func (a *Application) openRepositories(appCfg Config) error {
	switch a.cfg.Storage.Backend {
	case "memory":
		var prefs memory.Store = memory.NewMapStore()
		if appCfg.Preferences != nil {
			prefs = appCfg.Preferences
		}
		a.catalogRepo = memory.NewCatalogRepository(prefs)
		a.preferencesRepo = memory.NewPreferencesRepository(prefs)
		return nil

	default:
		settings, err := sqlite.DecodeSettings(a.cfg.Storage.Settings)
		if err != nil {
			return errors.Wrap(err, "invalid sqlite settings")
		}
		settings.Path = config.ResolvePath(appCfg.ConfigPath, settings.Path)

		repo, err := sqlite.NewCatalogRepository(a.logger.With(slog.String("repository", "sqlite")), settings)
		if err != nil {
			return errors.Wrap(err, "failed to open catalog")
		}
		a.catalogRepo = repo
		a.preferencesRepo = yamlfile.NewPreferencesRepository(appCfg.ConfigPath)
		return nil
	}
}

// openOutput opens the sound device, or the mock output when audio is
// disabled. A device that cannot be opened aborts startup.
func (a *Application) openOutput(forceMock bool) (ports.AudioOutput, error) {
	if forceMock || a.cfg.Audio.Backend == "mock" {
		out := mock.NewOutput()
		out.SetLogger(a.logger.With(slog.String("output", "mock")))
		return out, nil
	}

	out, err := native.NewOutput(a.logger.With(slog.String("output", "beep")), native.Config{
		SampleRate: a.cfg.Audio.SampleRate,
		Buffer:     a.cfg.Audio.Buffer,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio output")
	}
	return out, nil
}

func (a *Application) subscribe() {
	a.subscriptions = append(a.subscriptions,
		a.eventBus.Subscribe(domain.EventTrackStarted, func(event domain.Event) {
			e := event.(domain.TrackStartedEvent)
			a.catalogService.AddToHistory(e.Track.ID)
		}),
		a.eventBus.Subscribe(domain.EventLoopModeChanged, func(event domain.Event) {
			e := event.(domain.LoopModeChangedEvent)
			if err := a.preferenceService.SetLoopMode(e.Mode); err != nil {
				a.logger.Warn("failed to save loop mode", slog.Any("error", err))
			}
		}),
		a.eventBus.Subscribe(domain.EventVolumeChanged, func(event domain.Event) {
			e := event.(domain.VolumeChangedEvent)
			if err := a.preferenceService.SetVolume(e.Volume); err != nil {
				a.logger.Warn("failed to save volume", slog.Any("error", err))
			}
		}),
	)
}

// loadSavedState restores the application state from the previous session.
func (a *Application) loadSavedState() {
	if err := a.playbackService.SetVolume(a.preferenceService.Volume()); err != nil {
		a.logger.Warn("failed to set volume", slog.Any("error", err))
	}
	a.playbackService.SetLoopMode(a.preferenceService.LoopMode())

	// a search query is not saved, so a saved search view restores as the library
	kind := a.preferenceService.LastView()
	if kind == domain.ViewSearch {
		kind = domain.ViewLibrary
	}
	a.mu.Lock()
	a.view = domain.View{Kind: kind}
	a.mu.Unlock()
}

// Catalog returns the catalog store.
func (a *Application) Catalog() *service.CatalogService {
	return a.catalogService
}

// Playback returns the playback controller.
func (a *Application) Playback() *service.PlaybackService {
	return a.playbackService
}

// Library returns the library importer.
func (a *Application) Library() *service.LibraryService {
	return a.libraryService
}

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService {
	return a.preferenceService
}

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Settings returns the loaded configuration.
func (a *Application) Settings() *config.Config {
	return a.cfg
}

// View returns the selected collection.
func (a *Application) View() domain.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// SelectView makes view the active collection and replaces the playlist
// with its tracks. It returns the number of tracks in the new playlist.
func (a *Application) SelectView(view domain.View) int {
	a.mu.Lock()
	a.view = view
	a.mu.Unlock()

	tracks := a.catalogService.Tracks(view)
	a.playbackService.SetPlaylist(tracks)

	if view.Kind != domain.ViewSearch {
		if err := a.preferenceService.SetLastView(view.Kind); err != nil {
			a.logger.Warn("failed to save view", slog.Any("error", err))
		}
	}
	return len(tracks)
}

// PlayTrack starts the track with the given id. When no playlist is set yet
// the active view is loaded first.
func (a *Application) PlayTrack(id string) error {
	track, ok := a.catalogService.GetByID(id)
	if !ok {
		return domain.ErrTrackNotFound
	}
	if !a.playbackService.HasPlaylist() {
		a.SelectView(a.View())
	}
	if !a.playbackService.PlayTrack(track) {
		return domain.NewServiceError("Application", "PlayTrack", "track could not be decoded", domain.ErrNoTrackLoaded)
	}
	return nil
}

// Import adds the supported files under dir to the library and remembers dir
// as the music directory.
func (a *Application) Import(ctx context.Context, dir string) (domain.ScanReport, error) {
	report, err := a.libraryService.ImportFolder(ctx, dir)
	if err != nil {
		return report, err
	}
	if err := a.preferenceService.SetMusicDir(dir); err != nil {
		a.logger.Warn("failed to save music directory", slog.Any("error", err))
	}
	return report, nil
}

// Run blocks until ctx is done. When a music directory is configured it is
// refreshed first and then watched for changes.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("Zotu started", slog.Int("tracks", a.catalogService.Len()))

	dir := a.cfg.MediaFile.MusicDirectory
	if dir == "" {
		dir = a.preferenceService.MusicDir()
	}
	if dir == "" {
		<-ctx.Done()
		return nil
	}

	if _, err := a.libraryService.Refresh(ctx, dir); err != nil && !errors.Is(err, domain.ErrScanCancelled) {
		a.logger.Warn("failed to refresh library", slog.String("dir", dir), slog.Any("error", err))
	}
	if err := a.libraryService.Watch(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the application.
// It is safe to call more than once.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *Application) shutdown() {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	for _, id := range a.subscriptions {
		a.eventBus.Unsubscribe(id)
	}

	// Shutdown services (in reverse order of creation)
	if a.libraryService != nil {
		if err := a.libraryService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown library service", slog.Any("error", err))
		}
	}

	if a.playbackService != nil {
		if err := a.playbackService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown playback service", slog.Any("error", err))
		}
	}

	// Shutdown audio output
	if a.output != nil {
		if err := a.output.Close(); err != nil {
			a.logger.Warn("failed to close audio output", slog.Any("error", err))
		}
	}

	if a.catalogRepo != nil {
		if err := a.catalogRepo.Close(); err != nil {
			a.logger.Warn("failed to close catalog", slog.Any("error", err))
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("failed to close event bus", slog.Any("error", err))
		}
	}

	if a.logger != nil {
		a.logger.Info("application shutdown complete")
	}
}
