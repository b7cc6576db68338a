// Package service provides business logic for the Zotu music player.
package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// DefaultWatchDebounce is how long Watch waits for the filesystem to settle before refreshing.
const DefaultWatchDebounce = time.Second

// SupportedExtensions lists the file extensions picked up by an import.
// It matches the formats the audio output can decode.
var SupportedExtensions = []string{".mp3", ".flac", ".wav", ".ogg", ".vorbis"}

// LibraryService imports audio files into the catalog. It walks folders,
// extracts metadata, persists new tracks and replaces the catalog library.
// A file that fails extraction is reported and skipped; the rest of the
// batch goes on.
type LibraryService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	extractor ports.MetadataExtractor
	repo      ports.CatalogRepository // may be nil
	catalog   *CatalogService
	bus       ports.EventBus

	debounce time.Duration

	// State
	scanning   bool
	cancelScan context.CancelFunc

	mu sync.Mutex
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	logger *slog.Logger,
	extractor ports.MetadataExtractor,
	repo ports.CatalogRepository,
	catalog *CatalogService,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger:    logger,
		extractor: extractor,
		repo:      repo,
		catalog:   catalog,
		bus:       bus,
		debounce:  DefaultWatchDebounce,
	}
}

// SetWatchDebounce changes the settle delay used by Watch.
func (s *LibraryService) SetWatchDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// ImportFolder adds every supported file under dir that is not already in
// the library. Per-file failures are listed in the report.
func (s *LibraryService) ImportFolder(ctx context.Context, dir string) (domain.ScanReport, error) {
	return s.scan(ctx, "ImportFolder", dir, false)
}

// Refresh drops library tracks whose file no longer exists and imports new
// files under dir.
func (s *LibraryService) Refresh(ctx context.Context, dir string) (domain.ScanReport, error) {
	return s.scan(ctx, "Refresh", dir, true)
}

func (s *LibraryService) scan(ctx context.Context, op, dir string, prune bool) (domain.ScanReport, error) {
	var report domain.ScanReport

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return report, domain.NewServiceError("LibraryService", op, "not a directory: "+dir, domain.ErrInvalidFilePath)
	}

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return report, domain.ErrScanInProgress
	}
	s.scanning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	s.bus.Publish(domain.NewScanStartedEvent(dir))
	s.logger.Info("scanning folder", slog.String("dir", dir), slog.Bool("prune", prune))

	library := s.catalog.Library()
	if prune {
		var kept []domain.Track
		kept, report.Removed = s.pruneMissing(library)
		library = kept
	}

	known := lo.SliceToMap(library, func(t domain.Track) (string, struct{}) {
		return t.FilePath, struct{}{}
	})

	files, err := collectAudioFiles(ctx, dir)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.bus.Publish(domain.NewScanCancelledEvent("cancelled"))
			return report, domain.ErrScanCancelled
		}
		return report, domain.NewServiceError("LibraryService", op, "failed to walk folder", err)
	}
	files = lo.Reject(files, func(p string, _ int) bool {
		_, ok := known[p]
		return ok
	})

	for i, path := range files {
		select {
		case <-ctx.Done():
			s.bus.Publish(domain.NewScanCancelledEvent("cancelled"))
			return report, domain.ErrScanCancelled
		default:
		}

		track, err := s.extractor.Extract(path)
		if err != nil {
			s.logger.Warn("failed to import file",
				slog.String("file_path", path),
				slog.Any("error", err))
			report.Failures = append(report.Failures, domain.ScanFailure{Path: path, Err: err})
		} else {
			report.Added = append(report.Added, track)
		}

		s.bus.Publish(domain.NewScanProgressEvent(domain.ScanProgress{
			CurrentFile:  path,
			FilesScanned: i + 1,
			TotalFiles:   len(files),
			TracksFound:  len(report.Added),
		}))
	}

	if err := s.persist(report); err != nil {
		return report, domain.NewServiceError("LibraryService", op, "failed to save tracks", err)
	}

	if len(report.Added) > 0 || len(report.Removed) > 0 {
		s.catalog.UpdateLibrary(append(library, report.Added...))
	}

	s.logger.Info("scan completed",
		slog.Int("added", len(report.Added)),
		slog.Int("removed", len(report.Removed)),
		slog.Int("failed", len(report.Failures)))
	s.bus.Publish(domain.NewScanCompletedEvent(report))
	return report, nil
}

// pruneMissing splits the library into tracks whose file exists and ids of those that do not.
func (s *LibraryService) pruneMissing(library []domain.Track) ([]domain.Track, []string) {
	kept := make([]domain.Track, 0, len(library))
	var removed []string
	for _, t := range library {
		if _, err := os.Stat(t.FilePath); errors.Is(err, fs.ErrNotExist) {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}

func (s *LibraryService) persist(report domain.ScanReport) error {
	if s.repo == nil {
		return nil
	}
	if len(report.Removed) > 0 {
		if err := s.repo.DeleteTracks(report.Removed); err != nil {
			return err
		}
	}
	if len(report.Added) > 0 {
		if err := s.repo.SaveTracks(report.Added); err != nil {
			return err
		}
	}
	return nil
}

// Watch refreshes the library whenever supported files under dir change.
// Bursts of events are coalesced by the debounce delay. It blocks until ctx
// is done.
func (s *LibraryService) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.NewServiceError("LibraryService", "Watch", "failed to create watcher", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchRecursive(watcher, dir); err != nil {
		return domain.NewServiceError("LibraryService", "Watch", "failed to watch folder", err)
	}

	s.mu.Lock()
	debounce := s.debounce
	s.mu.Unlock()

	s.logger.Info("watching folder", slog.String("dir", dir))

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchRecursive(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch new folder",
							slog.String("dir", event.Name),
							slog.Any("error", err))
					}
					fire = time.After(debounce)
					continue
				}
			}
			if IsSupported(event.Name) && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				fire = time.After(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", slog.Any("error", err))

		case <-fire:
			fire = nil
			if _, err := s.Refresh(ctx, dir); err != nil && !errors.Is(err, domain.ErrScanCancelled) {
				s.logger.Warn("refresh after change failed", slog.Any("error", err))
			}
		}
	}
}

// CancelScan cancels the running import, if any.
func (s *LibraryService) CancelScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelScan != nil {
		s.cancelScan()
	}
}

// IsScanning returns true if an import is running.
func (s *LibraryService) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Shutdown cancels any running import.
func (s *LibraryService) Shutdown() error {
	s.CancelScan()
	return nil
}

// IsSupported reports whether path has one of the SupportedExtensions.
func IsSupported(path string) bool {
	return lo.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// collectAudioFiles returns the supported files under dir in lexical order.
func collectAudioFiles(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() && IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
