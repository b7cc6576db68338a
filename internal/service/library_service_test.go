package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceinwhe/zotu/internal/adapter/audio/mock"
	"github.com/ceinwhe/zotu/internal/adapter/eventbus"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/logger"
)

// Helper to create a test library service over an empty catalog
func newTestLibraryService() (*LibraryService, *CatalogService, *mockCatalogRepository, *mock.Extractor, *eventbus.SyncEventBus) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	repo := newMockCatalogRepository()
	catalog := NewCatalogService(log, bus, repo, nil, nil, nil, StalePurge)
	extractor := mock.NewExtractor()
	service := NewLibraryService(log, extractor, repo, catalog, bus)
	return service, catalog, repo, extractor, bus
}

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
		paths[i] = path
	}
	return paths
}

func titles(tracks []domain.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("/music/a.mp3"))
	assert.True(t, IsSupported("/music/b.FLAC"))
	assert.True(t, IsSupported("c.ogg"))
	assert.False(t, IsSupported("d.m4a"), "no decoder")
	assert.False(t, IsSupported("e.aac"), "no decoder")
	assert.False(t, IsSupported("cover.jpg"))
	assert.False(t, IsSupported("notes"))
}

func TestLibraryService_ImportFolder(t *testing.T) {
	service, catalog, repo, _, bus := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "b.mp3", "a.flac", "cover.jpg", "sub/c.wav")

	var progress []domain.ScanProgress
	bus.Subscribe(domain.EventScanProgress, func(e domain.Event) {
		progress = append(progress, e.(domain.ScanProgressEvent).Progress)
	})
	var completed bool
	bus.Subscribe(domain.EventScanCompleted, func(domain.Event) { completed = true })

	report, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, report.Added, 3)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"a", "b", "c"}, titles(catalog.Library()), "walk order is lexical")

	stored, err := repo.LoadAllTracks()
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	require.Len(t, progress, 3)
	assert.Equal(t, 3, progress[2].FilesScanned)
	assert.Equal(t, 3, progress[2].TotalFiles)
	assert.True(t, completed)
	assert.False(t, service.IsScanning())
}

func TestLibraryService_ImportFolderSkipsUndecodableFormats(t *testing.T) {
	service, catalog, _, extractor, _ := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.m4a", "b.aac", "c.mp3")

	report, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, report.Added, 1)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, extractor.Calls())
	assert.Equal(t, []string{"c"}, titles(catalog.Library()))
}

func TestLibraryService_ImportFolderSkipsKnownFiles(t *testing.T) {
	service, catalog, _, extractor, _ := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3")

	_, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, extractor.Calls())

	writeFiles(t, dir, "c.mp3")
	report, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, report.Added, 1)
	assert.Equal(t, 3, extractor.Calls())
	assert.Equal(t, 3, catalog.Len())
}

func TestLibraryService_ImportFolderReportsFailures(t *testing.T) {
	service, catalog, _, extractor, _ := newTestLibraryService()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "good.mp3", "broken.mp3")
	extractor.SetFailPath(paths[1])

	report, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err, "a bad file does not fail the batch")

	require.Len(t, report.Failures, 1)
	assert.Equal(t, paths[1], report.Failures[0].Path)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrUnsupportedFormat)
	assert.Equal(t, []string{"good"}, titles(catalog.Library()))
}

func TestLibraryService_ImportFolderInvalidDir(t *testing.T) {
	service, _, _, _, _ := newTestLibraryService()

	_, err := service.ImportFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)

	file := writeFiles(t, t.TempDir(), "a.mp3")[0]
	_, err = service.ImportFolder(context.Background(), file)
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)
}

func TestLibraryService_ImportFolderCancelled(t *testing.T) {
	service, catalog, _, _, bus := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3")

	var cancelled bool
	bus.Subscribe(domain.EventScanCancelled, func(domain.Event) { cancelled = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.ImportFolder(ctx, dir)
	assert.ErrorIs(t, err, domain.ErrScanCancelled)
	assert.True(t, cancelled)
	assert.Zero(t, catalog.Len())
	assert.False(t, service.IsScanning())
}

func TestLibraryService_ImportFolderRepositoryFailure(t *testing.T) {
	service, catalog, repo, _, _ := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3")
	repo.setFail(true)

	_, err := service.ImportFolder(context.Background(), dir)
	require.Error(t, err)

	var svcErr *domain.ServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, errRepoDown)
	assert.Zero(t, catalog.Len(), "library unchanged when saving fails")
}

func TestLibraryService_RefreshPrunesMissingFiles(t *testing.T) {
	service, catalog, repo, _, _ := newTestLibraryService()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.mp3", "b.mp3")

	_, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)
	gone := catalog.Library()[1]
	require.True(t, catalog.AddToFavorites(gone.ID))
	require.True(t, catalog.AddToHistory(gone.ID))

	require.NoError(t, os.Remove(paths[1]))
	writeFiles(t, dir, "c.mp3")

	report, err := service.Refresh(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{gone.ID}, report.Removed)
	assert.Len(t, report.Added, 1)
	assert.Equal(t, []string{"a", "c"}, titles(catalog.Library()))
	assert.Empty(t, catalog.Favorites(), "stale favorite purged from the view")

	stored, err := repo.LoadAllTracks()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, titles(stored))

	favorites, err := repo.GetAllIDs(domain.CategoryFavorite)
	require.NoError(t, err)
	assert.Empty(t, favorites, "pruned track leaves no stored favorite")
	history, err := repo.GetAllIDs(domain.CategoryHistory)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLibraryService_ConcurrentScanRejected(t *testing.T) {
	service, _, _, _, bus := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3")

	var second error
	var once sync.Once
	bus.Subscribe(domain.EventScanProgress, func(domain.Event) {
		once.Do(func() {
			_, second = service.ImportFolder(context.Background(), dir)
		})
	})

	_, err := service.ImportFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.ErrorIs(t, second, domain.ErrScanInProgress)
}

func TestLibraryService_CancelScanFromHandler(t *testing.T) {
	service, _, _, _, bus := newTestLibraryService()
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3", "c.mp3")

	bus.Subscribe(domain.EventScanProgress, func(domain.Event) {
		service.CancelScan()
	})

	report, err := service.ImportFolder(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrScanCancelled)
	assert.Len(t, report.Added, 1)
}

func TestLibraryService_Watch(t *testing.T) {
	service, catalog, _, _, _ := newTestLibraryService()
	service.SetWatchDebounce(20 * time.Millisecond)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Watch(ctx, dir)
	}()

	// keep creating files until the watcher is registered and picks one up
	n := 0
	require.Eventually(t, func() bool {
		n++
		writeFiles(t, dir, fmt.Sprintf("track%02d.mp3", n))
		return catalog.Len() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestLibraryService_WatchInvalidDir(t *testing.T) {
	service, _, _, _, _ := newTestLibraryService()

	err := service.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
