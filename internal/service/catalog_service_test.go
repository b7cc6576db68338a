package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceinwhe/zotu/internal/adapter/eventbus"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/logger"
)

// mockCatalogRepository is an in-memory CatalogRepository for service tests.
type mockCatalogRepository struct {
	mu     sync.Mutex
	tracks []domain.Track
	ids    map[domain.Category][]string
	fail   bool
}

func newMockCatalogRepository() *mockCatalogRepository {
	return &mockCatalogRepository{ids: make(map[domain.Category][]string)}
}

var errRepoDown = errors.New("repository down")

func (m *mockCatalogRepository) LoadAllTracks() ([]domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errRepoDown
	}
	return append([]domain.Track(nil), m.tracks...), nil
}

func (m *mockCatalogRepository) GetAllIDs(c domain.Category) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errRepoDown
	}
	return append([]string(nil), m.ids[c]...), nil
}

func (m *mockCatalogRepository) AddToCategory(c domain.Category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	m.ids[c] = append(removeID(m.ids[c], id), id)
	if c == domain.CategoryHistory {
		// history is read back most recent first
		m.ids[c] = append([]string{id}, removeID(m.ids[c], id)...)
	}
	return nil
}

func (m *mockCatalogRepository) RemoveFromCategory(c domain.Category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	m.ids[c] = removeID(m.ids[c], id)
	return nil
}

func (m *mockCatalogRepository) ClearCategory(c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	delete(m.ids, c)
	return nil
}

func (m *mockCatalogRepository) SaveTracks(tracks []domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	m.tracks = append(m.tracks, tracks...)
	return nil
}

func (m *mockCatalogRepository) DeleteTracks(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errRepoDown
	}
	for _, id := range ids {
		for i, t := range m.tracks {
			if t.ID == id {
				m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *mockCatalogRepository) Close() error { return nil }

func (m *mockCatalogRepository) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *mockCatalogRepository) idsOf(c domain.Category) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids[c]...)
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Helper to create a test track
func createTestTrack(id, title string) domain.Track {
	return domain.Track{
		ID:       id,
		Title:    title,
		Artist:   "Test Artist",
		Album:    "Test Album",
		Duration: 3 * time.Minute,
		FilePath: "/music/" + id + ".mp3",
	}
}

func createTestTracks(n int) []domain.Track {
	tracks := make([]domain.Track, n)
	for i := range tracks {
		tracks[i] = createTestTrack(fmt.Sprintf("t%03d", i), fmt.Sprintf("Song %d", i))
	}
	return tracks
}

// Helper to create a test catalog service
func newTestCatalogService(library []domain.Track, favorites, history []string) (*CatalogService, *mockCatalogRepository, *eventbus.SyncEventBus) {
	bus := eventbus.NewSyncEventBus(nil)
	repo := newMockCatalogRepository()
	service := NewCatalogService(logger.NewTestLogger(), bus, repo, library, favorites, history, StalePurge)
	return service, repo, bus
}

func ids(tracks []domain.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestCatalogService_IsFavorite(t *testing.T) {
	library := []domain.Track{createTestTrack("A", "a"), createTestTrack("B", "b"), createTestTrack("C", "c")}
	service, _, _ := newTestCatalogService(library, []string{"B"}, nil)

	assert.True(t, service.IsFavorite("B"))
	assert.False(t, service.IsFavorite("A"))
	assert.False(t, service.IsFavorite("unknown"))
}

func TestCatalogService_CreateDropsUnknownAndDuplicateIDs(t *testing.T) {
	library := createTestTracks(3)
	service, _, _ := newTestCatalogService(library,
		[]string{"t001", "ghost", "t001", "t000"},
		[]string{"t002", "ghost", "t002"})

	assert.Equal(t, []string{"t001", "t000"}, ids(service.Favorites()))
	assert.Equal(t, []string{"t002"}, ids(service.History()))
}

func TestCatalogService_CreateCapsHistory(t *testing.T) {
	library := createTestTracks(150)
	service, _, _ := newTestCatalogService(library, nil, ids(library))

	history := service.History()
	require.Len(t, history, domain.MaxHistory)
	assert.Equal(t, "t000", history[0].ID)
}

func TestCatalogService_GetByID(t *testing.T) {
	service, _, _ := newTestCatalogService(createTestTracks(2), nil, nil)

	track, ok := service.GetByID("t001")
	require.True(t, ok)
	assert.Equal(t, "Song 1", track.Title)

	_, ok = service.GetByID("nope")
	assert.False(t, ok)
}

func TestCatalogService_AddToFavorites(t *testing.T) {
	service, repo, bus := newTestCatalogService(createTestTracks(3), nil, nil)

	var added []domain.FavoriteAddedEvent
	bus.Subscribe(domain.EventFavoriteAdded, func(e domain.Event) {
		added = append(added, e.(domain.FavoriteAddedEvent))
	})

	assert.True(t, service.AddToFavorites("t002"))
	assert.True(t, service.AddToFavorites("t000"))
	assert.False(t, service.AddToFavorites("t002"), "already favorited")
	assert.False(t, service.AddToFavorites("ghost"), "unknown id")

	assert.Equal(t, []string{"t002", "t000"}, ids(service.Favorites()))
	require.Len(t, added, 2)
	assert.Equal(t, "t002", added[0].Track.ID)
	assert.Equal(t, []string{"t002", "t000"}, repo.idsOf(domain.CategoryFavorite))
}

func TestCatalogService_RemoveFromFavorites(t *testing.T) {
	service, repo, bus := newTestCatalogService(createTestTracks(3), []string{"t000", "t001"}, nil)
	repo.ids[domain.CategoryFavorite] = []string{"t000", "t001"}

	var removed []string
	bus.Subscribe(domain.EventFavoriteRemoved, func(e domain.Event) {
		removed = append(removed, e.(domain.FavoriteRemovedEvent).TrackID)
	})

	assert.True(t, service.RemoveFromFavorites("t000"))
	assert.False(t, service.RemoveFromFavorites("t000"))
	assert.False(t, service.RemoveFromFavorites("ghost"))

	assert.Equal(t, []string{"t001"}, ids(service.Favorites()))
	assert.False(t, service.IsFavorite("t000"))
	assert.Equal(t, []string{"t000"}, removed)
	assert.Equal(t, []string{"t001"}, repo.idsOf(domain.CategoryFavorite))
}

func TestCatalogService_ToggleFavorite(t *testing.T) {
	service, _, _ := newTestCatalogService(createTestTracks(2), nil, nil)

	assert.True(t, service.ToggleFavorite("t001"))
	assert.True(t, service.IsFavorite("t001"))
	assert.False(t, service.ToggleFavorite("t001"))
	assert.False(t, service.IsFavorite("t001"))
	assert.False(t, service.ToggleFavorite("ghost"))
}

func TestCatalogService_AddToHistoryMovesToFront(t *testing.T) {
	service, repo, bus := newTestCatalogService(createTestTracks(3), nil, nil)

	var events int
	bus.Subscribe(domain.EventHistoryAdded, func(domain.Event) { events++ })

	assert.True(t, service.AddToHistory("t000"))
	assert.True(t, service.AddToHistory("t001"))
	assert.True(t, service.AddToHistory("t000"))
	assert.True(t, service.AddToHistory("t000"))

	assert.Equal(t, []string{"t000", "t001"}, ids(service.History()))
	assert.Equal(t, 4, events)
	assert.Equal(t, []string{"t000", "t001"}, repo.idsOf(domain.CategoryHistory))
}

func TestCatalogService_AddToHistoryUnknown(t *testing.T) {
	service, _, bus := newTestCatalogService(createTestTracks(1), nil, nil)

	var events int
	bus.SubscribeAll(func(domain.Event) { events++ })

	assert.False(t, service.AddToHistory("ghost"))
	assert.Empty(t, service.History())
	assert.Zero(t, events)
}

func TestCatalogService_HistoryEvictsOldest(t *testing.T) {
	library := createTestTracks(domain.MaxHistory + 1)
	service, repo, _ := newTestCatalogService(library, nil, nil)

	for _, tr := range library {
		require.True(t, service.AddToHistory(tr.ID))
	}

	history := service.History()
	require.Len(t, history, domain.MaxHistory)
	assert.Equal(t, library[len(library)-1].ID, history[0].ID)
	assert.NotContains(t, ids(history), library[0].ID)
	assert.Len(t, repo.idsOf(domain.CategoryHistory), domain.MaxHistory)

	// the evicted id is no longer treated as present
	require.True(t, service.AddToHistory(library[0].ID))
	history = service.History()
	assert.Len(t, history, domain.MaxHistory)
	assert.Equal(t, library[0].ID, history[0].ID)
}

func TestCatalogService_ClearHistory(t *testing.T) {
	service, repo, bus := newTestCatalogService(createTestTracks(2), nil, []string{"t000", "t001"})
	repo.ids[domain.CategoryHistory] = []string{"t000", "t001"}

	var cleared bool
	bus.Subscribe(domain.EventHistoryCleared, func(domain.Event) { cleared = true })

	service.ClearHistory()

	assert.Empty(t, service.History())
	assert.True(t, cleared)
	assert.Empty(t, repo.idsOf(domain.CategoryHistory))

	assert.True(t, service.AddToHistory("t001"))
	assert.Equal(t, []string{"t001"}, ids(service.History()))
}

func TestCatalogService_UpdateLibraryPurgesStale(t *testing.T) {
	library := createTestTracks(3)
	service, repo, bus := newTestCatalogService(library, []string{"t000", "t002"}, []string{"t002", "t000", "t001"})
	repo.ids[domain.CategoryFavorite] = []string{"t000", "t002"}
	repo.ids[domain.CategoryHistory] = []string{"t002", "t000", "t001"}

	var count int
	bus.Subscribe(domain.EventLibraryUpdated, func(e domain.Event) {
		count = e.(domain.LibraryUpdatedEvent).Count
	})

	renamed := library[2]
	renamed.Title = "Renamed"
	service.UpdateLibrary([]domain.Track{library[1], renamed})

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"t002"}, ids(service.Favorites()))
	assert.Equal(t, "Renamed", service.Favorites()[0].Title, "entries are refreshed from the new library")
	assert.Equal(t, []string{"t002", "t001"}, ids(service.History()))
	assert.False(t, service.IsFavorite("t000"))
	_, ok := service.GetByID("t000")
	assert.False(t, ok)

	assert.Equal(t, []string{"t002"}, repo.idsOf(domain.CategoryFavorite), "stale ids are deleted from storage")
	assert.Equal(t, []string{"t002", "t001"}, repo.idsOf(domain.CategoryHistory))
}

func TestCatalogService_UpdateLibraryKeepsStale(t *testing.T) {
	library := createTestTracks(3)
	bus := eventbus.NewSyncEventBus(nil)
	repo := newMockCatalogRepository()
	repo.ids[domain.CategoryFavorite] = []string{"t000"}
	service := NewCatalogService(logger.NewTestLogger(), bus, repo, library, []string{"t000"}, []string{"t000"}, StaleKeep)

	service.UpdateLibrary(library[1:])

	assert.Equal(t, []string{"t000"}, repo.idsOf(domain.CategoryFavorite))

	assert.Equal(t, []string{"t000"}, ids(service.Favorites()))
	assert.Equal(t, []string{"t000"}, ids(service.History()))
	assert.True(t, service.IsFavorite("t000"))
	assert.Equal(t, 2, service.Len())
}

func TestCatalogService_ReadersReturnCopies(t *testing.T) {
	service, _, _ := newTestCatalogService(createTestTracks(2), []string{"t000"}, []string{"t001"})

	lib := service.Library()
	lib[0].Title = "mutated"
	fav := service.Favorites()
	fav[0].Title = "mutated"

	track, _ := service.GetByID("t000")
	assert.Equal(t, "Song 0", track.Title)
	assert.Equal(t, "Song 0", service.Favorites()[0].Title)
}

func TestCatalogService_TracksByView(t *testing.T) {
	library := []domain.Track{
		{ID: "1", Title: "Blue Monday", Artist: "New Order"},
		{ID: "2", Title: "Atmosphere", Artist: "Joy Division"},
		{ID: "3", Title: "Ceremony", Artist: "New Order"},
	}
	service, _, _ := newTestCatalogService(library, []string{"2"}, []string{"3"})

	assert.Len(t, service.Tracks(domain.View{Kind: domain.ViewLibrary}), 3)
	assert.Equal(t, []string{"2"}, ids(service.Tracks(domain.View{Kind: domain.ViewFavorites})))
	assert.Equal(t, []string{"3"}, ids(service.Tracks(domain.View{Kind: domain.ViewHistory})))
	assert.Equal(t, []string{"1", "3"}, ids(service.Tracks(domain.View{Kind: domain.ViewSearch, Query: "new order"})))
	assert.Empty(t, service.Search("kraftwerk"))
}

func TestCatalogService_RepositoryFailureKeepsChange(t *testing.T) {
	service, repo, _ := newTestCatalogService(createTestTracks(2), nil, nil)
	repo.setFail(true)

	assert.True(t, service.AddToFavorites("t000"))
	assert.True(t, service.AddToHistory("t001"))

	assert.True(t, service.IsFavorite("t000"))
	assert.Equal(t, []string{"t001"}, ids(service.History()))
}

func TestLoadCatalogService(t *testing.T) {
	repo := newMockCatalogRepository()
	repo.tracks = createTestTracks(3)
	repo.ids[domain.CategoryFavorite] = []string{"t001"}
	repo.ids[domain.CategoryHistory] = []string{"t002", "t000"}

	service, err := LoadCatalogService(logger.NewTestLogger(), eventbus.NewSyncEventBus(nil), repo, StalePurge)
	require.NoError(t, err)

	assert.Equal(t, 3, service.Len())
	assert.True(t, service.IsFavorite("t001"))
	assert.Equal(t, []string{"t002", "t000"}, ids(service.History()))

	repo.setFail(true)
	_, err = LoadCatalogService(logger.NewTestLogger(), eventbus.NewSyncEventBus(nil), repo, StalePurge)
	assert.ErrorIs(t, err, errRepoDown)
}

func TestParseStalePolicy(t *testing.T) {
	p, err := ParseStalePolicy("keep")
	require.NoError(t, err)
	assert.Equal(t, StaleKeep, p)

	p, err = ParseStalePolicy("")
	require.NoError(t, err)
	assert.Equal(t, StalePurge, p)

	_, err = ParseStalePolicy("archive")
	assert.Error(t, err)
}

func TestCatalogService_ConcurrentToggleFavorite(t *testing.T) {
	service, repo, _ := newTestCatalogService(createTestTracks(1), nil, nil)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				on := service.ToggleFavorite("t000")
				mu.Lock()
				if on {
					added++
				} else {
					added--
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// every toggle flips membership, so adds and removals alternate
	assert.Equal(t, 0, added, "an even number of toggles ends where it started")
	assert.False(t, service.IsFavorite("t000"))
	assert.Empty(t, service.Favorites())
	assert.LessOrEqual(t, len(repo.idsOf(domain.CategoryFavorite)), 1)
}

func TestCatalogService_ConcurrentAccess(t *testing.T) {
	library := createTestTracks(20)
	service, _, _ := newTestCatalogService(library, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := library[(i+j)%len(library)].ID
				service.ToggleFavorite(id)
				service.AddToHistory(id)
				_ = service.Favorites()
				_ = service.History()
			}
		}(i)
	}
	wg.Wait()

	fav := service.Favorites()
	for _, tr := range fav {
		assert.True(t, service.IsFavorite(tr.ID))
	}
	assert.LessOrEqual(t, len(service.History()), domain.MaxHistory)
}
