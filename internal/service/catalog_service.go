// Package service provides business logic for the Zotu music player.
package service

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// StalePolicy decides what happens to favorites and history entries whose
// track disappears when the library is replaced.
type StalePolicy int

const (
	// StalePurge drops stale entries and refreshes the rest from the new library.
	StalePurge StalePolicy = iota

	// StaleKeep leaves favorites and history untouched.
	StaleKeep
)

// String returns the config name of the policy.
func (p StalePolicy) String() string {
	if p == StaleKeep {
		return "keep"
	}
	return "purge"
}

// ParseStalePolicy converts "purge" or "keep" into a StalePolicy.
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "purge", "":
		return StalePurge, nil
	case "keep":
		return StaleKeep, nil
	default:
		return StalePurge, domain.NewValidationError("stale_entries", s, "must be purge or keep")
	}
}

// CatalogService owns the canonical track collection and its favorites and
// history views. Readers receive copies; every mutation publishes an event
// and writes through to the repository when one is configured.
//
// Repository failures never undo an in-memory change; they are logged.
// All operations are thread-safe via sync.RWMutex.
type CatalogService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus
	repo   ports.CatalogRepository // may be nil
	policy StalePolicy

	// State
	library      []domain.Track
	libraryIndex map[string]int
	favorites    []domain.Track
	favoriteIDs  map[string]struct{}
	history      []domain.Track // most recent first
	historyIDs   map[string]struct{}

	mu sync.RWMutex
}

// NewCatalogService builds a catalog from a library snapshot and the saved
// favorite and history ids. Ids missing from the library are dropped,
// duplicates keep their first occurrence, and history is capped at
// domain.MaxHistory.
func NewCatalogService(
	logger *slog.Logger,
	bus ports.EventBus,
	repo ports.CatalogRepository,
	library []domain.Track,
	favoriteIDs []string,
	historyIDs []string,
	policy StalePolicy,
) *CatalogService {
	s := &CatalogService{
		logger: logger,
		bus:    bus,
		repo:   repo,
		policy: policy,
	}
	s.setLibrary(library)

	s.favorites, s.favoriteIDs = s.resolve(favoriteIDs, -1)
	s.history, s.historyIDs = s.resolve(historyIDs, domain.MaxHistory)

	logger.Debug("catalog service initialized",
		slog.Int("tracks", len(s.library)),
		slog.Int("favorites", len(s.favorites)),
		slog.Int("history", len(s.history)),
		slog.String("stale_policy", policy.String()))

	return s
}

// LoadCatalogService reads the library and id lists from repo and builds a catalog over them.
func LoadCatalogService(
	logger *slog.Logger,
	bus ports.EventBus,
	repo ports.CatalogRepository,
	policy StalePolicy,
) (*CatalogService, error) {
	tracks, err := repo.LoadAllTracks()
	if err != nil {
		return nil, domain.NewServiceError("CatalogService", "Load", "failed to load tracks", err)
	}
	favorites, err := repo.GetAllIDs(domain.CategoryFavorite)
	if err != nil {
		return nil, domain.NewServiceError("CatalogService", "Load", "failed to load favorites", err)
	}
	history, err := repo.GetAllIDs(domain.CategoryHistory)
	if err != nil {
		return nil, domain.NewServiceError("CatalogService", "Load", "failed to load history", err)
	}
	return NewCatalogService(logger, bus, repo, tracks, favorites, history, policy), nil
}

// setLibrary replaces the library and rebuilds its index. Caller holds the lock.
func (s *CatalogService) setLibrary(tracks []domain.Track) {
	s.library = make([]domain.Track, len(tracks))
	copy(s.library, tracks)
	s.libraryIndex = make(map[string]int, len(tracks))
	for i, t := range s.library {
		if _, exists := s.libraryIndex[t.ID]; !exists {
			s.libraryIndex[t.ID] = i
		}
	}
}

// resolve maps ids to library tracks, skipping unknown ids and duplicates.
// A negative limit means unbounded.
func (s *CatalogService) resolve(ids []string, limit int) ([]domain.Track, map[string]struct{}) {
	tracks := make([]domain.Track, 0, len(ids))
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if limit >= 0 && len(tracks) >= limit {
			break
		}
		pos, ok := s.libraryIndex[id]
		if !ok {
			continue
		}
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		tracks = append(tracks, s.library[pos])
	}
	return tracks, set
}

// IsFavorite reports whether id is in favorites.
func (s *CatalogService) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favoriteIDs[id]
	return ok
}

// GetByID returns the library track with this id.
func (s *CatalogService) GetByID(id string) (domain.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.libraryIndex[id]
	if !ok {
		return domain.Track{}, false
	}
	return s.library[pos], true
}

// AddToFavorites appends a library track to favorites.
// Returns false if the id is unknown or already favorited.
func (s *CatalogService) AddToFavorites(id string) bool {
	s.mu.Lock()
	track, ok := s.addFavoriteLocked(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.persist("add favorite", func(r ports.CatalogRepository) error {
		return r.AddToCategory(domain.CategoryFavorite, id)
	})
	s.bus.Publish(domain.NewFavoriteAddedEvent(track))
	return true
}

func (s *CatalogService) addFavoriteLocked(id string) (domain.Track, bool) {
	if _, exists := s.favoriteIDs[id]; exists {
		return domain.Track{}, false
	}
	pos, ok := s.libraryIndex[id]
	if !ok {
		return domain.Track{}, false
	}
	track := s.library[pos]
	s.favorites = append(s.favorites, track)
	s.favoriteIDs[id] = struct{}{}
	return track, true
}

// RemoveFromFavorites removes a track from favorites.
// Returns false if it was not favorited.
func (s *CatalogService) RemoveFromFavorites(id string) bool {
	s.mu.Lock()
	ok := s.removeFavoriteLocked(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.persist("remove favorite", func(r ports.CatalogRepository) error {
		return r.RemoveFromCategory(domain.CategoryFavorite, id)
	})
	s.bus.Publish(domain.NewFavoriteRemovedEvent(id))
	return true
}

func (s *CatalogService) removeFavoriteLocked(id string) bool {
	if _, exists := s.favoriteIDs[id]; !exists {
		return false
	}
	delete(s.favoriteIDs, id)
	s.favorites = lo.Reject(s.favorites, func(t domain.Track, _ int) bool {
		return t.ID == id
	})
	return true
}

// ToggleFavorite adds or removes id depending on its current membership.
// Returns the membership after the call.
func (s *CatalogService) ToggleFavorite(id string) bool {
	s.mu.Lock()
	if _, exists := s.favoriteIDs[id]; exists {
		s.removeFavoriteLocked(id)
		s.mu.Unlock()

		s.persist("remove favorite", func(r ports.CatalogRepository) error {
			return r.RemoveFromCategory(domain.CategoryFavorite, id)
		})
		s.bus.Publish(domain.NewFavoriteRemovedEvent(id))
		return false
	}
	track, ok := s.addFavoriteLocked(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.persist("add favorite", func(r ports.CatalogRepository) error {
		return r.AddToCategory(domain.CategoryFavorite, id)
	})
	s.bus.Publish(domain.NewFavoriteAddedEvent(track))
	return true
}

// AddToHistory records a listen. A track already in the history moves to the
// front instead of being duplicated. The oldest entry is evicted past
// domain.MaxHistory. Returns false if the id is unknown.
func (s *CatalogService) AddToHistory(id string) bool {
	s.mu.Lock()
	pos, ok := s.libraryIndex[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	track := s.library[pos]

	if _, exists := s.historyIDs[id]; exists {
		s.history = lo.Reject(s.history, func(t domain.Track, _ int) bool {
			return t.ID == id
		})
	}
	s.history = append([]domain.Track{track}, s.history...)
	s.historyIDs[id] = struct{}{}

	var evicted []string
	for len(s.history) > domain.MaxHistory {
		last := s.history[len(s.history)-1]
		s.history = s.history[:len(s.history)-1]
		delete(s.historyIDs, last.ID)
		evicted = append(evicted, last.ID)
	}
	s.mu.Unlock()

	s.persist("add history", func(r ports.CatalogRepository) error {
		if err := r.AddToCategory(domain.CategoryHistory, id); err != nil {
			return err
		}
		for _, old := range evicted {
			if err := r.RemoveFromCategory(domain.CategoryHistory, old); err != nil {
				return err
			}
		}
		return nil
	})
	s.bus.Publish(domain.NewHistoryAddedEvent(track))
	return true
}

// ClearHistory empties the history.
func (s *CatalogService) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.historyIDs = make(map[string]struct{})
	s.mu.Unlock()

	s.persist("clear history", func(r ports.CatalogRepository) error {
		return r.ClearCategory(domain.CategoryHistory)
	})
	s.bus.Publish(domain.NewHistoryClearedEvent())
}

// UpdateLibrary replaces the library and rebuilds its index.
// Favorites and history are then reconciled according to the stale policy.
// Under StalePurge, entries whose track left the library are dropped and
// their stored ids deleted. Under StaleKeep nothing is touched.
func (s *CatalogService) UpdateLibrary(tracks []domain.Track) {
	s.mu.Lock()
	s.setLibrary(tracks)

	var staleFavorites, staleHistory []string
	if s.policy == StalePurge {
		staleFavorites = s.staleIDs(s.favorites)
		staleHistory = s.staleIDs(s.history)
		s.favorites, s.favoriteIDs = s.resolve(lo.Map(s.favorites, trackID), -1)
		s.history, s.historyIDs = s.resolve(lo.Map(s.history, trackID), domain.MaxHistory)
	}
	count := len(s.library)
	s.mu.Unlock()

	if len(staleFavorites) > 0 || len(staleHistory) > 0 {
		s.persist("purge stale entries", func(r ports.CatalogRepository) error {
			for _, id := range staleFavorites {
				if err := r.RemoveFromCategory(domain.CategoryFavorite, id); err != nil {
					return err
				}
			}
			for _, id := range staleHistory {
				if err := r.RemoveFromCategory(domain.CategoryHistory, id); err != nil {
					return err
				}
			}
			return nil
		})
	}

	s.logger.Info("library updated",
		slog.Int("tracks", count),
		slog.Int("purged_entries", len(staleFavorites)+len(staleHistory)))
	s.bus.Publish(domain.NewLibraryUpdatedEvent(count))
}

// staleIDs returns the ids of tracks missing from the library. Caller holds the lock.
func (s *CatalogService) staleIDs(tracks []domain.Track) []string {
	return lo.FilterMap(tracks, func(t domain.Track, _ int) (string, bool) {
		_, ok := s.libraryIndex[t.ID]
		return t.ID, !ok
	})
}

func trackID(t domain.Track, _ int) string {
	return t.ID
}

// Library returns a copy of the library.
func (s *CatalogService) Library() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTracks(s.library)
}

// Favorites returns a copy of the favorites in insertion order.
func (s *CatalogService) Favorites() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTracks(s.favorites)
}

// History returns a copy of the history, most recent first.
func (s *CatalogService) History() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTracks(s.history)
}

// Search returns library tracks whose title, artist or album contain query, ignoring case.
func (s *CatalogService) Search(query string) []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.library, func(t domain.Track, _ int) bool {
		return t.Matches(query)
	})
}

// Tracks returns the collection selected by view.
func (s *CatalogService) Tracks(view domain.View) []domain.Track {
	switch view.Kind {
	case domain.ViewFavorites:
		return s.Favorites()
	case domain.ViewHistory:
		return s.History()
	case domain.ViewSearch:
		return s.Search(view.Query)
	default:
		return s.Library()
	}
}

// Len returns the number of library tracks.
func (s *CatalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.library)
}

func (s *CatalogService) persist(op string, fn func(ports.CatalogRepository) error) {
	if s.repo == nil {
		return
	}
	if err := fn(s.repo); err != nil {
		s.logger.Warn("catalog write-through failed",
			slog.String("op", op),
			slog.Any("error", err))
	}
}

func copyTracks(tracks []domain.Track) []domain.Track {
	out := make([]domain.Track, len(tracks))
	copy(out, tracks)
	return out
}
