// Package memory provides repository implementations on top of a key-value
// Store. A MapStore backs the volatile storage backend; a fyne.Preferences
// can be passed instead to keep the data in the app's preferences.
package memory

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

const (
	keyLibrary  = "catalog.library"
	keyFavorite = "catalog.favorite"
	keyHistory  = "catalog.history"
)

// trackRecord is the stored form of a track.
type trackRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int64  `json:"duration_ms"`
	Path       string `json:"path"`
	CoverPath  string `json:"cover_path,omitempty"`
}

func toRecord(t domain.Track) trackRecord {
	return trackRecord{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		DurationMs: t.Duration.Milliseconds(),
		Path:       t.FilePath,
		CoverPath:  t.CoverPath,
	}
}

func (r trackRecord) toTrack() domain.Track {
	return domain.Track{
		ID:        r.ID,
		Title:     r.Title,
		Artist:    r.Artist,
		Album:     r.Album,
		Duration:  time.Duration(r.DurationMs) * time.Millisecond,
		FilePath:  r.Path,
		CoverPath: r.CoverPath,
	}
}

// CatalogRepository implements ports.CatalogRepository over a Store.
// The library is stored as a JSON array; favorite and history ids as string lists.
//
// Thread-safe: All operations protected by sync.RWMutex.
type CatalogRepository struct {
	prefs Store
	mu    sync.RWMutex
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(prefs Store) *CatalogRepository {
	return &CatalogRepository{prefs: prefs}
}

func (r *CatalogRepository) loadRecords() ([]trackRecord, error) {
	data := r.prefs.String(keyLibrary)
	if data == "" {
		return []trackRecord{}, nil
	}
	var records []trackRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, domain.NewRepositoryError("load", "memory", "failed to unmarshal library", err)
	}
	return records, nil
}

func (r *CatalogRepository) saveRecords(records []trackRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return domain.NewRepositoryError("save", "memory", "failed to marshal library", err)
	}
	r.prefs.SetString(keyLibrary, string(data))
	return nil
}

func key(c domain.Category) (string, error) {
	switch c {
	case domain.CategoryFavorite:
		return keyFavorite, nil
	case domain.CategoryHistory:
		return keyHistory, nil
	default:
		return "", domain.NewValidationError("category", c, "unknown category")
	}
}

// LoadAllTracks returns every stored track in insertion order.
func (r *CatalogRepository) LoadAllTracks() ([]domain.Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.loadRecords()
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(rec trackRecord, _ int) domain.Track {
		return rec.toTrack()
	}), nil
}

// GetAllIDs returns the ids stored under a category.
func (r *CatalogRepository) GetAllIDs(category domain.Category) ([]string, error) {
	k, err := key(category)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Clone(r.prefs.StringList(k))
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// AddToCategory stores an id. Favorites keep their first position; history
// entries move to the front and the list is capped at domain.MaxHistory.
func (r *CatalogRepository) AddToCategory(category domain.Category, id string) error {
	k, err := key(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.prefs.StringList(k)
	switch category {
	case domain.CategoryFavorite:
		if slices.Contains(ids, id) {
			return nil
		}
		ids = append(slices.Clone(ids), id)
	case domain.CategoryHistory:
		ids = append([]string{id}, lo.Without(ids, id)...)
		if len(ids) > domain.MaxHistory {
			ids = ids[:domain.MaxHistory]
		}
	}
	r.prefs.SetStringList(k, ids)
	return nil
}

// RemoveFromCategory deletes an id from a category.
func (r *CatalogRepository) RemoveFromCategory(category domain.Category, id string) error {
	k, err := key(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.prefs.StringList(k)
	if !slices.Contains(ids, id) {
		return nil
	}
	r.prefs.SetStringList(k, lo.Without(ids, id))
	return nil
}

// ClearCategory deletes every id of a category.
func (r *CatalogRepository) ClearCategory(category domain.Category) error {
	k, err := key(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(k)
	return nil
}

// SaveTracks inserts tracks or replaces them in place by ID.
func (r *CatalogRepository) SaveTracks(tracks []domain.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadRecords()
	if err != nil {
		return err
	}
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.ID] = i
	}
	for _, t := range tracks {
		if i, ok := index[t.ID]; ok {
			records[i] = toRecord(t)
			continue
		}
		index[t.ID] = len(records)
		records = append(records, toRecord(t))
	}
	return r.saveRecords(records)
}

// DeleteTracks removes tracks by ID. Unknown ids are ignored.
func (r *CatalogRepository) DeleteTracks(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadRecords()
	if err != nil {
		return err
	}
	drop := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	kept := lo.Reject(records, func(rec trackRecord, _ int) bool {
		_, ok := drop[rec.ID]
		return ok
	})
	if len(kept) == len(records) {
		return nil
	}
	return r.saveRecords(kept)
}

// Close is a no-op; the preferences belong to the app.
func (r *CatalogRepository) Close() error {
	return nil
}

// Clear removes all saved catalog data.
func (r *CatalogRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyLibrary)
	r.prefs.RemoveValue(keyFavorite)
	r.prefs.RemoveValue(keyHistory)
	return nil
}

// Verify interface implementation
var _ ports.CatalogRepository = (*CatalogRepository)(nil)
