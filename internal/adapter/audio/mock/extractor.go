package mock

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Extractor is a mock MetadataExtractor that derives tracks from file names.
// Paths registered with SetFailPath return an error instead.
type Extractor struct {
	mu        sync.Mutex
	failPaths map[string]bool
	calls     int
}

// NewExtractor creates a new mock extractor.
func NewExtractor() *Extractor {
	return &Extractor{failPaths: make(map[string]bool)}
}

// SetFailPath makes Extract fail for path (for testing).
func (e *Extractor) SetFailPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failPaths[path] = true
}

// Calls returns the number of Extract calls.
func (e *Extractor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Extract builds a track titled after the file stem.
func (e *Extractor) Extract(path string) (domain.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.failPaths[path] {
		return domain.Track{}, domain.NewAudioEngineError("metadata", path, "mock extraction failed", domain.ErrUnsupportedFormat)
	}

	base := filepath.Base(path)
	return domain.Track{
		ID:       uuid.NewString(),
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   "Unknown Artist",
		Album:    "Unknown Album",
		Duration: DefaultDuration,
		FilePath: path,
	}, nil
}

// Verify that Extractor implements the MetadataExtractor interface
var _ ports.MetadataExtractor = (*Extractor)(nil)
