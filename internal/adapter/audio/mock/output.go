// Package mock provides in-memory implementations of the audio ports.
// They are used for testing services and for running without a sound device.
package mock

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// DefaultDuration is the length reported for every mock source.
const DefaultDuration = 3 * time.Minute

// Source is a mock decoded stream.
type Source struct {
	Path     string
	duration time.Duration

	mu     sync.Mutex
	closed bool
}

// Duration returns the simulated stream length.
func (s *Source) Duration() time.Duration {
	return s.duration
}

// Close marks the source as released.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Output is a mock implementation of the AudioOutput interface.
// It keeps a queue of sources in memory and never makes a sound.
// Tests drive track completion with SimulateFinished.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	logger *slog.Logger

	mu        sync.RWMutex
	queue     []*Source
	paused    bool
	volume    float64
	decoded   []string
	stopCount int
	closed    bool

	// Behavior configuration (for testing error scenarios)
	failDecode bool
	failPaths  map[string]bool
}

// NewOutput creates a new mock audio output.
func NewOutput() *Output {
	return &Output{
		volume:    1.0,
		failPaths: make(map[string]bool),
	}
}

// SetLogger sets the logger for this output.
func (m *Output) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetFailDecode makes every Decode call fail (for testing).
func (m *Output) SetFailDecode(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDecode = fail
}

// SetFailPath makes Decode fail for a single path (for testing).
func (m *Output) SetFailPath(path string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fail {
		m.failPaths[path] = true
	} else {
		delete(m.failPaths, path)
	}
}

// Decode returns a mock source for path.
func (m *Output) Decode(path string) (ports.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrClosed
	}
	if path == "" {
		return nil, domain.NewAudioEngineError("decode", path, "empty path", domain.ErrInvalidFilePath)
	}
	if m.failDecode || m.failPaths[path] {
		return nil, domain.NewAudioEngineError("decode", path, "mock decode failed", domain.ErrFileNotFound)
	}

	m.decoded = append(m.decoded, path)
	if m.logger != nil {
		m.logger.Debug("mock decode", slog.String("file", filepath.Base(path)))
	}
	return &Source{Path: path, duration: DefaultDuration}, nil
}

// Append queues a source. Sources not created by this package are ignored.
func (m *Output) Append(src ports.Source) {
	s, ok := src.(*Source)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, s)
}

// Stop drops and closes every queued source and clears the paused flag.
func (m *Output) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.queue {
		_ = s.Close()
	}
	m.queue = nil
	m.paused = false
	m.stopCount++
}

// Play resumes output.
func (m *Output) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// Pause suspends output.
func (m *Output) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// IsPaused reports whether output is suspended.
func (m *Output) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// QueueEmpty reports whether nothing is left to play.
func (m *Output) QueueEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue) == 0
}

// SetVolume records the output gain.
func (m *Output) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
}

// Close releases the mock device. Later decodes fail with domain.ErrClosed.
func (m *Output) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.queue {
		_ = s.Close()
	}
	m.queue = nil
	m.closed = true
	return nil
}

// SimulateFinished plays out the head of the queue, as if the track ended.
func (m *Output) SimulateFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return
	}
	_ = m.queue[0].Close()
	m.queue = m.queue[1:]
}

// Queued returns the paths of the queued sources in play order.
func (m *Output) Queued() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, len(m.queue))
	for i, s := range m.queue {
		paths[i] = s.Path
	}
	return paths
}

// Decoded returns every path successfully decoded so far.
func (m *Output) Decoded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.decoded))
	copy(out, m.decoded)
	return out
}

// StopCount returns how many times Stop was called.
func (m *Output) StopCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopCount
}

// Volume returns the last volume set.
func (m *Output) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Verify that Output implements the AudioOutput interface
var _ ports.AudioOutput = (*Output)(nil)
