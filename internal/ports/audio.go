// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"

	"github.com/ceinwhe/zotu/internal/domain"
)

// Source is a decoded audio stream ready to be queued on an AudioOutput.
type Source interface {
	// Duration returns the length of the stream, or 0 if unknown.
	Duration() time.Duration

	// Close releases the underlying file and decoder.
	Close() error
}

// AudioOutput is the single audio output resource driven by the playback controller.
// It abstracts the speaker and the decoders and allows for testing with mocks.
//
// The playback controller is the only writer. Implementations must still be
// thread-safe since the device may report completion from its own goroutine.
type AudioOutput interface {
	// Decode opens and decodes the file at path.
	// Decoding is synchronous and fails immediately for missing or unsupported files.
	Decode(path string) (Source, error)

	// Append queues a decoded source behind whatever is already queued.
	// The output takes ownership of the source.
	Append(src Source)

	// Stop drops every queued source and closes it.
	Stop()

	// Play resumes output without re-decoding.
	Play()

	// Pause suspends output, keeping the queue.
	Pause()

	// IsPaused reports whether output is suspended.
	IsPaused() bool

	// QueueEmpty reports whether every queued source has been played out.
	QueueEmpty() bool

	// SetVolume sets the output gain (0.0 to 1.0).
	SetVolume(volume float64)

	// Close releases the device.
	Close() error
}

// MetadataExtractor reads tags from an audio file and builds a Track.
// Failures are per-file; callers importing a batch keep going.
type MetadataExtractor interface {
	// Extract returns a Track with a fresh ID for the file at path.
	Extract(path string) (domain.Track, error)
}
