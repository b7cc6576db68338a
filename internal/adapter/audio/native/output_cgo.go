//go:build (linux && cgo) || windows || darwin

package native

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Available reports whether this build can open a sound device.
const Available = true

// Output plays queued sources through the speaker.
// The speaker runs one streamer chain for the life of the output:
// queue → pause control → volume.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	logger     *slog.Logger
	sampleRate beep.SampleRate
	quality    int

	queue  *queue
	ctrl   *beep.Ctrl
	volume *effects.Volume

	mu     sync.Mutex
	closed bool
}

// NewOutput opens the sound device.
func NewOutput(logger *slog.Logger, cfg Config) (*Output, error) {
	cfg = cfg.withDefaults()
	sr := beep.SampleRate(cfg.SampleRate)

	if err := speaker.Init(sr, sr.N(cfg.Buffer)); err != nil {
		return nil, domain.NewAudioEngineError("init", "", "failed to open sound device",
			errors.WithSecondaryError(domain.ErrAudioUnavailable, err))
	}

	q := &queue{}
	ctrl := &beep.Ctrl{Streamer: q}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}
	speaker.Play(vol)

	logger.Info("sound device opened",
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Duration("buffer", cfg.Buffer))

	return &Output{
		logger:     logger,
		sampleRate: sr,
		quality:    cfg.Quality,
		queue:      q,
		ctrl:       ctrl,
		volume:     vol,
	}, nil
}

// Decode opens a file for playback.
func (o *Output) Decode(path string) (ports.Source, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return nil, domain.ErrClosed
	}
	return Decode(path)
}

// Append queues a source. Sources from other adapters are ignored.
func (o *Output) Append(src ports.Source) {
	s, ok := src.(*Source)
	if !ok {
		o.logger.Warn("ignoring foreign audio source")
		return
	}
	speaker.Lock()
	o.queue.push(s, o.sampleRate, o.quality)
	speaker.Unlock()
}

// Stop drops the queue and clears the pause flag.
func (o *Output) Stop() {
	speaker.Lock()
	srcs := o.queue.drain()
	o.ctrl.Paused = false
	speaker.Unlock()

	for _, s := range srcs {
		if err := s.Close(); err != nil {
			o.logger.Debug("failed to close source",
				slog.String("file_path", s.Path()),
				slog.Any("error", err))
		}
	}
}

// Play resumes output.
func (o *Output) Play() {
	speaker.Lock()
	o.ctrl.Paused = false
	speaker.Unlock()
}

// Pause suspends output.
func (o *Output) Pause() {
	speaker.Lock()
	o.ctrl.Paused = true
	speaker.Unlock()
}

// IsPaused reports whether output is suspended.
func (o *Output) IsPaused() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return o.ctrl.Paused
}

// QueueEmpty reports whether every queued source has played out.
func (o *Output) QueueEmpty() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return o.queue.empty()
}

// SetVolume sets the output gain (0.0 to 1.0).
func (o *Output) SetVolume(volume float64) {
	level, silent := gain(volume)
	speaker.Lock()
	o.volume.Volume = level
	o.volume.Silent = silent
	speaker.Unlock()
}

// Close stops playback and releases the sound device.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.Stop()
	speaker.Clear()
	speaker.Close()
	o.logger.Debug("sound device closed")
	return nil
}

// Verify that Output implements the AudioOutput interface
var _ ports.AudioOutput = (*Output)(nil)
