//go:build !((linux && cgo) || windows || darwin)

package native

import (
	"log/slog"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Available reports whether this build can open a sound device.
// The speaker needs cgo on linux.
const Available = false

// Output is a placeholder for builds without a sound device.
type Output struct{}

// NewOutput always fails with domain.ErrAudioUnavailable.
func NewOutput(logger *slog.Logger, cfg Config) (*Output, error) {
	logger.Warn("built without cgo, no sound device")
	return nil, domain.NewAudioEngineError("init", "", "built without cgo", domain.ErrAudioUnavailable)
}

func (o *Output) Decode(path string) (ports.Source, error) { return nil, domain.ErrAudioUnavailable }
func (o *Output) Append(ports.Source)                        {}
func (o *Output) Stop()                                      {}
func (o *Output) Play()                                      {}
func (o *Output) Pause()                                     {}
func (o *Output) IsPaused() bool                             { return false }
func (o *Output) QueueEmpty() bool                           { return true }
func (o *Output) SetVolume(float64)                          {}
func (o *Output) Close() error                               { return nil }

var _ ports.AudioOutput = (*Output)(nil)
