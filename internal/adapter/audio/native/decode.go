// Package native plays audio through the system sound device using pure-Go
// decoders. Decoding works in every build; the device itself needs cgo on
// linux (see output_cgo.go).
package native

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Source is a decoded audio file.
type Source struct {
	path     string
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// Duration returns the stream length.
func (s *Source) Duration() time.Duration {
	return s.format.SampleRate.D(s.streamer.Len())
}

// Format returns the stream's sample format.
func (s *Source) Format() beep.Format {
	return s.format
}

// Path returns the decoded file path.
func (s *Source) Path() string {
	return s.path
}

// Close releases the decoder and the file.
func (s *Source) Close() error {
	err := s.streamer.Close()
	// some decoders close the reader themselves
	if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) && err == nil {
		err = ferr
	}
	return err
}

// Decode opens path and picks a decoder from its extension.
func Decode(path string) (*Source, error) {
	if path == "" {
		return nil, domain.NewAudioEngineError("decode", path, "empty path", domain.ErrInvalidFilePath)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewAudioEngineError("decode", path, "file not found", domain.ErrFileNotFound)
		}
		return nil, domain.NewAudioEngineError("decode", path, "failed to open file", err)
	}

	streamer, format, err := decodeStream(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		_ = f.Close()
		return nil, domain.NewAudioEngineError("decode", path, "failed to decode", err)
	}

	return &Source{path: path, file: f, streamer: streamer, format: format}, nil
}

func decodeStream(f *os.File, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".vorbis":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, errors.Wrapf(domain.ErrUnsupportedFormat, "extension %q", ext)
	}
}

// Verify that Source implements the Source interface
var _ ports.Source = (*Source)(nil)
