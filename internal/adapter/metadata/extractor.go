// Package metadata reads track information from audio files.
package metadata

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/ceinwhe/zotu/internal/adapter/audio/native"
	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// Defaults used when a file carries no tag for the field.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// Extractor builds tracks from tags and decoder properties.
// A file is accepted when either its tags or its audio stream can be read.
type Extractor struct {
	logger    *slog.Logger
	coversDir string // embedded pictures are written here; empty disables
}

// NewExtractor creates a new metadata extractor.
func NewExtractor(logger *slog.Logger, coversDir string) *Extractor {
	return &Extractor{logger: logger, coversDir: coversDir}
}

// Extract reads path and returns a track with a fresh id.
func (e *Extractor) Extract(path string) (domain.Track, error) {
	if path == "" {
		return domain.Track{}, domain.ErrInvalidFilePath
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return domain.Track{}, domain.NewAudioEngineError("metadata", path, "file not found", domain.ErrFileNotFound)
	}

	base := filepath.Base(path)
	track := domain.Track{
		ID:       uuid.NewString(),
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   UnknownArtist,
		Album:    UnknownAlbum,
		FilePath: path,
	}

	tags, tagErr := readTags(path)
	duration, durErr := probeDuration(path)
	if tagErr != nil && durErr != nil {
		return domain.Track{}, domain.NewAudioEngineError("metadata", path, "not a readable audio file",
			errors.WithSecondaryError(domain.ErrUnsupportedFormat, errors.CombineErrors(tagErr, durErr)))
	}
	track.Duration = duration

	if tags != nil {
		if title := strings.TrimSpace(tags.Title()); title != "" {
			track.Title = title
		}
		if artist := strings.TrimSpace(tags.Artist()); artist != "" {
			track.Artist = artist
		}
		if album := strings.TrimSpace(tags.Album()); album != "" {
			track.Album = album
		}
		if pic := tags.Picture(); pic != nil && len(pic.Data) > 0 {
			coverPath, err := e.saveCover(track.ID, pic)
			if err != nil {
				e.logger.Warn("failed to save cover",
					slog.String("file_path", path),
					slog.Any("error", err))
			}
			track.CoverPath = coverPath
		}
	}

	return track, nil
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, errors.Wrap(err, "read tags")
	}
	return m, nil
}

func probeDuration(path string) (time.Duration, error) {
	src, err := native.Decode(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return src.Duration(), nil
}

// saveCover writes the picture as <coversDir>/<id>.<ext> and returns the path.
func (e *Extractor) saveCover(id string, pic *tag.Picture) (string, error) {
	if e.coversDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(e.coversDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create covers dir")
	}

	ext := strings.TrimPrefix(strings.ToLower(pic.Ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	path := filepath.Join(e.coversDir, id+"."+ext)
	if err := os.WriteFile(path, pic.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// Verify that Extractor implements the MetadataExtractor interface
var _ ports.MetadataExtractor = (*Extractor)(nil)
