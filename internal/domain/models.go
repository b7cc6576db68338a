// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Zotu music player.
package domain

import (
	"strings"
	"time"
)

// MaxHistory is the maximum number of entries kept in the listening history.
const MaxHistory = 100

// Track represents a single audio file in the catalog.
// Tracks are immutable values and are passed by value.
type Track struct {
	// ID is a unique identifier for the track (UUID)
	ID string

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Album is the album name
	Album string

	// Duration is the total length of the track
	Duration time.Duration

	// FilePath is the absolute path to the audio file on the filesystem
	FilePath string

	// CoverPath points at the extracted cover image, empty when the file has none
	CoverPath string
}

// Matches reports whether the query is a case-insensitive substring of the
// title, artist or album. An empty query matches every track.
func (t Track) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Artist), q) ||
		strings.Contains(strings.ToLower(t.Album), q)
}

// LoopMode selects how the controller advances through an ordering.
type LoopMode int

const (
	// LoopList walks the ordering sequentially and wraps at both ends
	LoopList LoopMode = iota

	// LoopSingle repeats the current track
	LoopSingle

	// LoopRandom walks the shuffled permutation
	LoopRandom
)

// Next returns the mode that follows m in the List → Single → Random cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopList:
		return LoopSingle
	case LoopSingle:
		return LoopRandom
	default:
		return LoopList
	}
}

// String returns a human-readable representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopList:
		return "list"
	case LoopSingle:
		return "single"
	case LoopRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseLoopMode converts a string into a LoopMode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "list", "":
		return LoopList, nil
	case "single":
		return LoopSingle, nil
	case "random", "shuffle":
		return LoopRandom, nil
	default:
		return LoopList, NewValidationError("loop_mode", s, "must be one of list, single, random")
	}
}

// PlayState represents whether the current track is audible.
type PlayState int

const (
	// StatePaused indicates playback is suspended (or nothing is loaded)
	StatePaused PlayState = iota

	// StatePlaying indicates playback is active
	StatePlaying
)

// String returns a human-readable representation of the play state.
func (s PlayState) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "paused"
}

// NowPlaying is a display snapshot of the active track.
// It is copied out of the catalog when playback starts and never follows later catalog changes.
type NowPlaying struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	FilePath string
}

// NewNowPlaying builds a snapshot from a track.
func NewNowPlaying(t Track) NowPlaying {
	return NowPlaying{
		ID:       t.ID,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: t.Duration,
		FilePath: t.FilePath,
	}
}

// ViewKind names the catalog collection that feeds a playlist.
type ViewKind int

const (
	// ViewLibrary is the full library
	ViewLibrary ViewKind = iota

	// ViewFavorites is the favorites collection
	ViewFavorites

	// ViewHistory is the listening history, most recent first
	ViewHistory

	// ViewSearch is a substring search over the library
	ViewSearch
)

// String returns a human-readable representation of the view kind.
func (k ViewKind) String() string {
	switch k {
	case ViewLibrary:
		return "library"
	case ViewFavorites:
		return "favorites"
	case ViewHistory:
		return "history"
	case ViewSearch:
		return "search"
	default:
		return "unknown"
	}
}

// ParseViewKind converts a string into a ViewKind.
func ParseViewKind(s string) (ViewKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "library", "":
		return ViewLibrary, nil
	case "favorites", "favorite":
		return ViewFavorites, nil
	case "history":
		return ViewHistory, nil
	case "search":
		return ViewSearch, nil
	default:
		return ViewLibrary, NewValidationError("view", s, "must be one of library, favorites, history, search")
	}
}

// View selects a collection of the catalog. Query is only used by ViewSearch.
type View struct {
	Kind  ViewKind
	Query string
}

// Category identifies a persisted id list.
type Category int

const (
	// CategoryFavorite holds favorite track ids
	CategoryFavorite Category = iota

	// CategoryHistory holds recently played track ids
	CategoryHistory
)

// String returns the storage name of the category.
func (c Category) String() string {
	if c == CategoryHistory {
		return "history"
	}
	return "favorite"
}

// PlaybackSnapshot is a point-in-time copy of the controller state.
type PlaybackSnapshot struct {
	NowPlaying      *NowPlaying
	State           PlayState
	LoopMode        LoopMode
	Volume          float64
	PlaylistLength  int
	Position        int // Sequential position, -1 if none
	ShufflePosition int // Position in the shuffled order, -1 if none
	History         []int
	HistoryCursor   int // -1 if history is empty
}

// ScanProgress represents the progress of a music library import.
type ScanProgress struct {
	// CurrentFile is the file currently being scanned
	CurrentFile string

	// FilesScanned is the number of files processed so far
	FilesScanned int

	// TotalFiles is the total number of files to scan
	TotalFiles int

	// TracksFound is the number of valid music tracks found
	TracksFound int
}

// Percentage returns the completion percentage (0-100), or -1 if total is unknown.
func (p ScanProgress) Percentage() float64 {
	if p.TotalFiles <= 0 {
		return -1
	}
	return float64(p.FilesScanned) / float64(p.TotalFiles) * 100.0
}

// ScanFailure records a single file that could not be imported.
type ScanFailure struct {
	Path string
	Err  error
}

// ScanReport summarizes an import or refresh.
type ScanReport struct {
	Added    []Track
	Removed  []string
	Failures []ScanFailure
}
