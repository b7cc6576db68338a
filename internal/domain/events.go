// Package domain defines events for the event-driven architecture.
// Events are the notification sink of the engine and decouple it from whatever observes it.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackStarted    EventType = "track.started"
	EventTrackPaused     EventType = "track.paused"
	EventTrackResumed    EventType = "track.resumed"
	EventTrackError      EventType = "track.error"
	EventAutoNext        EventType = "track.auto_next"
	EventPlaybackCleared EventType = "playback.cleared"

	// Volume events
	EventVolumeChanged EventType = "volume.changed"

	// Playback mode events
	EventLoopModeChanged EventType = "loop.changed"

	// Playlist events
	EventPlaylistChanged EventType = "playlist.changed"

	// Catalog events
	EventFavoriteAdded   EventType = "favorite.added"
	EventFavoriteRemoved EventType = "favorite.removed"
	EventHistoryAdded    EventType = "history.added"
	EventHistoryCleared  EventType = "history.cleared"
	EventLibraryUpdated  EventType = "library.updated"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackStartedEvent is published when a new source starts playing.
type TrackStartedEvent struct {
	baseEvent
	Track NowPlaying
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track NowPlaying) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track NowPlaying
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track NowPlaying) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackResumedEvent is published when paused playback continues.
type TrackResumedEvent struct {
	baseEvent
	Track NowPlaying
}

// Type returns the event type.
func (e TrackResumedEvent) Type() EventType {
	return EventTrackResumed
}

// NewTrackResumedEvent creates a new TrackResumedEvent.
func NewTrackResumedEvent(track NowPlaying) TrackResumedEvent {
	return TrackResumedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackErrorEvent is published when a track cannot be decoded or played.
type TrackErrorEvent struct {
	baseEvent
	TrackID  string
	FilePath string
	Error    error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(trackID, filePath string, err error) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
		FilePath:  filePath,
		Error:     err,
	}
}

// AutoNextEvent is published when the periodic check advances past a finished track.
type AutoNextEvent struct {
	baseEvent
	Mode LoopMode
}

// Type returns the event type.
func (e AutoNextEvent) Type() EventType {
	return EventAutoNext
}

// NewAutoNextEvent creates a new AutoNextEvent.
func NewAutoNextEvent(mode LoopMode) AutoNextEvent {
	return AutoNextEvent{
		baseEvent: newBaseEvent(),
		Mode:      mode,
	}
}

// PlaybackClearedEvent is published when the controller drops its current track and history.
type PlaybackClearedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e PlaybackClearedEvent) Type() EventType {
	return EventPlaybackCleared
}

// NewPlaybackClearedEvent creates a new PlaybackClearedEvent.
func NewPlaybackClearedEvent() PlaybackClearedEvent {
	return PlaybackClearedEvent{baseEvent: newBaseEvent()}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// LoopModeChangedEvent is published when the loop mode changes.
type LoopModeChangedEvent struct {
	baseEvent
	Mode LoopMode
}

// Type returns the event type.
func (e LoopModeChangedEvent) Type() EventType {
	return EventLoopModeChanged
}

// NewLoopModeChangedEvent creates a new LoopModeChangedEvent.
func NewLoopModeChangedEvent(mode LoopMode) LoopModeChangedEvent {
	return LoopModeChangedEvent{
		baseEvent: newBaseEvent(),
		Mode:      mode,
	}
}

// PlaylistChangedEvent is published when the active ordering is replaced.
type PlaylistChangedEvent struct {
	baseEvent
	Length int
}

// Type returns the event type.
func (e PlaylistChangedEvent) Type() EventType {
	return EventPlaylistChanged
}

// NewPlaylistChangedEvent creates a new PlaylistChangedEvent.
func NewPlaylistChangedEvent(length int) PlaylistChangedEvent {
	return PlaylistChangedEvent{
		baseEvent: newBaseEvent(),
		Length:    length,
	}
}

// FavoriteAddedEvent is published when a track is added to favorites.
type FavoriteAddedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e FavoriteAddedEvent) Type() EventType {
	return EventFavoriteAdded
}

// NewFavoriteAddedEvent creates a new FavoriteAddedEvent.
func NewFavoriteAddedEvent(track Track) FavoriteAddedEvent {
	return FavoriteAddedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// FavoriteRemovedEvent is published when a track leaves favorites.
type FavoriteRemovedEvent struct {
	baseEvent
	TrackID string
}

// Type returns the event type.
func (e FavoriteRemovedEvent) Type() EventType {
	return EventFavoriteRemoved
}

// NewFavoriteRemovedEvent creates a new FavoriteRemovedEvent.
func NewFavoriteRemovedEvent(trackID string) FavoriteRemovedEvent {
	return FavoriteRemovedEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
	}
}

// HistoryAddedEvent is published when a track is recorded in the history.
type HistoryAddedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e HistoryAddedEvent) Type() EventType {
	return EventHistoryAdded
}

// NewHistoryAddedEvent creates a new HistoryAddedEvent.
func NewHistoryAddedEvent(track Track) HistoryAddedEvent {
	return HistoryAddedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// HistoryClearedEvent is published when the history is emptied.
type HistoryClearedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e HistoryClearedEvent) Type() EventType {
	return EventHistoryCleared
}

// NewHistoryClearedEvent creates a new HistoryClearedEvent.
func NewHistoryClearedEvent() HistoryClearedEvent {
	return HistoryClearedEvent{baseEvent: newBaseEvent()}
}

// LibraryUpdatedEvent is published when the library is replaced.
type LibraryUpdatedEvent struct {
	baseEvent
	Count int
}

// Type returns the event type.
func (e LibraryUpdatedEvent) Type() EventType {
	return EventLibraryUpdated
}

// NewLibraryUpdatedEvent creates a new LibraryUpdatedEvent.
func NewLibraryUpdatedEvent(count int) LibraryUpdatedEvent {
	return LibraryUpdatedEvent{
		baseEvent: newBaseEvent(),
		Count:     count,
	}
}

// ScanStartedEvent is published when a library import begins.
type ScanStartedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(path string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanProgressEvent is published after each file of an import.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when an import finishes.
type ScanCompletedEvent struct {
	baseEvent
	Report ScanReport
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(report ScanReport) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Report:    report,
	}
}

// ScanCancelledEvent is published when an import is cancelled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
