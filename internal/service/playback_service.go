// Package service provides business logic for the Zotu music player.
package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ceinwhe/zotu/internal/domain"
	"github.com/ceinwhe/zotu/internal/ports"
)

// DefaultAutoNextInterval is how often the output queue is polled for a finished track.
const DefaultAutoNextInterval = 500 * time.Millisecond

// PlaybackService is the playback controller. It holds the active ordering,
// the current position in both sequential and shuffled coordinates, the
// loop mode, the play state and a browser-style navigation history, and it
// is the only writer of the audio output.
//
// Every public operation runs to completion under one mutex. Events raised
// during an operation are queued and published once the mutex is released,
// so event handlers may call back into the service.
type PlaybackService struct {
	// Dependencies (injected)
	logger *slog.Logger
	output ports.AudioOutput
	bus    ports.EventBus

	// State
	ordering   *domain.Ordering // nil until a playlist is set
	seqPos     int              // -1 if none
	shufflePos int              // -1 if none
	nowPlaying *domain.NowPlaying
	loopMode   domain.LoopMode
	playState  domain.PlayState
	history    []int // visited sequential positions
	cursor     int   // index into history, -1 if empty
	volume     float64

	autoFailures int // consecutive auto-advances that failed to decode

	// Concurrency control
	mu               sync.Mutex
	outbox           []domain.Event
	autoNextInterval time.Duration
	stopAutoNext     chan struct{}
	autoNextRunning  bool
	autoNextWg       sync.WaitGroup
}

// NewPlaybackService creates a new playback controller.
// When autoNextInterval is positive a background goroutine calls
// CheckAndAutoNext at that cadence until Shutdown.
func NewPlaybackService(
	logger *slog.Logger,
	output ports.AudioOutput,
	bus ports.EventBus,
	autoNextInterval time.Duration,
) *PlaybackService {
	s := &PlaybackService{
		logger:           logger,
		output:           output,
		bus:              bus,
		seqPos:           -1,
		shufflePos:       -1,
		cursor:           -1,
		volume:           1.0,
		autoNextInterval: autoNextInterval,
		stopAutoNext:     make(chan struct{}),
	}

	logger.Debug("playback service initialized",
		slog.Duration("auto_next_interval", autoNextInterval))

	if autoNextInterval > 0 {
		s.startAutoNextRoutine()
	}
	return s
}

// lock acquires the state mutex. Pair it with a deferred unlock.
func (s *PlaybackService) lock() {
	s.mu.Lock()
}

// unlock releases the state mutex and then publishes the queued events.
func (s *PlaybackService) unlock() {
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, e := range events {
		s.bus.Publish(e)
	}
}

func (s *PlaybackService) emit(e domain.Event) {
	s.outbox = append(s.outbox, e)
}

// SetPlaylist replaces the active ordering with one built over items.
// In Random mode the new ordering is shuffled immediately. Playback is not
// started and the now-playing track is kept; if it is part of the new
// ordering the positions and history are re-anchored on it, otherwise they
// are cleared.
func (s *PlaybackService) SetPlaylist(items []domain.Track) {
	s.lock()
	defer s.unlock()

	s.ordering = domain.NewOrdering(items)
	if s.loopMode == domain.LoopRandom {
		s.ordering.Shuffle()
	}

	s.seqPos, s.shufflePos = -1, -1
	s.history, s.cursor = nil, -1
	s.autoFailures = 0
	if s.nowPlaying != nil {
		if pos, ok := s.ordering.PositionOf(s.nowPlaying.ID); ok {
			s.seqPos = pos
			s.syncShufflePos()
			s.history, s.cursor = []int{pos}, 0
		}
	}

	s.logger.Debug("playlist set",
		slog.Int("length", s.ordering.Len()),
		slog.Int("position", s.seqPos))
	s.emit(domain.NewPlaylistChangedEvent(s.ordering.Len()))
}

// HasPlaylist reports whether a playlist has been set.
func (s *PlaybackService) HasPlaylist() bool {
	s.lock()
	defer s.unlock()
	return s.ordering != nil
}

// Playlist returns a copy of the active ordering's tracks in natural order.
func (s *PlaybackService) Playlist() []domain.Track {
	s.lock()
	defer s.unlock()
	return s.ordering.Items()
}

// PlayTrack plays track. When the track belongs to the active ordering the
// position moves to it and is pushed onto the history. A track outside the
// ordering is still played, leaving the position untouched, so the
// now-playing track may differ from the one at the current position until
// the next navigation.
//
// Returns true if playback started.
func (s *PlaybackService) PlayTrack(track domain.Track) bool {
	s.lock()
	defer s.unlock()

	if pos, ok := s.ordering.PositionOf(track.ID); ok {
		s.seqPos = pos
		if s.loopMode == domain.LoopRandom {
			s.syncShufflePos()
		}
		s.pushHistory(pos)
	} else {
		s.logger.Debug("playing track outside the playlist", slog.String("id", track.ID))
	}

	return s.playSource(track)
}

// Play resumes playback. No-op when nothing is playing.
func (s *PlaybackService) Play() {
	s.lock()
	defer s.unlock()
	s.resumeLocked()
}

// Pause suspends playback. No-op when nothing is playing.
func (s *PlaybackService) Pause() {
	s.lock()
	defer s.unlock()
	s.pauseLocked()
}

// TogglePlay flips between playing and paused. No-op when nothing is playing.
func (s *PlaybackService) TogglePlay() {
	s.lock()
	defer s.unlock()

	if s.playState == domain.StatePlaying {
		s.pauseLocked()
	} else {
		s.resumeLocked()
	}
}

func (s *PlaybackService) resumeLocked() {
	if s.nowPlaying == nil {
		return
	}
	s.output.Play()
	if s.playState != domain.StatePlaying {
		s.playState = domain.StatePlaying
		s.emit(domain.NewTrackResumedEvent(*s.nowPlaying))
	}
}

func (s *PlaybackService) pauseLocked() {
	if s.nowPlaying == nil {
		return
	}
	s.output.Pause()
	if s.playState != domain.StatePaused {
		s.playState = domain.StatePaused
		s.emit(domain.NewTrackPausedEvent(*s.nowPlaying))
	}
}

// Clear stops the output and forgets the current track, positions and
// history. The playlist is kept.
func (s *PlaybackService) Clear() {
	s.lock()
	defer s.unlock()

	s.output.Stop()
	s.nowPlaying = nil
	s.playState = domain.StatePaused
	s.seqPos, s.shufflePos = -1, -1
	s.history, s.cursor = nil, -1

	s.logger.Debug("playback cleared")
	s.emit(domain.NewPlaybackClearedEvent())
}

// Next moves forward. If the history cursor is behind the tail it replays the
// next visited position without touching the history; otherwise it computes a
// target from the loop mode and appends it. Returns true if playback started.
func (s *PlaybackService) Next() bool {
	s.lock()
	defer s.unlock()

	if s.ordering.Len() == 0 {
		return false
	}
	if s.cursor >= 0 && s.cursor < len(s.history)-1 {
		s.cursor++
		return s.replay(s.history[s.cursor])
	}
	return s.advance(1)
}

// Previous moves backward. If the history cursor is past the head it replays
// the previous visited position without touching the history; otherwise it
// computes a target from the loop mode and appends it. Returns true if
// playback started.
func (s *PlaybackService) Previous() bool {
	s.lock()
	defer s.unlock()

	if s.ordering.Len() == 0 {
		return false
	}
	if s.cursor > 0 {
		s.cursor--
		return s.replay(s.history[s.cursor])
	}
	return s.advance(-1)
}

// CheckAndAutoNext advances past a finished track. It does nothing unless
// the output queue is empty and the state is Playing. In Single mode the
// now-playing file is decoded again with no history change; otherwise a
// forward target is computed and appended to the history, never replayed
// from it. Returns true if a new source started.
func (s *PlaybackService) CheckAndAutoNext() bool {
	s.lock()
	defer s.unlock()

	if s.playState != domain.StatePlaying || !s.output.QueueEmpty() {
		return false
	}

	s.logger.Debug("track finished, advancing", slog.String("mode", s.loopMode.String()))

	if s.loopMode == domain.LoopSingle {
		return s.repeatNowPlaying()
	}
	if s.ordering.Len() == 0 {
		return false
	}
	s.emit(domain.NewAutoNextEvent(s.loopMode))
	if s.advance(1) {
		return true
	}

	// Stop after one full pass of undecodable tracks.
	s.autoFailures++
	if s.autoFailures >= s.ordering.Len() {
		s.autoFailures = 0
		s.playState = domain.StatePaused
		s.logger.Warn("no playable track in playlist, pausing",
			slog.Int("length", s.ordering.Len()))
	}
	return false
}

func (s *PlaybackService) repeatNowPlaying() bool {
	if s.nowPlaying == nil {
		return false
	}
	np := *s.nowPlaying

	s.output.Stop()
	src, err := s.output.Decode(np.FilePath)
	if err != nil {
		// Stay silent instead of retrying a broken file on every tick.
		s.playState = domain.StatePaused
		s.logger.Warn("failed to repeat track",
			slog.String("file_path", np.FilePath),
			slog.Any("error", err))
		s.emit(domain.NewTrackErrorEvent(np.ID, np.FilePath, err))
		return false
	}
	s.output.Append(src)
	s.output.Play()

	s.emit(domain.NewAutoNextEvent(domain.LoopSingle))
	s.emit(domain.NewTrackStartedEvent(np))
	return true
}

// SetLoopMode changes the loop mode. Entering Random reshuffles the ordering
// and relocates the shuffle position onto the current track.
func (s *PlaybackService) SetLoopMode(mode domain.LoopMode) {
	s.lock()
	defer s.unlock()
	s.setLoopModeLocked(mode)
}

// ToggleLoopMode cycles List → Single → Random → List and returns the new mode.
func (s *PlaybackService) ToggleLoopMode() domain.LoopMode {
	s.lock()
	defer s.unlock()

	next := s.loopMode.Next()
	s.setLoopModeLocked(next)
	return next
}

func (s *PlaybackService) setLoopModeLocked(mode domain.LoopMode) {
	s.loopMode = mode
	if mode == domain.LoopRandom && s.ordering != nil {
		s.ordering.Shuffle()
		s.syncShufflePos()
	}
	s.logger.Debug("loop mode set", slog.String("mode", mode.String()))
	s.emit(domain.NewLoopModeChangedEvent(mode))
}

// LoopMode returns the current loop mode.
func (s *PlaybackService) LoopMode() domain.LoopMode {
	s.lock()
	defer s.unlock()
	return s.loopMode
}

// SetVolume sets the output volume (0.0 to 1.0).
func (s *PlaybackService) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}

	s.lock()
	defer s.unlock()

	s.volume = volume
	s.output.SetVolume(volume)
	s.emit(domain.NewVolumeChangedEvent(volume))
	return nil
}

// NowPlaying returns the active track snapshot.
func (s *PlaybackService) NowPlaying() (domain.NowPlaying, bool) {
	s.lock()
	defer s.unlock()

	if s.nowPlaying == nil {
		return domain.NowPlaying{}, false
	}
	return *s.nowPlaying, true
}

// State returns a copy of the controller state.
func (s *PlaybackService) State() domain.PlaybackSnapshot {
	s.lock()
	defer s.unlock()

	snap := domain.PlaybackSnapshot{
		State:           s.playState,
		LoopMode:        s.loopMode,
		Volume:          s.volume,
		PlaylistLength:  s.ordering.Len(),
		Position:        s.seqPos,
		ShufflePosition: s.shufflePos,
		History:         append([]int(nil), s.history...),
		HistoryCursor:   s.cursor,
	}
	if s.nowPlaying != nil {
		np := *s.nowPlaying
		snap.NowPlaying = &np
	}
	return snap
}

// replay plays a position taken from the history without modifying it.
func (s *PlaybackService) replay(pos int) bool {
	track, ok := s.ordering.Get(pos)
	if !ok {
		return false
	}
	s.seqPos = pos
	s.syncShufflePos()
	return s.playSource(track)
}

// advance computes the next target for the loop mode, pushes it onto the
// history and plays it. dir is +1 or -1.
func (s *PlaybackService) advance(dir int) bool {
	n := s.ordering.Len()
	var target int

	switch s.loopMode {
	case domain.LoopSingle:
		if s.seqPos < 0 {
			return false
		}
		target = s.seqPos
	case domain.LoopList:
		if s.seqPos < 0 {
			target = 0
		} else {
			target = wrap(s.seqPos+dir, n)
		}
	case domain.LoopRandom:
		if s.shufflePos < 0 {
			s.shufflePos = 0
		} else {
			s.shufflePos = wrap(s.shufflePos+dir, n)
		}
		pos, ok := s.ordering.ShuffledAt(s.shufflePos)
		if !ok {
			return false
		}
		target = pos
	}

	track, ok := s.ordering.Get(target)
	if !ok {
		return false
	}
	s.seqPos = target
	s.pushHistory(target)
	return s.playSource(track)
}

// pushHistory drops any forward branch past the cursor, then appends pos.
func (s *PlaybackService) pushHistory(pos int) {
	if s.cursor >= 0 && s.cursor < len(s.history)-1 {
		s.history = s.history[:s.cursor+1]
	}
	s.history = append(s.history, pos)
	s.cursor = len(s.history) - 1
}

// syncShufflePos points the shuffle position at the current sequential position.
func (s *PlaybackService) syncShufflePos() {
	if s.seqPos < 0 {
		s.shufflePos = -1
		return
	}
	if sp, ok := s.ordering.ShufflePositionOf(s.seqPos); ok {
		s.shufflePos = sp
	} else {
		s.shufflePos = -1
	}
}

// playSource stops the output and starts track. On a decode failure the
// output stays stopped and the now-playing track and play state are left
// as they were.
func (s *PlaybackService) playSource(track domain.Track) bool {
	s.output.Stop()

	src, err := s.output.Decode(track.FilePath)
	if err != nil {
		s.logger.Warn("failed to start track",
			slog.String("id", track.ID),
			slog.String("file_path", track.FilePath),
			slog.Any("error", err))
		s.emit(domain.NewTrackErrorEvent(track.ID, track.FilePath, err))
		return false
	}
	s.output.Append(src)
	s.output.Play()

	np := domain.NewNowPlaying(track)
	if np.Duration == 0 {
		np.Duration = src.Duration()
	}
	s.nowPlaying = &np
	s.playState = domain.StatePlaying
	s.autoFailures = 0

	s.logger.Debug("track started", slog.String("id", track.ID), slog.String("title", track.Title))
	s.emit(domain.NewTrackStartedEvent(np))
	return true
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// Shutdown stops the auto-next routine and the output.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.autoNextRunning {
		close(s.stopAutoNext)
		s.autoNextRunning = false
	}
	// Release lock before waiting so a tick in progress can finish
	s.mu.Unlock()

	s.autoNextWg.Wait()

	s.lock()
	defer s.unlock()
	s.output.Stop()
	s.playState = domain.StatePaused
	return nil
}

// startAutoNextRoutine starts the goroutine that polls for finished tracks.
func (s *PlaybackService) startAutoNextRoutine() {
	s.mu.Lock()
	if s.autoNextRunning {
		s.mu.Unlock()
		return
	}
	s.autoNextRunning = true
	s.autoNextWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.autoNextWg.Done()
		ticker := time.NewTicker(s.autoNextInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopAutoNext:
				return
			case <-ticker.C:
				s.CheckAndAutoNext()
			}
		}
	}()
}
