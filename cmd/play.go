package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ceinwhe/zotu/internal/app"
	"github.com/ceinwhe/zotu/internal/domain"
)

const playHelp = `commands:
  p            play / pause
  n, b         next, previous
  l            cycle loop mode (list, single, random)
  + / -        volume up / down
  f            toggle favorite on the current track
  v <view>     switch to library, favorites or history
  s <query>    play search results
  j <number>   jump to a row of the current playlist
  ls           show the current playlist
  q            quit`

// volumeStep is the change applied by + and -.
const volumeStep = 0.1

func (c *cli) playCommand() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "play [query]",
		Short: "Play the library interactively",
		Long: `Play a collection and read single-letter commands from stdin.
A query plays the matching tracks. The music directory, if set, is watched for new files.

` + playHelp,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd, true)
			if err != nil {
				return err
			}

			v := a.View()
			if view != "" || len(args) > 0 {
				if v, err = parseView(view, args); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return c.play(ctx, a, v)
		},
	}
	cmd.Flags().StringVarP(&view, "view", "v", "", "collection to play (default: the last one)")
	return cmd
}

func (c *cli) play(ctx context.Context, a *app.Application, v domain.View) error {
	// event handlers print from the auto-next goroutine
	c.out = &lockedWriter{w: c.out}

	bus := a.EventBus()
	subs := []domain.SubscriptionID{
		bus.Subscribe(domain.EventTrackStarted, func(event domain.Event) {
			e := event.(domain.TrackStartedEvent)
			fmt.Fprintln(c.out, formatNowPlaying(e.Track, a.Playback().LoopMode()))
		}),
		bus.Subscribe(domain.EventTrackError, func(event domain.Event) {
			e := event.(domain.TrackErrorEvent)
			fmt.Fprintf(c.out, "✗ %s: %v\n", e.FilePath, e.Error)
		}),
		bus.Subscribe(domain.EventLibraryUpdated, func(event domain.Event) {
			e := event.(domain.LibraryUpdatedEvent)
			fmt.Fprintf(c.out, "library: %d tracks\n", e.Count)
		}),
	}
	defer func() {
		for _, id := range subs {
			bus.Unsubscribe(id)
		}
	}()

	go func() {
		if err := a.Run(ctx); err != nil {
			a.Logger().Warn("library watch stopped", slog.Any("error", err))
		}
	}()

	if n := a.SelectView(v); n == 0 {
		fmt.Fprintf(c.out, "%s is empty\n", v.Kind)
	} else {
		startPlaylist(a)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handleCommand(a, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handleCommand applies one interactive command and reports whether to quit.
func (c *cli) handleCommand(a *app.Application, line string) bool {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	playback := a.Playback()

	switch verb {
	case "":
	case "q", "quit":
		return true
	case "p":
		playback.TogglePlay()
		fmt.Fprintln(c.out, playback.State().State)
	case "n":
		if !playback.Next() {
			fmt.Fprintln(c.out, "nothing to play")
		}
	case "b":
		if !playback.Previous() {
			fmt.Fprintln(c.out, "nothing to play")
		}
	case "l":
		fmt.Fprintln(c.out, "loop:", playback.ToggleLoopMode())
	case "+", "-":
		step := volumeStep
		if verb == "-" {
			step = -step
		}
		vol := math.Round(math.Min(1, math.Max(0, playback.State().Volume+step))*100) / 100
		if err := playback.SetVolume(vol); err != nil {
			fmt.Fprintln(c.out, err)
			return false
		}
		fmt.Fprintf(c.out, "volume: %.0f%%\n", vol*100)
	case "f":
		np, ok := playback.NowPlaying()
		if !ok {
			fmt.Fprintln(c.out, "nothing is playing")
			return false
		}
		if a.Catalog().ToggleFavorite(np.ID) {
			fmt.Fprintln(c.out, "♥", np.Title)
		} else {
			fmt.Fprintln(c.out, "♡", np.Title)
		}
	case "v":
		kind, err := domain.ParseViewKind(arg)
		if err != nil {
			fmt.Fprintln(c.out, err)
			return false
		}
		c.switchView(a, domain.View{Kind: kind})
	case "s":
		c.switchView(a, domain.View{Kind: domain.ViewSearch, Query: arg})
	case "j":
		n, err := strconv.Atoi(arg)
		items := playback.Playlist()
		if err != nil || n < 1 || n > len(items) {
			fmt.Fprintf(c.out, "row must be between 1 and %d\n", len(items))
			return false
		}
		if err := a.PlayTrack(items[n-1].ID); err != nil {
			fmt.Fprintln(c.out, err)
		}
	case "ls":
		renderTracks(c.out, playback.Playlist(), a.Catalog().IsFavorite)
	default:
		fmt.Fprintln(c.out, playHelp)
	}
	return false
}

func (c *cli) switchView(a *app.Application, v domain.View) {
	n := a.SelectView(v)
	fmt.Fprintf(c.out, "%s: %d tracks\n", v.Kind, n)
	if n > 0 {
		startPlaylist(a)
	}
}

// startPlaylist plays the first track of the loop mode, or the first row
// when the mode has no starting point.
func startPlaylist(a *app.Application) {
	if a.Playback().Next() {
		return
	}
	if items := a.Playback().Playlist(); len(items) > 0 {
		_ = a.PlayTrack(items[0].ID)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
