package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ceinwhe/zotu/internal/domain"
)

// renderTracks prints tracks as a table. isFavorite marks the favorite column.
func renderTracks(w io.Writer, tracks []domain.Track, isFavorite func(id string) bool) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "no tracks")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "ID", "Title", "Artist", "Album", "Length", "♥"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 4, WidthMax: 30},
		{Number: 5, WidthMax: 30},
		{Number: 6, Align: text.AlignRight},
	})

	for i, tr := range tracks {
		fav := ""
		if isFavorite != nil && isFavorite(tr.ID) {
			fav = "♥"
		}
		t.AppendRow(table.Row{i + 1, tr.ID, tr.Title, tr.Artist, tr.Album, formatDuration(tr.Duration), fav})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(tracks))})
	t.Render()
}

// formatDuration renders d as m:ss, or "-" when unknown.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// formatNowPlaying renders a one-line status for the active track.
func formatNowPlaying(np domain.NowPlaying, mode domain.LoopMode) string {
	return fmt.Sprintf("▶ %s - %s [%s] (%s)", np.Artist, np.Title, formatDuration(np.Duration), mode)
}
