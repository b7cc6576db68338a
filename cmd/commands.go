package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ceinwhe/zotu/internal/app"
	"github.com/ceinwhe/zotu/internal/config"
	"github.com/ceinwhe/zotu/internal/domain"
)

// cli holds the flags shared by every command and the application they open.
type cli struct {
	configPath string
	mockAudio  bool
	quiet      bool

	in  io.Reader
	out io.Writer

	app *app.Application
}

// run executes the command line in args and releases the application afterwards.
func run(args []string, in io.Reader, out, errOut io.Writer) error {
	c := &cli{in: in, out: out}
	defer c.close()

	root := c.rootCommand()
	root.SetArgs(args)
	root.SetErr(errOut)
	return root.Execute()
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "zotu",
		Short:         "A terminal music player",
		Long:          `Zotu imports a music folder into a local catalog and plays it with list, single and random loop modes.`,
		Version:       app.GetVersionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath(), "config file")
	root.PersistentFlags().BoolVar(&c.mockAudio, "mock-audio", false, "do not open the sound device")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "discard log output")

	root.AddCommand(
		c.playCommand(),
		c.importCommand(),
		c.listCommand(),
		c.favoriteCommand(),
		c.historyCommand(),
		c.versionCommand(),
	)
	return root
}

// open creates the application on first use. Commands that never play pass
// audio=false so they work without a sound device.
func (c *cli) open(cmd *cobra.Command, audio bool) (*app.Application, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg := app.Config{
		ConfigPath:   c.configPath,
		UseMockAudio: c.mockAudio || !audio,
		LogOutput:    cmd.ErrOrStderr(),
	}
	if c.quiet {
		cfg.LogOutput = io.Discard
	}
	a, err := app.NewApplication(cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Shutdown()
		c.app = nil
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (c *cli) importCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "import [folder]",
		Short: "Import a music folder into the library",
		Long:  `Scan a folder recursively and add every supported audio file to the library.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			sub := a.EventBus().Subscribe(domain.EventScanProgress, func(event domain.Event) {
				e := event.(domain.ScanProgressEvent)
				fmt.Fprintf(c.out, "\r%3.0f%% %d/%d", e.Progress.Percentage(), e.Progress.FilesScanned, e.Progress.TotalFiles)
			})
			defer a.EventBus().Unsubscribe(sub)

			var report domain.ScanReport
			if refresh {
				report, err = a.Library().Refresh(ctx, args[0])
			} else {
				report, err = a.Import(ctx, args[0])
			}
			fmt.Fprintln(c.out)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "added %d, removed %d, failed %d\n",
				len(report.Added), len(report.Removed), len(report.Failures))
			for _, f := range report.Failures {
				fmt.Fprintf(c.out, "  %s: %v\n", f.Path, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "also drop tracks whose file is gone")
	return cmd
}

func (c *cli) listCommand() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List the tracks of a collection",
		Long:  `Print the library, favorites or history as a table. A query filters the library by title, artist or album.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseView(view, args)
			if err != nil {
				return err
			}
			a, err := c.open(cmd, false)
			if err != nil {
				return err
			}
			renderTracks(c.out, a.Catalog().Tracks(v), a.Catalog().IsFavorite)
			return nil
		},
	}
	cmd.Flags().StringVarP(&view, "view", "v", "library", "collection: library, favorites or history")
	return cmd
}

func (c *cli) favoriteCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "favorite [track id]...",
		Short: "Add tracks to favorites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd, false)
			if err != nil {
				return err
			}
			for _, id := range args {
				var ok bool
				if remove {
					ok = a.Catalog().RemoveFromFavorites(id)
				} else {
					ok = a.Catalog().AddToFavorites(id)
				}
				if !ok {
					return fmt.Errorf("%s: %w", id, domain.ErrTrackNotFound)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&remove, "remove", "r", false, "remove instead of add")
	return cmd
}

func (c *cli) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently played tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd, false)
			if err != nil {
				return err
			}
			renderTracks(c.out, a.Catalog().History(), a.Catalog().IsFavorite)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every played track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd, false)
			if err != nil {
				return err
			}
			a.Catalog().ClearHistory()
			return nil
		},
	})
	return cmd
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(c.out, app.GetVersionInfo().FullString())
		},
	}
}

// parseView builds a view from the --view flag; a positional query selects a search.
func parseView(kind string, args []string) (domain.View, error) {
	if len(args) > 0 && args[0] != "" {
		return domain.View{Kind: domain.ViewSearch, Query: args[0]}, nil
	}
	k, err := domain.ParseViewKind(kind)
	if err != nil {
		return domain.View{}, err
	}
	return domain.View{Kind: k}, nil
}
