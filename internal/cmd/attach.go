package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wethinkt/go-panes/internal/client"
	"github.com/wethinkt/go-panes/internal/config"
	"github.com/wethinkt/go-panes/internal/conn"
	"github.com/wethinkt/go-panes/internal/metrics"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/tui"
	"github.com/wethinkt/go-panes/internal/tui/theme"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Connect and open the interactive UI",
	Long: `Connect to the server and open the multi-pane terminal UI.

Workspaces open in the previous run are reopened, and streams that were in
flight are resumed. When stdout is not a terminal, attach behaves like watch.`,
	Args: cobra.NoArgs,
	RunE: runAttach,
}

func runAttach(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runWatch(cmd, args)
	}
	return session(cmd.Context(), func(ctx context.Context, c *client.Client, cfg config.Config, store prefs.Store) error {
		themeDir, _ := theme.Dir()
		tuilog.Log.Info("starting TUI", "server", cfg.ServerURL)
		err := tui.Run(ctx, c, tui.Options{Theme: cfg.Theme, ThemeDir: themeDir, Prefs: store})
		tuilog.Log.Info("TUI exited", "error", err)
		return err
	})
}

// session runs a client together with the config watcher and the optional
// metrics server, and calls front until it returns. Returning from front
// stops everything else.
func session(parent context.Context, front func(ctx context.Context, c *client.Client, cfg config.Config, store prefs.Store) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	store, err := prefs.OpenFile(filepath.Join(dir, "prefs.json"))
	if err != nil {
		tuilog.Log.Warn("preferences unavailable, using memory", "error", err)
	}
	var ps prefs.Store = prefs.NewMemory()
	if store != nil {
		ps = store
	}

	c := client.New(client.Options{
		URL:               cfg.ServerURL,
		Dialer:            conn.WebSocketDialer{Token: cfg.Token},
		ReconnectDelay:    cfg.Reconnect.DelayDuration(),
		ReconnectMaxDelay: cfg.Reconnect.MaxDelayDuration(),
		ReconnectJitter:   cfg.Reconnect.Jitter,
		FlushInterval:     cfg.FlushDuration(),
		MaxPanes:          cfg.MaxPanes,
		Prefs:             ps,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })

	if path, err := config.Path(); err == nil {
		g.Go(func() error {
			err := config.Watch(ctx, path, func(next config.Config) {
				if next.ServerURL != cfg.ServerURL {
					tuilog.Log.Warn("server_url changed; restart to connect to the new server", "server", next.ServerURL)
				}
				c.Reconfigure(next.Reconnect.DelayDuration(), next.Reconnect.MaxDelayDuration(), next.Reconnect.Jitter)
				tuilog.Log.SetLevel(tuilog.ParseLevel(next.LogLevel))
			})
			if err != nil {
				tuilog.Log.Warn("config watch stopped", "error", err)
			}
			return nil
		})
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(func() any { return c.View() })
		g.Go(func() error {
			tuilog.Log.Info("metrics listening", "addr", cfg.MetricsAddr)
			return srv.ListenAndServe(ctx, cfg.MetricsAddr)
		})
	}

	frontErr := make(chan error, 1)
	g.Go(func() error {
		err := front(ctx, c, cfg, ps)
		frontErr <- err
		stop()
		return err
	})

	err = g.Wait()
	select {
	case ferr := <-frontErr:
		if ferr != nil {
			return ferr
		}
	default:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
