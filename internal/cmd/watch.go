package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/client"
	"github.com/wethinkt/go-panes/internal/config"
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/view"
)

var watchJSON bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect and print state changes",
	Long: `Connect to the server without a UI and print a line each time the
connection, the workspaces or the active session changes.

With --json every published view is written as one JSON object per line.

Examples:
  panes watch
  panes watch --json | jq .active.activeSlot.state`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return session(cmd.Context(), func(ctx context.Context, c *client.Client, _ config.Config, _ prefs.Store) error {
		views, unsub := c.Views()
		defer unsub()
		return printViews(ctx, out, views, watchJSON)
	})
}

// printViews writes views until ctx ends or the channel closes. In text mode
// a view whose summary equals the previous one is skipped.
func printViews(ctx context.Context, w io.Writer, views <-chan view.View, asJSON bool) error {
	enc := json.NewEncoder(w)
	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-views:
			if !ok {
				return nil
			}
			if asJSON {
				if err := enc.Encode(v); err != nil {
					return err
				}
				continue
			}
			line := summarize(v)
			if line == last {
				continue
			}
			last = line
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
}

// summarize renders the parts of v a person watching a log cares about.
func summarize(v view.View) string {
	var b strings.Builder
	switch {
	case !v.Connected:
		b.WriteString(i18n.T("status.disconnected", "Disconnected"))
	case v.Restoring:
		b.WriteString(i18n.T("status.restoring", "Restoring workspaces…"))
	default:
		b.WriteString(i18n.T("status.connected", "Connected"))
	}

	names := make([]string, 0, len(v.Workspaces))
	for _, w := range v.Workspaces {
		n := w.Name
		if w.Active {
			n = "*" + n
		}
		if w.Streaming {
			n += "(streaming)"
		}
		names = append(names, n)
	}
	fmt.Fprintf(&b, " | %s: [%s]", i18n.T("cli.watch.workspaces", "workspaces"), strings.Join(names, " "))

	if a := v.Active; a != nil {
		sl := a.ActiveSlot
		fmt.Fprintf(&b, " | %s/%s", a.Name, sl.ID)
		fmt.Fprintf(&b, " %s", i18n.Tn("cli.watch.messages", "{{.Count}} message", "{{.Count}} messages", len(sl.Messages)))
		if sl.State.Model != nil {
			fmt.Fprintf(&b, " %s/%s", sl.State.Model.Provider, sl.State.Model.ID)
		}
		if sl.Streaming() {
			b.WriteString(" " + i18n.T("cli.watch.streaming", "streaming"))
		}
		if a.Resuming > 0 {
			b.WriteString(" " + i18n.Tf("status.resuming", "Resuming %d events", a.Resuming))
		}
		if sl.Questionnaire != nil || len(sl.ExtensionRequest) > 0 || sl.CustomUI != nil {
			b.WriteString(" " + i18n.T("cli.watch.waiting", "waiting for input"))
		}
		if a.Error != "" {
			b.WriteString(" error: " + a.Error)
		}
	}
	if v.Error != "" {
		b.WriteString(" | error: " + v.Error)
	}
	return b.String()
}

