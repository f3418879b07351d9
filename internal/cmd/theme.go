package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/config"
	"github.com/wethinkt/go-panes/internal/tui/theme"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "List and select themes",
	Long: `List and select TUI themes.

Themes control the colors of panes, message blocks, and the status bar.
User themes are JSON files in ~/.panes/themes/ and may override any subset
of the built-in dark theme. A theme chosen inside the UI is stored on the
server and wins over the configured one.

Examples:
  panes theme list
  panes theme set light`,
	Args: cobra.NoArgs,
	RunE: runThemeList,
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available themes",
	Long:  `List all built-in and user themes. The configured theme is marked with *.`,
	Args:  cobra.NoArgs,
	RunE:  runThemeList,
}

var themeSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Set the configured theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemeSet,
}

func runThemeList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, _ := theme.Dir()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, m := range theme.ListAvailable(dir) {
		mark := " "
		if m.Name == cfg.Theme {
			mark = "*"
		}
		source := "built-in"
		if !m.Builtin {
			source = m.Path
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", mark, m.Name, m.Description, source)
	}
	return tw.Flush()
}

func runThemeSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	dir, _ := theme.Dir()
	if _, err := theme.LoadByName(dir, name); err != nil {
		if errors.Is(err, theme.ErrNotFound) {
			return fmt.Errorf("theme %q not found (see 'panes theme list')", name)
		}
		return fmt.Errorf("theme %q: %w", name, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Theme = name
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Theme set to: %s\n", name)
	return nil
}
