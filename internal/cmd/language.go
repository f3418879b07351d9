package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/config"
	"github.com/wethinkt/go-panes/internal/i18n"
)

var languageCmd = &cobra.Command{
	Use:   "language [lang]",
	Short: "Get or set the display language",
	Long: `Get or set the display language. Use a BCP 47 tag (e.g., en, zh-Hans).

Examples:
  panes language          # show current language
  panes language zh-Hans  # set to Chinese (Simplified)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			lang := i18n.ResolveLocale(cfg.Language)
			fmt.Fprintf(out, "Current language: %s\n", lang)
			fmt.Fprintf(out, "Available: %s\n", strings.Join(i18n.Languages(), ", "))
			return nil
		}

		if !slices.Contains(i18n.Languages(), args[0]) {
			fmt.Fprintf(out, "No translation for %s yet; English is used for missing messages.\n", args[0])
		}
		cfg.Language = args[0]
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "Language set to: %s\n", args[0])
		return nil
	},
}
