package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-panes/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionJSON {
			_ = json.NewEncoder(cmd.OutOrStdout()).Encode(version.GetInfo("panes"))
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String("panes"))
	},
}
