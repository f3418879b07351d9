// panes is a terminal client for a coding agent server. It shows every open
// workspace with its agent sessions in resizable panes.
package main

import (
	"os"

	"github.com/wethinkt/go-panes/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
