package tui

import "github.com/charmbracelet/x/ansi"

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
