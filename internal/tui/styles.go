package tui

import (
	"charm.land/lipgloss/v2"

	"github.com/wethinkt/go-panes/internal/tui/theme"
)

// Styles holds the lipgloss styles computed from a theme.
type Styles struct {
	Theme theme.Theme

	ActiveBorder   lipgloss.Style
	InactiveBorder lipgloss.Style

	StatusBar   lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style

	Sidebar         lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	PaneTitle lipgloss.Style
	Muted     lipgloss.Style

	UserBlock       lipgloss.Style
	AssistantBlock  lipgloss.Style
	ThinkingBlock   lipgloss.Style
	ToolCallBlock   lipgloss.Style
	ToolResultBlock lipgloss.Style
	BashBlock       lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ThinkingLabel  lipgloss.Style
	ToolLabel      lipgloss.Style

	Dialog            lipgloss.Style
	ConfirmPrompt     lipgloss.Style
	ConfirmSelected   lipgloss.Style
	ConfirmUnselected lipgloss.Style
	Cursor            lipgloss.Style
}

func applyStyle(s lipgloss.Style, ts theme.Style) lipgloss.Style {
	if ts.Fg != "" {
		s = s.Foreground(lipgloss.Color(ts.Fg))
	}
	if ts.Bg != "" {
		s = s.Background(lipgloss.Color(ts.Bg))
	}
	if ts.Bold {
		s = s.Bold(true)
	}
	if ts.Italic {
		s = s.Italic(true)
	}
	if ts.Underline {
		s = s.Underline(true)
	}
	return s
}

func newStyles(t theme.Theme) Styles {
	block := func(ts theme.Style) lipgloss.Style {
		return applyStyle(lipgloss.NewStyle(), ts).Padding(0, 1)
	}
	return Styles{
		Theme: t,

		ActiveBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.GetBorderActive())),
		InactiveBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.GetBorderInactive())),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.TextSecondary.Fg)).
			Padding(0, 1),
		StatusOK:    applyStyle(lipgloss.NewStyle(), t.StatusOK),
		StatusWarn:  applyStyle(lipgloss.NewStyle(), t.StatusWarn),
		StatusError: applyStyle(lipgloss.NewStyle(), t.StatusError),

		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color(t.GetBorderInactive())).
			Padding(0, 1),
		SidebarItem: applyStyle(lipgloss.NewStyle(), t.TextSecondary),
		SidebarSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.GetAccent())).
			Bold(true),

		TabActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.GetAccent())).
			Bold(true).
			Underline(true).
			Padding(0, 1),
		TabInactive: applyStyle(lipgloss.NewStyle(), t.TextMuted).Padding(0, 1),

		PaneTitle: applyStyle(lipgloss.NewStyle(), t.TextPrimary).Bold(true),
		Muted:     applyStyle(lipgloss.NewStyle(), t.TextMuted),

		UserBlock:       block(t.UserBlock),
		AssistantBlock:  block(t.AssistantBlock),
		ThinkingBlock:   block(t.ThinkingBlock),
		ToolCallBlock:   block(t.ToolCallBlock),
		ToolResultBlock: block(t.ToolResultBlock),
		BashBlock:       block(t.BashBlock),

		UserLabel:      applyStyle(lipgloss.NewStyle(), t.UserLabel),
		AssistantLabel: applyStyle(lipgloss.NewStyle(), t.AssistantLabel),
		ThinkingLabel:  applyStyle(lipgloss.NewStyle(), t.ThinkingLabel),
		ToolLabel:      applyStyle(lipgloss.NewStyle(), t.ToolLabel),

		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.GetAccent())).
			Padding(1, 2),
		ConfirmPrompt:     applyStyle(lipgloss.NewStyle(), t.ConfirmPrompt),
		ConfirmSelected:   applyStyle(lipgloss.NewStyle(), t.ConfirmSelected).Padding(0, 2),
		ConfirmUnselected: applyStyle(lipgloss.NewStyle(), t.ConfirmUnselected).Padding(0, 2),
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.GetAccent())).
			Bold(true),
	}
}
