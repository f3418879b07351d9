package tui

import (
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/i18n"
)

// doFunc queues an action on the client loop.
type doFunc func(fn func(d *dispatch.Dispatcher))

// dialog is a modal that owns the keyboard while open. update returns the
// dialog to keep showing, or nil once it is done.
type dialog interface {
	update(msg tea.KeyPressMsg, do doFunc) dialog
	view(st Styles, width int) string
}

// confirmDialog asks a yes/no question and runs onYes on yes.
type confirmDialog struct {
	prompt    string
	selection bool
	onYes     func(d *dispatch.Dispatcher)
	keys      confirmKeyMap
}

type confirmKeyMap struct {
	Toggle key.Binding
	Submit key.Binding
	Yes    key.Binding
	No     key.Binding
	Cancel key.Binding
}

func newConfirm(prompt string, onYes func(d *dispatch.Dispatcher)) *confirmDialog {
	return &confirmDialog{
		prompt: prompt,
		onYes:  onYes,
		keys: confirmKeyMap{
			Toggle: key.NewBinding(key.WithKeys("left", "right", "h", "l", "tab", "shift+tab")),
			Submit: key.NewBinding(key.WithKeys("enter")),
			Yes:    key.NewBinding(key.WithKeys("y", "Y")),
			No:     key.NewBinding(key.WithKeys("n", "N")),
			Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c")),
		},
	}
}

func (c *confirmDialog) update(msg tea.KeyPressMsg, do doFunc) dialog {
	switch {
	case key.Matches(msg, c.keys.Cancel), key.Matches(msg, c.keys.No):
		return nil
	case key.Matches(msg, c.keys.Yes):
		do(c.onYes)
		return nil
	case key.Matches(msg, c.keys.Toggle):
		c.selection = !c.selection
	case key.Matches(msg, c.keys.Submit):
		if c.selection {
			do(c.onYes)
		}
		return nil
	}
	return c
}

func (c *confirmDialog) view(st Styles, _ int) string {
	yes := i18n.T("tui.confirm.yes", "Yes")
	no := i18n.T("tui.confirm.no", "No")
	var aff, neg string
	if c.selection {
		aff, neg = st.ConfirmSelected.Render(yes), st.ConfirmUnselected.Render(no)
	} else {
		aff, neg = st.ConfirmUnselected.Render(yes), st.ConfirmSelected.Render(no)
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, aff, "  ", neg)
	return st.ConfirmPrompt.Render(c.prompt) + "\n\n" + buttons
}
