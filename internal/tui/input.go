package tui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/i18n"
)

// inputDialog asks for one line of text. onSubmit runs on enter; onCancel,
// if set, runs on esc.
type inputDialog struct {
	title    string
	detail   string
	input    textinput.Model
	onSubmit func(d *dispatch.Dispatcher, value string)
	onCancel func(d *dispatch.Dispatcher)
}

func newInput(title, placeholder, value string, onSubmit func(d *dispatch.Dispatcher, value string)) *inputDialog {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &inputDialog{title: title, input: ti, onSubmit: onSubmit}
}

func (in *inputDialog) update(msg tea.KeyPressMsg, do doFunc) dialog {
	switch msg.String() {
	case "esc", "ctrl+c":
		if in.onCancel != nil {
			do(in.onCancel)
		}
		return nil
	case "enter":
		value := strings.TrimSpace(in.input.Value())
		if value == "" {
			return in
		}
		do(func(d *dispatch.Dispatcher) { in.onSubmit(d, value) })
		return nil
	}
	in.input, _ = in.input.Update(msg)
	return in
}

func (in *inputDialog) view(st Styles, width int) string {
	in.input.SetWidth(max(10, width-8))
	var b strings.Builder
	b.WriteString(st.PaneTitle.Render(in.title))
	b.WriteString("\n\n")
	if in.detail != "" {
		b.WriteString(st.Muted.Render(in.detail))
		b.WriteString("\n\n")
	}
	b.WriteString(in.input.View())
	b.WriteString("\n\n")
	b.WriteString(st.Muted.Render(i18n.T("tui.input.help", "enter confirm • esc cancel")))
	return b.String()
}
