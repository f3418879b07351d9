package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-panes/internal/i18n"
)

// pickOption is one row of a picker.
type pickOption struct {
	ID     string
	Label  string
	Detail string
	Active bool
}

// pickerDialog selects one option and hands its ID to onPick. onPick may
// return a follow-up dialog.
type pickerDialog struct {
	title   string
	options []pickOption
	cursor  int
	offset  int
	onPick  func(id string, do doFunc) dialog
	keys    listKeys
}

const pickerRows = 12

func newPicker(title string, options []pickOption, onPick func(id string, do doFunc) dialog) *pickerDialog {
	p := &pickerDialog{title: title, options: options, onPick: onPick, keys: defaultListKeys()}
	for i, o := range options {
		if o.Active {
			p.cursor = i
			break
		}
	}
	p.scrollTo()
	return p
}

func (p *pickerDialog) scrollTo() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+pickerRows {
		p.offset = p.cursor - pickerRows + 1
	}
}

func (p *pickerDialog) update(msg tea.KeyPressMsg, do doFunc) dialog {
	if len(p.options) == 0 {
		return nil
	}
	switch {
	case key.Matches(msg, p.keys.Cancel):
		return nil
	case key.Matches(msg, p.keys.Up):
		p.cursor = (p.cursor - 1 + len(p.options)) % len(p.options)
	case key.Matches(msg, p.keys.Down):
		p.cursor = (p.cursor + 1) % len(p.options)
	case key.Matches(msg, p.keys.Enter):
		return p.onPick(p.options[p.cursor].ID, do)
	}
	p.scrollTo()
	return p
}

func (p *pickerDialog) view(st Styles, width int) string {
	var b strings.Builder
	b.WriteString(st.PaneTitle.Render(p.title))
	b.WriteString("\n\n")
	if len(p.options) == 0 {
		b.WriteString(st.Muted.Render(i18n.T("tui.picker.empty", "Nothing to choose from")))
		return b.String()
	}

	nameCol := 0
	for _, o := range p.options {
		nameCol = max(nameCol, len(o.Label))
	}
	activeTag := i18n.T("tui.modelPicker.active", "(active)")
	end := min(len(p.options), p.offset+pickerRows)
	for i := p.offset; i < end; i++ {
		o := p.options[i]
		if i == p.cursor {
			b.WriteString(st.Cursor.Render("> "))
		} else {
			b.WriteString("  ")
		}
		name := fmt.Sprintf("%-*s", nameCol, o.Label)
		if i == p.cursor {
			name = st.PaneTitle.Render(name)
		} else {
			name = st.SidebarItem.Render(name)
		}
		line := name
		if o.Active {
			line += " " + st.StatusOK.Render(activeTag)
		}
		if o.Detail != "" {
			line += "  " + st.Muted.Render(o.Detail)
		}
		b.WriteString(truncate(line, max(10, width-6)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(st.Muted.Render(i18n.T("tui.modelPicker.helpText", "↑/↓ navigate • enter select • esc cancel")))
	return b.String()
}
