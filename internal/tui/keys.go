package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the bindings of the main screen.
type keyMap struct {
	Submit  key.Binding
	Abort   key.Binding
	Quit    key.Binding
	Help    key.Binding
	ScrollU key.Binding
	ScrollD key.Binding

	SplitRight key.Binding
	SplitDown  key.Binding
	ClosePane  key.Binding
	NextPane   key.Binding
	PrevPane   key.Binding
	Grow       key.Binding
	Shrink     key.Binding

	NewTab   key.Binding
	CloseTab key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding

	OpenWorkspace  key.Binding
	CloseWorkspace key.Binding
	NextWorkspace  key.Binding
	PrevWorkspace  key.Binding

	PickModel    key.Binding
	PickThinking key.Binding
	PickSession  key.Binding
	NewSession   key.Binding
	Compact      key.Binding
	Fork         key.Binding
	Sidebar      key.Binding
	Wider        key.Binding
	Narrower     key.Binding
	Theme        key.Binding
	Deploy       key.Binding
	Refresh      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Abort:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "abort")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		ScrollU: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollD: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),

		SplitRight: key.NewBinding(key.WithKeys("alt+\\"), key.WithHelp("alt+\\", "split right")),
		SplitDown:  key.NewBinding(key.WithKeys("alt+-"), key.WithHelp("alt+-", "split down")),
		ClosePane:  key.NewBinding(key.WithKeys("alt+w"), key.WithHelp("alt+w", "close pane")),
		NextPane:   key.NewBinding(key.WithKeys("alt+]"), key.WithHelp("alt+]", "next pane")),
		PrevPane:   key.NewBinding(key.WithKeys("alt+["), key.WithHelp("alt+[", "prev pane")),
		Grow:       key.NewBinding(key.WithKeys("alt+="), key.WithHelp("alt+=", "grow pane")),
		Shrink:     key.NewBinding(key.WithKeys("alt+0"), key.WithHelp("alt+0", "shrink pane")),

		NewTab:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "new tab")),
		CloseTab: key.NewBinding(key.WithKeys("alt+x"), key.WithHelp("alt+x", "close tab")),
		NextTab:  key.NewBinding(key.WithKeys("alt+."), key.WithHelp("alt+.", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("alt+,"), key.WithHelp("alt+,", "prev tab")),

		OpenWorkspace:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open workspace")),
		CloseWorkspace: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close workspace")),
		NextWorkspace:  key.NewBinding(key.WithKeys("alt+down"), key.WithHelp("alt+↓", "next workspace")),
		PrevWorkspace:  key.NewBinding(key.WithKeys("alt+up"), key.WithHelp("alt+↑", "prev workspace")),

		PickModel:    key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "model")),
		PickThinking: key.NewBinding(key.WithKeys("alt+l"), key.WithHelp("alt+l", "thinking level")),
		PickSession:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sessions")),
		NewSession:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new session")),
		Compact:      key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "compact")),
		Fork:         key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "fork")),
		Sidebar:      key.NewBinding(key.WithKeys("alt+b"), key.WithHelp("alt+b", "side pane")),
		Wider:        key.NewBinding(key.WithKeys("alt+right"), key.WithHelp("alt+→", "wider sidebar")),
		Narrower:     key.NewBinding(key.WithKeys("alt+left"), key.WithHelp("alt+←", "narrower sidebar")),
		Theme:        key.NewBinding(key.WithKeys("alt+y"), key.WithHelp("alt+y", "theme")),
		Deploy:       key.NewBinding(key.WithKeys("alt+d"), key.WithHelp("alt+d", "deploy")),
		Refresh:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "refresh")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Abort, k.SplitRight, k.NextPane, k.OpenWorkspace, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Abort, k.ScrollU, k.ScrollD, k.Help, k.Quit},
		{k.SplitRight, k.SplitDown, k.ClosePane, k.NextPane, k.PrevPane, k.Grow, k.Shrink},
		{k.NewTab, k.CloseTab, k.NextTab, k.PrevTab, k.Sidebar, k.Wider, k.Narrower, k.Theme},
		{k.OpenWorkspace, k.CloseWorkspace, k.NextWorkspace, k.PrevWorkspace, k.Deploy},
		{k.PickModel, k.PickThinking, k.PickSession, k.NewSession, k.Compact, k.Fork, k.Refresh},
	}
}

// listKeys drive pickers and dialogs.
type listKeys struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Enter  key.Binding
	Cancel key.Binding
}

func defaultListKeys() listKeys {
	return listKeys{
		Up:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		Toggle: key.NewBinding(key.WithKeys("space")),
		Enter:  key.NewBinding(key.WithKeys("enter")),
		Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c")),
	}
}
