package state

import (
	"slices"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// LocalEvent is a client-originated event. Like protocol.Event the set is
// closed.
type LocalEvent interface {
	applyTo(s *Store)
}

// ConnectionOpened marks the socket as open.
type ConnectionOpened struct{}

// ConnectionClosed marks the socket as closed. Workspaces and slots are kept;
// connection-local bookkeeping is reset.
type ConnectionClosed struct{}

// ConnectionFailed records a transport error.
type ConnectionFailed struct{ Err string }

// TornDown ends a run of the client. The one-shot restoration flags are
// cleared so the next connect restores the persisted workspaces again.
type TornDown struct{}

// LocalError is a client-side error shown to the user.
type LocalError struct{ Message string }

// QuestionnaireResolved dismisses a questionnaire after it was answered.
type QuestionnaireResolved struct {
	WorkspaceID string
	SlotID      string
	ToolCallID  string
}

// ExtensionUIResolved dismisses an extension request after it was answered.
type ExtensionUIResolved struct {
	WorkspaceID string
	SlotID      string
}

// DraftChanged records the unsent input of a workspace.
type DraftChanged struct {
	WorkspacePath string
	Text          string
}

// LayoutChanged installs a locally edited tab set.
type LayoutChanged struct {
	WorkspaceID string
	Tabs        layout.TabSet
}

// ActiveWorkspaceChanged switches the active workspace.
type ActiveWorkspaceChanged struct{ WorkspaceID string }

// RightPaneToggled opens or closes a workspace's right pane.
type RightPaneToggled struct {
	WorkspaceID string
	Open        bool
}

// SidebarResized records a new sidebar width.
type SidebarResized struct{ Width int }

// ThemeChanged records a new theme.
type ThemeChanged struct{ ThemeID string }

func (ConnectionOpened) applyTo(s *Store) {
	s.state.Connected = true
	s.state.Error = ""
}

func (ConnectionClosed) applyTo(s *Store) {
	s.state.Connected = false
	s.state.Restoration.Pending = 0
	clear(s.early)
}

func (TornDown) applyTo(s *Store) {
	s.state.Connected = false
	s.state.Restoration = Restoration{}
	clear(s.early)
}

func (e ConnectionFailed) applyTo(s *Store) {
	s.state.Error = e.Err
}

func (e LocalError) applyTo(s *Store) {
	tuilog.Log.Warn("local error", "message", e.Message)
	s.state.Error = e.Message
}

func (e QuestionnaireResolved) applyTo(s *Store) {
	w := s.state.Workspaces[e.WorkspaceID]
	if w == nil {
		return
	}
	if sl := w.Slots[e.SlotID]; sl != nil && sl.Questionnaire != nil && sl.Questionnaire.ToolCallID == e.ToolCallID {
		sl.Questionnaire = nil
	}
}

func (e ExtensionUIResolved) applyTo(s *Store) {
	w := s.state.Workspaces[e.WorkspaceID]
	if w == nil {
		return
	}
	if sl := w.Slots[e.SlotID]; sl != nil {
		sl.ExtensionRequest = nil
	}
}

func (e DraftChanged) applyTo(s *Store) {
	ui := &s.state.UI
	if ui.DraftInputs == nil {
		ui.DraftInputs = map[string]string{}
	}
	if e.Text == "" {
		delete(ui.DraftInputs, e.WorkspacePath)
		return
	}
	ui.DraftInputs[e.WorkspacePath] = e.Text
}

func (e LayoutChanged) applyTo(s *Store) {
	w := s.state.Workspaces[e.WorkspaceID]
	if w == nil {
		return
	}
	w.Tabs = e.Tabs
	ui := &s.state.UI
	if ui.PaneTabsByWorkspace == nil {
		ui.PaneTabsByWorkspace = map[string]protocol.PaneTabs{}
	}
	ui.PaneTabsByWorkspace[w.Path] = e.Tabs.ToWire()
	s.fx.SaveUIState = true
}

func (e ActiveWorkspaceChanged) applyTo(s *Store) {
	w := s.state.Workspaces[e.WorkspaceID]
	if w == nil {
		return
	}
	s.state.ActiveWorkspaceID = w.ID
	s.state.UI.ActiveWorkspacePath = w.Path
	if !slices.Contains(s.state.UI.OpenWorkspaces, w.Path) {
		s.state.UI.OpenWorkspaces = append(s.state.UI.OpenWorkspaces, w.Path)
	}
	s.fx.SaveUIState = true
}

func (e RightPaneToggled) applyTo(s *Store) {
	w := s.state.Workspaces[e.WorkspaceID]
	if w == nil {
		return
	}
	reducer{s}.setRightPane(w, e.Open)
	s.fx.SaveUIState = true
}

func (e SidebarResized) applyTo(s *Store) {
	s.state.UI.SidebarWidth = e.Width
}

func (e ThemeChanged) applyTo(s *Store) {
	s.state.UI.ThemeID = e.ThemeID
}
