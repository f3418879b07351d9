// Package dispatch turns user intents into outbound commands addressed to
// the active workspace and the slot behind its focused pane.
//
// The Dispatcher never mutates state itself. Client-side consequences such
// as a local error or a dismissed dialog are emitted as state.LocalEvent
// values through the Sink.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

var (
	ErrNoActiveWorkspace = errors.New("no active workspace")
	ErrNoActiveSlot      = errors.New("no active session slot")
	ErrInvalidInput      = errors.New("invalid structured input")
)

// Sink receives what the Dispatcher produces.
type Sink interface {
	Send(cmd protocol.Command)
	Local(ev state.LocalEvent)
}

// Dispatcher addresses commands. It reads state through view and is used
// from the same goroutine that owns the Store.
type Dispatcher struct {
	view func() *state.State
	sink Sink

	// NewSlotID names slots created by splitting a pane or adding a tab.
	NewSlotID func() string
	// MaxPanes caps leaves per tab below layout.MaxPanes.
	MaxPanes int
}

// New returns a Dispatcher reading state from view.
func New(view func() *state.State, sink Sink) *Dispatcher {
	return &Dispatcher{
		view:      view,
		sink:      sink,
		NewSlotID: func() string { return "slot-" + uuid.NewString() },
		MaxPanes:  layout.MaxPanes,
	}
}

// active resolves the active workspace or raises a local error.
func (d *Dispatcher) active() (*state.Workspace, error) {
	w := d.view().ActiveWorkspace()
	if w == nil {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveWorkspace", "No active workspace")})
		return nil, ErrNoActiveWorkspace
	}
	return w, nil
}

// target resolves the active workspace and the slot of its focused pane.
func (d *Dispatcher) target() (protocol.Target, error) {
	w, err := d.active()
	if err != nil {
		return protocol.Target{}, err
	}
	tab, ok := w.Tabs.ActiveTab()
	if !ok {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveSlot", "No active session slot")})
		return protocol.Target{}, ErrNoActiveSlot
	}
	pane, ok := tab.Tree.FocusedPane()
	if !ok || pane.SlotID == "" {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveSlot", "No active session slot")})
		return protocol.Target{}, ErrNoActiveSlot
	}
	return protocol.Target{WorkspaceID: w.ID, SessionSlotID: pane.SlotID}, nil
}

// resolve checks that t names a known slot. A zero Target resolves to the
// focused slot.
func (d *Dispatcher) resolve(t protocol.Target) (protocol.Target, error) {
	if t.WorkspaceID == "" {
		return d.target()
	}
	if t.SessionSlotID == "" {
		t.SessionSlotID = protocol.DefaultSlotID
	}
	w := d.view().Workspace(t.WorkspaceID)
	if w == nil {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveWorkspace", "No active workspace")})
		return protocol.Target{}, ErrNoActiveWorkspace
	}
	if w.Slot(t.SessionSlotID) == nil {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveSlot", "No active session slot")})
		return protocol.Target{}, ErrNoActiveSlot
	}
	return t, nil
}

func (d *Dispatcher) sendTo(build func(protocol.Target) protocol.Command) error {
	t, err := d.target()
	if err != nil {
		return err
	}
	d.sink.Send(build(t))
	return nil
}

// OpenWorkspace asks the server to open path.
func (d *Dispatcher) OpenWorkspace(path string) {
	d.sink.Send(protocol.OpenWorkspace{Path: path})
}

// CloseWorkspace closes the workspace with id, or the active one when id is
// empty.
func (d *Dispatcher) CloseWorkspace(id string) error {
	if id == "" {
		w, err := d.active()
		if err != nil {
			return err
		}
		id = w.ID
	}
	d.sink.Send(protocol.CloseWorkspace{WorkspaceID: id})
	return nil
}

// SelectWorkspace makes id the active workspace.
func (d *Dispatcher) SelectWorkspace(id string) {
	d.sink.Local(state.ActiveWorkspaceChanged{WorkspaceID: id})
}

// BrowseDirectory lists path, or the server's default root when empty.
func (d *Dispatcher) BrowseDirectory(path string) {
	d.sink.Send(protocol.BrowseDirectory{Path: path})
}

// Prompt starts a turn in the active slot.
func (d *Dispatcher) Prompt(message string, images []protocol.ImageAttachment) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.Prompt{Target: t, Message: message, Images: images}
	})
}

// Steer interrupts the running turn with message.
func (d *Dispatcher) Steer(message string, images []protocol.ImageAttachment) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.Steer{Target: t, Message: message, Images: images}
	})
}

// FollowUp queues message until the running turn ends.
func (d *Dispatcher) FollowUp(message string, images []protocol.ImageAttachment) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.FollowUp{Target: t, Message: message, Images: images}
	})
}

// Submit sends message as a prompt, or as a steer while the slot streams.
func (d *Dispatcher) Submit(message string, images []protocol.ImageAttachment) error {
	t, err := d.target()
	if err != nil {
		return err
	}
	var streaming bool
	if w := d.view().Workspace(t.WorkspaceID); w != nil {
		if sl := w.Slot(t.SessionSlotID); sl != nil {
			streaming = sl.State.IsStreaming
		}
	}
	if streaming {
		d.sink.Send(protocol.Steer{Target: t, Message: message, Images: images})
	} else {
		d.sink.Send(protocol.Prompt{Target: t, Message: message, Images: images})
	}
	return nil
}

func (d *Dispatcher) Abort() error {
	return d.sendTo(func(t protocol.Target) protocol.Command { return protocol.Abort{Target: t} })
}

func (d *Dispatcher) SetModel(provider, modelID string) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.SetModel{Target: t, Provider: provider, ModelID: modelID}
	})
}

func (d *Dispatcher) SetThinkingLevel(level string) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.SetThinkingLevel{Target: t, Level: level}
	})
}

func (d *Dispatcher) NewSession() error {
	return d.sendTo(func(t protocol.Target) protocol.Command { return protocol.NewSession{Target: t} })
}

func (d *Dispatcher) SwitchSession(sessionID string) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.SwitchSession{Target: t, SessionID: sessionID}
	})
}

func (d *Dispatcher) Compact(customInstructions string) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.Compact{Target: t, CustomInstructions: customInstructions}
	})
}

func (d *Dispatcher) Fork(entryID string) error {
	return d.sendTo(func(t protocol.Target) protocol.Command { return protocol.Fork{Target: t, EntryID: entryID} })
}

func (d *Dispatcher) GetForkMessages() error {
	return d.sendTo(func(t protocol.Target) protocol.Command { return protocol.GetForkMessages{Target: t} })
}

// Refresh re-requests state and transcript of the active slot.
func (d *Dispatcher) Refresh() error {
	t, err := d.target()
	if err != nil {
		return err
	}
	d.sink.Send(protocol.GetState{Target: t})
	d.sink.Send(protocol.GetMessages{Target: t})
	return nil
}

// RefreshSessions re-requests the session and model lists of the active
// workspace.
func (d *Dispatcher) RefreshSessions() error {
	w, err := d.active()
	if err != nil {
		return err
	}
	d.sink.Send(protocol.GetSessions{WorkspaceID: w.ID})
	d.sink.Send(protocol.GetModels{WorkspaceID: w.ID})
	return nil
}

func (d *Dispatcher) Bash(command string, excludeFromContext bool) error {
	return d.sendTo(func(t protocol.Target) protocol.Command {
		return protocol.Bash{Target: t, Command: command, ExcludeFromContext: excludeFromContext}
	})
}

func (d *Dispatcher) AbortBash() error {
	return d.sendTo(func(t protocol.Target) protocol.Command { return protocol.AbortBash{Target: t} })
}

// QuestionnaireResponse answers the questionnaire toolCallID raised by the
// slot at to. answers is the user's JSON array of answers; when it does not
// parse nothing is sent.
func (d *Dispatcher) QuestionnaireResponse(to protocol.Target, toolCallID string, answers []byte, cancelled bool) error {
	var parsed []protocol.QuestionAnswer
	if !cancelled {
		if err := json.Unmarshal(answers, &parsed); err != nil {
			tuilog.Log.Warn("dispatch: malformed questionnaire answers", "toolCallId", toolCallID, "error", err)
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	t, err := d.resolve(to)
	if err != nil {
		return err
	}
	d.sink.Send(protocol.QuestionnaireResponse{Target: t, ToolCallID: toolCallID, Answers: parsed, Cancelled: cancelled})
	d.sink.Local(state.QuestionnaireResolved{WorkspaceID: t.WorkspaceID, SlotID: t.SessionSlotID, ToolCallID: toolCallID})
	return nil
}

// ExtensionUIResponse answers the extension request pending on the slot at
// to. response must be valid JSON.
func (d *Dispatcher) ExtensionUIResponse(to protocol.Target, response []byte) error {
	if !json.Valid(response) {
		tuilog.Log.Warn("dispatch: malformed extension UI response", "bytes", len(response))
		return ErrInvalidInput
	}
	t, err := d.resolve(to)
	if err != nil {
		return err
	}
	d.sink.Send(protocol.ExtensionUIResponse{Target: t, Response: json.RawMessage(response)})
	d.sink.Local(state.ExtensionUIResolved{WorkspaceID: t.WorkspaceID, SlotID: t.SessionSlotID})
	return nil
}

// CustomUIInput forwards input to the custom UI open on the slot at to.
// input must be valid JSON.
func (d *Dispatcher) CustomUIInput(to protocol.Target, input []byte) error {
	if !json.Valid(input) {
		tuilog.Log.Warn("dispatch: malformed custom UI input", "bytes", len(input))
		return ErrInvalidInput
	}
	t, err := d.resolve(to)
	if err != nil {
		return err
	}
	d.sink.Send(protocol.CustomUIInput{Target: t, Input: json.RawMessage(input)})
	return nil
}

// SetDraft records the unsent input of the active workspace.
func (d *Dispatcher) SetDraft(text string) error {
	w, err := d.active()
	if err != nil {
		return err
	}
	d.sink.Local(state.DraftChanged{WorkspacePath: w.Path, Text: text})
	d.sink.Send(protocol.SetDraftInput{WorkspacePath: w.Path, Value: text})
	return nil
}

func (d *Dispatcher) SetSidebarWidth(width int) {
	d.sink.Local(state.SidebarResized{Width: width})
	d.sink.Send(protocol.SetSidebarWidth{Width: width})
}

func (d *Dispatcher) SetTheme(themeID string) {
	d.sink.Local(state.ThemeChanged{ThemeID: themeID})
	d.sink.Send(protocol.SetTheme{ThemeID: themeID})
}

// ToggleRightPane flips the right pane of the active workspace.
func (d *Dispatcher) ToggleRightPane() error {
	w, err := d.active()
	if err != nil {
		return err
	}
	d.sink.Local(state.RightPaneToggled{WorkspaceID: w.ID, Open: !w.RightPaneOpen})
	return nil
}

func (d *Dispatcher) Deploy() {
	d.sink.Send(protocol.Deploy{})
}
