// Package state holds the client-side state tree and the reducer that folds
// server events into it.
//
// Every mutation happens on a single goroutine through Store.Apply or
// Store.ApplyLocal. Handlers validate before they mutate, so an event that
// names an unknown workspace or slot is dropped without touching anything.
package state

import (
	"encoding/json"
	"slices"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
)

// ToolStatus is the lifecycle stage of a tool execution.
type ToolStatus string

const (
	ToolRunning  ToolStatus = "running"
	ToolComplete ToolStatus = "complete"
	ToolError    ToolStatus = "error"
)

// ToolExecution tracks one tool call of the current turn.
type ToolExecution struct {
	ID      string
	Name    string
	Args    json.RawMessage
	Status  ToolStatus
	Partial json.RawMessage
	Result  json.RawMessage
	IsError bool
}

// BashExecution is the live user-initiated shell command of a slot. Its
// transcript twin is the bash-execution message at MessageIndex.
type BashExecution struct {
	ID                 string
	Command            string
	Output             string
	Running            bool
	ExitCode           *int
	Cancelled          bool
	Truncated          bool
	IsError            bool
	ExcludeFromContext bool
	FullOutputPath     string
	MessageIndex       int
}

// Questionnaire is a pending questionnaire dialog.
type Questionnaire struct {
	ToolCallID string
	Questions  []protocol.Question
}

// CustomUI is an open custom UI session. Component is opaque.
type CustomUI struct {
	SessionID string
	Component json.RawMessage
}

// Slot is one independent agent session inside a workspace.
type Slot struct {
	ID       string
	State    protocol.SessionState
	Messages []protocol.Message
	Commands []protocol.SlashCommand

	// StreamingText and StreamingThinking accumulate deltas of the message
	// being streamed.
	StreamingText     string
	StreamingThinking string
	streamingIndex    int

	ActiveTools   []ToolExecution
	FinishedTools map[string]ToolExecution
	Bash          *BashExecution

	Questionnaire    *Questionnaire
	ExtensionRequest json.RawMessage
	CustomUI         *CustomUI

	Queued       protocol.QueuedMessages
	ForkMessages []protocol.ForkMessage
	Error        string
}

func newSlot(id string) *Slot {
	return &Slot{ID: id, streamingIndex: -1, FinishedTools: map[string]ToolExecution{}}
}

// StreamingIndex returns the index of the message being streamed, or -1.
func (s *Slot) StreamingIndex() int { return s.streamingIndex }

// Tool returns the active or parked execution for id.
func (s *Slot) Tool(id string) (ToolExecution, bool) {
	for _, t := range s.ActiveTools {
		if t.ID == id {
			return t, true
		}
	}
	t, ok := s.FinishedTools[id]
	return t, ok
}

func (s *Slot) clearStreaming() {
	s.StreamingText = ""
	s.StreamingThinking = ""
	s.streamingIndex = -1
}

func (s *Slot) clearTurn() {
	s.clearStreaming()
	s.ActiveTools = nil
	s.FinishedTools = map[string]ToolExecution{}
}

// Slice names a part of a workspace that the versioned protocol can own.
type Slice string

const (
	SliceQueuedMessages Slice = "queuedMessages"
	SliceSlotMembership Slice = "slotMembership"
	SliceRightPane      Slice = "rightPane"
	SlicePaneTabs       Slice = "paneTabs"
)

// DeltaOwned lists the slices that only snapshot and delta events may write
// once a workspace is sync-authoritative. The legacy events that would touch
// them are ignored for that workspace.
var DeltaOwned = []Slice{SliceQueuedMessages, SliceSlotMembership, SliceRightPane, SlicePaneTabs}

// Sync is the versioned-protocol bookkeeping of a workspace.
type Sync struct {
	Authoritative bool
	Version       int64
}

// Workspace is an open project directory with its slots.
type Workspace struct {
	ID          string
	Path        string
	Name        string
	StartupInfo *protocol.StartupInfo

	Slots     map[string]*Slot
	SlotOrder []string

	Sessions []protocol.SessionInfo
	Models   []protocol.Model

	Tabs          layout.TabSet
	RightPaneOpen bool
	Sync          Sync

	// Resuming counts buffered events the server still replays after a
	// reconnect.
	Resuming int
	Error    string
}

func newWorkspace(info protocol.WorkspaceInfo) *Workspace {
	return &Workspace{
		ID:    info.ID,
		Path:  info.Path,
		Name:  info.Name,
		Slots: map[string]*Slot{},
	}
}

// Owns reports whether the versioned protocol currently owns slice.
func (w *Workspace) Owns(slice Slice) bool {
	return w.Sync.Authoritative && slices.Contains(DeltaOwned, slice)
}

// Slot returns the slot with id, or nil.
func (w *Workspace) Slot(id string) *Slot {
	return w.Slots[id]
}

func (w *Workspace) addSlot(s *Slot) {
	if _, ok := w.Slots[s.ID]; !ok {
		w.SlotOrder = append(w.SlotOrder, s.ID)
	}
	w.Slots[s.ID] = s
}

func (w *Workspace) removeSlot(id string) bool {
	if _, ok := w.Slots[id]; !ok {
		return false
	}
	delete(w.Slots, id)
	w.SlotOrder = slices.DeleteFunc(w.SlotOrder, func(s string) bool { return s == id })
	return true
}

// DirectoryListing is the last directory browse result.
type DirectoryListing struct {
	Path    string
	Entries []protocol.DirectoryEntry
}

// Restoration tracks re-opening the persisted workspaces on first connect.
type Restoration struct {
	Attempted bool
	Pending   int
	Complete  bool
}

// State is the whole client-side state tree.
type State struct {
	Connected     bool
	Error         string
	AllowedRoots  []string
	HomeDirectory string

	UI        protocol.UIState
	Directory *DirectoryListing
	Deploy    *protocol.DeployStatus

	Workspaces        map[string]*Workspace
	WorkspaceOrder    []string
	ActiveWorkspaceID string
	Restoration       Restoration
}

// Workspace returns the workspace with id, or nil.
func (s *State) Workspace(id string) *Workspace {
	return s.Workspaces[id]
}

// WorkspaceByPath returns the workspace opened at path, or nil.
func (s *State) WorkspaceByPath(path string) *Workspace {
	for _, id := range s.WorkspaceOrder {
		if w := s.Workspaces[id]; w != nil && w.Path == path {
			return w
		}
	}
	return nil
}

// ActiveWorkspace returns the active workspace, or nil.
func (s *State) ActiveWorkspace() *Workspace {
	return s.Workspaces[s.ActiveWorkspaceID]
}
