// Package view derives the read-only projection that rendering consumes from
// the client state tree.
//
// A View shares no mutable memory with the state it was built from, so the
// client loop can hand it to another goroutine.
package view

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
)

// View is the whole projection.
type View struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	Restoring bool   `json:"restoring"`

	Workspaces []WorkspaceSummary `json:"workspaces"`
	Active     *WorkspaceView     `json:"active,omitempty"`

	Draft        string                  `json:"draft,omitempty"`
	SidebarWidth int                     `json:"sidebarWidth,omitempty"`
	ThemeID      string                  `json:"themeId,omitempty"`
	HomeDir      string                  `json:"homeDirectory,omitempty"`
	Directory    *state.DirectoryListing `json:"directory,omitempty"`
	Deploy       *protocol.DeployStatus  `json:"deploy,omitempty"`
}

// WorkspaceSummary is one entry of the workspace switcher.
type WorkspaceSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Active    bool   `json:"active"`
	Streaming bool   `json:"streaming"`
	Resuming  int    `json:"resuming,omitempty"`
}

// WorkspaceView is the active workspace.
type WorkspaceView struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Path          string                 `json:"path"`
	Tabs          []TabView              `json:"tabs"`
	Layout        layout.Tree            `json:"-"`
	Panes         []PaneView             `json:"panes"`
	ActiveSlot    SlotView               `json:"activeSlot"`
	RightPaneOpen bool                   `json:"rightPaneOpen"`
	Sessions      []protocol.SessionInfo `json:"sessions,omitempty"`
	Models        []protocol.Model       `json:"models,omitempty"`
	StartupInfo   *protocol.StartupInfo  `json:"startupInfo,omitempty"`
	Synced        bool                   `json:"synced"`
	Resuming      int                    `json:"resuming,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// TabView names one tab.
type TabView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Panes  int    `json:"panes"`
}

// PaneView is one leaf of the active tab, in pre-order.
type PaneView struct {
	ID      string   `json:"id"`
	Focused bool     `json:"focused"`
	Slot    SlotView `json:"slot"`
}

// SlotView is one slot. A pane whose slot does not exist (yet) gets a
// SlotView with Exists false and everything else empty.
type SlotView struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`

	Messages          []protocol.Message      `json:"messages,omitempty"`
	StreamingText     string                  `json:"streamingText,omitempty"`
	StreamingThinking string                  `json:"streamingThinking,omitempty"`
	StreamingIndex    int                     `json:"streamingIndex"`
	State             protocol.SessionState   `json:"state"`
	Commands          []protocol.SlashCommand `json:"commands,omitempty"`

	Tools []state.ToolExecution `json:"tools,omitempty"`
	Bash  *state.BashExecution  `json:"bash,omitempty"`

	Questionnaire    *state.Questionnaire    `json:"questionnaire,omitempty"`
	ExtensionRequest json.RawMessage         `json:"extensionRequest,omitempty"`
	CustomUI         *state.CustomUI         `json:"customUI,omitempty"`
	Queued           protocol.QueuedMessages `json:"queued"`
	ForkMessages     []protocol.ForkMessage  `json:"forkMessages,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// Streaming reports whether the slot is producing output.
func (s SlotView) Streaming() bool {
	return s.State.IsStreaming
}

// Project builds the view of st.
func Project(st *state.State) View {
	v := View{
		Connected:    st.Connected,
		Error:        st.Error,
		Restoring:    st.Restoration.Attempted && !st.Restoration.Complete,
		SidebarWidth: st.UI.SidebarWidth,
		ThemeID:      st.UI.ThemeID,
		HomeDir:      st.HomeDirectory,
	}
	if st.Directory != nil {
		d := *st.Directory
		d.Entries = slices.Clone(d.Entries)
		v.Directory = &d
	}
	if st.Deploy != nil {
		d := *st.Deploy
		v.Deploy = &d
	}

	for _, id := range st.WorkspaceOrder {
		w := st.Workspaces[id]
		if w == nil {
			continue
		}
		v.Workspaces = append(v.Workspaces, WorkspaceSummary{
			ID:        w.ID,
			Name:      w.Name,
			Path:      w.Path,
			Active:    w.ID == st.ActiveWorkspaceID,
			Streaming: anyStreaming(w),
			Resuming:  w.Resuming,
		})
	}

	if w := st.ActiveWorkspace(); w != nil {
		wv := projectWorkspace(w)
		v.Active = &wv
		v.Draft = st.UI.DraftInputs[w.Path]
	}
	return v
}

func anyStreaming(w *state.Workspace) bool {
	for _, sl := range w.Slots {
		if sl.State.IsStreaming {
			return true
		}
	}
	return false
}

func projectWorkspace(w *state.Workspace) WorkspaceView {
	wv := WorkspaceView{
		ID:            w.ID,
		Name:          w.Name,
		Path:          w.Path,
		RightPaneOpen: w.RightPaneOpen,
		Sessions:      slices.Clone(w.Sessions),
		Models:        slices.Clone(w.Models),
		StartupInfo:   w.StartupInfo,
		Synced:        w.Sync.Authoritative,
		Resuming:      w.Resuming,
		Error:         w.Error,
	}
	for _, t := range w.Tabs.Tabs {
		wv.Tabs = append(wv.Tabs, TabView{
			ID:     t.ID,
			Name:   t.Name,
			Active: t.ID == w.Tabs.Active,
			Panes:  len(t.Tree.Leaves()),
		})
	}

	tab, ok := w.Tabs.ActiveTab()
	if !ok {
		return wv
	}
	wv.Layout = tab.Tree
	for _, p := range tab.Tree.Leaves() {
		sv := Slot(w, p.SlotID)
		pv := PaneView{ID: p.ID, Focused: p.ID == tab.Tree.Focused, Slot: sv}
		wv.Panes = append(wv.Panes, pv)
		if pv.Focused {
			wv.ActiveSlot = sv
		}
	}
	return wv
}

// Slot projects one slot of w. A missing slot yields an empty view.
func Slot(w *state.Workspace, slotID string) SlotView {
	sl := w.Slot(slotID)
	if sl == nil {
		return SlotView{ID: slotID, StreamingIndex: -1}
	}
	sv := SlotView{
		ID:                sl.ID,
		Exists:            true,
		Messages:          slices.Clone(sl.Messages),
		StreamingText:     sl.StreamingText,
		StreamingThinking: sl.StreamingThinking,
		StreamingIndex:    sl.StreamingIndex(),
		State:             sl.State,
		Commands:          slices.Clone(sl.Commands),
		ExtensionRequest:  slices.Clone(sl.ExtensionRequest),
		Queued: protocol.QueuedMessages{
			Steering: slices.Clone(sl.Queued.Steering),
			FollowUp: slices.Clone(sl.Queued.FollowUp),
		},
		ForkMessages: slices.Clone(sl.ForkMessages),
		Error:        sl.Error,
	}
	sv.Tools = slices.Clone(sl.ActiveTools)
	for _, id := range slices.Sorted(maps.Keys(sl.FinishedTools)) {
		sv.Tools = append(sv.Tools, sl.FinishedTools[id])
	}
	if sl.Bash != nil {
		b := *sl.Bash
		sv.Bash = &b
	}
	if sl.Questionnaire != nil {
		q := *sl.Questionnaire
		sv.Questionnaire = &q
	}
	if sl.CustomUI != nil {
		c := *sl.CustomUI
		sv.CustomUI = &c
	}
	return sv
}
