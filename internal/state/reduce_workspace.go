package state

import (
	"slices"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// reducer adapts Store to protocol.Handler.
type reducer struct{ s *Store }

var _ protocol.Handler = reducer{}

func (r reducer) OnConnected(ev protocol.Connected) {
	st := &r.s.state
	st.AllowedRoots = slices.Clone(ev.AllowedRoots)
	st.HomeDirectory = ev.HomeDirectory
	if ev.UIState != nil {
		st.UI = ev.UIState.Clone()
	}
	r.s.send(protocol.BrowseDirectory{})

	if !st.Restoration.Attempted {
		st.Restoration.Attempted = true
		var paths []string
		for _, p := range st.UI.OpenWorkspaces {
			if p != "" && !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
		for _, p := range paths {
			r.s.send(protocol.OpenWorkspace{Path: p})
		}
		st.Restoration.Pending = len(paths)
		st.Restoration.Complete = len(paths) == 0
		tuilog.Log.Info("restoring workspaces", "count", len(paths))
		return
	}

	// Reconnect: ask the server to resume everything still held, plus
	// persisted paths that had not reopened before the drop.
	paths := slices.Clone(st.UI.OpenWorkspaces)
	for _, id := range st.WorkspaceOrder {
		if w := st.Workspaces[id]; w != nil {
			paths = append(paths, w.Path)
		}
	}
	paths = slices.DeleteFunc(paths, func(p string) bool { return p == "" })
	slices.Sort(paths)
	paths = slices.Compact(paths)
	for _, p := range paths {
		r.s.send(protocol.OpenWorkspace{Path: p})
	}
	st.Restoration.Pending = len(paths)
	st.Restoration.Complete = len(paths) == 0
	tuilog.Log.Info("resuming workspaces", "count", len(paths))
}

func (r reducer) OnUIState(ev protocol.UIStateEvent) {
	r.s.state.UI = ev.State.Clone()
}

func (r reducer) OnWorkspaceOpened(ev protocol.WorkspaceOpened) {
	s := r.s
	st := &s.state
	info := ev.WorkspaceInfo
	if info.ID == "" {
		tuilog.Log.Warn("workspaceOpened without id", "path", info.Path)
		return
	}
	prev := st.Workspaces[info.ID]

	w := newWorkspace(info)
	w.StartupInfo = ev.StartupInfo
	def := newSlot(protocol.DefaultSlotID)
	def.State = ev.State
	def.Messages = slices.Clone(ev.Messages)
	w.addSlot(def)

	var carried []*Slot
	if prev != nil {
		w.Sessions = prev.Sessions
		w.Models = prev.Models
		w.Tabs = prev.Tabs
		w.RightPaneOpen = prev.RightPaneOpen
		prevDef := prev.Slots[protocol.DefaultSlotID]
		if prevDef != nil {
			def.Commands = prevDef.Commands
		}
		// A new remote session restarts its versions; a resumed one keeps
		// them along with the default slot's synced queue.
		if ev.IsExisting {
			w.Sync = prev.Sync
			if prevDef != nil {
				def.Queued = prevDef.Queued
			}
		}
		for _, id := range prev.SlotOrder {
			if id != protocol.DefaultSlotID {
				w.addSlot(prev.Slots[id])
				carried = append(carried, prev.Slots[id])
			}
		}
	} else {
		r.restoreLayout(w)
	}
	if ev.IsExisting && ev.BufferedEventCount > 0 {
		w.Resuming = ev.BufferedEventCount
	}

	st.Workspaces[info.ID] = w
	if !slices.Contains(st.WorkspaceOrder, info.ID) {
		st.WorkspaceOrder = append(st.WorkspaceOrder, info.ID)
	}
	if !slices.Contains(st.UI.OpenWorkspaces, info.Path) {
		st.UI.OpenWorkspaces = append(st.UI.OpenWorkspaces, info.Path)
		s.fx.SaveUIState = true
	}

	if st.Restoration.Pending > 0 {
		st.Restoration.Pending--
		if st.Restoration.Pending == 0 {
			st.Restoration.Complete = true
		}
	}
	if st.ActiveWorkspaceID == "" || st.Workspaces[st.ActiveWorkspaceID] == nil || info.Path == st.UI.ActiveWorkspacePath {
		st.ActiveWorkspaceID = info.ID
	}

	s.send(
		protocol.GetSessions{WorkspaceID: info.ID},
		protocol.GetModels{WorkspaceID: info.ID},
		protocol.GetCommands{Target: protocol.Target{WorkspaceID: info.ID, SessionSlotID: protocol.DefaultSlotID}},
	)
	if prev != nil && !w.Owns(SliceSlotMembership) {
		s.send(protocol.ListSessionSlots{WorkspaceID: info.ID})
	}
	if ev.IsExisting {
		for _, sl := range carried {
			r.hydrate(w, sl)
		}
	}
	s.notify(Notice{Kind: NoticeWorkspaceOpened, WorkspaceID: info.ID, Payload: info})
	tuilog.Log.Info("workspace opened", "workspace", info.ID, "path", info.Path,
		"existing", ev.IsExisting, "buffered", ev.BufferedEventCount)

	s.replayEarly(info.ID)
}

// restoreLayout adopts the persisted tabs and right-pane flag of a newly
// seen workspace. Slots named by the layout are re-created on the server.
func (r reducer) restoreLayout(w *Workspace) {
	ui := r.s.state.UI
	w.RightPaneOpen = ui.RightPaneByWorkspace[w.Path]
	w.Tabs = layout.NewTabSet(protocol.DefaultSlotID)

	persisted, ok := ui.PaneTabsByWorkspace[w.Path]
	if !ok {
		return
	}
	tabs, err := layout.FromWire(persisted)
	if err != nil {
		tuilog.Log.Warn("discarding persisted layout", "path", w.Path, "error", err)
		return
	}
	w.Tabs = tabs
	for _, id := range tabs.SlotIDs() {
		if id == protocol.DefaultSlotID || w.Slots[id] != nil {
			continue
		}
		w.addSlot(newSlot(id))
		r.s.send(protocol.CreateSessionSlot{WorkspaceID: w.ID, SlotID: id})
	}
}

func (r reducer) OnWorkspaceClosed(ev protocol.WorkspaceClosed) {
	st := &r.s.state
	w := st.Workspaces[ev.Workspace()]
	if w == nil {
		return
	}
	delete(st.Workspaces, w.ID)
	delete(r.s.early, w.ID)
	st.WorkspaceOrder = slices.DeleteFunc(st.WorkspaceOrder, func(id string) bool { return id == w.ID })
	if i := slices.Index(st.UI.OpenWorkspaces, w.Path); i >= 0 {
		st.UI.OpenWorkspaces = slices.Delete(slices.Clone(st.UI.OpenWorkspaces), i, i+1)
		r.s.fx.SaveUIState = true
	}
	if st.ActiveWorkspaceID == w.ID {
		st.ActiveWorkspaceID = ""
	}
	tuilog.Log.Info("workspace closed", "workspace", w.ID)
}

func (r reducer) OnDirectoryList(ev protocol.DirectoryList) {
	st := &r.s.state
	st.Directory = &DirectoryListing{Path: ev.Path, Entries: slices.Clone(ev.Entries)}
	if ev.AllowedRoots != nil {
		st.AllowedRoots = slices.Clone(ev.AllowedRoots)
	}
}

func (r reducer) OnSessionSlotCreated(ev protocol.SessionSlotCreated) {
	s := r.s
	w := s.state.Workspaces[ev.Workspace()]
	if w == nil {
		return
	}
	id := ev.Slot()
	sl := w.Slots[id]
	if sl == nil {
		if w.Owns(SliceSlotMembership) {
			tuilog.Log.Debug("ignoring legacy slot creation", "workspace", w.ID, "slot", id)
			return
		}
		sl = newSlot(id)
		w.addSlot(sl)
	}
	if ev.State != nil {
		sl.State = *ev.State
	}
	if ev.Messages != nil {
		sl.Messages = slices.Clone(ev.Messages)
		sl.clearTurn()
	}
	r.seedCommands(w, sl)
}

// seedCommands copies a sibling's command list so the new slot is usable
// before its own getCommands answer arrives.
func (r reducer) seedCommands(w *Workspace, sl *Slot) {
	if len(sl.Commands) == 0 {
		for _, id := range w.SlotOrder {
			if sib := w.Slots[id]; sib != nil && sib != sl && len(sib.Commands) > 0 {
				sl.Commands = slices.Clone(sib.Commands)
				break
			}
		}
	}
	r.s.send(protocol.GetCommands{Target: protocol.Target{WorkspaceID: w.ID, SessionSlotID: sl.ID}})
}

func (r reducer) OnSessionSlotClosed(ev protocol.SessionSlotClosed) {
	w := r.s.state.Workspaces[ev.Workspace()]
	if w == nil || w.Owns(SliceSlotMembership) {
		return
	}
	w.removeSlot(ev.Slot())
}

func (r reducer) OnSessionSlotList(ev protocol.SessionSlotList) {
	s := r.s
	w := s.state.Workspaces[ev.Workspace()]
	if w == nil || w.Owns(SliceSlotMembership) {
		return
	}
	listed := map[string]bool{}
	for _, sum := range ev.Slots {
		if sum.SlotID == "" {
			continue
		}
		listed[sum.SlotID] = true
		if w.Slots[sum.SlotID] != nil {
			continue
		}
		sl := newSlot(sum.SlotID)
		w.addSlot(sl)
		r.hydrate(w, sl)
	}
	for _, id := range slices.Clone(w.SlotOrder) {
		if !listed[id] && id != protocol.DefaultSlotID {
			w.removeSlot(id)
		}
	}
}

// hydrate requests the full state of a slot the client just learned about.
func (r reducer) hydrate(w *Workspace, sl *Slot) {
	t := protocol.Target{WorkspaceID: w.ID, SessionSlotID: sl.ID}
	r.s.send(protocol.GetState{Target: t}, protocol.GetMessages{Target: t})
	r.seedCommands(w, sl)
}

func (r reducer) OnSessions(ev protocol.SessionsEvent) {
	if w := r.s.state.Workspaces[ev.Workspace()]; w != nil {
		w.Sessions = slices.Clone(ev.Sessions)
	}
}

func (r reducer) OnModels(ev protocol.ModelsEvent) {
	if w := r.s.state.Workspaces[ev.Workspace()]; w != nil {
		w.Models = slices.Clone(ev.Models)
	}
}

func (r reducer) OnDeployStatus(ev protocol.DeployStatusEvent) {
	d := ev.DeployStatus
	r.s.state.Deploy = &d
}

func (r reducer) OnError(ev protocol.ErrorEvent) {
	st := &r.s.state
	tuilog.Log.Warn("server error", "workspace", ev.WorkspaceID, "slot", ev.SessionSlotID, "message", ev.Message)
	w := st.Workspaces[ev.WorkspaceID]
	switch {
	case w != nil && ev.SessionSlotID != "" && w.Slots[ev.SessionSlotID] != nil:
		w.Slots[ev.SessionSlotID].Error = ev.Message
	case w != nil:
		w.Error = ev.Message
	default:
		st.Error = ev.Message
	}
}
