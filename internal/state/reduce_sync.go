package state

import (
	"maps"
	"slices"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// OnSnapshot makes the workspace sync-authoritative and replaces every
// delta-owned slice. A snapshot not newer than the current version is stale.
func (r reducer) OnSnapshot(ev protocol.Snapshot) {
	w := r.s.state.Workspaces[ev.Workspace()]
	if w == nil {
		return
	}
	if w.Sync.Authoritative && ev.Version <= w.Sync.Version {
		tuilog.Log.Debug("ignoring stale snapshot", "workspace", w.ID, "version", ev.Version, "current", w.Sync.Version)
		return
	}
	w.Sync = Sync{Authoritative: true, Version: ev.Version}
	r.setRightPane(w, ev.State.RightPaneOpen)
	if ev.State.PaneTabs != nil {
		r.adoptTabs(w, *ev.State.PaneTabs)
	}

	if ev.State.Slots == nil {
		return
	}
	for _, id := range slices.Sorted(maps.Keys(ev.State.Slots)) {
		ss := ev.State.Slots[id]
		sl := w.Slots[id]
		if sl == nil {
			sl = newSlot(id)
			w.addSlot(sl)
			r.hydrate(w, sl)
		}
		sl.Queued = ss.QueuedMessages
	}
	for _, id := range append([]string(nil), w.SlotOrder...) {
		if _, ok := ev.State.Slots[id]; !ok {
			w.removeSlot(id)
		}
	}
	tuilog.Log.Debug("snapshot applied", "workspace", w.ID, "version", ev.Version, "slots", len(w.Slots))
}

// OnDelta applies versioned mutations in order. A delta at or below the
// current version is a duplicate. A jump past current+1 means something was
// missed: the delta still applies and a fresh snapshot is requested.
func (r reducer) OnDelta(ev protocol.Delta) {
	w := r.s.state.Workspaces[ev.Workspace()]
	if w == nil {
		return
	}
	if !w.Sync.Authoritative {
		tuilog.Log.Debug("delta before snapshot", "workspace", w.ID, "version", ev.Version)
		r.s.send(protocol.RequestSnapshot{WorkspaceID: w.ID})
		return
	}

	base := w.Sync.Version
	gap := len(ev.Deltas) == 0 && ev.Version > base+1
	for _, d := range ev.Deltas {
		// Deltas without their own version share the event's.
		v, floor := d.Version, w.Sync.Version
		if v == 0 {
			v, floor = ev.Version, base
		}
		if v <= floor {
			continue
		}
		if v > floor+1 {
			gap = true
		}
		r.applyDelta(w, d)
		w.Sync.Version = max(w.Sync.Version, v)
	}
	w.Sync.Version = max(w.Sync.Version, ev.Version)
	if gap {
		tuilog.Log.Info("delta version gap, requesting snapshot", "workspace", w.ID, "version", w.Sync.Version)
		r.s.send(protocol.RequestSnapshot{WorkspaceID: w.ID})
	}
}

func (r reducer) applyDelta(w *Workspace, d protocol.SyncDelta) {
	switch d.Type {
	case protocol.DeltaSlotCreate:
		if d.SlotID == "" || w.Slots[d.SlotID] != nil {
			return
		}
		sl := newSlot(d.SlotID)
		w.addSlot(sl)
		r.hydrate(w, sl)
	case protocol.DeltaSlotDelete:
		w.removeSlot(d.SlotID)
	case protocol.DeltaQueuedMessagesUpdate:
		sl := w.Slots[d.SlotID]
		if sl == nil {
			return
		}
		sl.Queued = protocol.QueuedMessages{}
		if d.QueuedMessages != nil {
			sl.Queued = *d.QueuedMessages
		}
	case protocol.DeltaRightPaneUpdate:
		if d.RightPaneOpen != nil {
			r.setRightPane(w, *d.RightPaneOpen)
		}
	case protocol.DeltaPaneTabsUpdate:
		if d.PaneTabs != nil {
			r.adoptTabs(w, *d.PaneTabs)
		}
	default:
		tuilog.Log.Warn("unknown delta kind", "workspace", w.ID, "kind", d.Type)
	}
}

func (r reducer) setRightPane(w *Workspace, open bool) {
	w.RightPaneOpen = open
	ui := &r.s.state.UI
	if ui.RightPaneByWorkspace == nil {
		ui.RightPaneByWorkspace = map[string]bool{}
	}
	ui.RightPaneByWorkspace[w.Path] = open
}

// adoptTabs installs a server-supplied layout. Layouts that fail validation
// are logged and dropped, keeping the current tabs.
func (r reducer) adoptTabs(w *Workspace, pt protocol.PaneTabs) {
	tabs, err := layout.FromWire(pt)
	if err != nil {
		tuilog.Log.Warn("rejecting server layout", "workspace", w.ID, "error", err)
		return
	}
	w.Tabs = tabs
	ui := &r.s.state.UI
	if ui.PaneTabsByWorkspace == nil {
		ui.PaneTabsByWorkspace = map[string]protocol.PaneTabs{}
	}
	ui.PaneTabsByWorkspace[w.Path] = pt
}

// OnQueuedMessages is the legacy queued-message update. It is inert once the
// versioned protocol owns the buffers.
func (r reducer) OnQueuedMessages(ev protocol.QueuedMessagesEvent) {
	w := r.s.state.Workspaces[ev.Workspace()]
	if w == nil || w.Owns(SliceQueuedMessages) {
		return
	}
	if sl := r.s.slot(ev.Workspace(), ev.Slot()); sl != nil {
		sl.Queued = protocol.QueuedMessages{Steering: ev.Steering, FollowUp: ev.FollowUp}
	}
}
