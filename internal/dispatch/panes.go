package dispatch

import (
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
)

func (d *Dispatcher) activeTree() (*state.Workspace, layout.Tab, error) {
	w, err := d.active()
	if err != nil {
		return nil, layout.Tab{}, err
	}
	tab, ok := w.Tabs.ActiveTab()
	if !ok {
		d.sink.Local(state.LocalError{Message: i18n.T("error.noActiveSlot", "No active session slot")})
		return nil, layout.Tab{}, ErrNoActiveSlot
	}
	return w, tab, nil
}

func (d *Dispatcher) commit(w *state.Workspace, tab layout.Tab, tree layout.Tree) {
	d.sink.Local(state.LayoutChanged{WorkspaceID: w.ID, Tabs: w.Tabs.WithTree(tab.ID, tree)})
}

// SplitPane adds a pane bound to a new slot next to the focused pane and
// asks the server to create that slot.
func (d *Dispatcher) SplitPane(divider layout.Direction) error {
	w, tab, err := d.activeTree()
	if err != nil {
		return err
	}
	if len(tab.Tree.Leaves()) >= d.MaxPanes {
		d.sink.Local(state.LocalError{Message: i18n.Tf("error.paneLimit", "At most %d panes per tab", d.MaxPanes)})
		return nil
	}
	slotID := d.NewSlotID()
	tree, _, ok := tab.Tree.Split(divider, slotID)
	if !ok {
		d.sink.Local(state.LocalError{Message: i18n.Tf("error.paneLimit", "At most %d panes per tab", d.MaxPanes)})
		return nil
	}
	d.sink.Send(protocol.CreateSessionSlot{WorkspaceID: w.ID, SlotID: slotID})
	d.commit(w, tab, tree)
	return nil
}

// ClosePane removes paneID, or the focused pane when empty, and closes its
// slot on the server. Closing the last pane does nothing.
func (d *Dispatcher) ClosePane(paneID string) error {
	w, tab, err := d.activeTree()
	if err != nil {
		return err
	}
	if paneID == "" {
		paneID = tab.Tree.Focused
	}
	tree, removed, ok := tab.Tree.Close(paneID)
	if !ok {
		return nil
	}
	if removed.SlotID != protocol.DefaultSlotID {
		d.sink.Send(protocol.CloseSessionSlot{WorkspaceID: w.ID, SessionSlotID: removed.SlotID})
	}
	d.commit(w, tab, tree)
	return nil
}

// FocusPane moves focus within the active tab.
func (d *Dispatcher) FocusPane(paneID string) error {
	w, tab, err := d.activeTree()
	if err != nil {
		return err
	}
	tree := tab.Tree.Focus(paneID)
	if tree.Focused == tab.Tree.Focused {
		return nil
	}
	d.commit(w, tab, tree)
	return nil
}

// CycleFocus moves focus to the next (or previous) leaf in pre-order.
func (d *Dispatcher) CycleFocus(step int) error {
	_, tab, err := d.activeTree()
	if err != nil {
		return err
	}
	leaves := tab.Tree.Leaves()
	if len(leaves) < 2 {
		return nil
	}
	cur := 0
	for i, p := range leaves {
		if p.ID == tab.Tree.Focused {
			cur = i
		}
	}
	next := ((cur+step)%len(leaves) + len(leaves)) % len(leaves)
	return d.FocusPane(leaves[next].ID)
}

// ResizeSplit sets the sizes of the split at path verbatim.
func (d *Dispatcher) ResizeSplit(path []int, sizes []float64) error {
	w, tab, err := d.activeTree()
	if err != nil {
		return err
	}
	tree, err := tab.Tree.Resize(path, sizes)
	if err != nil {
		return err
	}
	d.commit(w, tab, tree)
	return nil
}

// AddTab opens a new tab bound to a new slot.
func (d *Dispatcher) AddTab() error {
	w, err := d.active()
	if err != nil {
		return err
	}
	slotID := d.NewSlotID()
	tabs, _ := w.Tabs.AddTab(slotID)
	d.sink.Send(protocol.CreateSessionSlot{WorkspaceID: w.ID, SlotID: slotID})
	d.sink.Local(state.LayoutChanged{WorkspaceID: w.ID, Tabs: tabs})
	return nil
}

// CloseTab closes tabID, or the active tab when empty, along with the slots
// of its panes. The last tab stays.
func (d *Dispatcher) CloseTab(tabID string) error {
	w, err := d.active()
	if err != nil {
		return err
	}
	if tabID == "" {
		tabID = w.Tabs.Active
	}
	tabs, slots, ok := w.Tabs.CloseTab(tabID)
	if !ok {
		return nil
	}
	for _, id := range slots {
		if id != protocol.DefaultSlotID {
			d.sink.Send(protocol.CloseSessionSlot{WorkspaceID: w.ID, SessionSlotID: id})
		}
	}
	d.sink.Local(state.LayoutChanged{WorkspaceID: w.ID, Tabs: tabs})
	return nil
}

// SelectTab activates tabID.
func (d *Dispatcher) SelectTab(tabID string) error {
	w, err := d.active()
	if err != nil {
		return err
	}
	tabs := w.Tabs.Select(tabID)
	if tabs.Active == w.Tabs.Active {
		return nil
	}
	d.sink.Local(state.LayoutChanged{WorkspaceID: w.ID, Tabs: tabs})
	return nil
}
