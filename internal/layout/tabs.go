package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wethinkt/go-panes/internal/protocol"
)

// Tab is one named layout of a workspace.
type Tab struct {
	ID   string
	Name string
	Tree Tree
}

// TabSet holds the tabs of one workspace. There is exactly one Tree per
// (workspace, tab) pair.
type TabSet struct {
	Tabs   []Tab
	Active string

	nextTab int
}

// NewTabSet returns a tab set with one tab holding a single pane bound to
// slotID.
func NewTabSet(slotID string) TabSet {
	ts := TabSet{nextTab: 1}
	tab := ts.newTab(slotID)
	ts.Tabs = []Tab{tab}
	ts.Active = tab.ID
	return ts
}

func (ts *TabSet) newTab(slotID string) Tab {
	if ts.nextTab < 1 {
		ts.nextTab = 1
	}
	id := "tab-" + strconv.Itoa(ts.nextTab)
	ts.nextTab++
	return Tab{ID: id, Name: "Tab " + strings.TrimPrefix(id, "tab-"), Tree: New(slotID)}
}

// ActiveTab returns the selected tab.
func (ts TabSet) ActiveTab() (Tab, bool) {
	for _, t := range ts.Tabs {
		if t.ID == ts.Active {
			return t, true
		}
	}
	return Tab{}, false
}

// WithTree returns a copy of the set with tabID's tree replaced.
func (ts TabSet) WithTree(tabID string, tree Tree) TabSet {
	out := ts.clone()
	for i := range out.Tabs {
		if out.Tabs[i].ID == tabID {
			out.Tabs[i].Tree = tree
		}
	}
	return out
}

// AddTab appends a tab bound to slotID and selects it.
func (ts TabSet) AddTab(slotID string) (TabSet, Tab) {
	out := ts.clone()
	tab := out.newTab(slotID)
	out.Tabs = append(out.Tabs, tab)
	out.Active = tab.ID
	return out, tab
}

// CloseTab removes a tab and returns the slot ids its panes were bound to.
// The last tab cannot be closed.
func (ts TabSet) CloseTab(tabID string) (TabSet, []string, bool) {
	if len(ts.Tabs) <= 1 {
		return ts, nil, false
	}
	out := ts.clone()
	for i, t := range out.Tabs {
		if t.ID != tabID {
			continue
		}
		out.Tabs = append(out.Tabs[:i:i], out.Tabs[i+1:]...)
		if out.Active == tabID {
			out.Active = out.Tabs[max(0, i-1)].ID
		}
		return out, t.Tree.SlotIDs(), true
	}
	return ts, nil, false
}

// Select makes tabID the active tab. Unknown ids are ignored.
func (ts TabSet) Select(tabID string) TabSet {
	for _, t := range ts.Tabs {
		if t.ID == tabID {
			out := ts.clone()
			out.Active = tabID
			return out
		}
	}
	return ts
}

// SlotIDs returns every bound slot across all tabs.
func (ts TabSet) SlotIDs() []string {
	var ids []string
	for _, t := range ts.Tabs {
		ids = append(ids, t.Tree.SlotIDs()...)
	}
	return ids
}

func (ts TabSet) clone() TabSet {
	out := ts
	out.Tabs = append([]Tab(nil), ts.Tabs...)
	return out
}

// ToWire converts the tab set to its persisted form.
func (ts TabSet) ToWire() protocol.PaneTabs {
	out := protocol.PaneTabs{ActiveTabID: ts.Active}
	for _, t := range ts.Tabs {
		out.Tabs = append(out.Tabs, protocol.PaneTab{
			ID:            t.ID,
			Name:          t.Name,
			Layout:        nodeToWire(t.Tree.Root),
			FocusedPaneID: t.Tree.Focused,
		})
	}
	return out
}

// FromWire rebuilds a tab set from its persisted form. Every tree must pass
// Validate, apart from focus, which falls back to the first leaf.
func FromWire(pt protocol.PaneTabs) (TabSet, error) {
	if len(pt.Tabs) == 0 {
		return TabSet{}, fmt.Errorf("invalid layout: no tabs")
	}
	ts := TabSet{}
	maxTab := 0
	for _, wt := range pt.Tabs {
		root, err := nodeFromWire(wt.Layout)
		if err != nil {
			return TabSet{}, fmt.Errorf("tab %s: %w", wt.ID, err)
		}
		tree := Tree{Root: root, Focused: wt.FocusedPaneID}
		leaves := tree.Leaves()
		if len(leaves) == 0 {
			return TabSet{}, fmt.Errorf("tab %s: invalid layout: no panes", wt.ID)
		}
		maxPane := 0
		for _, p := range leaves {
			maxPane = max(maxPane, idSuffix(p.ID, "pane-"))
		}
		tree.nextPane = maxPane + 1
		if _, ok := tree.Pane(tree.Focused); !ok {
			tree.Focused = leaves[0].ID
		}
		if err := tree.Validate(); err != nil {
			return TabSet{}, fmt.Errorf("tab %s: %w", wt.ID, err)
		}
		ts.Tabs = append(ts.Tabs, Tab{ID: wt.ID, Name: wt.Name, Tree: tree})
		maxTab = max(maxTab, idSuffix(wt.ID, "tab-"))
	}
	ts.nextTab = maxTab + 1
	ts.Active = pt.ActiveTabID
	if _, ok := ts.ActiveTab(); !ok {
		ts.Active = ts.Tabs[0].ID
	}
	return ts, nil
}

func nodeToWire(n Node) protocol.LayoutNode {
	switch n := n.(type) {
	case *Pane:
		return protocol.LayoutNode{PaneID: n.ID, SlotID: n.SlotID}
	case *Split:
		out := protocol.LayoutNode{
			Direction: string(n.Direction),
			Sizes:     append([]float64(nil), n.Sizes...),
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, nodeToWire(c))
		}
		return out
	}
	return protocol.LayoutNode{}
}

func nodeFromWire(w protocol.LayoutNode) (Node, error) {
	if w.PaneID != "" {
		return &Pane{ID: w.PaneID, SlotID: w.SlotID}, nil
	}
	dir := Direction(w.Direction)
	if !dir.Valid() {
		return nil, fmt.Errorf("invalid split direction %q", w.Direction)
	}
	s := &Split{Direction: dir, Sizes: append([]float64(nil), w.Sizes...)}
	for _, c := range w.Children {
		child, err := nodeFromWire(c)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, child)
	}
	return s, nil
}

func idSuffix(id, prefix string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil {
		return 0
	}
	return n
}
