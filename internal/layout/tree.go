// Package layout implements the recursive split-pane tree that arranges
// session slots on screen.
//
// Trees are values: every operation returns a new Tree and leaves the
// receiver untouched, so a caller holding an old Tree never observes a
// half-applied mutation.
package layout

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPanes is the hard cap on leaves per tree.
const MaxPanes = 4

// sizeTolerance is the allowed drift of a Split's sizes from 1.
const sizeTolerance = 1e-6

// Direction is the axis a Split lays its children out along.
type Direction string

const (
	// Horizontal places children side by side.
	Horizontal Direction = "horizontal"
	// Vertical stacks children top to bottom.
	Vertical Direction = "vertical"
)

// Opposite returns the other axis.
func (d Direction) Opposite() Direction {
	if d == Horizontal {
		return Vertical
	}
	return Horizontal
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Horizontal || d == Vertical
}

// Node is a Pane or a Split.
type Node interface {
	isNode()
}

// Pane is a leaf bound to a session slot.
type Pane struct {
	ID     string
	SlotID string
}

// Split divides its space among two or more children. Sizes parallels
// Children and sums to 1.
type Split struct {
	Direction Direction
	Children  []Node
	Sizes     []float64
}

func (*Pane) isNode()  {}
func (*Split) isNode() {}

var (
	ErrPaneNotFound = errors.New("pane not found")
	ErrNotSplit     = errors.New("path does not address a split")
	ErrSizesLength  = errors.New("sizes do not match children")
)

// Tree is a layout tree plus its focus pointer.
type Tree struct {
	Root    Node
	Focused string

	// nextPane numbers pane ids for this tree only.
	nextPane int
}

// New returns a tree holding a single pane bound to slotID.
func New(slotID string) Tree {
	t := Tree{nextPane: 1}
	p := t.newPane(slotID)
	t.Root = p
	t.Focused = p.ID
	return t
}

func (t *Tree) newPane(slotID string) *Pane {
	if t.nextPane < 1 {
		t.nextPane = 1
	}
	p := &Pane{ID: "pane-" + strconv.Itoa(t.nextPane), SlotID: slotID}
	t.nextPane++
	return p
}

// Leaves returns the panes in pre-order.
func (t Tree) Leaves() []Pane {
	var out []Pane
	walk(t.Root, func(n Node) {
		if p, ok := n.(*Pane); ok {
			out = append(out, *p)
		}
	})
	return out
}

// Pane looks up a leaf by id.
func (t Tree) Pane(id string) (Pane, bool) {
	for _, p := range t.Leaves() {
		if p.ID == id {
			return p, true
		}
	}
	return Pane{}, false
}

// FocusedPane returns the focused leaf.
func (t Tree) FocusedPane() (Pane, bool) {
	return t.Pane(t.Focused)
}

// PaneForSlot returns the leaf bound to slotID.
func (t Tree) PaneForSlot(slotID string) (Pane, bool) {
	for _, p := range t.Leaves() {
		if p.SlotID == slotID {
			return p, true
		}
	}
	return Pane{}, false
}

// SlotIDs returns the bound slot ids in pre-order.
func (t Tree) SlotIDs() []string {
	leaves := t.Leaves()
	ids := make([]string, len(leaves))
	for i, p := range leaves {
		ids[i] = p.SlotID
	}
	return ids
}

// CanSplit reports whether another pane fits under MaxPanes.
func (t Tree) CanSplit() bool {
	return len(t.Leaves()) < MaxPanes
}

// Focus moves the focus pointer. Unknown ids leave the tree unchanged.
func (t Tree) Focus(paneID string) Tree {
	if _, ok := t.Pane(paneID); !ok {
		return t
	}
	out := t.clone()
	out.Focused = paneID
	return out
}

// Split adds a pane bound to slotID next to the focused pane. divider is the
// orientation of the dividing line the user asked for, so the new pane is
// laid out along divider.Opposite(). When the focused pane's parent already
// lays out along that axis the pane joins it as a sibling and all sizes are
// equalized; otherwise the focused pane is wrapped in a new 50/50 split.
// The new pane becomes focused. At MaxPanes leaves Split is a no-op and
// ok is false.
func (t Tree) Split(divider Direction, slotID string) (out Tree, created Pane, ok bool) {
	if !t.CanSplit() || !divider.Valid() {
		return t, Pane{}, false
	}
	path, found := pathTo(t.Root, t.Focused)
	if !found {
		return t, Pane{}, false
	}
	axis := divider.Opposite()

	out = t.clone()
	p := out.newPane(slotID)

	if len(path) > 0 {
		parent := nodeAt(out.Root, path[:len(path)-1]).(*Split)
		if parent.Direction == axis {
			idx := path[len(path)-1] + 1
			parent.Children = insertNode(parent.Children, idx, p)
			parent.Sizes = equalSizes(len(parent.Children))
			out.Focused = p.ID
			return out, *p, true
		}
	}

	focused := nodeAt(out.Root, path)
	wrap := &Split{
		Direction: axis,
		Children:  []Node{focused, p},
		Sizes:     []float64{0.5, 0.5},
	}
	out.replace(path, wrap)
	out.Focused = p.ID
	return out, *p, true
}

// Close removes a pane. The last remaining pane is never removed. A split
// left with one child is replaced by that child. When the focused pane is
// removed focus moves to the first leaf in pre-order.
func (t Tree) Close(paneID string) (out Tree, removed Pane, ok bool) {
	if len(t.Leaves()) <= 1 {
		return t, Pane{}, false
	}
	path, found := pathTo(t.Root, paneID)
	if !found || len(path) == 0 {
		return t, Pane{}, false
	}

	out = t.clone()
	removed = *nodeAt(out.Root, path).(*Pane)
	parentPath := path[:len(path)-1]
	parent := nodeAt(out.Root, parentPath).(*Split)
	idx := path[len(path)-1]

	parent.Children = append(parent.Children[:idx:idx], parent.Children[idx+1:]...)
	parent.Sizes = renormalize(append(parent.Sizes[:idx:idx], parent.Sizes[idx+1:]...))

	if len(parent.Children) == 1 {
		out.replace(parentPath, parent.Children[0])
	}

	if out.Focused == paneID {
		out.Focused = out.Leaves()[0].ID
	}
	return out, removed, true
}

// Resize replaces the sizes of the split at path (child indices from the
// root) verbatim. Sizes are not renormalized.
func (t Tree) Resize(path []int, sizes []float64) (Tree, error) {
	n := nodeAt(t.Root, path)
	s, ok := n.(*Split)
	if !ok {
		return t, fmt.Errorf("%w: %v", ErrNotSplit, path)
	}
	if len(sizes) != len(s.Children) {
		return t, fmt.Errorf("%w: got %d sizes for %d children", ErrSizesLength, len(sizes), len(s.Children))
	}
	out := t.clone()
	target := nodeAt(out.Root, path).(*Split)
	target.Sizes = append([]float64(nil), sizes...)
	return out, nil
}

// Rebind points a pane at another slot.
func (t Tree) Rebind(paneID, slotID string) (Tree, error) {
	if _, ok := t.Pane(paneID); !ok {
		return t, fmt.Errorf("%w: %s", ErrPaneNotFound, paneID)
	}
	out := t.clone()
	walk(out.Root, func(n Node) {
		if p, ok := n.(*Pane); ok && p.ID == paneID {
			p.SlotID = slotID
		}
	})
	return out, nil
}

// Validate checks the structural invariants: 1..MaxPanes leaves, unique pane
// and slot ids, at least two children per split with matching non-negative
// sizes summing to 1, and a focus pointer naming a leaf.
func (t Tree) Validate() error {
	if t.Root == nil {
		return errors.New("empty tree")
	}
	var errs []string
	paneIDs := map[string]bool{}
	slotIDs := map[string]bool{}
	leaves := 0
	walk(t.Root, func(n Node) {
		switch n := n.(type) {
		case *Pane:
			leaves++
			if paneIDs[n.ID] {
				errs = append(errs, "duplicate pane id "+n.ID)
			}
			paneIDs[n.ID] = true
			if slotIDs[n.SlotID] {
				errs = append(errs, "duplicate slot id "+n.SlotID)
			}
			slotIDs[n.SlotID] = true
		case *Split:
			if len(n.Children) < 2 {
				errs = append(errs, fmt.Sprintf("split with %d children", len(n.Children)))
			}
			if len(n.Sizes) != len(n.Children) {
				errs = append(errs, "sizes do not match children")
				return
			}
			sum := 0.0
			for _, s := range n.Sizes {
				if s < 0 {
					errs = append(errs, "negative size")
				}
				sum += s
			}
			if math.Abs(sum-1) > sizeTolerance {
				errs = append(errs, fmt.Sprintf("sizes sum to %f", sum))
			}
		}
	})
	if leaves < 1 || leaves > MaxPanes {
		errs = append(errs, fmt.Sprintf("%d leaves", leaves))
	}
	if !paneIDs[t.Focused] {
		errs = append(errs, "focus on unknown pane "+t.Focused)
	}
	if len(errs) > 0 {
		return errors.New("invalid layout: " + strings.Join(errs, "; "))
	}
	return nil
}

func (t Tree) clone() Tree {
	return Tree{Root: cloneNode(t.Root), Focused: t.Focused, nextPane: t.nextPane}
}

// replace swaps the node at path for n.
func (t *Tree) replace(path []int, n Node) {
	if len(path) == 0 {
		t.Root = n
		return
	}
	parent := nodeAt(t.Root, path[:len(path)-1]).(*Split)
	parent.Children[path[len(path)-1]] = n
}

func cloneNode(n Node) Node {
	switch n := n.(type) {
	case *Pane:
		c := *n
		return &c
	case *Split:
		c := &Split{
			Direction: n.Direction,
			Children:  make([]Node, len(n.Children)),
			Sizes:     append([]float64(nil), n.Sizes...),
		}
		for i, child := range n.Children {
			c.Children[i] = cloneNode(child)
		}
		return c
	}
	return nil
}

func walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	if s, ok := n.(*Split); ok {
		for _, c := range s.Children {
			walk(c, fn)
		}
	}
}

// pathTo returns the child-index path from root to the pane with id.
func pathTo(n Node, id string) ([]int, bool) {
	switch n := n.(type) {
	case *Pane:
		return nil, n.ID == id
	case *Split:
		for i, c := range n.Children {
			if sub, ok := pathTo(c, id); ok {
				return append([]int{i}, sub...), true
			}
		}
	}
	return nil, false
}

// nodeAt follows path from n. It returns nil for an invalid path.
func nodeAt(n Node, path []int) Node {
	for _, i := range path {
		s, ok := n.(*Split)
		if !ok || i < 0 || i >= len(s.Children) {
			return nil
		}
		n = s.Children[i]
	}
	return n
}

func insertNode(nodes []Node, idx int, n Node) []Node {
	out := make([]Node, 0, len(nodes)+1)
	out = append(out, nodes[:idx]...)
	out = append(out, n)
	return append(out, nodes[idx:]...)
}

func equalSizes(n int) []float64 {
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = 1 / float64(n)
	}
	return sizes
}

func renormalize(sizes []float64) []float64 {
	sum := 0.0
	for _, s := range sizes {
		sum += s
	}
	if sum <= 0 {
		return equalSizes(len(sizes))
	}
	out := make([]float64, len(sizes))
	for i, s := range sizes {
		out[i] = s / sum
	}
	return out
}
