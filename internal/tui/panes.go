package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/view"
)

// resizeStep is how much one grow/shrink moves a split divider.
const resizeStep = 0.05

// splitExtent divides total cells by sizes. Rounding error goes to the last
// child and every child gets at least one cell.
func splitExtent(total int, sizes []float64) []int {
	out := make([]int, len(sizes))
	used := 0
	for i, s := range sizes {
		out[i] = max(1, int(float64(total)*s))
		used += out[i]
	}
	if len(out) > 0 {
		out[len(out)-1] = max(1, out[len(out)-1]+total-used)
	}
	return out
}

// renderTree lays out n in a w x h box. cell renders one pane.
func renderTree(n layout.Node, w, h int, cell func(p *layout.Pane, w, h int) string) string {
	switch n := n.(type) {
	case *layout.Pane:
		return cell(n, w, h)
	case *layout.Split:
		horizontal := n.Direction == layout.Horizontal
		total := h
		if horizontal {
			total = w
		}
		ext := splitExtent(total, n.Sizes)
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			if horizontal {
				parts[i] = renderTree(c, ext[i], h, cell)
			} else {
				parts[i] = renderTree(c, w, ext[i], cell)
			}
		}
		if horizontal {
			return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	return ""
}

// paneBox draws one bordered pane. The title takes the first inner line.
func (m *Model) paneBox(pv view.PaneView, w, h int) string {
	style := m.styles.InactiveBorder
	if pv.Focused {
		style = m.styles.ActiveBorder
	}
	innerW, innerH := max(1, w-2), max(1, h-2)

	title := m.styles.PaneTitle.Render(paneTitle(pv.Slot))
	if pv.Slot.Streaming() {
		title += " " + m.styles.StatusWarn.Render("●")
	}
	if pv.Slot.Questionnaire != nil || len(pv.Slot.ExtensionRequest) > 0 {
		title += " " + m.styles.StatusWarn.Render("?")
	}
	lines := []string{padRight(truncate(title, innerW), innerW)}
	body := m.render.slot(pv.Slot, innerW)
	lines = append(lines, fitLines(body, innerW, innerH-1, m.scroll[pv.ID])...)
	return style.Render(strings.Join(lines, "\n"))
}

func paneTitle(sv view.SlotView) string {
	t := sv.ID
	if sv.State.Model != nil {
		name := sv.State.Model.Name
		if name == "" {
			name = sv.State.Model.ID
		}
		t += " · " + name
	}
	if sv.State.ThinkingLevel != "" && sv.State.ThinkingLevel != "off" {
		t += " · " + sv.State.ThinkingLevel
	}
	return t
}

// parentSplit finds the split directly holding paneID. It returns the path
// of that split from the root and the pane's index inside it.
func parentSplit(root layout.Node, paneID string) (path []int, split *layout.Split, idx int, ok bool) {
	var walk func(n layout.Node, at []int) bool
	walk = func(n layout.Node, at []int) bool {
		s, isSplit := n.(*layout.Split)
		if !isSplit {
			return false
		}
		for i, c := range s.Children {
			if p, isPane := c.(*layout.Pane); isPane && p.ID == paneID {
				path, split, idx = append([]int(nil), at...), s, i
				return true
			}
			if walk(c, append(at, i)) {
				return true
			}
		}
		return false
	}
	ok = walk(root, nil)
	return
}

// resizedSizes grows child idx by delta, taking the space from its neighbour.
// It reports false when either side would drop below one step.
func resizedSizes(sizes []float64, idx int, delta float64) ([]float64, bool) {
	if len(sizes) < 2 {
		return nil, false
	}
	other := idx + 1
	if other >= len(sizes) {
		other = idx - 1
	}
	out := append([]float64(nil), sizes...)
	out[idx] += delta
	out[other] -= delta
	if out[idx] < resizeStep || out[other] < resizeStep {
		return nil, false
	}
	return out, true
}
