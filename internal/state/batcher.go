package state

import "strings"

type slotKey struct {
	workspace string
	slot      string
}

type pendingDelta struct {
	text     strings.Builder
	thinking strings.Builder
}

// batcher accumulates streaming fragments per slot between flushes.
// Fragments of one slot are concatenated in arrival order; slots are flushed
// in the order their first fragment arrived.
type batcher struct {
	pending   map[slotKey]*pendingDelta
	order     []slotKey
	scheduled bool
}

// add records a fragment and reports whether a flush must be scheduled.
func (b *batcher) add(key slotKey, thinking bool, delta string) bool {
	if b.pending == nil {
		b.pending = map[slotKey]*pendingDelta{}
	}
	p, ok := b.pending[key]
	if !ok {
		p = &pendingDelta{}
		b.pending[key] = p
		b.order = append(b.order, key)
	}
	if thinking {
		p.thinking.WriteString(delta)
	} else {
		p.text.WriteString(delta)
	}
	if b.scheduled {
		return false
	}
	b.scheduled = true
	return true
}

func (b *batcher) empty() bool {
	return len(b.order) == 0
}

type flushItem struct {
	key      slotKey
	text     string
	thinking string
}

// drain removes and returns everything pending.
func (b *batcher) drain() []flushItem {
	b.scheduled = false
	if len(b.order) == 0 {
		return nil
	}
	out := make([]flushItem, 0, len(b.order))
	for _, k := range b.order {
		p := b.pending[k]
		out = append(out, flushItem{key: k, text: p.text.String(), thinking: p.thinking.String()})
	}
	b.pending = nil
	b.order = nil
	return out
}
