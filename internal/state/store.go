package state

import (
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// MaxEarlyEvents caps the events held for a workspace that is not open yet.
const MaxEarlyEvents = 1024

// NoticeKind names a hand-off to a dialog or other collaborator.
type NoticeKind string

const (
	NoticeQuestionnaire   NoticeKind = "questionnaire"
	NoticeExtensionUI     NoticeKind = "extensionUI"
	NoticeCustomUI        NoticeKind = "customUI"
	NoticeForkMessages    NoticeKind = "forkMessages"
	NoticeWorkspaceOpened NoticeKind = "workspaceOpened"
)

// Notice is published by the owner of the Store after an Apply.
type Notice struct {
	Kind        NoticeKind
	WorkspaceID string
	SlotID      string
	Payload     any
}

// Effects is what an Apply asks its caller to do. Commands are sent in
// order. ScheduleFlush asks for a Flush after the batching interval.
// Changed is false when the event only fed the streaming batcher or was held
// for a workspace that is not open yet.
type Effects struct {
	Commands      []protocol.Command
	ScheduleFlush bool
	SaveUIState   bool
	Notices       []Notice
	Changed       bool
}

// Empty reports whether there is nothing to do.
func (fx Effects) Empty() bool {
	return len(fx.Commands) == 0 && !fx.ScheduleFlush && !fx.SaveUIState && len(fx.Notices) == 0 && !fx.Changed
}

// Store owns the State and applies events to it. It is not safe for
// concurrent use; the client loop is its only writer.
type Store struct {
	state   State
	batch   batcher
	early   map[string][]protocol.Event
	bashSeq int
	fx      Effects
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		state: State{Workspaces: map[string]*Workspace{}},
		early: map[string][]protocol.Event{},
	}
}

// State returns the live state tree. Callers must treat it as read-only.
func (s *Store) State() *State {
	return &s.state
}

// Apply folds one server event into the state.
func (s *Store) Apply(ev protocol.Event) Effects {
	s.fx = Effects{}
	s.dispatch(ev)
	return s.take()
}

// ApplyLocal folds one client-originated event into the state.
func (s *Store) ApplyLocal(ev LocalEvent) Effects {
	s.fx = Effects{Changed: true}
	s.flush()
	ev.applyTo(s)
	return s.take()
}

// Flush commits pending streaming fragments. It reports whether anything
// was pending.
func (s *Store) Flush() bool {
	return s.flush()
}

// Pending reports whether streaming fragments await a flush.
func (s *Store) Pending() bool {
	return !s.batch.empty()
}

func (s *Store) take() Effects {
	fx := s.fx
	s.fx = Effects{}
	return fx
}

func (s *Store) send(cmds ...protocol.Command) {
	s.fx.Commands = append(s.fx.Commands, cmds...)
}

func (s *Store) notify(n Notice) {
	s.fx.Notices = append(s.fx.Notices, n)
}

func (s *Store) dispatch(ev protocol.Event) {
	if we, ok := ev.(protocol.WorkspaceEvent); ok {
		if _, opened := ev.(protocol.WorkspaceOpened); !opened {
			w := s.state.Workspaces[we.Workspace()]
			if w == nil {
				s.holdEarly(we)
				return
			}
			if w.Resuming > 0 {
				w.Resuming--
				s.fx.Changed = true
			}
		}
	}

	if mu, ok := ev.(protocol.MessageUpdate); ok {
		s.batchDelta(mu)
		return
	}
	s.flush()
	ev.Visit(reducer{s})
	s.fx.Changed = true
}

func (s *Store) holdEarly(ev protocol.WorkspaceEvent) {
	id := ev.Workspace()
	if _, closed := ev.(protocol.WorkspaceClosed); closed {
		delete(s.early, id)
		return
	}
	if len(s.early[id]) >= MaxEarlyEvents {
		tuilog.Log.Warn("early event queue full, dropping", "workspace", id, "kind", ev.Kind())
		return
	}
	s.early[id] = append(s.early[id], ev)
	tuilog.Log.Debug("holding event for unopened workspace", "workspace", id, "kind", ev.Kind())
}

func (s *Store) replayEarly(workspaceID string) {
	held := s.early[workspaceID]
	if len(held) == 0 {
		return
	}
	delete(s.early, workspaceID)
	tuilog.Log.Debug("replaying held events", "workspace", workspaceID, "count", len(held))
	for _, ev := range held {
		s.dispatch(ev)
	}
}

func (s *Store) batchDelta(mu protocol.MessageUpdate) {
	var thinking bool
	switch mu.AssistantMessageEvent.Type {
	case protocol.DeltaText:
	case protocol.DeltaThinking:
		thinking = true
	default:
		return
	}
	if mu.AssistantMessageEvent.Delta == "" {
		return
	}
	key := slotKey{workspace: mu.Workspace(), slot: mu.Slot()}
	if s.batch.add(key, thinking, mu.AssistantMessageEvent.Delta) {
		s.fx.ScheduleFlush = true
	}
}

func (s *Store) flush() bool {
	items := s.batch.drain()
	for _, it := range items {
		sl := s.slot(it.key.workspace, it.key.slot)
		if sl == nil {
			tuilog.Log.Debug("dropping fragments for unknown slot", "workspace", it.key.workspace, "slot", it.key.slot)
			continue
		}
		sl.StreamingText += it.text
		sl.StreamingThinking += it.thinking
	}
	return len(items) > 0
}

// slot resolves an existing slot. In legacy mode a slot referenced before its
// creation event is created implicitly; a sync-authoritative workspace only
// gains slots through the versioned protocol.
func (s *Store) slot(workspaceID, slotID string) *Slot {
	w := s.state.Workspaces[workspaceID]
	if w == nil {
		return nil
	}
	if sl := w.Slots[slotID]; sl != nil {
		return sl
	}
	if w.Owns(SliceSlotMembership) {
		tuilog.Log.Debug("event for slot not in snapshot", "workspace", workspaceID, "slot", slotID)
		return nil
	}
	sl := newSlot(slotID)
	w.addSlot(sl)
	return sl
}
