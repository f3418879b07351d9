package state

import (
	"slices"
	"testing"

	"github.com/wethinkt/go-panes/internal/layout"
	"github.com/wethinkt/go-panes/internal/protocol"
)

func slotScope(ws, slot string) protocol.SlotScope {
	return protocol.SlotScope{WorkspaceID: ws, SessionSlotID: slot}
}

func wsScope(ws string) protocol.WorkspaceScope {
	return protocol.WorkspaceScope{WorkspaceID: ws}
}

func openWorkspace(t *testing.T, s *Store, id, path string, msgs ...protocol.Message) Effects {
	t.Helper()
	return s.Apply(protocol.WorkspaceOpened{
		WorkspaceInfo: protocol.WorkspaceInfo{ID: id, Path: path, Name: path},
		Messages:      msgs,
	})
}

func textDelta(ws, slot, delta string) protocol.MessageUpdate {
	return protocol.MessageUpdate{
		SlotScope:             slotScope(ws, slot),
		AssistantMessageEvent: protocol.AssistantMessageEvent{Type: protocol.DeltaText, Delta: delta},
	}
}

func commandTypes(cmds []protocol.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.CommandType()
	}
	return out
}

func mustSlot(t *testing.T, s *Store, ws, slot string) *Slot {
	t.Helper()
	w := s.State().Workspace(ws)
	if w == nil {
		t.Fatalf("workspace %s missing", ws)
	}
	sl := w.Slot(slot)
	if sl == nil {
		t.Fatalf("slot %s/%s missing", ws, slot)
	}
	return sl
}

func TestConnected_RestoresPersistedWorkspaces(t *testing.T) {
	s := NewStore()
	fx := s.Apply(protocol.Connected{
		HomeDirectory: "/home/u",
		UIState:       &protocol.UIState{OpenWorkspaces: []string{"/a", "/b", "/a"}, ActiveWorkspacePath: "/b"},
	})
	got := commandTypes(fx.Commands)
	want := []string{"browseDirectory", "openWorkspace", "openWorkspace"}
	if !slices.Equal(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	st := s.State()
	if st.Restoration.Pending != 2 || st.Restoration.Complete {
		t.Fatalf("restoration = %+v", st.Restoration)
	}

	openWorkspace(t, s, "w1", "/a")
	if st.ActiveWorkspaceID != "w1" {
		t.Errorf("first opened workspace should become active, got %q", st.ActiveWorkspaceID)
	}
	openWorkspace(t, s, "w2", "/b")
	if st.ActiveWorkspaceID != "w2" {
		t.Errorf("persisted active path should win, got %q", st.ActiveWorkspaceID)
	}
	if !st.Restoration.Complete || st.Restoration.Pending != 0 {
		t.Errorf("restoration = %+v", st.Restoration)
	}
}

func TestConnected_NothingToRestore(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.Connected{})
	if !s.State().Restoration.Complete {
		t.Error("restoration with no persisted workspaces should be complete")
	}
}

func TestWorkspaceOpened_RequestsMetadata(t *testing.T) {
	s := NewStore()
	fx := openWorkspace(t, s, "w1", "/p")
	got := commandTypes(fx.Commands)
	want := []string{"getSessions", "getModels", "getCommands"}
	if !slices.Equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	w := s.State().Workspace("w1")
	if _, ok := w.Tabs.ActiveTab(); !ok {
		t.Error("opened workspace should have a tab set")
	}
	if !fx.SaveUIState {
		t.Error("a newly opened path should be persisted")
	}
}

func TestStreaming_DeltasConcatenateInOrder(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.MessageStart{SlotScope: slotScope("w1", ""), Message: protocol.Message{Role: protocol.RoleAssistant}})

	fx := s.Apply(textDelta("w1", "", "Hel"))
	if !fx.ScheduleFlush {
		t.Error("first fragment should schedule a flush")
	}
	fx = s.Apply(textDelta("w1", "", "lo, "))
	if fx.ScheduleFlush {
		t.Error("second fragment should reuse the scheduled flush")
	}
	s.Apply(textDelta("w1", "", "world"))

	sl := mustSlot(t, s, "w1", "default")
	if sl.StreamingText != "" {
		t.Fatalf("fragments visible before flush: %q", sl.StreamingText)
	}
	if !s.Flush() {
		t.Fatal("Flush reported nothing pending")
	}
	if sl.StreamingText != "Hello, world" {
		t.Errorf("StreamingText = %q", sl.StreamingText)
	}
	if s.Flush() {
		t.Error("second Flush should find nothing")
	}
}

func TestStreaming_NonDeltaEventFlushesFirst(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.MessageStart{SlotScope: slotScope("w1", ""), Message: protocol.Message{Role: protocol.RoleAssistant}})
	s.Apply(textDelta("w1", "", "partial"))

	// A state event must observe the fragment that arrived before it.
	s.Apply(protocol.StateEvent{SlotScope: slotScope("w1", ""), State: protocol.SessionState{IsStreaming: true}})
	sl := mustSlot(t, s, "w1", "default")
	if sl.StreamingText != "partial" {
		t.Errorf("StreamingText = %q, want flushed before later event", sl.StreamingText)
	}
	if s.Pending() {
		t.Error("nothing should remain pending")
	}
}

func TestStreaming_ThinkingSeparateFromText(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.MessageUpdate{
		SlotScope:             slotScope("w1", ""),
		AssistantMessageEvent: protocol.AssistantMessageEvent{Type: protocol.DeltaThinking, Delta: "hmm"},
	})
	s.Apply(textDelta("w1", "", "answer"))
	s.Flush()
	sl := mustSlot(t, s, "w1", "default")
	if sl.StreamingThinking != "hmm" || sl.StreamingText != "answer" {
		t.Errorf("thinking=%q text=%q", sl.StreamingThinking, sl.StreamingText)
	}
}

func TestIsStreaming_OnlyStateEventsWrite(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	sc := slotScope("w1", "")
	s.Apply(protocol.StateEvent{SlotScope: sc, State: protocol.SessionState{IsStreaming: true}})

	s.Apply(protocol.MessagesEvent{SlotScope: sc, Messages: []protocol.Message{{Role: protocol.RoleUser}}})
	s.Apply(protocol.MessageEnd{SlotScope: sc, Message: protocol.Message{Role: protocol.RoleAssistant}})
	fx := s.Apply(protocol.AgentEnd{SlotScope: sc})

	sl := mustSlot(t, s, "w1", "default")
	if !sl.State.IsStreaming {
		t.Fatal("IsStreaming changed without a state event")
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"getState"}) {
		t.Errorf("agentEnd commands = %v, want [getState]", got)
	}

	s.Apply(protocol.StateEvent{SlotScope: sc, State: protocol.SessionState{IsStreaming: false}})
	if sl.State.IsStreaming {
		t.Error("state event should clear IsStreaming")
	}
}

func TestTools_MessageEndRemovesOnlyEmbeddedIDs(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	sc := slotScope("w1", "")
	s.Apply(protocol.ToolStart{SlotScope: sc, ToolCallID: "t1", ToolName: "read"})
	s.Apply(protocol.ToolStart{SlotScope: sc, ToolCallID: "t2", ToolName: "bash"})
	s.Apply(protocol.ToolStart{SlotScope: sc, ToolCallID: "t3", ToolName: "edit"})
	s.Apply(protocol.ToolEnd{SlotScope: sc, ToolCallID: "t1", IsError: true})

	sl := mustSlot(t, s, "w1", "default")
	exec, ok := sl.Tool("t1")
	if !ok || exec.Status != ToolError {
		t.Fatalf("t1 = %+v, %v; want parked error", exec, ok)
	}

	s.Apply(protocol.MessageEnd{SlotScope: sc, Message: protocol.Message{Role: protocol.RoleToolResult, ToolCallID: "t1"}})
	if _, ok := sl.Tool("t1"); ok {
		t.Error("t1 should be gone after its result message")
	}
	s.Apply(protocol.MessageEnd{SlotScope: sc, Message: protocol.Message{
		Role:    protocol.RoleAssistant,
		Content: []protocol.ContentBlock{{Type: protocol.BlockToolCall, ID: "t2"}},
	}})
	if _, ok := sl.Tool("t2"); ok {
		t.Error("t2 should be removed by the message embedding it")
	}
	if exec, ok := sl.Tool("t3"); !ok || exec.Status != ToolRunning {
		t.Errorf("t3 = %+v, %v; an unrelated tool must survive", exec, ok)
	}

	s.Apply(protocol.AgentEnd{SlotScope: sc})
	if len(sl.ActiveTools) != 0 || len(sl.FinishedTools) != 0 {
		t.Errorf("agentEnd should clear per-turn tools: %+v %+v", sl.ActiveTools, sl.FinishedTools)
	}
}

func TestMessageEnd_ReplacesStreamingMessage(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p", protocol.Message{Role: protocol.RoleUser})
	sc := slotScope("w1", "")
	s.Apply(protocol.MessageStart{SlotScope: sc, Message: protocol.Message{Role: protocol.RoleAssistant}})
	s.Apply(textDelta("w1", "", "abc"))
	s.Apply(protocol.MessageEnd{SlotScope: sc, Message: protocol.Message{
		Role:    protocol.RoleAssistant,
		Content: []protocol.ContentBlock{{Type: protocol.BlockText, Text: "abc"}},
	}})
	sl := mustSlot(t, s, "w1", "default")
	if len(sl.Messages) != 2 || sl.Messages[1].Text() != "abc" {
		t.Fatalf("messages = %+v", sl.Messages)
	}
	if sl.StreamingText != "" || sl.StreamingIndex() != -1 {
		t.Errorf("streaming state not cleared: %q %d", sl.StreamingText, sl.StreamingIndex())
	}
}

func TestBash_Lifecycle(t *testing.T) {
	tests := []struct {
		name      string
		exit      int
		cancelled bool
		wantError bool
	}{
		{"success", 0, false, false},
		{"failure", 2, false, true},
		{"cancelled", 130, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			openWorkspace(t, s, "w1", "/p")
			sc := slotScope("w1", "")
			s.Apply(protocol.BashStart{SlotScope: sc, Command: "ls"})
			s.Apply(protocol.BashOutput{SlotScope: sc, Chunk: "a\n"})
			s.Apply(protocol.BashOutput{SlotScope: sc, Chunk: "b\n"})

			sl := mustSlot(t, s, "w1", "default")
			if sl.Bash == nil || !sl.Bash.Running || sl.Bash.Output != "a\nb\n" {
				t.Fatalf("live execution = %+v", sl.Bash)
			}

			exit := tc.exit
			s.Apply(protocol.BashEnd{SlotScope: sc, ExitCode: &exit, Cancelled: tc.cancelled})
			if sl.Bash != nil {
				t.Error("live execution should be cleared")
			}
			m := sl.Messages[len(sl.Messages)-1]
			if m.Role != protocol.RoleBashExecution || m.Bash == nil {
				t.Fatalf("mirrored message = %+v", m)
			}
			if m.Bash.Running || m.Bash.Output != "a\nb\n" || m.Bash.IsError != tc.wantError {
				t.Errorf("bash message = %+v", m.Bash)
			}
		})
	}
}

func TestEarlyEvents_ReplayedAfterOpen(t *testing.T) {
	s := NewStore()
	sc := slotScope("w1", "")
	s.Apply(protocol.StateEvent{SlotScope: sc, State: protocol.SessionState{IsStreaming: true}})
	s.Apply(protocol.MessageStart{SlotScope: sc, Message: protocol.Message{Role: protocol.RoleAssistant}})
	if s.State().Workspace("w1") != nil {
		t.Fatal("held events must not create a workspace")
	}

	openWorkspace(t, s, "w1", "/p")
	sl := mustSlot(t, s, "w1", "default")
	if !sl.State.IsStreaming || len(sl.Messages) != 1 {
		t.Errorf("held events not replayed: state=%+v messages=%d", sl.State, len(sl.Messages))
	}
}

func TestEarlyEvents_DroppedOnClose(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.StateEvent{SlotScope: slotScope("w1", ""), State: protocol.SessionState{IsStreaming: true}})
	s.ApplyLocal(ConnectionClosed{})
	openWorkspace(t, s, "w1", "/p")
	if mustSlot(t, s, "w1", "default").State.IsStreaming {
		t.Error("events held across a disconnect should be dropped")
	}
}

func TestDisconnect_PreservesState(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.Connected{})
	s.ApplyLocal(ConnectionOpened{})
	openWorkspace(t, s, "w1", "/p", protocol.Message{Role: protocol.RoleUser})
	s.Apply(protocol.MessageStart{SlotScope: slotScope("w1", ""), Message: protocol.Message{Role: protocol.RoleAssistant}})
	s.Apply(textDelta("w1", "", "pending"))

	s.ApplyLocal(ConnectionClosed{})
	st := s.State()
	if st.Connected {
		t.Error("Connected should be false")
	}
	sl := mustSlot(t, s, "w1", "default")
	if len(sl.Messages) != 2 || sl.StreamingText != "pending" {
		t.Errorf("state lost on disconnect: messages=%d text=%q", len(sl.Messages), sl.StreamingText)
	}
	if st.ActiveWorkspaceID != "w1" {
		t.Errorf("active workspace lost: %q", st.ActiveWorkspaceID)
	}
}

func TestReconnect_ResumesWorkspace(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.Connected{})
	openWorkspace(t, s, "w1", "/p",
		protocol.Message{Role: protocol.RoleUser},
		protocol.Message{Role: protocol.RoleAssistant})
	s.ApplyLocal(ConnectionClosed{})

	fx := s.Apply(protocol.Connected{})
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"browseDirectory", "openWorkspace"}) {
		t.Fatalf("reconnect commands = %v", got)
	}
	if p := fx.Commands[1].(protocol.OpenWorkspace).Path; p != "/p" {
		t.Errorf("reopened %q, want /p", p)
	}

	s.Apply(protocol.WorkspaceOpened{
		WorkspaceInfo:      protocol.WorkspaceInfo{ID: "w1", Path: "/p"},
		Messages:           []protocol.Message{{Role: protocol.RoleUser}, {Role: protocol.RoleAssistant}},
		IsExisting:         true,
		BufferedEventCount: 2,
	})
	w := s.State().Workspace("w1")
	if w.Resuming != 2 {
		t.Fatalf("Resuming = %d, want 2", w.Resuming)
	}

	sc := slotScope("w1", "")
	s.Apply(protocol.MessageStart{SlotScope: sc, Message: protocol.Message{Role: protocol.RoleAssistant}})
	s.Apply(textDelta("w1", "", "Hello"))
	s.Flush()

	sl := mustSlot(t, s, "w1", "default")
	if len(sl.Messages) != 3 || sl.StreamingText != "Hello" {
		t.Errorf("messages=%d text=%q, want 3 and Hello", len(sl.Messages), sl.StreamingText)
	}
	if w.Resuming != 0 {
		t.Errorf("Resuming = %d after replay", w.Resuming)
	}
}

func TestWorkspaceOpened_ExistingKeepsSlots(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "s2")})

	fx := openWorkspace(t, s, "w1", "/p")
	if mustSlot(t, s, "w1", "s2") == nil {
		t.Fatal("non-default slot dropped")
	}
	if got := commandTypes(fx.Commands); !slices.Contains(got, "listSessionSlots") {
		t.Errorf("commands = %v, want listSessionSlots", got)
	}
}

func TestWorkspaceOpened_ResumeRefreshesCarriedSlots(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "s2")})
	s.Apply(protocol.StateEvent{SlotScope: slotScope("w1", "s2"), State: protocol.SessionState{IsStreaming: true}})
	s.ApplyLocal(ConnectionClosed{})

	fx := s.Apply(protocol.WorkspaceOpened{
		WorkspaceInfo: protocol.WorkspaceInfo{ID: "w1", Path: "/p"},
		IsExisting:    true,
	})
	var s2 []string
	for _, c := range fx.Commands {
		var slot string
		switch c := c.(type) {
		case protocol.GetState:
			slot = c.SessionSlotID
		case protocol.GetMessages:
			slot = c.SessionSlotID
		case protocol.GetCommands:
			slot = c.SessionSlotID
		}
		if slot == "s2" {
			s2 = append(s2, c.CommandType())
		}
	}
	if !slices.Equal(s2, []string{"getState", "getMessages", "getCommands"}) {
		t.Errorf("commands for carried slot s2 = %v, all = %v", s2, commandTypes(fx.Commands))
	}
}

func TestWorkspaceOpened_ResumeKeepsSyncedQueue(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	snap := protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 7, State: protocol.SyncState{
		Slots: map[string]protocol.SlotSync{
			"default": {QueuedMessages: protocol.QueuedMessages{Steering: []string{"queued"}}},
		},
	}}
	s.Apply(snap)
	s.ApplyLocal(ConnectionClosed{})

	s.Apply(protocol.WorkspaceOpened{WorkspaceInfo: protocol.WorkspaceInfo{ID: "w1", Path: "/p"}, IsExisting: true})
	s.Apply(snap)

	w := s.State().Workspace("w1")
	if w.Sync.Version != 7 || !w.Sync.Authoritative {
		t.Errorf("sync = %+v, want version 7", w.Sync)
	}
	if got := mustSlot(t, s, "w1", "default").Queued.Steering; !slices.Equal(got, []string{"queued"}) {
		t.Errorf("queued after resume = %v, want [queued]", got)
	}
}

func TestWorkspaceOpened_NewSessionResetsSync(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 7, State: protocol.SyncState{
		Slots: map[string]protocol.SlotSync{"default": {}},
	}})
	s.ApplyLocal(ConnectionClosed{})

	s.Apply(protocol.WorkspaceOpened{WorkspaceInfo: protocol.WorkspaceInfo{ID: "w1", Path: "/p"}})
	if w := s.State().Workspace("w1"); w.Sync != (Sync{}) {
		t.Fatalf("sync = %+v after a new remote session", w.Sync)
	}

	s.Apply(protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 1, State: protocol.SyncState{
		Slots: map[string]protocol.SlotSync{"default": {}},
	}})
	s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 2, Deltas: []protocol.SyncDelta{{
		Type:           protocol.DeltaQueuedMessagesUpdate,
		Version:        2,
		SlotID:         "default",
		QueuedMessages: &protocol.QueuedMessages{FollowUp: []string{"new"}},
	}}})
	if got := mustSlot(t, s, "w1", "default").Queued.FollowUp; !slices.Equal(got, []string{"new"}) {
		t.Errorf("followUp = %v, want [new]", got)
	}
	if v := s.State().Workspace("w1").Sync.Version; v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestApply_BatchedDeltaIsNotAChange(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.MessageStart{SlotScope: slotScope("w1", ""), Message: protocol.Message{Role: protocol.RoleAssistant}})

	fx := s.Apply(textDelta("w1", "", "a"))
	if fx.Changed || !fx.ScheduleFlush {
		t.Errorf("first delta: changed=%v scheduleFlush=%v", fx.Changed, fx.ScheduleFlush)
	}
	if fx := s.Apply(textDelta("w1", "", "b")); !fx.Empty() {
		t.Errorf("second delta effects = %+v, want none", fx)
	}
	if fx := s.Apply(protocol.StateEvent{SlotScope: slotScope("w1", "")}); !fx.Changed {
		t.Error("state event not reported as a change")
	}
	if fx := s.Apply(textDelta("w9", "", "held")); fx.Changed {
		t.Error("event held for an unopened workspace reported as a change")
	}
}

func TestSessionSlotCreated_CopiesSiblingCommands(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.CommandsEvent{SlotScope: slotScope("w1", ""), Commands: []protocol.SlashCommand{{Name: "compact"}}})

	fx := s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "s2")})
	sl := mustSlot(t, s, "w1", "s2")
	if len(sl.Commands) != 1 || sl.Commands[0].Name != "compact" {
		t.Errorf("commands = %+v", sl.Commands)
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"getCommands"}) {
		t.Errorf("commands sent = %v", got)
	}
}

func TestSessionSlotList_Reconciles(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "gone")})
	fx := s.Apply(protocol.SessionSlotList{
		WorkspaceScope: wsScope("w1"),
		Slots:          []protocol.SlotSummary{{SlotID: "default"}, {SlotID: "new"}},
	})
	w := s.State().Workspace("w1")
	if w.Slot("gone") != nil || w.Slot("new") == nil {
		t.Errorf("slots = %v", w.SlotOrder)
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"getState", "getMessages", "getCommands"}) {
		t.Errorf("hydration = %v", got)
	}
}

func TestSync_SnapshotOwnsSlices(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "s2")})

	s.Apply(protocol.Snapshot{
		WorkspaceScope: wsScope("w1"),
		Version:        5,
		State: protocol.SyncState{
			RightPaneOpen: true,
			Slots: map[string]protocol.SlotSync{
				"default": {QueuedMessages: protocol.QueuedMessages{Steering: []string{"synced"}}},
			},
		},
	})
	w := s.State().Workspace("w1")
	if !w.Sync.Authoritative || w.Sync.Version != 5 {
		t.Fatalf("sync = %+v", w.Sync)
	}
	if w.Slot("s2") != nil {
		t.Error("slot absent from snapshot should be removed")
	}
	if !w.RightPaneOpen {
		t.Error("right pane not adopted")
	}

	sc := slotScope("w1", "")
	s.Apply(protocol.QueuedMessagesEvent{SlotScope: sc, Steering: []string{"legacy"}})
	s.Apply(protocol.SessionSlotCreated{SlotScope: slotScope("w1", "s3")})
	s.Apply(protocol.SessionSlotClosed{SlotScope: slotScope("w1", "default")})

	sl := mustSlot(t, s, "w1", "default")
	if !slices.Equal(sl.Queued.Steering, []string{"synced"}) {
		t.Errorf("legacy queuedMessages overrode synced value: %v", sl.Queued.Steering)
	}
	if w.Slot("s3") != nil {
		t.Error("legacy sessionSlotCreated created a slot in a sync-authoritative workspace")
	}

	// Non-owned slices still follow the legacy protocol.
	s.Apply(protocol.StateEvent{SlotScope: sc, State: protocol.SessionState{IsStreaming: true}})
	if !sl.State.IsStreaming {
		t.Error("state event ignored under sync authority")
	}
}

func TestSync_DeltaVersions(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 1, State: protocol.SyncState{
		Slots: map[string]protocol.SlotSync{"default": {}},
	}})
	w := s.State().Workspace("w1")

	fx := s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 2, Deltas: []protocol.SyncDelta{
		{Type: protocol.DeltaSlotCreate, Version: 2, SlotID: "s2"},
	}})
	if w.Slot("s2") == nil {
		t.Fatal("slotCreate not applied")
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"getState", "getMessages", "getCommands"}) {
		t.Errorf("slotCreate hydration = %v", got)
	}

	// Duplicate.
	fx = s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 2, Deltas: []protocol.SyncDelta{
		{Type: protocol.DeltaSlotDelete, Version: 2, SlotID: "s2"},
	}})
	if w.Slot("s2") == nil || len(fx.Commands) != 0 {
		t.Error("duplicate delta applied")
	}

	// Gap: applied, and a snapshot is requested.
	open := true
	fx = s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 5, Deltas: []protocol.SyncDelta{
		{Type: protocol.DeltaRightPaneUpdate, Version: 5, RightPaneOpen: &open},
	}})
	if !w.RightPaneOpen || w.Sync.Version != 5 {
		t.Errorf("gap delta not applied: open=%v version=%d", w.RightPaneOpen, w.Sync.Version)
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"requestSnapshot"}) {
		t.Errorf("gap commands = %v", got)
	}

	// Stale snapshot.
	s.Apply(protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 4, State: protocol.SyncState{
		Slots: map[string]protocol.SlotSync{"default": {}},
	}})
	if w.Slot("s2") == nil || !w.RightPaneOpen {
		t.Error("stale snapshot applied")
	}
}

func TestSync_DeltaBeforeSnapshotRequestsOne(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	fx := s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 1})
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"requestSnapshot"}) {
		t.Errorf("commands = %v", got)
	}
}

func TestSync_PaneTabsUpdate(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.Snapshot{WorkspaceScope: wsScope("w1"), Version: 1})

	tabs := layout.NewTabSet("default")
	tree, _, _ := tabs.Tabs[0].Tree.Split(layout.Vertical, "s2")
	wire := tabs.WithTree(tabs.Active, tree).ToWire()
	s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 2, Deltas: []protocol.SyncDelta{
		{Type: protocol.DeltaPaneTabsUpdate, PaneTabs: &wire},
	}})
	w := s.State().Workspace("w1")
	tab, _ := w.Tabs.ActiveTab()
	if got := tab.Tree.SlotIDs(); !slices.Equal(got, []string{"default", "s2"}) {
		t.Errorf("slots = %v", got)
	}

	bad := protocol.PaneTabs{Tabs: []protocol.PaneTab{{ID: "tab-1", Layout: protocol.LayoutNode{Direction: "diagonal"}}}}
	s.Apply(protocol.Delta{WorkspaceScope: wsScope("w1"), Version: 3, Deltas: []protocol.SyncDelta{
		{Type: protocol.DeltaPaneTabsUpdate, PaneTabs: &bad},
	}})
	tab, _ = w.Tabs.ActiveTab()
	if len(tab.Tree.Leaves()) != 2 {
		t.Error("invalid layout replaced the current one")
	}
}

func TestForkResult(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	sc := slotScope("w1", "")
	s.Apply(protocol.ForkResult{SlotScope: sc, Success: false, Error: "no such entry"})
	sl := mustSlot(t, s, "w1", "default")
	if sl.Error != "no such entry" {
		t.Errorf("Error = %q", sl.Error)
	}
	fx := s.Apply(protocol.ForkResult{SlotScope: sc, Success: true})
	if sl.Error != "" {
		t.Error("success should clear the error")
	}
	if got := commandTypes(fx.Commands); !slices.Equal(got, []string{"getMessages", "getState", "getSessions"}) {
		t.Errorf("commands = %v", got)
	}
}

func TestDialogs_NoticesAndResolution(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	fx := s.Apply(protocol.QuestionnaireRequest{SlotScope: slotScope("w1", ""), ToolCallID: "q1"})
	if len(fx.Notices) != 1 || fx.Notices[0].Kind != NoticeQuestionnaire {
		t.Fatalf("notices = %+v", fx.Notices)
	}
	s.ApplyLocal(QuestionnaireResolved{WorkspaceID: "w1", SlotID: "default", ToolCallID: "other"})
	sl := mustSlot(t, s, "w1", "default")
	if sl.Questionnaire == nil {
		t.Fatal("resolution for another tool call dismissed the dialog")
	}
	s.ApplyLocal(QuestionnaireResolved{WorkspaceID: "w1", SlotID: "default", ToolCallID: "q1"})
	if sl.Questionnaire != nil {
		t.Error("questionnaire not dismissed")
	}
}

func TestCustomUI_SessionScoped(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	sc := slotScope("w1", "")
	s.Apply(protocol.CustomUIStart{SlotScope: sc, SessionID: "c1", Component: []byte(`{"a":1}`)})
	s.Apply(protocol.CustomUIClose{SlotScope: sc, SessionID: "c2"})
	sl := mustSlot(t, s, "w1", "default")
	if sl.CustomUI == nil {
		t.Fatal("close for another session closed the UI")
	}
	s.Apply(protocol.CustomUIUpdate{SlotScope: sc, SessionID: "c1", Component: []byte(`{"a":2}`)})
	if string(sl.CustomUI.Component) != `{"a":2}` {
		t.Errorf("component = %s", sl.CustomUI.Component)
	}
	s.Apply(protocol.CustomUIClose{SlotScope: sc, SessionID: "c1"})
	if sl.CustomUI != nil {
		t.Error("custom UI not closed")
	}
}

func TestErrorEvent_Scoping(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	s.Apply(protocol.ErrorEvent{Message: "global"})
	s.Apply(protocol.ErrorEvent{Message: "ws", WorkspaceID: "w1"})
	s.Apply(protocol.ErrorEvent{Message: "slot", WorkspaceID: "w1", SessionSlotID: "default"})
	st := s.State()
	if st.Error != "global" || st.Workspace("w1").Error != "ws" || mustSlot(t, s, "w1", "default").Error != "slot" {
		t.Errorf("errors misrouted: %q %q %q", st.Error, st.Workspace("w1").Error, mustSlot(t, s, "w1", "default").Error)
	}
}

func TestWorkspaceClosed_ClearsActive(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	fx := s.Apply(protocol.WorkspaceClosed{WorkspaceScope: wsScope("w1")})
	st := s.State()
	if st.Workspace("w1") != nil || st.ActiveWorkspaceID != "" {
		t.Errorf("workspace not removed: active=%q", st.ActiveWorkspaceID)
	}
	if slices.Contains(st.UI.OpenWorkspaces, "/p") || !fx.SaveUIState {
		t.Error("closed path should leave the persisted list")
	}
}

func TestRestoreLayout_RecreatesSlots(t *testing.T) {
	tabs := layout.NewTabSet("default")
	tree, _, _ := tabs.Tabs[0].Tree.Split(layout.Vertical, "s2")
	wire := tabs.WithTree(tabs.Active, tree).ToWire()

	s := NewStore()
	s.Apply(protocol.Connected{UIState: &protocol.UIState{
		OpenWorkspaces:      []string{"/p"},
		PaneTabsByWorkspace: map[string]protocol.PaneTabs{"/p": wire},
	}})
	fx := openWorkspace(t, s, "w1", "/p")
	if got := commandTypes(fx.Commands); got[0] != "createSessionSlot" {
		t.Errorf("commands = %v, want createSessionSlot first", got)
	}
	if mustSlot(t, s, "w1", "s2") == nil {
		t.Error("restored slot missing")
	}
}

func TestLocal_LayoutChangedPersists(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	tabs, _ := layout.NewTabSet("default").AddTab("s2")
	fx := s.ApplyLocal(LayoutChanged{WorkspaceID: "w1", Tabs: tabs})
	if !fx.SaveUIState {
		t.Error("layout change should persist")
	}
	if got := s.State().UI.PaneTabsByWorkspace["/p"]; len(got.Tabs) != 2 {
		t.Errorf("persisted tabs = %+v", got)
	}
}

func TestUnknownReferences_NoPanic(t *testing.T) {
	s := NewStore()
	openWorkspace(t, s, "w1", "/p")
	sc := slotScope("w1", "")
	s.Apply(protocol.ToolUpdate{SlotScope: sc, ToolCallID: "nope"})
	s.Apply(protocol.ToolEnd{SlotScope: sc, ToolCallID: "nope"})
	s.Apply(protocol.BashOutput{SlotScope: sc, Chunk: "x"})
	s.Apply(protocol.BashEnd{SlotScope: sc})
	s.Apply(protocol.WorkspaceClosed{WorkspaceScope: wsScope("zzz")})
	s.ApplyLocal(QuestionnaireResolved{WorkspaceID: "zzz"})
	s.ApplyLocal(LayoutChanged{WorkspaceID: "zzz"})
}
