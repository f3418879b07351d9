package client

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/wethinkt/go-panes/internal/conn"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/pubsub"
	"github.com/wethinkt/go-panes/internal/state"
)

type recordingSender struct {
	frames []string
	fail   error
}

func (s *recordingSender) Send(_ context.Context, data []byte) error {
	if s.fail != nil {
		return s.fail
	}
	s.frames = append(s.frames, string(data))
	return nil
}

func (s *recordingSender) types(t *testing.T) []string {
	t.Helper()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		typ, err := protocol.DecodeCommandType([]byte(f))
		if err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out[i] = typ
	}
	return out
}

type stubTimer struct{ stopped bool }

func (t *stubTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type scheduled struct {
	delay time.Duration
	fn    func()
	timer *stubTimer
}

type engineHarness struct {
	eng     *Engine
	sender  *recordingSender
	pending []scheduled
	current uint64
	notices *pubsub.Bus[state.Notice]
	prefs   *prefs.Memory
}

func newHarness(t *testing.T) *engineHarness {
	t.Helper()
	h := &engineHarness{
		sender:  &recordingSender{},
		current: 1,
		notices: pubsub.New[state.Notice](0),
		prefs:   prefs.NewMemory(),
	}
	h.eng = NewEngine(EngineOptions{
		Sender:  h.sender,
		Current: func(gen uint64) bool { return gen == h.current },
		Schedule: func(d time.Duration, fn func()) conn.Timer {
			tm := &stubTimer{}
			h.pending = append(h.pending, scheduled{delay: d, fn: fn, timer: tm})
			return tm
		},
		Notices: h.notices,
		Prefs:   h.prefs,
	})
	return h
}

func (h *engineHarness) recv(frames ...string) {
	for _, f := range frames {
		h.eng.HandleMessage(h.current, []byte(f))
	}
}

func (h *engineHarness) fire() {
	p := h.pending
	h.pending = nil
	for _, s := range p {
		if !s.timer.stopped {
			s.fn()
		}
	}
}

const (
	connectedFrame = `{"type":"connected","homeDirectory":"/home/u","uiState":{"openWorkspaces":["/a"]}}`
	openedFrame    = `{"type":"workspaceOpened","workspace":{"id":"w1","path":"/a","name":"a"},"state":{"isStreaming":false},"messages":[]}`
)

func TestEngine_ConnectOpensPersistedWorkspace(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(connectedFrame)

	if got, want := h.sender.types(t), []string{"browseDirectory", "openWorkspace"}; !slices.Equal(got, want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	if h.sender.frames[1] != `{"type":"openWorkspace","path":"/a"}` {
		t.Errorf("openWorkspace frame = %s", h.sender.frames[1])
	}

	h.sender.frames = nil
	h.recv(openedFrame)
	if got, want := h.sender.types(t), []string{"getSessions", "getModels", "getCommands"}; !slices.Equal(got, want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	if id := h.eng.Store().State().ActiveWorkspaceID; id != "w1" {
		t.Errorf("active = %q", id)
	}
	if got := prefs.Recent(h.prefs); !slices.Equal(got, []string{"/a"}) {
		t.Errorf("recent = %v", got)
	}
	if !h.eng.TakeDirty() || h.eng.TakeDirty() {
		t.Error("dirty flag should be set once and cleared by TakeDirty")
	}
}

func TestEngine_MalformedFrameDropped(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(`{"type":`, `{"type":"noSuchEvent"}`, `[]`)

	st := h.eng.Store().State()
	if len(st.Workspaces) != 0 || st.Error != "" {
		t.Errorf("malformed frames changed state: %+v", st)
	}
	if len(h.sender.frames) != 0 {
		t.Errorf("sent %v", h.sender.frames)
	}
}

func TestEngine_StaleGenerationIgnored(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.current = 2

	h.eng.HandleMessage(1, []byte(connectedFrame))
	if len(h.sender.frames) != 0 {
		t.Fatalf("stale message was applied: %v", h.sender.frames)
	}
	h.eng.HandleError(1, errors.New("boom"))
	if h.eng.Store().State().Error != "" {
		t.Error("stale error was applied")
	}

	// The close of the socket this engine saw open still lands.
	h.eng.HandleClose(1)
	if h.eng.Store().State().Connected {
		t.Error("close of the open generation should mark the client disconnected")
	}

	// A second close for the same generation is stale.
	h.eng.HandleOpen(2)
	h.eng.HandleClose(1)
	if !h.eng.Store().State().Connected {
		t.Error("late close of a replaced socket tore down its successor")
	}
}

func TestEngine_StreamingFlushTimer(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(openedFrame,
		`{"type":"messageStart","workspaceId":"w1","sessionSlotId":"default","message":{"role":"assistant"}}`,
		`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"He"}}`,
		`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"llo"}}`,
	)
	if len(h.pending) != 1 {
		t.Fatalf("scheduled %d flushes, want 1", len(h.pending))
	}
	if h.pending[0].delay != DefaultFlushInterval {
		t.Errorf("delay = %v", h.pending[0].delay)
	}
	sl := h.eng.Store().State().Workspace("w1").Slot("default")
	if sl.StreamingText != "" {
		t.Errorf("fragments visible before flush: %q", sl.StreamingText)
	}

	h.eng.TakeDirty()
	h.fire()
	if sl.StreamingText != "Hello" {
		t.Errorf("StreamingText = %q, want Hello", sl.StreamingText)
	}
	if !h.eng.TakeDirty() {
		t.Error("flush should mark the state dirty")
	}

	h.recv(`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"!"}}`)
	if len(h.pending) != 1 {
		t.Fatalf("a new batch should arm a new flush, got %d", len(h.pending))
	}
}

func TestEngine_DeltasDoNotDirtyUntilFlush(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(openedFrame,
		`{"type":"messageStart","workspaceId":"w1","sessionSlotId":"default","message":{"role":"assistant"}}`)
	h.eng.TakeDirty()

	views := 0
	for range 100 {
		h.recv(`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"x"}}`)
		if h.eng.TakeDirty() {
			views++
		}
	}
	h.fire()
	if h.eng.TakeDirty() {
		views++
	}
	if views != 1 {
		t.Errorf("views published for 100 deltas and one flush = %d, want 1", views)
	}
	if got := len(h.eng.Store().State().Workspace("w1").Slot("default").StreamingText); got != 100 {
		t.Errorf("StreamingText length = %d, want 100", got)
	}
}

func TestEngine_PublishesNotices(t *testing.T) {
	h := newHarness(t)
	ch, unsub := h.notices.Subscribe(string(state.NoticeQuestionnaire))
	defer unsub()

	h.eng.HandleOpen(1)
	h.recv(openedFrame, `{"type":"questionnaireRequest","workspaceId":"w1","sessionSlotId":"default","toolCallId":"tc1","questions":[{"id":"q","question":"Why?"}]}`)

	select {
	case n := <-ch:
		if n.WorkspaceID != "w1" || n.SlotID != "default" {
			t.Errorf("notice = %+v", n)
		}
	default:
		t.Fatal("no questionnaire notice published")
	}
}

func TestEngine_LocalLayoutChangeSavesUIState(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(openedFrame)
	h.sender.frames = nil

	if err := h.eng.Dispatcher().SplitPane("vertical"); err != nil {
		t.Fatal(err)
	}
	if got, want := h.sender.types(t), []string{"createSessionSlot", "saveUIState"}; !slices.Equal(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}
}

func TestEngine_SendFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = conn.ErrNotConnected
	h.eng.HandleOpen(1)
	h.recv(connectedFrame, openedFrame)

	if h.eng.Store().State().Workspace("w1") == nil {
		t.Error("state should advance even when commands cannot be sent")
	}
}

func TestEngine_StopResetsRestoration(t *testing.T) {
	h := newHarness(t)
	h.eng.HandleOpen(1)
	h.recv(connectedFrame, openedFrame)
	st := h.eng.Store().State()
	if !st.Restoration.Attempted {
		t.Fatal("restoration not attempted on first connect")
	}

	h.eng.Stop()
	if st.Restoration != (state.Restoration{}) || st.Connected {
		t.Errorf("after Stop: restoration=%+v connected=%v", st.Restoration, st.Connected)
	}
	if st.Workspace("w1") == nil {
		t.Error("Stop dropped workspaces")
	}
}
