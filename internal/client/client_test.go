package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/wethinkt/go-panes/internal/conn"
	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/view"
)

// serverConn is the server side of one accepted socket.
type serverConn struct {
	c      *websocket.Conn
	frames chan string
}

func (sc *serverConn) send(t *testing.T, frames ...string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, f := range frames {
		if err := sc.c.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
}

// expect reads the next commands and checks their types in order.
func (sc *serverConn) expect(t *testing.T, types ...string) []string {
	t.Helper()
	var got []string
	for _, want := range types {
		select {
		case f, ok := <-sc.frames:
			if !ok {
				t.Fatalf("socket closed, still waiting for %s", want)
			}
			typ, err := protocol.DecodeCommandType([]byte(f))
			if err != nil {
				t.Fatalf("bad frame %q: %v", f, err)
			}
			if typ != want {
				t.Fatalf("command = %s (%s), want %s", typ, f, want)
			}
			got = append(got, f)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
	return got
}

type fakeServer struct {
	*httptest.Server
	conns chan *serverConn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{conns: make(chan *serverConn, 4)}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Log("accept error:", err)
			return
		}
		sc := &serverConn{c: c, frames: make(chan string, 64)}
		fs.conns <- sc
		defer close(sc.frames)
		for {
			_, data, err := c.Read(context.Background())
			if err != nil {
				return
			}
			sc.frames <- string(data)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case sc := <-fs.conns:
		return sc
	case <-time.After(3 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func startClient(t *testing.T, fs *fakeServer) *Client {
	t.Helper()
	c := New(Options{
		URL:            fs.url(),
		Dialer:         conn.WebSocketDialer{},
		ReconnectDelay: 100 * time.Millisecond,
		FlushInterval:  time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
	return c
}

func waitView(t *testing.T, c *Client, what string, cond func(view.View) bool) view.View {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v := c.View(); cond(v) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; view = %+v", what, c.View())
	return view.View{}
}

func TestClient_EndToEnd(t *testing.T) {
	fs := newFakeServer(t)
	c := startClient(t, fs)
	sc := fs.accept(t)

	sc.send(t, connectedFrame)
	frames := sc.expect(t, "browseDirectory", "openWorkspace")
	if frames[1] != `{"type":"openWorkspace","path":"/a"}` {
		t.Errorf("openWorkspace = %s", frames[1])
	}

	sc.send(t, openedFrame)
	sc.expect(t, "getSessions", "getModels", "getCommands")

	v := waitView(t, c, "active workspace", func(v view.View) bool { return v.Active != nil })
	if v.Active.ID != "w1" || !v.Connected {
		t.Errorf("view = %+v", v)
	}

	c.Do(func(d *dispatch.Dispatcher) { _ = d.Prompt("hello", nil) })
	frames = sc.expect(t, "prompt")
	if !strings.Contains(frames[0], `"sessionSlotId":"default"`) || !strings.Contains(frames[0], `"message":"hello"`) {
		t.Errorf("prompt frame = %s", frames[0])
	}

	sc.send(t,
		`{"type":"messageStart","workspaceId":"w1","sessionSlotId":"default","message":{"role":"assistant"}}`,
		`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"Hi "}}`,
		`{"type":"messageUpdate","workspaceId":"w1","sessionSlotId":"default","assistantMessageEvent":{"type":"text_delta","delta":"there"}}`,
	)
	waitView(t, c, "streamed text", func(v view.View) bool {
		return v.Active != nil && v.Active.ActiveSlot.StreamingText == "Hi there"
	})
}

func TestClient_ReconnectResumes(t *testing.T) {
	fs := newFakeServer(t)
	c := startClient(t, fs)

	first := fs.accept(t)
	first.send(t, connectedFrame)
	first.expect(t, "browseDirectory", "openWorkspace")
	first.send(t, `{"type":"workspaceOpened","workspace":{"id":"w1","path":"/a","name":"a"},"messages":[`+
		`{"role":"user","content":[{"type":"text","text":"one"}]},`+
		`{"role":"assistant","content":[{"type":"text","text":"two"}]}]}`)
	first.expect(t, "getSessions", "getModels", "getCommands")
	waitView(t, c, "first open", func(v view.View) bool { return v.Active != nil })

	first.c.Close(websocket.StatusGoingAway, "restart")
	waitView(t, c, "disconnect", func(v view.View) bool { return !v.Connected })
	if v := c.View(); v.Active == nil || len(v.Active.ActiveSlot.Messages) != 2 {
		t.Fatalf("state must survive a disconnect: %+v", v.Active)
	}

	second := fs.accept(t)
	second.send(t, connectedFrame)
	second.expect(t, "browseDirectory", "openWorkspace")
	second.send(t,
		`{"type":"workspaceOpened","workspace":{"id":"w1","path":"/a","name":"a"},"isExisting":true,"bufferedEventCount":1,"messages":[`+
			`{"role":"user","content":[{"type":"text","text":"one"}]},`+
			`{"role":"assistant","content":[{"type":"text","text":"two"}]}]}`,
	)
	second.expect(t, "getSessions", "getModels", "getCommands", "listSessionSlots")
	second.send(t, `{"type":"messageEnd","workspaceId":"w1","sessionSlotId":"default","message":{"role":"user","content":[{"type":"text","text":"three"}]}}`)

	v := waitView(t, c, "replayed tail", func(v view.View) bool {
		return v.Connected && v.Active != nil && len(v.Active.ActiveSlot.Messages) == 3
	})
	if v.Active.Resuming != 0 {
		t.Errorf("resuming = %d after the buffered event", v.Active.Resuming)
	}
	if got := v.Active.ActiveSlot.Messages[2].Text(); got != "three" {
		t.Errorf("tail message = %q", got)
	}
}

func TestClient_NoticesAndCall(t *testing.T) {
	fs := newFakeServer(t)
	c := startClient(t, fs)
	notices, unsub := c.Notices(state.NoticeForkMessages)
	defer unsub()

	sc := fs.accept(t)
	sc.send(t, openedFrame)
	sc.expect(t, "getSessions", "getModels", "getCommands", "saveUIState")
	sc.send(t, `{"type":"forkMessages","workspaceId":"w1","sessionSlotId":"default","messages":[{"entryId":"e1","text":"hi"}]}`)

	select {
	case n := <-notices:
		if n.WorkspaceID != "w1" {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no forkMessages notice")
	}

	var slots int
	err := c.Call(context.Background(), func(e *Engine) {
		slots = len(e.Store().State().Workspace("w1").Slots)
	})
	if err != nil || slots != 1 {
		t.Errorf("Call = %v, slots = %d", err, slots)
	}
}
