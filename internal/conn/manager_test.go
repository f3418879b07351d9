package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type fakeSocket struct {
	in      chan []byte
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	written []string
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan []byte, 8), done: make(chan struct{})}
}

func (s *fakeSocket) Read(ctx context.Context) ([]byte, error) {
	select {
	case d := <-s.in:
		return d, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSocket) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, string(data))
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	sockets []*fakeSocket
	fail    error
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

type recorder struct {
	signals chan string
}

func newRecorder() *recorder { return &recorder{signals: make(chan string, 32)} }

func (r *recorder) HandleOpen(gen uint64) { r.signals <- fmt.Sprintf("open:%d", gen) }
func (r *recorder) HandleMessage(gen uint64, data []byte) {
	r.signals <- fmt.Sprintf("message:%d:%s", gen, data)
}
func (r *recorder) HandleError(gen uint64, err error) { r.signals <- fmt.Sprintf("error:%d", gen) }
func (r *recorder) HandleClose(gen uint64)            { r.signals <- fmt.Sprintf("close:%d", gen) }

func (r *recorder) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-r.signals:
			if got != w {
				t.Fatalf("signal = %q, want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-r.signals:
		t.Fatalf("unexpected signal %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *manualTimer) isStopped() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.stopped
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) pending() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// waitPending waits for n live timers; the manager arms them after the
// close handler returns.
func (c *manualClock) waitPending(t *testing.T, n int) []*manualTimer {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := c.pending(); len(p) == n {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pending timers = %d, want %d", len(c.pending()), n)
	return nil
}

func (c *manualClock) fireAll() {
	for _, t := range c.pending() {
		t.Stop()
		t.fn()
	}
}

func newTestManager(d *fakeDialer, r *recorder, c *manualClock) *Manager {
	return New(Options{URL: "ws://test", Dialer: d, Handler: r, AfterFunc: c.AfterFunc})
}

func TestManager_ReconnectsAfterClose(t *testing.T) {
	d, r, c := &fakeDialer{}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Stop()

	m.Connect(ctx)
	r.expect(t, "open:1")

	d.socket(0).in <- []byte("hello")
	r.expect(t, "message:1:hello")

	d.socket(0).Close()
	r.expect(t, "error:1", "close:1")

	timers := c.waitPending(t, 1)
	if timers[0].delay != DefaultDelay {
		t.Fatalf("reconnect delay = %v, want %v", timers[0].delay, DefaultDelay)
	}
	c.fireAll()
	r.expect(t, "open:2")
	if m.Status() != StatusOpen {
		t.Errorf("status = %v, want open", m.Status())
	}
}

func TestManager_StaleCloseIgnored(t *testing.T) {
	d, r, c := &fakeDialer{}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Stop()

	m.Connect(ctx)
	r.expect(t, "open:1")
	m.Stop()
	m.Connect(ctx)
	r.expect(t, "open:3")

	// A late close for the first socket must not touch the second.
	m.closed(1)
	r.expectNone(t)
	if len(c.pending()) != 0 {
		t.Error("stale close scheduled a reconnect")
	}
	if m.Status() != StatusOpen || !m.Current(3) {
		t.Errorf("status = %v gen = %d", m.Status(), m.Generation())
	}
}

func TestManager_DialFailureSchedulesReconnect(t *testing.T) {
	d, r, c := &fakeDialer{fail: errors.New("refused")}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Stop()

	m.Connect(ctx)
	r.expect(t, "error:1", "close:1")
	c.waitPending(t, 1)

	d.mu.Lock()
	d.fail = nil
	d.mu.Unlock()
	c.fireAll()
	r.expect(t, "open:2")
}

func TestManager_StopCancelsReconnect(t *testing.T) {
	d, r, c := &fakeDialer{}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Connect(ctx)
	r.expect(t, "open:1")
	d.socket(0).Close()
	r.expect(t, "error:1", "close:1")

	timers := c.waitPending(t, 1)
	m.Stop()
	if !timers[0].isStopped() {
		t.Error("Stop did not cancel the reconnect timer")
	}
	timers[0].fn()
	r.expectNone(t)
	if m.Status() != StatusStopped {
		t.Errorf("status = %v, want stopped", m.Status())
	}
}

func TestManager_ConnectWhileOpenIsNoop(t *testing.T) {
	d, r, c := &fakeDialer{}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Stop()

	m.Connect(ctx)
	r.expect(t, "open:1")
	m.Connect(ctx)
	r.expectNone(t)
	if m.Generation() != 1 {
		t.Errorf("generation = %d, want 1", m.Generation())
	}
}

func TestManager_SendRequiresSocket(t *testing.T) {
	d, r, c := &fakeDialer{}, newRecorder(), &manualClock{}
	m := newTestManager(d, r, c)
	if err := m.Send(context.Background(), []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send before connect = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Stop()
	m.Connect(ctx)
	r.expect(t, "open:1")
	if err := m.Send(ctx, []byte(`{"type":"getState"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	s := d.socket(0)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.written) != 1 {
		t.Errorf("written = %v", s.written)
	}
}

func TestManager_Backoff(t *testing.T) {
	tests := []struct {
		name     string
		delay    time.Duration
		maxDelay time.Duration
		attempts []time.Duration
	}{
		{"fixed", time.Second, 0, []time.Duration{time.Second, time.Second, time.Second}},
		{"exponential", time.Second, 5 * time.Second, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := New(Options{Delay: tc.delay, MaxDelay: tc.maxDelay})
			for i, want := range tc.attempts {
				m.attempt = i
				if got := m.nextDelayLocked(); got != want {
					t.Errorf("attempt %d: delay = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestManager_JitterBounds(t *testing.T) {
	m := New(Options{Delay: time.Second, Jitter: 0.25})
	for range 100 {
		d := m.nextDelayLocked()
		if d < 750*time.Millisecond || d > 1250*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Log("accept error:", err)
			return
		}
		defer c.CloseNow() //nolint:errcheck

		_ = c.Write(r.Context(), websocket.MessageText, []byte(`{"type":"connected"}`))
		_, data, err := c.Read(r.Context())
		if err == nil {
			got <- string(data)
		}
		c.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	r, c := newRecorder(), &manualClock{}
	m := New(Options{URL: wsURL, Dialer: WebSocketDialer{Token: "secret"}, Handler: r, AfterFunc: c.AfterFunc})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer m.Stop()

	m.Connect(ctx)
	r.expect(t, "open:1", `message:1:{"type":"connected"}`)
	if err := m.Send(ctx, []byte(`{"type":"browseDirectory"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case frame := <-got:
		if frame != `{"type":"browseDirectory"}` {
			t.Errorf("server got %q", frame)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for frame")
	}
	r.expect(t, "close:1")
}
