// Package client wires the connection, the Store and the Dispatcher into a
// single-writer loop.
//
// Engine is the synchronous core: every connection signal, timer tick and
// user intent becomes one call on it, made from one goroutine. Client owns
// that goroutine.
package client

import (
	"context"
	"time"

	"github.com/wethinkt/go-panes/internal/conn"
	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/pubsub"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// DefaultFlushInterval is the streaming delta batch window.
const DefaultFlushInterval = 16 * time.Millisecond

// Sender writes outbound frames. *conn.Manager implements it.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Sender Sender
	// Current reports whether a connection generation is still live.
	Current func(gen uint64) bool
	// Schedule runs fn on the engine's goroutine after d.
	Schedule func(d time.Duration, fn func()) conn.Timer

	FlushInterval time.Duration
	SendTimeout   time.Duration

	Notices *pubsub.Bus[state.Notice]
	Prefs   prefs.Store
}

// Engine applies signals to the Store and carries out the resulting effects.
// It is not safe for concurrent use.
type Engine struct {
	opts  EngineOptions
	store *state.Store
	disp  *dispatch.Dispatcher

	flushTimer conn.Timer
	dirty      bool
	openGen    uint64
}

// NewEngine returns an Engine over a fresh Store.
func NewEngine(opts EngineOptions) *Engine {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.Current == nil {
		opts.Current = func(uint64) bool { return true }
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, fn func()) conn.Timer { return time.AfterFunc(d, fn) }
	}
	e := &Engine{opts: opts, store: state.NewStore()}
	e.disp = dispatch.New(e.store.State, e)
	return e
}

// Store returns the Store. Reads must happen on the engine's goroutine.
func (e *Engine) Store() *state.Store { return e.store }

// Dispatcher returns the Dispatcher bound to this engine.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.disp }

// TakeDirty reports whether state changed since the last call.
func (e *Engine) TakeDirty() bool {
	d := e.dirty
	e.dirty = false
	return d
}

// HandleOpen handles a newly opened socket.
func (e *Engine) HandleOpen(gen uint64) {
	if !e.live(gen, "open") {
		return
	}
	e.openGen = gen
	e.local(state.ConnectionOpened{})
}

// HandleMessage decodes and applies one inbound frame. Malformed frames are
// logged and dropped.
func (e *Engine) HandleMessage(gen uint64, data []byte) {
	if !e.live(gen, "message") {
		return
	}
	ev, err := protocol.Decode(data)
	if err != nil {
		framesDropped.Inc()
		tuilog.Log.Warn("dropping malformed frame", "bytes", len(data), "error", err)
		return
	}
	eventsApplied.WithLabelValues(string(ev.Kind())).Inc()
	e.apply(e.store.Apply(ev))
}

// HandleError records a transport error.
func (e *Engine) HandleError(gen uint64, err error) {
	if !e.live(gen, "error") {
		return
	}
	tuilog.Log.Warn("connection error", "gen", gen, "error", err)
	e.local(state.ConnectionFailed{Err: i18n.Tf("error.connection", "Connection error: %v", err)})
}

// HandleClose marks the connection closed. Workspaces are kept for the
// reconnect. The close of the generation this engine last saw open is
// honored even when the manager has already moved on.
func (e *Engine) HandleClose(gen uint64) {
	if gen != e.openGen && !e.live(gen, "close") {
		return
	}
	if gen == e.openGen {
		e.openGen = 0
	}
	e.local(state.ConnectionClosed{})
}

func (e *Engine) live(gen uint64, what string) bool {
	if e.opts.Current(gen) {
		return true
	}
	staleDropped.Inc()
	tuilog.Log.Debug("dropping stale signal", "signal", what, "gen", gen)
	return false
}

// Send implements dispatch.Sink.
func (e *Engine) Send(cmd protocol.Command) {
	data, err := protocol.MarshalCommand(cmd)
	if err != nil {
		tuilog.Log.Error("encoding command", "type", cmd.CommandType(), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.SendTimeout)
	defer cancel()
	if err := e.opts.Sender.Send(ctx, data); err != nil {
		commandsFailed.WithLabelValues(cmd.CommandType()).Inc()
		tuilog.Log.Warn("command not sent", "type", cmd.CommandType(), "error", err)
		return
	}
	commandsSent.WithLabelValues(cmd.CommandType()).Inc()
	tuilog.Log.Debug("command sent", "type", cmd.CommandType())
}

// Local implements dispatch.Sink.
func (e *Engine) Local(ev state.LocalEvent) {
	e.local(ev)
}

func (e *Engine) local(ev state.LocalEvent) {
	e.apply(e.store.ApplyLocal(ev))
}

func (e *Engine) apply(fx state.Effects) {
	if fx.Changed {
		e.dirty = true
	}
	for _, cmd := range fx.Commands {
		e.Send(cmd)
	}
	if fx.SaveUIState {
		e.Send(protocol.SaveUIState{State: e.store.State().UI.Clone()})
	}
	if fx.ScheduleFlush && e.flushTimer == nil {
		e.flushTimer = e.opts.Schedule(e.opts.FlushInterval, e.flushTick)
	}
	for _, n := range fx.Notices {
		e.publish(n)
	}
}

func (e *Engine) flushTick() {
	e.flushTimer = nil
	if e.store.Flush() {
		flushes.Inc()
		e.dirty = true
	}
}

func (e *Engine) publish(n state.Notice) {
	if n.Kind == state.NoticeWorkspaceOpened && e.opts.Prefs != nil {
		if info, ok := n.Payload.(protocol.WorkspaceInfo); ok {
			if err := prefs.AddRecent(e.opts.Prefs, info.Path); err != nil {
				tuilog.Log.Warn("recording recent workspace", "path", info.Path, "error", err)
			}
		}
	}
	if e.opts.Notices != nil {
		e.opts.Notices.Publish(string(n.Kind), n)
	}
}

// Stop cancels the pending flush timer and resets the connection-scoped
// bookkeeping of the store.
func (e *Engine) Stop() {
	if e.flushTimer != nil {
		e.flushTimer.Stop()
		e.flushTimer = nil
	}
	e.openGen = 0
	e.local(state.TornDown{})
}
