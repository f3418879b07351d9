// Package conn manages the single duplex connection to the server.
//
// Every socket the Manager opens is tagged with a generation. Signals from a
// socket whose generation is no longer current are dropped, so a late close
// from a replaced socket can never tear down its successor or trigger a
// second reconnect.
package conn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wethinkt/go-panes/internal/tuilog"
)

// ErrNotConnected is returned by Send while no socket is open.
var ErrNotConnected = errors.New("not connected")

// DefaultDelay is the pause between a close and the next connection attempt.
const DefaultDelay = 2 * time.Second

// Handler receives connection signals. Calls for one generation arrive in
// order: HandleOpen, then any number of HandleMessage, then HandleClose.
// HandleError may precede HandleClose.
type Handler interface {
	HandleOpen(gen uint64)
	HandleMessage(gen uint64, data []byte)
	HandleError(gen uint64, err error)
	HandleClose(gen uint64)
}

// Timer is a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Status is the lifecycle stage of the Manager.
type Status int

const (
	StatusIdle Status = iota
	StatusOpening
	StatusOpen
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusOpening:
		return "opening"
	case StatusOpen:
		return "open"
	case StatusStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Options configures a Manager.
type Options struct {
	URL     string
	Dialer  Dialer
	Handler Handler

	// Delay is the reconnect delay. MaxDelay > Delay enables exponential
	// backoff up to MaxDelay. Jitter spreads each delay by ±Jitter of itself.
	Delay    time.Duration
	MaxDelay time.Duration
	Jitter   float64

	AfterFunc AfterFunc
}

// Manager owns at most one socket at a time.
type Manager struct {
	opts Options

	mu      sync.Mutex
	ctx     context.Context
	gen     uint64
	status  Status
	sock    Socket
	cancel  context.CancelFunc
	timer   Timer
	attempt int
}

// New returns an idle Manager.
func New(opts Options) *Manager {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	return &Manager{opts: opts}
}

// Connect opens a socket unless one is open or opening. The context bounds
// this and every later automatic reconnect.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	if m.status == StatusStopped {
		m.status = StatusIdle
	}
	m.connectLocked()
}

func (m *Manager) connectLocked() {
	if m.status == StatusOpening || m.status == StatusOpen || m.status == StatusStopped {
		return
	}
	if m.ctx == nil || m.ctx.Err() != nil {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	gen := m.gen
	m.status = StatusOpening
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	tuilog.Log.Info("connecting", "url", m.opts.URL, "gen", gen)
	go m.run(ctx, gen)
}

// Generation returns the current generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Current reports whether gen is the current generation.
func (m *Manager) Current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// Status returns the lifecycle stage.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Send writes one frame on the open socket.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	sock := m.sock
	m.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}
	if err := sock.Write(ctx, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	framesSent.Inc()
	return nil
}

// Reconfigure changes the reconnect timing for future attempts.
func (m *Manager) Reconfigure(delay, maxDelay time.Duration, jitter float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delay > 0 {
		m.opts.Delay = delay
	}
	m.opts.MaxDelay = maxDelay
	m.opts.Jitter = jitter
}

// Stop closes the socket and cancels any pending reconnect. No close signal
// is delivered for the stopped generation.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.gen++
	m.status = StatusStopped
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	sock, cancel := m.sock, m.cancel
	m.sock, m.cancel = nil, nil
	m.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	sock, err := m.opts.Dialer.Dial(ctx, m.opts.URL)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		staleSignals.Inc()
		tuilog.Log.Debug("discarding stale dial", "gen", gen)
		return
	}
	if err != nil {
		m.mu.Unlock()
		dialFailures.Inc()
		m.opts.Handler.HandleError(gen, fmt.Errorf("dial %s: %w", m.opts.URL, err))
		m.closed(gen)
		return
	}
	m.sock = sock
	m.status = StatusOpen
	m.attempt = 0
	m.mu.Unlock()

	connectionsOpened.Inc()
	tuilog.Log.Info("connected", "url", m.opts.URL, "gen", gen)
	m.opts.Handler.HandleOpen(gen)

	for {
		data, err := sock.Read(ctx)
		if err != nil {
			if !m.Current(gen) {
				staleSignals.Inc()
				return
			}
			if !isNormalClose(err) && ctx.Err() == nil {
				m.opts.Handler.HandleError(gen, err)
			}
			m.closed(gen)
			return
		}
		if !m.Current(gen) {
			staleSignals.Inc()
			return
		}
		framesReceived.Inc()
		m.opts.Handler.HandleMessage(gen, data)
	}
}

// closed handles the end of generation gen and schedules the next attempt.
func (m *Manager) closed(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		staleSignals.Inc()
		tuilog.Log.Debug("ignoring close of stale socket", "gen", gen, "current", m.gen)
		return
	}
	sock := m.sock
	m.sock = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.status = StatusIdle
	m.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	m.opts.Handler.HandleClose(gen)

	m.mu.Lock()
	defer m.mu.Unlock()
	// The handler may have reconnected or stopped the manager.
	if gen != m.gen || m.status != StatusIdle {
		return
	}
	delay := m.nextDelayLocked()
	m.attempt++
	m.timer = m.opts.AfterFunc(delay, func() { m.reconnect(gen) })
	reconnectsScheduled.Inc()
	tuilog.Log.Info("connection closed, reconnect scheduled", "gen", gen, "delay", delay, "attempt", m.attempt)
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.status != StatusIdle {
		return
	}
	m.timer = nil
	m.connectLocked()
}

func (m *Manager) nextDelayLocked() time.Duration {
	d := m.opts.Delay
	if m.opts.MaxDelay > d {
		d = time.Duration(float64(d) * math.Pow(2, float64(min(m.attempt, 16))))
		d = min(d, m.opts.MaxDelay)
	}
	if j := m.opts.Jitter; j > 0 {
		d = time.Duration(float64(d) * (1 + j*(rand.Float64()*2-1)))
	}
	return max(d, 0)
}
