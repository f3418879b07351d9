package client

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wethinkt/go-panes/internal/conn"
	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/prefs"
	"github.com/wethinkt/go-panes/internal/pubsub"
	"github.com/wethinkt/go-panes/internal/state"
	"github.com/wethinkt/go-panes/internal/tuilog"
	"github.com/wethinkt/go-panes/internal/view"
)

// ViewTopic is the pubsub topic views are published on.
const ViewTopic = "view"

// Options configures a Client.
type Options struct {
	URL    string
	Dialer conn.Dialer

	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	ReconnectJitter   float64
	FlushInterval     time.Duration
	MaxPanes          int

	Prefs prefs.Store

	// AfterFunc replaces time.AfterFunc for the reconnect and flush timers.
	AfterFunc conn.AfterFunc
}

// Client runs the single-writer loop. All state lives on the loop goroutine;
// other goroutines observe it through published views and act on it with Do.
type Client struct {
	opts    Options
	mgr     *conn.Manager
	eng     *Engine
	inbox   chan func(*Engine)
	done    chan struct{}
	notices *pubsub.Bus[state.Notice]
	views   *pubsub.Bus[view.View]
	latest  atomic.Pointer[view.View]
}

// New builds a Client. Nothing happens until Run.
func New(opts Options) *Client {
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) conn.Timer { return time.AfterFunc(d, f) }
	}
	c := &Client{
		opts:    opts,
		inbox:   make(chan func(*Engine), 256),
		done:    make(chan struct{}),
		notices: pubsub.New[state.Notice](0),
		views:   pubsub.New[view.View](4),
	}
	c.mgr = conn.New(conn.Options{
		URL:       opts.URL,
		Dialer:    opts.Dialer,
		Handler:   signals{c},
		Delay:     opts.ReconnectDelay,
		MaxDelay:  opts.ReconnectMaxDelay,
		Jitter:    opts.ReconnectJitter,
		AfterFunc: opts.AfterFunc,
	})
	c.eng = NewEngine(EngineOptions{
		Sender:        c.mgr,
		Current:       c.mgr.Current,
		Schedule:      c.schedule,
		FlushInterval: opts.FlushInterval,
		Notices:       c.notices,
		Prefs:         opts.Prefs,
	})
	if opts.MaxPanes > 0 {
		c.eng.Dispatcher().MaxPanes = opts.MaxPanes
	}
	v := view.Project(c.eng.Store().State())
	c.latest.Store(&v)
	return c
}

// Run connects and processes signals until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.done)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.loop(ctx)
		return nil
	})
	g.Go(func() error {
		c.mgr.Connect(ctx)
		<-ctx.Done()
		c.mgr.Stop()
		return nil
	})
	return g.Wait()
}

func (c *Client) loop(ctx context.Context) {
	defer c.eng.Stop()
	for {
		select {
		case fn := <-c.inbox:
			start := time.Now()
			fn(c.eng)
			if c.eng.TakeDirty() {
				c.publishView()
			}
			loopLatency.Observe(time.Since(start).Seconds())
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) publishView() {
	v := view.Project(c.eng.Store().State())
	c.latest.Store(&v)
	c.views.Publish(ViewTopic, v)
}

// post queues fn for the loop. It reports false once the loop has exited.
func (c *Client) post(fn func(*Engine)) bool {
	select {
	case c.inbox <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) schedule(d time.Duration, fn func()) conn.Timer {
	return c.opts.AfterFunc(d, func() {
		c.post(func(*Engine) { fn() })
	})
}

// Do runs fn on the loop with the Dispatcher. It does not wait for fn.
func (c *Client) Do(fn func(d *dispatch.Dispatcher)) bool {
	return c.post(func(e *Engine) { fn(e.Dispatcher()) })
}

// Call runs fn on the loop and waits for it to finish.
func (c *Client) Call(ctx context.Context, fn func(e *Engine)) error {
	finished := make(chan struct{})
	if !c.post(func(e *Engine) {
		defer close(finished)
		fn(e)
	}) {
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return context.Canceled
	}
}

// View returns the most recently published view.
func (c *Client) View() view.View {
	return *c.latest.Load()
}

// Views subscribes to view updates. Slow readers miss intermediate views;
// View always returns the latest.
func (c *Client) Views() (<-chan view.View, func()) {
	return c.views.Subscribe(ViewTopic)
}

// Notices subscribes to dialog hand-offs of one kind.
func (c *Client) Notices(kind state.NoticeKind) (<-chan state.Notice, func()) {
	return c.notices.Subscribe(string(kind))
}

// Reconfigure changes reconnect timing for future attempts.
func (c *Client) Reconfigure(delay, maxDelay time.Duration, jitter float64) {
	c.mgr.Reconfigure(delay, maxDelay, jitter)
	tuilog.Log.Info("reconnect timing updated", "delay", delay, "max_delay", maxDelay, "jitter", jitter)
}

// Status returns the connection lifecycle stage.
func (c *Client) Status() conn.Status {
	return c.mgr.Status()
}

// signals adapts conn.Handler to the loop. Each signal becomes one loop step.
type signals struct{ c *Client }

func (s signals) HandleOpen(gen uint64) {
	s.c.post(func(e *Engine) { e.HandleOpen(gen) })
}

func (s signals) HandleMessage(gen uint64, data []byte) {
	s.c.post(func(e *Engine) { e.HandleMessage(gen, data) })
}

func (s signals) HandleError(gen uint64, err error) {
	s.c.post(func(e *Engine) { e.HandleError(gen, err) })
}

func (s signals) HandleClose(gen uint64) {
	s.c.post(func(e *Engine) { e.HandleClose(gen) })
}
