package conn

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

// Socket is one open duplex connection.
type Socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// WebSocketDialer dials the server over WebSocket. A non-empty Token is sent
// as a Bearer Authorization header.
type WebSocketDialer struct {
	Token     string
	ReadLimit int64
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	opts := &websocket.DialOptions{}
	if d.Token != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + d.Token},
		}
	}
	c, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = 16 << 20
	}
	c.SetReadLimit(limit)
	return &wsSocket{c: c}, nil
}

type wsSocket struct {
	c *websocket.Conn
}

func (s *wsSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.c.Read(ctx)
	return data, err
}

func (s *wsSocket) Write(ctx context.Context, data []byte) error {
	return s.c.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) Close() error {
	return s.c.Close(websocket.StatusNormalClosure, "client closing")
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
