// Package transport is the sample client's link to a remote location
// service: a framed, bidirectional websocket connection with
// exponential-backoff reconnect. Retry/backoff is explicitly kept out
// of the core request/response flow; this package is the external
// collaborator that owns it instead.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Config configures a Client's dial and retry behavior.
type Config struct {
	URL             string
	HandshakeTimeout time.Duration
	MaxElapsedTime   time.Duration // 0 disables the ceiling, retrying forever
}

// Client is a single-connection websocket dial path: Send writes one
// request frame and waits for the matching response frame, redialing
// with backoff if the connection has dropped.
type Client struct {
	cfg Config

	mu   sync.Mutex
	conn *websocket.Conn
}

// New returns a Client that has not yet dialed; the first Send
// triggers the initial connection.
func New(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

// Send writes req as a single binary websocket message and returns the
// next binary message received in reply. It redials with exponential
// backoff (per cfg.MaxElapsedTime, or indefinitely if zero) when no
// connection is currently open or the existing one errors.
func (c *Client) Send(ctx context.Context, req []byte) ([]byte, error) {
	var resp []byte
	op := func() error {
		conn, err := c.ensureConn(ctx)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, req); err != nil {
			c.drop()
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.drop()
			return err
		}
		resp = data
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.MaxElapsedTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("transport: send failed: %w", err)
	}
	return resp, nil
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}

	if _, err := url.Parse(c.cfg.URL); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("transport: bad url: %w", err))
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
