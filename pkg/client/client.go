// Package client provides the Harmony gateway client SDK. It wraps a
// WebSocket connection with the gateway handshake (hello, identify, ready)
// and typed frame send/receive.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// defaultHandshakeTimeout bounds each read during the hello/identify
// exchange.
const defaultHandshakeTimeout = 10 * time.Second

// Option configures a Client during dialling.
type Option func(*Client)

// WithFormat selects the frame encoding to negotiate.
func WithFormat(f wire.Format) Option {
	return func(c *Client) { c.settings.Format = f }
}

// WithVersion selects the protocol version to negotiate.
func WithVersion(v uint8) Option {
	return func(c *Client) { c.settings.Version = v }
}

// WithDevice sets the device class reported at identify.
func WithDevice(device string) Option {
	return func(c *Client) { c.device = device }
}

// WithHandshakeTimeout overrides the per-read deadline used during the
// handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.handshakeTimeout = d }
}

// Client is a single gateway connection. Recv and Send are the low-level
// frame operations the probe tooling uses; Handshake and Listen build the
// full session flow on top of them.
type Client struct {
	ws       *websocket.Conn
	settings wire.Settings
	device   string

	handshakeTimeout time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the gateway at rawURL (ws:// or wss://), appending the
// negotiated settings as query parameters. No frames are read; the caller
// owns the whole exchange, starting with the server's hello.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	c := &Client{
		settings:         wire.DefaultSettings(),
		handshakeTimeout: defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, vs := range c.settings.Query() {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", u.String(), err)
	}
	c.ws = ws
	return c, nil
}

// Settings returns the negotiated connection settings.
func (c *Client) Settings() wire.Settings {
	return c.settings
}

// Recv blocks until the next gateway frame arrives and decodes it. Frames in
// an unexpected encoding are skipped.
func (c *Client) Recv(ctx context.Context) (*wire.Outbound, error) {
	deadline := time.Now().Add(c.handshakeTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = c.ws.SetReadDeadline(deadline)

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("client: recv: %w", err)
		}
		msg, err := c.settings.DecodeOutbound(mt, data)
		if errors.Is(err, wire.ErrIgnore) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return msg, nil
	}
}

// Send encodes and writes an inbound (client-to-gateway) message.
func (c *Client) Send(m *wire.Inbound) error {
	data, err := c.settings.EncodeInbound(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.handshakeTimeout))
	if err := c.ws.WriteMessage(c.settings.Format.MessageType(), data); err != nil {
		return fmt.Errorf("client: send %s: %w", m.Op, err)
	}
	return nil
}

// Identify sends the identify payload for the given token.
func (c *Client) Identify(token string) error {
	return c.Send(&wire.Inbound{Op: wire.OpIdentify, Token: token, Device: c.device})
}

// Ping sends an application-level ping.
func (c *Client) Ping() error {
	return c.Send(&wire.Inbound{Op: wire.OpPing})
}

// UpdatePresence sends an update_presence payload.
func (c *Client) UpdatePresence(status string) error {
	return c.Send(&wire.Inbound{Op: wire.OpUpdatePresence, Status: status})
}

// Handshake runs the full session handshake: it reads the hello, identifies
// with token, and waits for ready. Both frames are returned so callers can
// surface them.
func (c *Client) Handshake(ctx context.Context, token string) (hello, ready *wire.Outbound, err error) {
	hello, err = c.Recv(ctx)
	if err != nil {
		return nil, nil, err
	}
	if hello.Op != wire.OpHello {
		return nil, nil, fmt.Errorf("client: expected hello, got %s", hello.Op)
	}
	if err := c.Identify(token); err != nil {
		return nil, nil, err
	}
	ready, err = c.Recv(ctx)
	if err != nil {
		return nil, nil, err
	}
	if ready.Op != wire.OpReady {
		return nil, nil, fmt.Errorf("client: expected ready, got %s", ready.Op)
	}
	return hello, ready, nil
}

// Listen starts a read loop that delivers every subsequent frame on the
// returned channel. The channel closes when the connection ends or ctx is
// cancelled. After calling Listen, Recv must not be used.
func (c *Client) Listen(ctx context.Context) <-chan *wire.Outbound {
	ch := make(chan *wire.Outbound, 64)
	stop := make(chan struct{})
	go func() {
		// Unblock the read loop when ctx ends.
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()
	go func() {
		defer close(ch)
		defer close(stop)
		for {
			// A listening client has no per-frame deadline: events may be
			// arbitrarily far apart.
			_ = c.ws.SetReadDeadline(time.Time{})
			if d, ok := ctx.Deadline(); ok {
				_ = c.ws.SetReadDeadline(d)
			}
			mt, data, err := c.ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := c.settings.DecodeOutbound(mt, data)
			if err != nil {
				continue
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close shuts down the connection, sending a normal-closure frame first.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
