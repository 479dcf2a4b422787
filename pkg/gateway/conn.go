package gateway

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdaptChat/harmony/pkg/events"
	"github.com/AdaptChat/harmony/pkg/presence"
	"github.com/AdaptChat/harmony/pkg/session"
	"github.com/AdaptChat/harmony/pkg/wire"
)

// conn is one upgraded WebSocket connection. Before identify it is
// anonymous; afterwards it carries a session and three goroutines: the read
// pump (this goroutine), the write pump, and the upstream pump.
type conn struct {
	srv      *Server
	ws       *websocket.Conn
	settings wire.Settings
	ip       string

	sess *session.Session
	sub  *events.Subscription

	send      chan *wire.Outbound
	done      chan struct{}
	closeOnce sync.Once
}

// run drives the connection from hello to teardown.
func (c *conn) run() {
	defer c.ws.Close()

	log.Printf("gateway: connected from %s (format=%s version=%d)", c.ip, c.settings.Format, c.settings.Version)

	if err := c.writeDirect(wire.Hello()); err != nil {
		return
	}

	ctx := context.Background()

	user, guilds, err := c.identify(ctx)
	if err != nil {
		c.srv.metrics.IncIdentifyFailure()
		if ce, ok := wire.AsClose(err); ok {
			c.closeWith(ce.Code, ce.Reason)
		}
		return
	}

	// Presence bookkeeping. This connection may be the user's first
	// session, in which case observers learn the user came online.
	hadSession, err := c.srv.presence.AnySession(ctx, user.ID)
	if err != nil {
		log.Printf("gateway: presence lookup for %d: %v", user.ID, err)
	}
	if err := c.srv.presence.InsertSession(ctx, user.ID, presence.Session{
		SessionID:   c.sess.ID,
		OnlineSince: c.sess.StartedAt,
		Device:      c.sess.Device,
	}); err != nil {
		log.Printf("gateway: insert presence session: %v", err)
	}
	if !hadSession {
		if err := c.srv.presence.SetStatus(ctx, user.ID, presence.StatusOnline); err != nil {
			log.Printf("gateway: set status online for %d: %v", user.ID, err)
		}
	}

	// Subscribe before queueing ready so no event published after ready is
	// ever missed.
	topics := make([]string, 0, len(guilds)+1)
	topics = append(topics, events.UserTopic(user.ID))
	for _, g := range guilds {
		topics = append(topics, events.GuildTopic(g.ID))
	}
	c.sub = c.srv.bus.Subscribe(topics...)

	c.send <- wire.Ready(c.sess.ID, user, guilds)

	if !hadSession {
		c.srv.publishPresence(ctx, user.ID)
	}

	go c.writePump()
	go c.upstreamPump()
	c.readPump()

	// Teardown.
	c.shutdown()
	c.sub.Close()
	if err := c.srv.presence.RemoveSession(ctx, user.ID, c.sess.ID); err != nil {
		log.Printf("gateway: remove presence session: %v", err)
	}
	if any, err := c.srv.presence.AnySession(ctx, user.ID); err == nil && !any {
		if err := c.srv.presence.SetStatus(ctx, user.ID, presence.StatusOffline); err != nil {
			log.Printf("gateway: set status offline for %d: %v", user.ID, err)
		}
		c.srv.publishPresence(ctx, user.ID)
	}
	log.Printf("gateway: session %s for user %d disconnected", c.sess.ID, user.ID)
}

// identify waits for a valid identify payload within the identify timeout
// and resolves its token. Any close-worthy failure is returned as a
// CloseError; a peer that vanished returns a plain error.
func (c *conn) identify(ctx context.Context) (*wire.User, []wire.Guild, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.identifyTimeout))

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, nil, err
			}
			return nil, nil, wire.Closef(wire.CloseInvalidData, "failed to send identify")
		}

		in, err := c.settings.DecodeInbound(mt, data)
		if errors.Is(err, wire.ErrIgnore) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if in.Op != wire.OpIdentify {
			return nil, nil, wire.Closef(wire.CloseInvalidData, "expected identify, got %s", in.Op)
		}

		user, err := c.srv.directory.Authenticate(ctx, in.Token)
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) {
				return nil, nil, wire.Closef(wire.CloseInvalidData, "invalid token")
			}
			log.Printf("gateway: authenticate from %s: %v", c.ip, err)
			return nil, nil, wire.Closef(wire.CloseInvalidData, "authentication failed")
		}

		guilds, err := c.srv.directory.GuildsFor(ctx, user.ID)
		if err != nil {
			log.Printf("gateway: guilds for %d: %v", user.ID, err)
			return nil, nil, wire.Closef(wire.CloseInvalidData, "failed to load guilds")
		}

		c.sess = session.New(user.ID, c.settings, c.ip, normalizeDevice(in.Device))
		log.Printf("gateway: session %s identified as user %d from %s", c.sess.ID, user.ID, c.ip)
		return user, guilds, nil
	}
}

// readPump processes inbound frames until the connection errors or closes.
func (c *conn) readPump() {
	bucket := newTokenBucket(float64(c.srv.frameQuota)/60.0, float64(c.srv.frameQuota))
	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.readTimeout))

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.readTimeout))

		if !bucket.allow() {
			log.Printf("gateway: rate limit exceeded for %s - %s, disconnecting", c.ip, c.sess.ID)
			c.srv.metrics.IncRateLimitClose()
			c.closeWith(wire.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		in, err := c.settings.DecodeInbound(mt, data)
		if errors.Is(err, wire.ErrIgnore) {
			continue
		}
		if err != nil {
			if ce, ok := wire.AsClose(err); ok {
				c.closeWith(ce.Code, ce.Reason)
			}
			return
		}

		switch in.Op {
		case wire.OpPing:
			c.enqueue(wire.Pong())
		case wire.OpUpdatePresence:
			status, err := presence.ParseStatus(in.Status)
			if err != nil {
				c.closeWith(wire.CloseInvalidData, err.Error())
				return
			}
			ctx := context.Background()
			if err := c.srv.presence.SetStatus(ctx, c.sess.UserID, status); err != nil {
				log.Printf("gateway: set status for %d: %v", c.sess.UserID, err)
				continue
			}
			c.srv.publishPresence(ctx, c.sess.UserID)
		case wire.OpIdentify:
			// Already identified; ignore.
		default:
			// Unknown ops are ignored for forwards compatibility.
		}
	}
}

// writePump serialises queued messages onto the socket. It is the only
// goroutine that performs data writes after identify.
func (c *conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			data, err := c.settings.EncodeOutbound(msg)
			if err != nil {
				log.Printf("gateway: encode %s: %v", msg.Op, err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.writeTimeout))
			if err := c.ws.WriteMessage(c.settings.Format.MessageType(), data); err != nil {
				c.shutdown()
				return
			}
			c.srv.metrics.IncEventDelivered()
		}
	}
}

// upstreamPump forwards bus events to the send queue and keeps the
// subscription's guild topics current.
func (c *conn) upstreamPump() {
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.sub.C:
			if !ok {
				return
			}
			switch {
			case msg.Op == wire.OpGuildCreate && msg.Guild != nil:
				c.sub.Add(events.GuildTopic(msg.Guild.ID))
			case msg.Op == wire.OpGuildRemove && msg.GuildID != 0:
				c.sub.Remove(events.GuildTopic(msg.GuildID))
			}
			c.enqueue(msg)
		}
	}
}

// enqueue queues a message for the write pump, dropping it if the client is
// too far behind to keep the gateway from stalling.
func (c *conn) enqueue(msg *wire.Outbound) {
	select {
	case c.send <- msg:
	default:
		c.srv.metrics.IncFrameDropped()
	}
}

// writeDirect encodes and writes a message synchronously. Only safe before
// the write pump starts.
func (c *conn) writeDirect(msg *wire.Outbound) error {
	data, err := c.settings.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.writeTimeout))
	return c.ws.WriteMessage(c.settings.Format.MessageType(), data)
}

// closeWith sends a close frame with the given code and reason, then tears
// the connection down. Safe to call from any goroutine.
func (c *conn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.srv.writeTimeout))
	c.shutdown()
	_ = c.ws.Close()
}

// shutdown signals the pumps to exit. Idempotent.
func (c *conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// normalizeDevice maps a client-supplied device string to a known device
// class, defaulting to web.
func normalizeDevice(device string) string {
	switch device {
	case presence.DeviceDesktop, presence.DeviceMobile, presence.DeviceWeb:
		return device
	default:
		return presence.DeviceWeb
	}
}

// publishPresence fans a user's current presence out to the user and every
// observer.
func (s *Server) publishPresence(ctx context.Context, userID uint64) {
	snap, err := presence.Snapshot(ctx, s.presence, userID)
	if err != nil {
		log.Printf("gateway: presence snapshot for %d: %v", userID, err)
		return
	}
	msg := wire.PresenceUpdate(snap)
	s.bus.Publish(events.UserTopic(userID), msg)

	observers, err := s.directory.ObserversOf(ctx, userID)
	if err != nil {
		log.Printf("gateway: observers of %d: %v", userID, err)
		return
	}
	for _, id := range observers {
		s.bus.Publish(events.UserTopic(id), msg)
	}
}
