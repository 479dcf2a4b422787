package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdaptChat/harmony/pkg/events"
	"github.com/AdaptChat/harmony/pkg/gateway"
	"github.com/AdaptChat/harmony/pkg/presence"
	"github.com/AdaptChat/harmony/pkg/session"
	"github.com/AdaptChat/harmony/pkg/wire"
)

func startGateway(t *testing.T) (url string, hub *events.Hub) {
	t.Helper()
	dir := session.NewMemoryDirectory()
	dir.AddUser(wire.User{ID: 42, Username: "alice"}, "secret")
	dir.AddGuild(wire.Guild{ID: 7, Name: "general", OwnerID: 42}, 42)

	hub = events.NewHub()
	gw := gateway.New(dir, presence.NewMemoryStore(), hub)
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func TestDialRecvIdentify(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	hello, err := c.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv hello: %v", err)
	}
	if hello.Op != wire.OpHello {
		t.Fatalf("got %q, want hello", hello.Op)
	}

	if err := c.Identify("secret"); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	ready, err := c.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv ready: %v", err)
	}
	if ready.Op != wire.OpReady {
		t.Fatalf("got %q, want ready", ready.Op)
	}
}

func TestHandshake(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url, WithDevice("mobile"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	hello, ready, err := c.Handshake(ctx, "secret")
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if hello.Op != wire.OpHello {
		t.Errorf("hello op: got %q", hello.Op)
	}
	if len(ready.SessionID) != 32 {
		t.Errorf("session ID: got %q", ready.SessionID)
	}
	if ready.User == nil || ready.User.Username != "alice" {
		t.Errorf("user: got %+v", ready.User)
	}
	if len(ready.Guilds) != 1 || ready.Guilds[0].ID != 7 {
		t.Errorf("guilds: got %+v", ready.Guilds)
	}
}

func TestHandshakeMsgpack(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url, WithFormat(wire.FormatMsgpack))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	_, ready, err := c.Handshake(ctx, "secret")
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if ready.User == nil || ready.User.ID != 42 {
		t.Errorf("user: got %+v", ready.User)
	}
}

func TestHandshakeBadToken(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Handshake(ctx, "wrong"); err == nil {
		t.Fatal("expected handshake to fail")
	}
}

func TestListen(t *testing.T) {
	url, hub := startGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Handshake(ctx, "secret"); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	frames := c.Listen(ctx)

	// First frame after ready is our own online presence.
	msg := <-frames
	if msg == nil || msg.Op != wire.OpPresenceUpdate {
		t.Fatalf("got %+v, want presence_update", msg)
	}

	hub.Publish(events.GuildTopic(7), &wire.Outbound{
		Op:      wire.OpMessageCreate,
		Message: &wire.Message{ID: 9, ChannelID: 1, GuildID: 7, AuthorID: 42, Content: "hello"},
	})
	msg = <-frames
	if msg == nil || msg.Op != wire.OpMessageCreate {
		t.Fatalf("got %+v, want message_create", msg)
	}
	if msg.Message.Content != "hello" {
		t.Errorf("content: got %q", msg.Message.Content)
	}
}

func TestUpdatePresence(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Handshake(ctx, "secret"); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := c.Recv(ctx); err != nil { // own online broadcast
		t.Fatalf("Recv: %v", err)
	}

	if err := c.UpdatePresence("dnd"); err != nil {
		t.Fatalf("UpdatePresence: %v", err)
	}
	msg, err := c.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if msg.Op != wire.OpPresenceUpdate || msg.Presence == nil || msg.Presence.Status != "dnd" {
		t.Errorf("got %+v", msg)
	}
}

func TestDialAppendsSettings(t *testing.T) {
	url, _ := startGateway(t)
	ctx := context.Background()

	c, err := Dial(ctx, url+"/?existing=1", WithFormat(wire.FormatMsgpack), WithVersion(1))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if c.Settings().Format != wire.FormatMsgpack {
		t.Errorf("format: got %v", c.Settings().Format)
	}
	// The gateway honoured the negotiated format; the handshake only works
	// if both sides agree on binary frames.
	if _, _, err := c.Handshake(ctx, "secret"); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
}

func TestDialBadURL(t *testing.T) {
	if _, err := Dial(context.Background(), "://not-a-url"); err == nil {
		t.Fatal("expected an error")
	}
}
