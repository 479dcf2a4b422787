package client

import (
	"context"
	"testing"
	"time"

	"github.com/AdaptChat/harmony/pkg/wire"
)

func TestRedialerDeliversAndStops(t *testing.T) {
	url, _ := startGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readyCh := make(chan *wire.Outbound, 1)
	frames := make(chan *wire.Outbound, 16)
	r := &Redialer{
		URL:     url,
		Token:   "secret",
		OnReady: func(ready *wire.Outbound) { readyCh <- ready },
	}

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(msg *wire.Outbound) { frames <- msg })
	}()

	select {
	case ready := <-readyCh:
		if ready.User == nil || ready.User.ID != 42 {
			t.Errorf("ready user: got %+v", ready.User)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnReady never fired")
	}

	// The session's own online broadcast flows through handle.
	select {
	case msg := <-frames:
		if msg.Op != wire.OpPresenceUpdate {
			t.Errorf("got %q, want presence_update", msg.Op)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(time.Second); got != 2*time.Second {
		t.Errorf("got %v", got)
	}
	if got := nextBackoff(20 * time.Second); got != maxBackoff {
		t.Errorf("got %v, want cap %v", got, maxBackoff)
	}
}
