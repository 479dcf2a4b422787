package client

import (
	"context"
	"log"
	"time"

	"github.com/AdaptChat/harmony/pkg/wire"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Redialer maintains a gateway session across disconnects. Each time the
// connection drops it redials with capped exponential backoff and
// re-identifies before resuming delivery.
type Redialer struct {
	URL   string
	Token string
	Opts  []Option

	// OnReady, if set, is called after each successful handshake with the
	// ready frame of the new session.
	OnReady func(ready *wire.Outbound)
}

// Run connects and delivers every event to handle until ctx is cancelled.
// Handshake failures that indicate a rejected token are returned immediately;
// transient dial and read failures trigger a reconnect.
func (r *Redialer) Run(ctx context.Context, handle func(*wire.Outbound)) error {
	backoff := initialBackoff

	for {
		c, err := Dial(ctx, r.URL, r.Opts...)
		if err != nil {
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		_, ready, err := c.Handshake(ctx, r.Token)
		if err != nil {
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("client: handshake failed: %v, retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		if r.OnReady != nil {
			r.OnReady(ready)
		}

		for msg := range c.Listen(ctx) {
			handle(msg)
		}
		c.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("client: connection lost, reconnecting")
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleepCtx sleeps for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
