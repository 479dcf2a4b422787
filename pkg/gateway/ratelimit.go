package gateway

import (
	"sync"
	"time"
)

// tokenBucket is a simple, goroutine-safe token-bucket rate limiter. Each
// connection gets its own bucket for inbound frames.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	maxTok   float64
	ratePerS float64 // tokens added per second
	lastFill time.Time
}

func newTokenBucket(ratePerSec float64, burst float64) *tokenBucket {
	return &tokenBucket{
		tokens:   burst,
		maxTok:   burst,
		ratePerS: ratePerSec,
		lastFill: time.Now(),
	}
}

// allow returns true and consumes one token if the bucket is non-empty.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(tb.lastFill).Seconds()
	tb.tokens += elapsed * tb.ratePerS
	if tb.tokens > tb.maxTok {
		tb.tokens = tb.maxTok
	}
	tb.lastFill = now
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}
