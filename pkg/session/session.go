// Package session models authenticated gateway sessions and the directory
// backends that resolve tokens into users and guild memberships.
package session

import (
	"crypto/rand"
	"time"

	"github.com/AdaptChat/harmony/pkg/wire"
)

const sessionIDLen = 32

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Session is one identified gateway connection. A user may hold several
// sessions at once, one per connected device.
type Session struct {
	ID        string
	UserID    uint64
	Settings  wire.Settings
	IP        string
	Device    string
	StartedAt time.Time
}

// New mints a session for the given user with a fresh random ID.
func New(userID uint64, settings wire.Settings, ip, device string) *Session {
	return &Session{
		ID:        NewID(),
		UserID:    userID,
		Settings:  settings,
		IP:        ip,
		Device:    device,
		StartedAt: time.Now().UTC(),
	}
}

// NewID returns a random 32-character alphanumeric session identifier.
func NewID() string {
	b := make([]byte, sessionIDLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphanumeric[int(b[i])%len(alphanumeric)]
	}
	return string(b)
}
