// Package presence tracks which users are online, on which devices, and with
// what status. State lives behind the Store interface; implementations
// include an in-memory store and an etcd-backed store for multi-node
// deployments.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// Status is a user's advertised presence status.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
		return Status(s), nil
	}
	return "", errors.New("presence: unknown status " + s)
}

// Device classes a session can connect from.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceWeb     = "web"
)

// Session is one live gateway session recorded against a user. The first
// session in a user's list is the oldest and wins device-display ties.
type Session struct {
	SessionID   string    `json:"session_id"`
	OnlineSince time.Time `json:"online_since"`
	Device      string    `json:"device"`
}

// Store persists presence state. All methods are safe for concurrent use.
type Store interface {
	// InsertSession appends a session to the user's session list.
	InsertSession(ctx context.Context, userID uint64, s Session) error
	// RemoveSession removes the session with the given ID from the user's
	// list; removing the last session deletes the list.
	RemoveSession(ctx context.Context, userID uint64, sessionID string) error
	// FirstSession returns the user's oldest session, or nil if none.
	FirstSession(ctx context.Context, userID uint64) (*Session, error)
	// AnySession reports whether the user has at least one live session.
	AnySession(ctx context.Context, userID uint64) (bool, error)
	// Devices returns the distinct device classes with a live session.
	Devices(ctx context.Context, userID uint64) ([]string, error)
	// SetStatus records the user's status. StatusOffline deletes the key.
	SetStatus(ctx context.Context, userID uint64, status Status) error
	// GetStatus returns the user's status, defaulting to StatusOffline.
	GetStatus(ctx context.Context, userID uint64) (Status, error)
	// Reset drops all presence state. The gateway calls this at startup so
	// sessions orphaned by a crash do not linger.
	Reset(ctx context.Context) error
}

// Snapshot assembles the observable Presence of a user from the store.
func Snapshot(ctx context.Context, store Store, userID uint64) (*wire.Presence, error) {
	status, err := store.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	devices, err := store.Devices(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &wire.Presence{UserID: userID, Status: string(status), Devices: devices}, nil
}
