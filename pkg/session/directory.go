package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// ErrInvalidToken is returned by Authenticate when a token does not resolve
// to a user. The gateway closes the connection with code 1003 and this
// message as the reason.
var ErrInvalidToken = errors.New("invalid token")

// Directory resolves tokens and memberships. Implementations include an
// in-memory directory for development and tests, and a PostgreSQL directory
// for production.
type Directory interface {
	// Authenticate resolves a bearer token to a user, or ErrInvalidToken.
	Authenticate(ctx context.Context, token string) (*wire.User, error)

	// GuildsFor returns every guild the user is a member of. The result
	// feeds both the ready event and the session's event subscriptions.
	GuildsFor(ctx context.Context, userID uint64) ([]wire.Guild, error)

	// ObserversOf returns the IDs of users who should receive presence
	// updates for the given user (mutual guild members, friends).
	ObserversOf(ctx context.Context, userID uint64) ([]uint64, error)
}

// MemoryDirectory is a map-backed Directory for development, tests, and
// single-node deployments.
type MemoryDirectory struct {
	mu       sync.RWMutex
	tokens   map[string]uint64
	users    map[uint64]wire.User
	guilds   map[uint64]wire.Guild
	members  map[uint64][]uint64 // guild ID -> member user IDs
	ofUser   map[uint64][]uint64 // user ID -> guild IDs
	watchers map[uint64][]uint64 // user ID -> extra observer user IDs
}

// NewMemoryDirectory returns an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		tokens:   make(map[string]uint64),
		users:    make(map[uint64]wire.User),
		guilds:   make(map[uint64]wire.Guild),
		members:  make(map[uint64][]uint64),
		ofUser:   make(map[uint64][]uint64),
		watchers: make(map[uint64][]uint64),
	}
}

// AddUser registers a user and a token that authenticates as them.
func (d *MemoryDirectory) AddUser(u wire.User, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
	if token != "" {
		d.tokens[token] = u.ID
	}
}

// AddGuild registers a guild with the given members.
func (d *MemoryDirectory) AddGuild(g wire.Guild, memberIDs ...uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.guilds[g.ID] = g
	for _, id := range memberIDs {
		d.members[g.ID] = append(d.members[g.ID], id)
		d.ofUser[id] = append(d.ofUser[id], g.ID)
	}
}

// AddObserver makes observer receive presence updates for target even without
// a shared guild.
func (d *MemoryDirectory) AddObserver(target, observer uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchers[target] = append(d.watchers[target], observer)
}

func (d *MemoryDirectory) Authenticate(_ context.Context, token string) (*wire.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("directory: user %d not found", id)
	}
	return &u, nil
}

func (d *MemoryDirectory) GuildsFor(_ context.Context, userID uint64) ([]wire.Guild, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := d.ofUser[userID]
	out := make([]wire.Guild, 0, len(ids))
	for _, gid := range ids {
		if g, ok := d.guilds[gid]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ObserversOf(_ context.Context, userID uint64) ([]uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := map[uint64]struct{}{userID: {}}
	var out []uint64
	for _, gid := range d.ofUser[userID] {
		for _, member := range d.members[gid] {
			if _, dup := seen[member]; dup {
				continue
			}
			seen[member] = struct{}{}
			out = append(out, member)
		}
	}
	for _, w := range d.watchers[userID] {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out, nil
}
