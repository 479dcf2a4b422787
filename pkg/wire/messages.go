package wire

import "time"

// User is the profile attached to an authenticated session.
type User struct {
	ID       uint64 `json:"id" msgpack:"id"`
	Username string `json:"username" msgpack:"username"`
	Flags    uint32 `json:"flags,omitempty" msgpack:"flags,omitempty"`
}

// Guild is a guild the session's user belongs to. The gateway fans out one
// event stream per guild, so the ID doubles as the subscription key.
type Guild struct {
	ID      uint64 `json:"id" msgpack:"id"`
	Name    string `json:"name" msgpack:"name"`
	OwnerID uint64 `json:"owner_id,omitempty" msgpack:"owner_id,omitempty"`
}

// Message is a chat message carried by message_create events.
type Message struct {
	ID        uint64    `json:"id" msgpack:"id"`
	ChannelID uint64    `json:"channel_id" msgpack:"channel_id"`
	GuildID   uint64    `json:"guild_id,omitempty" msgpack:"guild_id,omitempty"`
	AuthorID  uint64    `json:"author_id" msgpack:"author_id"`
	Content   string    `json:"content" msgpack:"content"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Presence is the observable presence of a user, carried by presence_update
// events. Devices lists every device class with at least one live session.
type Presence struct {
	UserID  uint64   `json:"user_id" msgpack:"user_id"`
	Status  string   `json:"status" msgpack:"status"`
	Devices []string `json:"devices,omitempty" msgpack:"devices,omitempty"`
}

// Inbound is the envelope for every client-to-gateway message. Op selects the
// operation; the remaining fields are populated per-op.
type Inbound struct {
	Op     string `json:"op" msgpack:"op"`
	Token  string `json:"token,omitempty" msgpack:"token,omitempty"`   // identify
	Device string `json:"device,omitempty" msgpack:"device,omitempty"` // identify (optional)
	Status string `json:"status,omitempty" msgpack:"status,omitempty"` // update_presence
}

// Outbound is the envelope for every gateway-to-client message. Op selects
// the operation; the remaining fields are populated per-op.
type Outbound struct {
	Op string `json:"op" msgpack:"op"`

	// ready
	SessionID string  `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	User      *User   `json:"user,omitempty" msgpack:"user,omitempty"`
	Guilds    []Guild `json:"guilds,omitempty" msgpack:"guilds,omitempty"`

	// events
	Guild    *Guild    `json:"guild,omitempty" msgpack:"guild,omitempty"`
	GuildID  uint64    `json:"guild_id,omitempty" msgpack:"guild_id,omitempty"`
	Message  *Message  `json:"message,omitempty" msgpack:"message,omitempty"`
	Presence *Presence `json:"presence,omitempty" msgpack:"presence,omitempty"`
}

// Hello returns the outbound hello message.
func Hello() *Outbound {
	return &Outbound{Op: OpHello}
}

// Pong returns the outbound pong message.
func Pong() *Outbound {
	return &Outbound{Op: OpPong}
}

// Ready builds the ready message for a freshly identified session.
func Ready(sessionID string, user *User, guilds []Guild) *Outbound {
	return &Outbound{Op: OpReady, SessionID: sessionID, User: user, Guilds: guilds}
}

// PresenceUpdate builds a presence_update event.
func PresenceUpdate(p *Presence) *Outbound {
	return &Outbound{Op: OpPresenceUpdate, Presence: p}
}
