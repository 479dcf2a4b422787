// Package wire defines the Harmony gateway wire protocol: operation names,
// message envelopes, connection settings, and the JSON/msgpack codec.
package wire

// Inbound operation names sent by clients.
const (
	OpIdentify       = "identify"        // first message after hello; carries the auth token
	OpPing           = "ping"            // application-level keepalive
	OpUpdatePresence = "update_presence" // change the caller's presence status
)

// Outbound operation names sent by the gateway.
const (
	OpHello          = "hello"           // sent immediately after the upgrade completes
	OpReady          = "ready"           // session established; carries user and guilds
	OpPong           = "pong"            // reply to an inbound ping
	OpMessageCreate  = "message_create"  // a chat message was posted
	OpGuildCreate    = "guild_create"    // the user joined or created a guild
	OpGuildRemove    = "guild_remove"    // the user left or was removed from a guild
	OpPresenceUpdate = "presence_update" // an observable user's presence changed
)

// Close codes used by the gateway. 1003 covers malformed payloads and
// identify failures; 1008 covers policy violations such as rate limiting.
const (
	CloseInvalidData     = 1003
	ClosePolicyViolation = 1008
)
