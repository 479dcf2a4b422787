// Package events provides topic-based fan-out of gateway events. Each
// identified session subscribes to its user topic plus one topic per guild;
// producers publish to a topic and every live subscription receives the
// message.
package events

import (
	"fmt"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// UserTopic is the topic carrying events addressed to a single user
// (ready-adjacent state, DMs, presence of observed users).
func UserTopic(userID uint64) string {
	return fmt.Sprintf("user:%d", userID)
}

// GuildTopic is the topic carrying events fanned out to all members of a
// guild.
func GuildTopic(guildID uint64) string {
	return fmt.Sprintf("guild:%d", guildID)
}

// Bus is the event fan-out abstraction. The in-process Hub implements it for
// single-node deployments; a brokered implementation can replace it without
// touching the gateway.
type Bus interface {
	// Publish delivers msg to every subscription of topic. Publish never
	// blocks on slow consumers.
	Publish(topic string, msg *wire.Outbound)
	// Subscribe registers a new subscription for the given topics.
	Subscribe(topics ...string) *Subscription
}
