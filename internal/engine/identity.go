// Package engine implements the response-admission and coordination core:
// deciding for each inbound workspace event whether this agent replies,
// when, and how collisions with peer agents are avoided.
package engine

import (
	"sort"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

// Identity is the immutable per-process agent identity. Built once at
// startup from config; never mutated.
type Identity struct {
	Name        string
	UserID      string
	FounderID   string
	HomeChannel string
	Persona     string
	Keywords    []string

	// Peers maps fellow executive agent names to platform user IDs. Used
	// by the escalation detector to recognize cross-domain debates.
	Peers map[string]string
}

// NewIdentity builds the agent identity from config.
func NewIdentity(agent config.AgentConfig, peers config.PeersConfig) Identity {
	return Identity{
		Name:        agent.Name,
		UserID:      agent.UserID,
		FounderID:   agent.FounderID,
		HomeChannel: agent.HomeChannel,
		Persona:     agent.Persona,
		Keywords:    agent.Keywords,
		Peers:       peers,
	}
}

// PeerNames returns peer agent names in sorted order.
func (id Identity) PeerNames() []string {
	names := make([]string, 0, len(id.Peers))
	for name := range id.Peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPeerUser reports whether userID belongs to a fellow executive agent,
// returning its name when it does.
func (id Identity) IsPeerUser(userID string) (string, bool) {
	for name, uid := range id.Peers {
		if uid == userID {
			return name, true
		}
	}
	return "", false
}
