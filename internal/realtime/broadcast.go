package realtime

import (
	"encoding/json"

	"taskoo/api/internal/presence"
)

// Broadcaster resolves a project's member set to live connections and
// fans a task snapshot out to each of them. Members with no live
// connections are skipped; there is no backlog and no replay.
type Broadcaster struct {
	registry *presence.Registry
	sender   Sender
}

func NewBroadcaster(registry *presence.Registry, sender Sender) *Broadcaster {
	return &Broadcaster{registry: registry, sender: sender}
}

// BroadcastTaskUpdate delivers one "tasks" event carrying snapshot to
// every live connection of every account in members.
func (b *Broadcaster) BroadcastTaskUpdate(projectID string, members []string, snapshot json.RawMessage) {
	for _, accountID := range members {
		for _, connID := range b.registry.ConnectionsOf(accountID) {
			b.sender.Send(connID, EventTasks, snapshot)
		}
	}
}
