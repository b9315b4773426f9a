// Package realtime drives the websocket presence and task fan-out layer.
//
// Delivery is best-effort and at-most-once: members without live
// connections are skipped, and a session that reconnects later sees the
// current snapshot by re-joining, never missed intermediate updates.
package realtime

import (
	"context"
	"encoding/json"
)

// Inbound event names.
const (
	EventJoin   = "join"
	EventUpdate = "update"
)

// EventTasks is the single outbound event, carrying a full task snapshot.
const EventTasks = "tasks"

// Envelope is the wire format for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinPayload struct {
	AccountID string `json:"accountId"`
	ProjectID string `json:"projectId"`
}

type UpdatePayload struct {
	ProjectID string `json:"projectId"`
}

// ProjectData is the external data service supplying the current task
// snapshot and member list for a project.
type ProjectData interface {
	GetTasks(ctx context.Context, projectID string) (json.RawMessage, error)
	GetMembers(ctx context.Context, projectID string) ([]string, error)
}

// Sender delivers one event to one connection. Implementations must not
// block the caller; slow consumers get dropped frames, not backpressure.
type Sender interface {
	Send(connID, event string, data json.RawMessage)
}
