package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskoo/api/internal/apperr"
	"taskoo/api/internal/presence"
)

type connState int

const (
	stateUnbound connState = iota
	stateJoined
	stateClosed
)

// Conn is the per-connection state record. It carries the bound account
// explicitly so asynchronous event handling never reads a stale
// captured variable.
type Conn struct {
	id string

	mu        sync.Mutex
	state     connState
	accountID string
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Gateway mediates between the transport and the presence registry,
// running the Unbound -> Joined -> Closed state machine per connection.
type Gateway struct {
	registry     *presence.Registry
	projects     ProjectData
	sender       Sender
	broadcaster  *Broadcaster
	fetchTimeout time.Duration
}

func NewGateway(registry *presence.Registry, projects ProjectData, sender Sender, fetchTimeout time.Duration) *Gateway {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Gateway{
		registry:     registry,
		projects:     projects,
		sender:       sender,
		broadcaster:  NewBroadcaster(registry, sender),
		fetchTimeout: fetchTimeout,
	}
}

// NewConn creates the state record for a freshly accepted connection.
func (g *Gateway) NewConn(connID string) *Conn {
	return &Conn{id: connID, state: stateUnbound}
}

// Join binds the connection to an account, registers its presence, and
// delivers one task snapshot to this connection only. A connection that
// already joined must not silently migrate accounts; a second join is
// rejected.
func (g *Gateway) Join(ctx context.Context, c *Conn, accountID, projectID string) error {
	if accountID == "" {
		return apperr.Validation("accountId", "account id is required")
	}
	if projectID == "" {
		return apperr.Validation("projectId", "project id is required")
	}

	c.mu.Lock()
	switch c.state {
	case stateClosed:
		c.mu.Unlock()
		return apperr.State("join on closed connection")
	case stateJoined:
		c.mu.Unlock()
		return apperr.State("connection already joined")
	}
	c.state = stateJoined
	c.accountID = accountID
	c.mu.Unlock()

	g.registry.Register(accountID, c.id)

	snapshot, err := g.fetchTasks(ctx, projectID)
	if err != nil {
		// Presence stands; the client may retry with an update.
		return err
	}
	g.sender.Send(c.id, EventTasks, snapshot)
	return nil
}

// Update fetches a fresh snapshot and the project's member list, then
// fans the snapshot out to every live connection of every member. The
// caller need not be a member of the project.
func (g *Gateway) Update(ctx context.Context, c *Conn, projectID string) error {
	if projectID == "" {
		return apperr.Validation("projectId", "project id is required")
	}

	c.mu.Lock()
	joined := c.state == stateJoined
	c.mu.Unlock()
	if !joined {
		return apperr.State("update before join")
	}

	snapshot, err := g.fetchTasks(ctx, projectID)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()
	members, err := g.projects.GetMembers(fetchCtx, projectID)
	if err != nil {
		return apperr.Store(fmt.Sprintf("fetch members of project %s", projectID), err)
	}

	g.broadcaster.BroadcastTaskUpdate(projectID, members, snapshot)
	return nil
}

// Disconnect unregisters the connection and closes its state machine.
// Safe from any state; a connection that never joined has no presence
// to remove.
func (g *Gateway) Disconnect(c *Conn) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	wasJoined := c.state == stateJoined
	accountID := c.accountID
	c.state = stateClosed
	c.mu.Unlock()

	if wasJoined {
		g.registry.Unregister(accountID, c.id)
	}
}

func (g *Gateway) fetchTasks(ctx context.Context, projectID string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	snapshot, err := g.projects.GetTasks(fetchCtx, projectID)
	if err != nil {
		return nil, apperr.Store(fmt.Sprintf("fetch tasks of project %s", projectID), err)
	}
	return snapshot, nil
}
