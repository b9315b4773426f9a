// Package presence tracks which live connections belong to which account.
package presence

import "sync"

// Registry maps an account id to the set of connection ids currently
// bound to it. It only knows about connections handled by this process;
// reaching sessions on another instance requires an external relay.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		accounts: make(map[string]map[string]struct{}),
	}
}

// Register binds a connection to an account. Idempotent.
func (r *Registry) Register(accountID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.accounts[accountID]
	if set == nil {
		set = make(map[string]struct{})
		r.accounts[accountID] = set
	}
	set[connID] = struct{}{}
}

// Unregister removes a connection from an account's set. Idempotent;
// a no-op when the connection was never registered. The account entry
// is pruned once its last connection leaves.
func (r *Registry) Unregister(accountID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.accounts[accountID]
	if set == nil {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.accounts, accountID)
	}
}

// ConnectionsOf returns a copy of the account's connection set. Unknown
// accounts yield an empty slice, never an error.
func (r *Registry) ConnectionsOf(accountID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.accounts[accountID]
	conns := make([]string, 0, len(set))
	for id := range set {
		conns = append(conns, id)
	}
	return conns
}

// ConnectionCount returns the number of live connections for an account.
func (r *Registry) ConnectionCount(accountID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts[accountID])
}
