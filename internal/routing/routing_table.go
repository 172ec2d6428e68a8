// Package routing implements the external routing-table collaborator a
// confirmed signal-index-cache swap updates with a session's new
// signal-ID set. A real deployment's routing tables live in whatever
// system fans incoming measurements out to subscribers; this package is
// the in-process default so the rest of the publisher has somewhere
// concrete to report swaps to.
package routing

import (
	"sync"

	uuid "github.com/satori/go.uuid"
)

// Table maps a signal ID to the set of subscriber IDs currently
// receiving it, kept as a sync.Map so reads from the hot measurement
// path never contend with a session's subscribe/swap updates.
type Table struct {
	bySignal sync.Map // uuid.UUID -> map[uuid.UUID]struct{}
	mu       sync.Mutex
}

// NewTable constructs an empty routing table.
func NewTable() *Table {
	return &Table{}
}

// UpdateSubscriber replaces a subscriber's routed signal set, called
// after a confirmed cache swap installs a new current cache. Stale
// entries for signals the subscriber no longer receives are removed.
func (t *Table) UpdateSubscriber(subscriberID uuid.UUID, signalIDs []uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(signalIDs))
	for _, id := range signalIDs {
		wanted[id] = struct{}{}
		t.addLocked(id, subscriberID)
	}

	t.bySignal.Range(func(key, value any) bool {
		signalID := key.(uuid.UUID)
		if _, stillWanted := wanted[signalID]; stillWanted {
			return true
		}
		t.removeLocked(signalID, subscriberID)
		return true
	})
}

// RemoveSubscriber removes a subscriber from every signal it was
// routed to, called when a session stops.
func (t *Table) RemoveSubscriber(subscriberID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bySignal.Range(func(key, value any) bool {
		t.removeLocked(key.(uuid.UUID), subscriberID)
		return true
	})
}

// Subscribers returns the subscriber IDs currently routed a signal.
// Safe to call without holding mu: mutations always install a fresh
// map via copy-on-write rather than editing one in place, so a
// concurrent reader never observes a half-updated set.
func (t *Table) Subscribers(signalID uuid.UUID) []uuid.UUID {
	value, ok := t.bySignal.Load(signalID)
	if !ok {
		return nil
	}
	set := value.(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (t *Table) addLocked(signalID, subscriberID uuid.UUID) {
	next := map[uuid.UUID]struct{}{subscriberID: {}}
	if value, ok := t.bySignal.Load(signalID); ok {
		for id := range value.(map[uuid.UUID]struct{}) {
			next[id] = struct{}{}
		}
	}
	t.bySignal.Store(signalID, next)
}

func (t *Table) removeLocked(signalID, subscriberID uuid.UUID) {
	value, ok := t.bySignal.Load(signalID)
	if !ok {
		return
	}
	current := value.(map[uuid.UUID]struct{})
	if _, present := current[subscriberID]; !present {
		return
	}

	next := make(map[uuid.UUID]struct{}, len(current)-1)
	for id := range current {
		if id != subscriberID {
			next[id] = struct{}{}
		}
	}
	if len(next) == 0 {
		t.bySignal.Delete(signalID)
	} else {
		t.bySignal.Store(signalID, next)
	}
}
