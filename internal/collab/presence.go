package collab

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
)

// presenceSet tracks the cursor of every user in a room.
type presenceSet struct {
	mu     sync.RWMutex
	byUser map[string]*PresencePayload
}

func newPresenceSet() *presenceSet {
	return &presenceSet{byUser: make(map[string]*PresencePayload)}
}

func (ps *presenceSet) set(userID string, p *PresencePayload) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.byUser[userID] = p
}

func (ps *presenceSet) remove(userID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.byUser, userID)
}

func (ps *presenceSet) snapshot() map[string]*PresencePayload {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return maps.Clone(ps.byUser)
}

func (ps *presenceSet) stateMessage() (*Message, error) {
	payload, err := json.Marshal(PresenceStatePayload{Presences: ps.snapshot()})
	if err != nil {
		return nil, fmt.Errorf("marshal presence state: %w", err)
	}
	return &Message{Type: TypePresenceState, Payload: payload}, nil
}

// hoverTargets returns the ids of the objects under the cursor, topmost
// first.
func hoverTargets(scene *engine.Scene, c *CursorPos) ([]document.Ref, error) {
	if c == nil {
		return nil, nil
	}
	hits, err := scene.HitTest(c.X, c.Y)
	if err != nil {
		return nil, err
	}
	ids := document.Refs(hits)
	slices.Reverse(ids)
	return ids, nil
}
