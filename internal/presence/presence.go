package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tidewell/rpcgate/internal/rpc"
)

// Default status assigned when an entity is first seen.
const StatusOnline = "online"

// Status is one entity's presence record.
type Status struct {
	EntityID      string         `json:"entity_id"`
	Status        string         `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	Activity      string         `json:"activity,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	LastSeen      time.Time      `json:"last_seen"`
}

// Tracker is the in-memory presence collaborator. Both operations tolerate
// unknown entity ids by creating a record on first contact.
type Tracker struct {
	mu       sync.RWMutex
	entities map[string]*Status
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entities: make(map[string]*Status),
	}
}

// Touch refreshes the entity's liveness timestamp.
func (t *Tracker) Touch(ctx context.Context, entityID string) {
	if entityID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entities[entityID]
	if !ok {
		s = &Status{EntityID: entityID, Status: StatusOnline}
		t.entities[entityID] = s
	}
	s.LastSeen = time.Now()
}

// Update applies a presence change. Empty optional fields leave the current
// values untouched; metadata keys are merged.
func (t *Tracker) Update(ctx context.Context, entityID string, update rpc.PresenceUpdate) {
	if entityID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entities[entityID]
	if !ok {
		s = &Status{EntityID: entityID, Status: StatusOnline}
		t.entities[entityID] = s
	}

	if update.Status != "" {
		s.Status = update.Status
	}
	if update.StatusMessage != "" {
		s.StatusMessage = update.StatusMessage
	}
	if update.Activity != "" {
		s.Activity = update.Activity
	}
	if len(update.Metadata) > 0 {
		if s.Metadata == nil {
			s.Metadata = make(map[string]any, len(update.Metadata))
		}
		for k, v := range update.Metadata {
			s.Metadata[k] = v
		}
	}
	s.LastSeen = time.Now()

	log.Debug().
		Str("entity_id", entityID).
		Str("status", s.Status).
		Msg("presence updated")
}

// Get returns a copy of the entity's presence record.
func (t *Tracker) Get(entityID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.entities[entityID]
	if !ok {
		return Status{}, false
	}
	out := *s
	return out, true
}

// List returns copies of all presence records.
func (t *Tracker) List() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Status, 0, len(t.entities))
	for _, s := range t.entities {
		out = append(out, *s)
	}
	return out
}
