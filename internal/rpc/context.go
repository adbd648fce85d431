package rpc

import (
	"context"
)

// Session is the view of the connection's session the engine relies on.
// Implementations live with the transport; the engine only asks these three
// questions.
type Session interface {
	Authenticated() bool
	HasPermission(scope string) bool
	Touch()
}

// PresenceUpdate carries the optional fields of a presence change.
type PresenceUpdate struct {
	Status        string         `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	Activity      string         `json:"activity,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// PresenceTracker is the external presence collaborator. Both operations are
// fire-and-forget and tolerant of unknown entity ids.
type PresenceTracker interface {
	Touch(ctx context.Context, entityID string)
	Update(ctx context.Context, entityID string, update PresenceUpdate)
}

// Context is the per-invocation bag handed in by the transport alongside
// every message: the connection's session (may be nil), the entity the
// connection speaks for, and any transport extras. The engine treats Values
// opaquely.
type Context struct {
	Session  Session
	EntityID string
	Values   map[string]any
}

// Value returns a transport extra by key.
func (c *Context) Value(key string) (any, bool) {
	if c == nil || c.Values == nil {
		return nil, false
	}
	v, ok := c.Values[key]
	return v, ok
}

// authenticated reports whether the context carries a live authenticated
// session.
func (c *Context) authenticated() bool {
	return c != nil && c.Session != nil && c.Session.Authenticated()
}

// hasPermission reports whether the context's session holds the scope.
func (c *Context) hasPermission(scope string) bool {
	return c != nil && c.Session != nil && c.Session.HasPermission(scope)
}
