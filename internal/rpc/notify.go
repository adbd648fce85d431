package rpc

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tidewell/rpcgate/internal/jsonrpc"
)

// Notification methods with built-in side effects.
const (
	MethodHeartbeat      = "heartbeat"
	MethodPresenceUpdate = "presence.update"
)

// handleNotification runs out-of-band from the reply path. Notifications
// never produce a wire reply; every failure here ends in a log line.
func (h *Handler) handleNotification(ctx context.Context, req *jsonrpc.Request, c *Context) {
	switch req.Method {
	case MethodHeartbeat:
		h.handleHeartbeat(ctx, c)
	case MethodPresenceUpdate:
		h.handlePresenceUpdate(ctx, req, c)
	default:
		// Application notification methods go through the registry; the
		// result is discarded.
		if _, err := h.registry.Execute(ctx, req, c); err != nil {
			log.Debug().
				Err(err).
				Str("method", req.Method).
				Msg("notification handling failed")
		}
	}
}

// handleHeartbeat refreshes the session's liveness and forwards a presence
// touch for the connection's entity.
func (h *Handler) handleHeartbeat(ctx context.Context, c *Context) {
	if c != nil && c.Session != nil {
		c.Session.Touch()
	}
	if h.presence != nil && c != nil && c.EntityID != "" {
		h.presence.Touch(ctx, c.EntityID)
	}
}

type presenceUpdateParams struct {
	EntityID      string         `json:"entity_id"`
	Status        string         `json:"status"`
	StatusMessage string         `json:"status_message"`
	Activity      string         `json:"activity"`
	Metadata      map[string]any `json:"metadata"`
}

// handlePresenceUpdate forwards a presence change to the presence
// collaborator. The entity defaults to the connection's entity when the
// params carry none.
func (h *Handler) handlePresenceUpdate(ctx context.Context, req *jsonrpc.Request, c *Context) {
	if h.presence == nil {
		return
	}

	args, aerr := argsFromParams(req.Params)
	if aerr != nil {
		log.Debug().Err(aerr).Msg("presence.update with malformed params dropped")
		return
	}

	var params presenceUpdateParams
	if err := args.Decode(&params); err != nil {
		log.Debug().Err(err).Msg("presence.update with malformed params dropped")
		return
	}

	entityID := params.EntityID
	if entityID == "" && c != nil {
		entityID = c.EntityID
	}
	if entityID == "" {
		log.Debug().Msg("presence.update without entity dropped")
		return
	}

	h.presence.Update(ctx, entityID, PresenceUpdate{
		Status:        params.Status,
		StatusMessage: params.StatusMessage,
		Activity:      params.Activity,
		Metadata:      params.Metadata,
	})
}
