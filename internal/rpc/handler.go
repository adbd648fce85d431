package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tidewell/rpcgate/internal/errors"
	"github.com/tidewell/rpcgate/internal/jsonrpc"
)

// Options configure a protocol handler.
type Options struct {
	// Presence receives heartbeat / presence.update side effects. Optional.
	Presence PresenceTracker

	// Verbose attaches cause and stack detail to wire errors. Leave off in
	// production; detail is always logged server-side regardless.
	Verbose bool

	// Capabilities advertised by rpc.getServerInfo.
	Capabilities []string
}

// Handler is the protocol orchestrator: it turns one raw wire message into
// zero or more responses. A single handler instance serves many connections
// concurrently.
type Handler struct {
	registry *Registry
	presence PresenceTracker
	verbose  bool
	caps     []string

	stats Stats

	// Detached notification tasks are tracked so Close can drain them.
	tasks sync.WaitGroup
}

// NewHandler wires a handler around the given registry (a fresh one when
// nil) and registers the built-in rpc.* methods.
func NewHandler(registry *Registry, opts Options) *Handler {
	if registry == nil {
		registry = NewRegistry()
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = []string{"batch", "notifications", "middleware", "introspection"}
	}

	h := &Handler{
		registry: registry,
		presence: opts.Presence,
		verbose:  opts.Verbose,
		caps:     caps,
	}
	h.registerBuiltins()
	return h
}

// Registry exposes the method registry for application registrations.
func (h *Handler) Registry() *Registry {
	return h.registry
}

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() map[string]int64 {
	return h.stats.Snapshot()
}

// HandleMessage processes one raw wire message under the per-connection
// context. The returned slice holds the responses to send in order; nil
// means no reply is due (notifications, or an all-notification batch).
// batch reports whether the reply must be serialized as a JSON array.
func (h *Handler) HandleMessage(ctx context.Context, raw []byte, c *Context) (responses []*jsonrpc.Response, batch bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, errors.ParseError(nil))}, false
	}

	if trimmed[0] == '[' {
		return h.handleBatch(ctx, trimmed, c)
	}

	if resp := h.handleValue(ctx, trimmed, c); resp != nil {
		return []*jsonrpc.Response{resp}, false
	}
	return nil, false
}

func (h *Handler) handleBatch(ctx context.Context, raw []byte, c *Context) ([]*jsonrpc.Response, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, errors.ParseError(err))}, false
	}

	if len(elems) == 0 {
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, errors.InvalidRequest("empty batch"))}, false
	}

	h.stats.batches.Add(1)

	// Elements are handled sequentially so responses keep the input order;
	// notifications detach immediately and contribute no entry.
	responses := make([]*jsonrpc.Response, 0, len(elems))
	for _, elem := range elems {
		if resp := h.handleValue(ctx, elem, c); resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return nil, true
	}
	return responses, true
}

// handleValue processes one decoded message: shape validation, then either
// request dispatch or detached notification handling.
func (h *Handler) handleValue(ctx context.Context, raw json.RawMessage, c *Context) *jsonrpc.Response {
	var req jsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		var syntax *json.SyntaxError
		if stderrors.As(err, &syntax) {
			return jsonrpc.NewErrorResponse(nil, errors.ParseError(err))
		}
		return jsonrpc.NewErrorResponse(nil, errors.InvalidRequest(err.Error()))
	}

	if verr := req.Validate(); verr != nil {
		return jsonrpc.NewErrorResponse(req.ID, verr)
	}

	if req.IsNotification() {
		h.stats.notifications.Add(1)
		h.spawnNotification(ctx, &req, c)
		return nil
	}

	h.stats.requests.Add(1)
	return h.handleRequest(ctx, &req, c)
}

func (h *Handler) handleRequest(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response {
	resp, err := h.registry.Execute(ctx, req, c)
	if err != nil {
		h.stats.errors.Add(1)

		var gwErr *errors.Error
		if stderrors.As(err, &gwErr) && gwErr.Code != errors.CodeInternalError {
			log.Debug().
				Int("code", gwErr.Code).
				Str("method", req.Method).
				Msg("request rejected")
		} else {
			// Full detail stays in the server log; the wire gets a generic
			// internal error unless verbose diagnostics are on.
			log.Error().
				Err(err).
				Str("method", req.Method).
				Msg("request handler failed")
		}
		return jsonrpc.FromError(req.ID, err, h.verbose)
	}

	if resp.Error != nil {
		h.stats.errors.Add(1)
	}
	return resp
}

// spawnNotification launches detached handling for a notification. The reply
// path never waits on it: a request sent right after a notification may be
// answered before the notification's side effects land.
func (h *Handler) spawnNotification(ctx context.Context, req *jsonrpc.Request, c *Context) {
	// The parent context ends with the triggering message; the detached task
	// must survive it.
	ctx = context.WithoutCancel(ctx)

	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Debug().
					Interface("panic", r).
					Str("method", req.Method).
					Msg("notification handler panicked")
			}
		}()
		h.handleNotification(ctx, req, c)
	}()
}

// Close waits for in-flight detached notification tasks to finish. Call it
// during shutdown after the transport stops feeding messages.
func (h *Handler) Close() {
	h.tasks.Wait()
}
