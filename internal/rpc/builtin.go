package rpc

import (
	"context"
	"time"

	"github.com/tidewell/rpcgate/internal/errors"
	"github.com/tidewell/rpcgate/internal/jsonrpc"
	"github.com/tidewell/rpcgate/pkg/version"
)

// ServerName is reported by rpc.getServerInfo.
const ServerName = "rpcgate"

// registerBuiltins installs the always-available introspection and health
// methods. Only rpc.getStats requires authentication.
func (h *Handler) registerBuiltins() {
	h.registry.Register("rpc.listMethods", h.builtinListMethods, false)
	h.registry.Register("rpc.getMethodInfo", h.builtinGetMethodInfo, false)
	h.registry.Register("rpc.ping", h.builtinPing, false)
	h.registry.Register("rpc.echo", h.builtinEcho, false)
	h.registry.Register("rpc.getServerInfo", h.builtinServerInfo, false)
	h.registry.Register("rpc.getStats", h.builtinStats, true)
}

func (h *Handler) builtinListMethods(ctx context.Context, args Args, c *Context) (any, error) {
	return h.registry.ListMethods(), nil
}

func (h *Handler) builtinGetMethodInfo(ctx context.Context, args Args, c *Context) (any, error) {
	var params struct {
		Method string `json:"method"`
	}
	if err := args.Decode(&params); err != nil {
		return nil, err
	}
	if params.Method == "" {
		return nil, errors.InvalidParams("method is required")
	}

	m, ok := h.registry.GetMethod(params.Method)
	if !ok {
		return nil, errors.MethodNotFound(params.Method)
	}

	permissions := m.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return map[string]any{
		"name":                 m.Name,
		"require_auth":         m.RequireAuth,
		"required_permissions": permissions,
	}, nil
}

func (h *Handler) builtinPing(ctx context.Context, args Args, c *Context) (any, error) {
	return "pong", nil
}

func (h *Handler) builtinEcho(ctx context.Context, args Args, c *Context) (any, error) {
	return args["message"], nil
}

func (h *Handler) builtinServerInfo(ctx context.Context, args Args, c *Context) (any, error) {
	return map[string]any{
		"name":             ServerName,
		"version":          version.Version,
		"protocol_version": jsonrpc.Version,
		"capabilities":     h.caps,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) builtinStats(ctx context.Context, args Args, c *Context) (any, error) {
	return h.stats.Snapshot(), nil
}
