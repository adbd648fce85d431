package rpc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tidewell/rpcgate/internal/errors"
	"github.com/tidewell/rpcgate/internal/jsonrpc"
)

// HandlerFunc is the uniform method contract: a named-argument bag plus the
// invocation context. Returning a gateway error preserves its code on the
// wire; any other error surfaces as an internal error.
type HandlerFunc func(ctx context.Context, args Args, c *Context) (any, error)

// Middleware runs before the bound handler. Returning a non-nil response
// short-circuits the dispatch; returning nil falls through.
type Middleware func(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response

// Method is one registry entry: the handler plus its access policy.
type Method struct {
	Name        string   `json:"name"`
	RequireAuth bool     `json:"require_auth"`
	Permissions []string `json:"required_permissions"`

	Handler HandlerFunc `json:"-"`
}

// Registry owns the method table and the middleware chain. Entries are
// mutated rarely and read on every dispatch; both live behind one RWMutex so
// a dispatch never observes a half-written entry.
type Registry struct {
	mu         sync.RWMutex
	methods    map[string]*Method
	middleware []Middleware
}

// NewRegistry creates an empty method registry.
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]*Method),
	}
}

// Register inserts or overwrites the entry for name. Last registration wins;
// overwriting is deliberate and enables hot-swapping methods at runtime.
func (r *Registry) Register(name string, handler HandlerFunc, requireAuth bool, permissions ...string) {
	m := &Method{
		Name:        name,
		Handler:     handler,
		RequireAuth: requireAuth,
		Permissions: append([]string(nil), permissions...),
	}

	r.mu.Lock()
	r.methods[name] = m
	r.mu.Unlock()
}

// Unregister removes the entry for name; no-op when absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.methods, name)
	r.mu.Unlock()
}

// Use appends a middleware. Middleware runs for every Execute call in
// registration order, before the bound handler.
func (r *Registry) Use(mw Middleware) {
	r.mu.Lock()
	r.middleware = append(r.middleware, mw)
	r.mu.Unlock()
}

// ListMethods returns the registered method names, sorted.
func (r *Registry) ListMethods() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// GetMethod returns the entry for name.
func (r *Registry) GetMethod(name string) (*Method, bool) {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()
	return m, ok
}

// Execute dispatches a request: method lookup, auth and permission checks,
// the middleware chain, then the bound handler. A non-nil response is final
// (middleware short-circuit or handler success); handler failures come back
// as the error for the caller to wrap and count.
func (r *Registry) Execute(ctx context.Context, req *jsonrpc.Request, c *Context) (*jsonrpc.Response, error) {
	r.mu.RLock()
	m, ok := r.methods[req.Method]
	middleware := append([]Middleware(nil), r.middleware...)
	r.mu.RUnlock()

	if !ok {
		return nil, errors.MethodNotFound(req.Method)
	}

	if m.RequireAuth && !c.authenticated() {
		return nil, errors.Authentication("")
	}

	for _, scope := range m.Permissions {
		if !c.hasPermission(scope) {
			return nil, errors.Authorization(scope)
		}
	}

	for _, mw := range middleware {
		if resp := mw(ctx, req, c); resp != nil {
			return resp, nil
		}
	}

	args, aerr := argsFromParams(req.Params)
	if aerr != nil {
		return nil, aerr
	}

	result, err := invoke(ctx, m.Handler, args, c)
	if err != nil {
		return nil, err
	}
	return jsonrpc.NewResponse(req.ID, result), nil
}

// invoke calls the handler with panic containment. A panicking handler must
// not take down the connection's read loop.
func invoke(ctx context.Context, handler HandlerFunc, args Args, c *Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, args, c)
}
