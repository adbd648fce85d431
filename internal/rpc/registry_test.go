package rpc

import (
	"context"
	"sync"
	"testing"

	"github.com/tidewell/rpcgate/internal/errors"
	"github.com/tidewell/rpcgate/internal/jsonrpc"
)

type stubSession struct {
	authed bool
	scopes map[string]bool

	mu      sync.Mutex
	touched int
}

func (s *stubSession) Authenticated() bool { return s.authed }

func (s *stubSession) HasPermission(scope string) bool { return s.scopes[scope] }

func (s *stubSession) Touch() {
	s.mu.Lock()
	s.touched++
	s.mu.Unlock()
}

func (s *stubSession) touches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func authedContext(scopes ...string) *Context {
	set := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		set[scope] = true
	}
	return &Context{Session: &stubSession{authed: true, scopes: set}}
}

func mustRequest(t *testing.T, id any, method string, params any) *jsonrpc.Request {
	t.Helper()
	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRegisterOverwrite(t *testing.T) {
	r := NewRegistry()

	r.Register("x", func(ctx context.Context, args Args, c *Context) (any, error) {
		return "first", nil
	}, false)
	r.Register("x", func(ctx context.Context, args Args, c *Context) (any, error) {
		return "second", nil
	}, false)

	names := r.ListMethods()
	count := 0
	for _, n := range names {
		if n == "x" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry for x, got %d in %v", count, names)
	}

	resp, err := r.Execute(context.Background(), mustRequest(t, 1, "x", nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Result != "second" {
		t.Errorf("last registration should win, got %v", resp.Result)
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("x", func(ctx context.Context, args Args, c *Context) (any, error) {
		return nil, nil
	}, false)

	r.Unregister("x")
	r.Unregister("never-registered")

	if _, err := r.Execute(context.Background(), mustRequest(t, 1, "x", nil), nil); !errors.Is(err, errors.CodeMethodNotFound) {
		t.Errorf("expected method not found after unregister, got %v", err)
	}
}

func TestMethodNotFoundData(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), mustRequest(t, 1, "nope", nil), nil)
	gwErr := errors.From(err)
	if gwErr.Code != errors.CodeMethodNotFound {
		t.Fatalf("code = %d, want %d", gwErr.Code, errors.CodeMethodNotFound)
	}
	if gwErr.Data["method"] != "nope" {
		t.Errorf("method name missing from error data: %v", gwErr.Data)
	}
}

func TestAuthEnforcement(t *testing.T) {
	r := NewRegistry()

	called := 0
	r.Register("secure", func(ctx context.Context, args Args, c *Context) (any, error) {
		called++
		return "ok", nil
	}, true)

	contexts := []*Context{
		nil,
		{},
		{Session: &stubSession{authed: false}},
	}
	for _, c := range contexts {
		_, err := r.Execute(context.Background(), mustRequest(t, 1, "secure", nil), c)
		if !errors.Is(err, errors.CodeAuthentication) {
			t.Errorf("context %+v: expected authentication error, got %v", c, err)
		}
	}
	if called != 0 {
		t.Errorf("handler must never run without auth, ran %d times", called)
	}

	if _, err := r.Execute(context.Background(), mustRequest(t, 1, "secure", nil), authedContext()); err != nil {
		t.Errorf("authenticated call failed: %v", err)
	}
	if called != 1 {
		t.Errorf("handler should have run once, ran %d times", called)
	}
}

func TestPermissionEnforcement(t *testing.T) {
	r := NewRegistry()

	called := 0
	r.Register("write", func(ctx context.Context, args Args, c *Context) (any, error) {
		called++
		return "ok", nil
	}, true, "agents:write")

	_, err := r.Execute(context.Background(), mustRequest(t, 1, "write", nil), authedContext())
	gwErr := errors.From(err)
	if gwErr.Code != errors.CodeAuthorization {
		t.Fatalf("code = %d, want %d", gwErr.Code, errors.CodeAuthorization)
	}
	if gwErr.Data["required_permission"] != "agents:write" {
		t.Errorf("missing scope not named in data: %v", gwErr.Data)
	}
	if called != 0 {
		t.Errorf("handler must not run without the scope")
	}

	resp, err := r.Execute(context.Background(), mustRequest(t, 1, "write", nil), authedContext("agents:write"))
	if err != nil || resp.Result != "ok" {
		t.Errorf("granting the scope should make the call succeed, got %v / %v", resp, err)
	}
}

func TestMiddlewareOrderAndShortCircuit(t *testing.T) {
	r := NewRegistry()

	var order []string
	r.Use(func(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response {
		order = append(order, "first")
		return nil
	})
	r.Use(func(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response {
		order = append(order, "second")
		return nil
	})

	handled := 0
	r.Register("m", func(ctx context.Context, args Args, c *Context) (any, error) {
		handled++
		return "handled", nil
	}, false)

	resp, err := r.Execute(context.Background(), mustRequest(t, 1, "m", nil), nil)
	if err != nil || resp.Result != "handled" {
		t.Fatalf("dispatch failed: %v / %v", resp, err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware ran out of order: %v", order)
	}

	// A middleware returning a response stops the chain and the handler.
	r.Use(func(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response {
		return jsonrpc.NewErrorResponse(req.ID, errors.RateLimit(""))
	})
	r.Use(func(ctx context.Context, req *jsonrpc.Request, c *Context) *jsonrpc.Response {
		t.Error("middleware after a short-circuit must not run")
		return nil
	})

	resp, err = r.Execute(context.Background(), mustRequest(t, 2, "m", nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != errors.CodeRateLimit {
		t.Errorf("short-circuit response lost: %v", resp)
	}
	if handled != 1 {
		t.Errorf("handler ran despite short-circuit")
	}
}

func TestPositionalParamsRejected(t *testing.T) {
	r := NewRegistry()
	r.Register("m", func(ctx context.Context, args Args, c *Context) (any, error) {
		return nil, nil
	}, false)

	_, err := r.Execute(context.Background(), mustRequest(t, 1, "m", []any{1, 2}), nil)
	if !errors.Is(err, errors.CodeInvalidParams) {
		t.Errorf("array params should be invalid, got %v", err)
	}
}

func TestNamedParamsReachHandler(t *testing.T) {
	r := NewRegistry()
	r.Register("greet", func(ctx context.Context, args Args, c *Context) (any, error) {
		var params struct {
			Name string `json:"name"`
		}
		if err := args.Decode(&params); err != nil {
			return nil, err
		}
		return "hello " + params.Name, nil
	}, false)

	resp, err := r.Execute(context.Background(),
		mustRequest(t, 1, "greet", map[string]any{"name": "ada"}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Result != "hello ada" {
		t.Errorf("result = %v", resp.Result)
	}
}

func TestArgsDecodeMismatch(t *testing.T) {
	r := NewRegistry()
	r.Register("typed", func(ctx context.Context, args Args, c *Context) (any, error) {
		var params struct {
			Count int `json:"count"`
		}
		if err := args.Decode(&params); err != nil {
			return nil, err
		}
		return params.Count, nil
	}, false)

	_, err := r.Execute(context.Background(),
		mustRequest(t, 1, "typed", map[string]any{"count": "not a number"}), nil)
	if !errors.Is(err, errors.CodeInvalidParams) {
		t.Errorf("type mismatch should be invalid params, got %v", err)
	}
}

func TestHandlerPanicContained(t *testing.T) {
	r := NewRegistry()
	r.Register("boom", func(ctx context.Context, args Args, c *Context) (any, error) {
		panic("kaboom")
	}, false)

	_, err := r.Execute(context.Background(), mustRequest(t, 1, "boom", nil), nil)
	if !errors.Is(err, errors.CodeInternalError) {
		t.Errorf("panic should surface as internal error, got %v", err)
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	r := NewRegistry()
	r.Register("m", func(ctx context.Context, args Args, c *Context) (any, error) {
		return "ok", nil
	}, false)

	req := mustRequest(t, 1, "m", nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := r.Execute(context.Background(), req, nil); err != nil {
					t.Errorf("dispatch failed: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Register("m", func(ctx context.Context, args Args, c *Context) (any, error) {
					return "ok", nil
				}, false)
			}
		}(i)
	}
	wg.Wait()
}
