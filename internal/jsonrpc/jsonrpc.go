package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/tidewell/rpcgate/internal/errors"
)

const (
	Version = "2.0"

	// EventMethod is the conventional method name for server-pushed events.
	EventMethod = "event"
)

// Request
//
//	{
//		jsonrpc: "2.0",
//		method: string,
//		params?: object | array,
//		id?: number | string
//	}
//
// A request without an "id" key is a notification and is never answered.
// An explicit `"id": null` counts as a present id, not a notification.
type Request struct {
	JSONRPC string
	Method  string
	Params  json.RawMessage
	ID      any

	hasID bool
}

// NewRequest builds a request expecting a response. Params may be nil, a
// struct or a map; it is serialized immediately.
func NewRequest(id any, method string, params any) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  raw,
		ID:      id,
		hasID:   true,
	}, nil
}

// IsNotification reports whether the request carries no id key at all.
func (r *Request) IsNotification() bool {
	return !r.hasID
}

// Validate checks the JSON-RPC envelope. Field-level checks only; params
// shape is judged later by the bound handler.
func (r *Request) Validate() *errors.Error {
	if r.JSONRPC != Version {
		return errors.InvalidRequest(fmt.Sprintf("unsupported jsonrpc version: %q", r.JSONRPC))
	}
	if r.Method == "" {
		return errors.InvalidRequest("method is required")
	}
	if r.hasID {
		switch r.ID.(type) {
		case nil, string, float64:
		default:
			return errors.InvalidRequest("id must be a string or number")
		}
	}
	return nil
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type wire struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      any             `json:"id"`
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	// A second pass over the raw keys distinguishes a missing id from an
	// explicit null one.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, hasID := keys["id"]

	*r = Request{
		JSONRPC: w.JSONRPC,
		Method:  w.Method,
		Params:  w.Params,
		ID:      w.ID,
		hasID:   hasID,
	}
	return nil
}

func (r *Request) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"jsonrpc": r.JSONRPC,
		"method":  r.Method,
	}
	if len(r.Params) > 0 {
		m["params"] = r.Params
	}
	if r.hasID {
		m["id"] = r.ID
	}
	return json.Marshal(m)
}

// Response
//
//	{
//		jsonrpc: "2.0",
//		result?: any,
//		error?: { code, message, data? },
//		id: number | string | null
//	}
//
// Exactly one of result / error is present on the wire; id is always
// serialized and is null when the failing input had no usable id.
type Response struct {
	JSONRPC string
	Result  any
	Error   *errors.Error
	ID      any
}

// NewResponse builds a success response.
func NewResponse(id any, result any) *Response {
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id any, err *errors.Error) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
		ID:      id,
	}
}

// FromError maps any error onto an error response. Known gateway errors keep
// their code, message and data; anything else is normalized to an internal
// error. With verbose set, cause and stack are attached to the error data;
// default output carries none of that.
func FromError(id any, err error, verbose bool) *Response {
	gwErr := errors.From(err)
	if verbose {
		gwErr = gwErr.Detail()
	}
	return NewErrorResponse(id, gwErr)
}

func (r *Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *errors.Error   `json:"error,omitempty"`
		ID      any             `json:"id"`
	}

	w := wire{JSONRPC: r.JSONRPC, ID: r.ID}
	if w.JSONRPC == "" {
		w.JSONRPC = Version
	}
	if r.Error != nil {
		w.Error = r.Error
	} else {
		// result is emitted even when nil; its absence is what marks an
		// error response.
		raw, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		w.Result = raw
	}
	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	type wire struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *errors.Error   `json:"error"`
		ID      any             `json:"id"`
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = Response{JSONRPC: w.JSONRPC, Error: w.Error, ID: w.ID}
	if w.Error == nil && len(w.Result) > 0 {
		if err := json.Unmarshal(w.Result, &r.Result); err != nil {
			return err
		}
	}
	return nil
}

// Notification
//
//	{
//		jsonrpc: "2.0",
//		method: string,
//		params?: object
//	}
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification builds a fire-and-forget notification.
func NewNotification(method string, params any) *Notification {
	return &Notification{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}
