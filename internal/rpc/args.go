package rpc

import (
	"bytes"
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"github.com/tidewell/rpcgate/internal/errors"
)

// Args is the named-argument bag handed to every handler. Handlers extract
// and validate their own fields, typically via Decode.
type Args map[string]any

// Decode maps the bag onto a tagged struct. Type mismatches surface as
// InvalidParams so handlers can return the error unchanged.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return errors.Internal(err)
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return errors.InvalidParams(err.Error())
	}
	return nil
}

// String returns a string field, with ok reporting presence and type match.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// argsFromParams builds the handler argument bag. Object params merge their
// keys as named arguments; array params are rejected, positional arguments
// are deliberately unsupported; absent params yield an empty bag.
func argsFromParams(params json.RawMessage) (Args, *errors.Error) {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Args{}, nil
	}

	switch trimmed[0] {
	case '{':
		var args Args
		if err := json.Unmarshal(trimmed, &args); err != nil {
			return nil, errors.InvalidParams(err.Error())
		}
		return args, nil
	case '[':
		return nil, errors.InvalidParams("positional parameters are not supported")
	default:
		return nil, errors.InvalidParams("params must be an object")
	}
}
