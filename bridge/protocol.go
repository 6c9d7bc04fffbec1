package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Command is the client→server envelope. Type selects the handler; Params is
// the raw JSON object decoded by the handler's own parameter schema.
type Command struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the server→client envelope: either {status:"success", result}
// or {status:"error", message}.
type Response struct {
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success wraps a handler result in a success envelope.
func Success(result any) Response {
	return Response{Status: StatusSuccess, Result: result}
}

// Error wraps an error message in an error envelope.
func Error(message string) Response {
	return Response{Status: StatusError, Message: message}
}

// decodeParams decodes a command's raw params into a per-command parameter
// struct. Unknown keys are rejected, so a typo'd parameter fails the handler
// rather than being silently dropped. A missing params object decodes as
// empty.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// orderedObject is a JSON object that remembers key order, which
// map[string]any loses. modify_node's change log and parameter application
// follow caller-supplied order, so the order must survive decoding.
type orderedObject struct {
	keys   []string
	values map[string]any
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	o.keys = nil
	o.values = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if _, dup := o.values[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.values[key] = value
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Len returns the number of keys.
func (o *orderedObject) Len() int { return len(o.keys) }

// Each visits every key/value pair in caller-supplied order.
func (o *orderedObject) Each(fn func(key string, value any)) {
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}
