package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the outcome of a dispatched request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is a decoded command envelope.
type Request struct {
	// ID is the client's correlation token. Nil means the client sent
	// null or omitted the field; it is echoed back verbatim either way.
	ID *string `json:"id"`

	// Command names the operation to dispatch. Always non-empty after a
	// successful decode.
	Command string `json:"command"`

	// Params holds the command arguments. Never nil after decode; values
	// keep their JSON shape (string, json.Number, bool, nil, []any,
	// map[string]any).
	Params map[string]any `json:"params"`
}

// Response is a result envelope ready for encoding.
type Response struct {
	ID        *string `json:"id"`
	Status    Status  `json:"status"`
	Timestamp string  `json:"timestamp"`

	// Data is present only when Status is StatusSuccess. The dispatcher
	// guarantees it carries at least the echoed "command" field.
	Data map[string]any `json:"data,omitempty"`

	// Error is present only when Status is StatusError.
	Error string `json:"error,omitempty"`
}

// DecodeError describes a payload that could not be turned into a Request.
type DecodeError struct {
	// RequestID is the envelope's id when the payload parsed as a JSON
	// object and carried one. Nil for malformed JSON, so the error
	// response is sent with a null id.
	RequestID *string

	// Reason is the human-readable fault description.
	Reason string
}

// Error returns the fault reason.
func (e *DecodeError) Error() string {
	return e.Reason
}

// MissingCommandMessage is the exact error message for an envelope that
// parsed as an object but carries no usable command name.
const MissingCommandMessage = "Missing 'command' field in request"

// DecodeRequest parses one message payload into a Request.
//
// It fails with a *DecodeError when the payload is not valid JSON, is not a
// JSON object, or has a missing/empty/non-string "command". The id and
// params fields are optional and default to null and {} respectively.
func DecodeRequest(payload []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("Invalid JSON: %v", err)}
	}
	if dec.More() {
		return nil, &DecodeError{Reason: "Invalid JSON: unexpected trailing data after envelope"}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Reason: fmt.Sprintf("Invalid JSON: expected object envelope, got %s", jsonTypeName(raw))}
	}

	req := &Request{Params: map[string]any{}}

	if v, present := obj["id"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, &DecodeError{Reason: fmt.Sprintf("Invalid request: 'id' must be a string or null, got %s", jsonTypeName(v))}
		}
		req.ID = &s
	}

	cmd, present := obj["command"]
	if !present || cmd == nil {
		return nil, &DecodeError{RequestID: req.ID, Reason: MissingCommandMessage}
	}
	name, ok := cmd.(string)
	if !ok {
		return nil, &DecodeError{RequestID: req.ID, Reason: fmt.Sprintf("Invalid request: 'command' must be a string, got %s", jsonTypeName(cmd))}
	}
	if name == "" {
		return nil, &DecodeError{RequestID: req.ID, Reason: MissingCommandMessage}
	}
	req.Command = name

	if v, present := obj["params"]; present && v != nil {
		params, ok := v.(map[string]any)
		if !ok {
			return nil, &DecodeError{RequestID: req.ID, Reason: fmt.Sprintf("Invalid request: 'params' must be an object, got %s", jsonTypeName(v))}
		}
		req.Params = params
	}

	return req, nil
}

// EncodeRequest serializes a Request. Used by clients and tests; the server
// itself only decodes requests.
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// EncodeResponse serializes a Response to canonical JSON.
//
// A payload the encoder cannot serialize degrades to a minimal error
// envelope with the same id rather than losing the connection, so the
// returned bytes are always a valid response document.
func EncodeResponse(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err == nil {
		return data
	}

	fallback := &Response{
		ID:        resp.ID,
		Status:    StatusError,
		Timestamp: timestamp(),
		Error:     fmt.Sprintf("Failed to encode response: %v", err),
	}
	data, _ = json.Marshal(fallback)
	return data
}

// NewSuccess builds a success response for the given correlation id.
func NewSuccess(id *string, data map[string]any) *Response {
	if data == nil {
		data = map[string]any{}
	}
	return &Response{
		ID:        id,
		Status:    StatusSuccess,
		Timestamp: timestamp(),
		Data:      data,
	}
}

// NewError builds an error response for the given correlation id.
func NewError(id *string, message string) *Response {
	return &Response{
		ID:        id,
		Status:    StatusError,
		Timestamp: timestamp(),
		Error:     message,
	}
}

// timestamp returns the response construction time in RFC 3339 UTC.
// time.Now is monotonic within a process, so per-session timestamps are
// non-decreasing.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// jsonTypeName names a decoded JSON value's type for error messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
