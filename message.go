package mcpshot

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const jsonrpcVersion = "2.0"

// Message is a single JSON-RPC 2.0 object exchanged with the child.
// Payload members stay raw so the harness only decodes what it inspects.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`

	hasError bool
}

// RPCError is the error member of a response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewRequest builds a request with an integer id.
func NewRequest(id int64, method string, params any) (Message, error) {
	msg := Message{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
	}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s params: %w", method, err)
		}

		msg.Params = raw
	}

	return msg, nil
}

// IsResponse reports whether the message answers a request.
func (m Message) IsResponse() bool {
	return m.Method == ""
}

// HasError reports whether the message carried an error member, even a null one.
func (m Message) HasError() bool {
	return m.hasError || len(m.Error) > 0
}

// RPCError decodes the error member. Non-object errors are reported verbatim.
func (m Message) RPCError() RPCError {
	var e RPCError
	if err := json.Unmarshal(m.Error, &e); err != nil || (e.Code == 0 && e.Message == "") {
		return RPCError{Message: string(m.Error)}
	}

	return e
}

func (e RPCError) Error() string {
	if e.Code == 0 {
		return e.Message
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// IDValue returns the integer id, if the message has one.
func (m Message) IDValue() (int64, bool) {
	if len(m.ID) == 0 || string(m.ID) == "null" {
		return 0, false
	}

	id, err := strconv.ParseInt(string(m.ID), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func encodeMessage(m Message) ([]byte, error) {
	if m.JSONRPC == "" {
		m.JSONRPC = jsonrpcVersion
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return append(data, '\n'), nil
}

func decodeMessage(line []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if fields == nil {
		return Message{}, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	var m Message
	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &m.JSONRPC); err != nil {
			return Message{}, fmt.Errorf("%w: jsonrpc: %v", ErrMalformedMessage, err)
		}
	}

	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &m.Method); err != nil {
			return Message{}, fmt.Errorf("%w: method: %v", ErrMalformedMessage, err)
		}
	}

	m.Params = fields["params"]
	m.Result = fields["result"]
	m.ID = fields["id"]
	m.Error, m.hasError = fields["error"]

	return m, nil
}
