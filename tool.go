package mcpshot

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolCallParams are the params of a tool/call request.
type ToolCallParams struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the result of a tool/call request.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one entry of a tool result.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Device describes one device reported by the server.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform,omitempty"`
	Type     string `json:"type,omitempty"`
	State    string `json:"state,omitempty"`
}

// DeviceList is the JSON document carried in the text block of a device
// listing. Entries stay raw; only the first one is ever decoded.
type DeviceList struct {
	Devices []json.RawMessage `json:"devices"`
}

// First decodes the first device. ok is false for an empty list.
func (l DeviceList) First() (Device, bool, error) {
	if len(l.Devices) == 0 {
		return Device{}, false, nil
	}

	var d Device
	if err := json.Unmarshal(l.Devices[0], &d); err == nil {
		return d, true, nil
	}

	// Descriptive fields of an unexpected type do not hide the id.
	var idOnly struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(l.Devices[0], &idOnly); err != nil {
		return Device{}, false, fmt.Errorf("%w: first device: %v", ErrDataShape, err)
	}

	return Device{ID: idOnly.ID}, true, nil
}

const toolResultSchema = `{
  "type":"object",
  "properties":{
    "content":{
      "type":"array",
      "items":{
        "type":"object",
        "properties":{
          "type":{"type":"string"},
          "text":{"type":"string"},
          "data":{"type":"string"}
        }
      }
    }
  },
  "required":["content"]
}`

const deviceListSchema = `{
  "type":"object",
  "properties":{
    "devices":{
      "type":"array",
      "items":[{
        "type":"object",
        "properties":{
          "id":{"type":"string","minLength":1}
        },
        "required":["id"]
      }]
    }
  },
  "required":["devices"]
}`

// ParseToolResult validates and decodes a tool/call result payload.
func ParseToolResult(raw json.RawMessage) (ToolResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return ToolResult{}, fmt.Errorf("%w: missing result", ErrDataShape)
	}

	if err := validateShape(toolResultSchema, raw); err != nil {
		return ToolResult{}, fmt.Errorf("tool result: %w", err)
	}

	var out ToolResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ToolResult{}, fmt.Errorf("%w: tool result: %v", ErrDataShape, err)
	}

	return out, nil
}

// FirstText returns the first text block, if any.
func (r ToolResult) FirstText() (string, bool) {
	for _, c := range r.Content {
		if c.Type == "text" || (c.Type == "" && c.Text != "") {
			return c.Text, true
		}
	}

	return "", false
}

// FirstData returns the first block carrying inline data, if any.
func (r ToolResult) FirstData() (ContentBlock, bool) {
	for _, c := range r.Content {
		if c.Data != "" {
			return c, true
		}
	}

	return ContentBlock{}, false
}

// ParseDeviceList validates and decodes the device listing text. Only the
// first entry has to carry a usable id; later entries are not inspected.
func ParseDeviceList(text string) (DeviceList, error) {
	data := []byte(strings.TrimSpace(text))
	if !json.Valid(data) {
		return DeviceList{}, fmt.Errorf("%w: device list is not JSON", ErrDataShape)
	}

	if err := validateShape(deviceListSchema, data); err != nil {
		return DeviceList{}, fmt.Errorf("device list: %w", err)
	}

	var out DeviceList
	if err := json.Unmarshal(data, &out); err != nil {
		return DeviceList{}, fmt.Errorf("%w: device list: %v", ErrDataShape, err)
	}

	return out, nil
}

// EncodeArtifact encodes artifact bytes the way servers embed them.
func EncodeArtifact(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeArtifact decodes an inline base64 payload.
func DecodeArtifact(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", ErrDataShape, err)
	}

	return data, nil
}

func validateShape(schema string, data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataShape, err)
	}

	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, err := range result.Errors() {
		errs = append(errs, err.String())
	}

	return fmt.Errorf("%w: %s", ErrDataShape, strings.Join(errs, "; "))
}
