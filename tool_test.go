package mcpshot

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDeviceList(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		count int
	}{
		{name: "well formed", text: `{"devices":[{"id":"dev-1"},{"id":"dev-2"}]}`, count: 2},
		{name: "later entry without id", text: `{"devices":[{"id":"dev-1"},{"name":"x"}]}`, count: 2},
		{name: "later entry with numeric id", text: `{"devices":[{"id":"dev-1"},{"id":2}]}`, count: 2},
		{name: "later entry not an object", text: `{"devices":[{"id":"dev-1"},7]}`, count: 2},
		{name: "odd descriptive field", text: `{"devices":[{"id":"dev-1","name":5}]}`, count: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ParseDeviceList(tt.text)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(list.Devices) != tt.count {
				t.Fatalf("expected %d entries, got %d", tt.count, len(list.Devices))
			}

			first, ok, err := list.First()
			if err != nil || !ok {
				t.Fatalf("First() = %+v, %v, %v", first, ok, err)
			}
			if first.ID != "dev-1" {
				t.Fatalf("unexpected first device %q", first.ID)
			}
		})
	}
}

func TestParseDeviceListEmpty(t *testing.T) {
	list, err := ParseDeviceList(`{"devices":[]}`)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}

	if _, ok, err := list.First(); ok || err != nil {
		t.Fatalf("expected no first device, got ok=%v err=%v", ok, err)
	}
}

func TestParseDeviceListShapeErrors(t *testing.T) {
	tests := []string{
		`no devices attached`,
		`{"devices":"dev-1"}`,
		`{"devices":[{"name":"no id"}]}`,
		`{"devices":[{"id":""}]}`,
		`{"devices":[{"id":3},{"id":"dev-2"}]}`,
		`{"devices":[1]}`,
		`{}`,
	}
	for _, text := range tests {
		if _, err := ParseDeviceList(text); !errors.Is(err, ErrDataShape) {
			t.Errorf("ParseDeviceList(%q): expected ErrDataShape, got %v", text, err)
		}
	}
}

func TestParseToolResult(t *testing.T) {
	raw := json.RawMessage(`{"content":[{"type":"text","text":"hi"},{"type":"image","data":"AAE=","mimeType":"image/png"}]}`)

	res, err := ParseToolResult(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	text, ok := res.FirstText()
	if !ok || text != "hi" {
		t.Fatalf("FirstText() = %q, %v", text, ok)
	}

	block, ok := res.FirstData()
	if !ok || block.Data != "AAE=" || block.MimeType != "image/png" {
		t.Fatalf("FirstData() = %+v, %v", block, ok)
	}
}

func TestParseToolResultShapeErrors(t *testing.T) {
	for _, raw := range []string{``, `null`, `{}`, `{"content":"x"}`, `{"content":[{"text":5}]}`} {
		if _, err := ParseToolResult(json.RawMessage(raw)); !errors.Is(err, ErrDataShape) {
			t.Errorf("ParseToolResult(%q): expected ErrDataShape, got %v", raw, err)
		}
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand: %v", err)
	}

	got, err := DecodeArtifact(EncodeArtifact(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestDecodeArtifactInvalid(t *testing.T) {
	if _, err := DecodeArtifact("not base64!"); !errors.Is(err, ErrDataShape) {
		t.Fatalf("expected ErrDataShape, got %v", err)
	}
}
