package bus

import (
	"encoding/json"
	"testing"

	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

func TestEncodeDecodeEvent(t *testing.T) {
	in := schema.DrawingUploaded{DrawingID: "d1", FileName: "plan.pdf", HappenedAt: 42}

	data, err := EncodeEvent(TypeDrawingUploaded, in)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if envelope["type"] != TypeDrawingUploaded || envelope["source"] != Source || envelope["specversion"] != "1.0" {
		t.Errorf("envelope = %v", envelope)
	}

	var out schema.DrawingUploaded
	if err := DecodeJSON(data, &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out != in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestDecodeBarePayload(t *testing.T) {
	var out schema.DrawingUploaded
	if err := DecodeJSON([]byte(`{"drawing_id":"d2"}`), &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.DrawingID != "d2" {
		t.Errorf("drawing id = %q", out.DrawingID)
	}

	if err := DecodeJSON([]byte(`not json`), &out); err == nil {
		t.Error("expected error for invalid payload")
	}
}
