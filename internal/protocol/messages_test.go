// ABOUTME: Tests for remote control message types
// ABOUTME: Verifies wire field names and payload re-decoding
package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodePayloadFromGenericMessage(t *testing.T) {
	secs := 1.25
	data, err := json.Marshal(Message{Type: TypePlay, Payload: Play{Tick: 960, Seconds: &secs}})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if msg.Type != TypePlay {
		t.Errorf("expected type %s, got %s", TypePlay, msg.Type)
	}

	var play Play
	if err := DecodePayload(msg.Payload, &play); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if play.Tick != 960 {
		t.Errorf("expected tick 960, got %d", play.Tick)
	}
	if play.Seconds == nil || *play.Seconds != 1.25 {
		t.Errorf("expected seconds 1.25, got %v", play.Seconds)
	}
}

func TestOptionalFieldsOmitted(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		absent  string
	}{
		{"play without seconds", Play{Tick: 0}, "seconds"},
		{"volume without pan", Volume{Track: "song", Volume: 0.5}, "pan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.payload)
			if err != nil {
				t.Fatalf("failed to marshal: %v", err)
			}
			if strings.Contains(string(data), tt.absent) {
				t.Errorf("expected %q to be omitted, got %s", tt.absent, data)
			}
		})
	}
}

func TestEngineStateFieldNames(t *testing.T) {
	data, err := json.Marshal(EngineState{
		Playing:     true,
		LogicalTime: 2.5,
		Volumes:     map[string]float32{"song": 1},
		SyncQuality: "good",
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	for _, field := range []string{`"playing":true`, `"logical_time":2.5`, `"volumes":{"song":1}`, `"sync_quality":"good"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}
}

func TestDecodePayloadTypeMismatch(t *testing.T) {
	var hello ClientHello
	err := DecodePayload(map[string]interface{}{"version": "one"}, &hello)
	if err == nil {
		t.Error("expected error decoding a string into an int field")
	}
}
