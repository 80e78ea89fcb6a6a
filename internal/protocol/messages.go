// ABOUTME: Remote control message type definitions
// ABOUTME: Defines structs for every message exchanged on the control socket
package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is bumped on incompatible message changes
const ProtocolVersion = 1

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeLoad        = "control/load"
	TypePlay        = "control/play"
	TypeStop        = "control/stop"
	TypePreview     = "control/preview"
	TypeVolume      = "control/volume"
	TypeMetronome   = "control/metronome"
	TypeEngineState = "engine/state"
	TypeServerError = "server/error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload re-decodes a generic payload into a typed struct
func DecodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID   string `json:"server_id"`
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Load asks the engine to decode a file into a track
type Load struct {
	Track string `json:"track"` // song, left, right
	Path  string `json:"path"`
}

// Play starts the transport at a tick, or at Seconds when set
type Play struct {
	Tick    int64    `json:"tick"`
	Seconds *float64 `json:"seconds,omitempty"`
}

// Preview plays a short window of the song around a tick
type Preview struct {
	Tick     int64 `json:"tick"`
	Duration int64 `json:"duration"` // ticks
}

// Volume sets a track's volume and optionally its pan
type Volume struct {
	Track  string   `json:"track"`
	Volume float32  `json:"volume"`
	Pan    *float32 `json:"pan,omitempty"`
}

// Metronome toggles the metronome preference
type Metronome struct {
	Enabled bool `json:"enabled"`
}

// EngineState is pushed to clients periodically and after every command
type EngineState struct {
	Playing          bool               `json:"playing"`
	PreviewArmed     bool               `json:"preview_armed"`
	MetronomeEnabled bool               `json:"metronome_enabled"`
	LogicalTime      float64            `json:"logical_time"`
	ClockTime        float64            `json:"clock_time"`
	SongLength       float64            `json:"song_length"`
	BPM              float64            `json:"bpm"`
	Volumes          map[string]float32 `json:"volumes"`
	SyncQuality      string             `json:"sync_quality"`
}

// ServerError reports a rejected request
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
