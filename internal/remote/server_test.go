// ABOUTME: Tests for the remote control server
// ABOUTME: Drives a session through a real websocket served by httptest
package remote

import (
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/notreaper/nrplayback/internal/protocol"
	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/playback"
)

type rawMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func fakeDecode(path string) (audio.PCM, error) {
	if path == "missing.wav" {
		return audio.PCM{}, errors.New("no such file")
	}
	return audio.PCM{Samples: make([]float32, 48000*2), Channels: 2, SampleRate: 48000}, nil
}

func newTestServer(t *testing.T) (*Server, *playback.Session, *websocket.Conn) {
	t.Helper()

	session, err := playback.NewSession(playback.Config{}, nil)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	srv := New(Config{Name: "test", Decode: fakeDecode}, session)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	send(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: "c1", Name: "editor", Version: 1})

	msg := read(t, conn)
	if msg.Type != protocol.TypeServerHello {
		t.Fatalf("expected %s, got %s", protocol.TypeServerHello, msg.Type)
	}
	var hello protocol.ServerHello
	if err := json.Unmarshal(msg.Payload, &hello); err != nil {
		t.Fatalf("bad server hello: %v", err)
	}
	if hello.SessionID != session.ID() {
		t.Errorf("expected session %s, got %s", session.ID(), hello.SessionID)
	}
	if hello.SampleRate != playback.DefaultSampleRate {
		t.Errorf("expected %d Hz, got %d", playback.DefaultSampleRate, hello.SampleRate)
	}

	if msg := read(t, conn); msg.Type != protocol.TypeEngineState {
		t.Fatalf("expected initial %s, got %s", protocol.TypeEngineState, msg.Type)
	}
	return srv, session, conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg rawMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) protocol.EngineState {
	t.Helper()
	msg := read(t, conn)
	if msg.Type != protocol.TypeEngineState {
		t.Fatalf("expected %s, got %s (%s)", protocol.TypeEngineState, msg.Type, msg.Payload)
	}
	var state protocol.EngineState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatalf("bad state: %v", err)
	}
	return state
}

func readError(t *testing.T, conn *websocket.Conn) protocol.ServerError {
	t.Helper()
	msg := read(t, conn)
	if msg.Type != protocol.TypeServerError {
		t.Fatalf("expected %s, got %s", protocol.TypeServerError, msg.Type)
	}
	var e protocol.ServerError
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		t.Fatalf("bad error: %v", err)
	}
	return e
}

func TestHandshakeRegistersClient(t *testing.T) {
	srv, _, _ := newTestServer(t)

	if srv.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", srv.ClientCount())
	}
}

func TestLoadAndPlay(t *testing.T) {
	_, session, conn := newTestServer(t)

	send(t, conn, protocol.TypeLoad, protocol.Load{Track: "song", Path: "song.wav"})
	state := readState(t, conn)
	if state.SongLength != 1 {
		t.Errorf("expected song length 1s, got %v", state.SongLength)
	}
	if !session.Loaded(playback.Song) || !session.Loaded(playback.Preview) {
		t.Error("expected song and preview loaded")
	}

	secs := 0.5
	send(t, conn, protocol.TypePlay, protocol.Play{Seconds: &secs})
	readState(t, conn)

	session.Process(make([]float32, 480*2), 2)
	if !session.Playing() {
		t.Error("expected session to play after the next callback")
	}
	if got := session.GetLogicalTime(); math.Abs(got-0.51) > 1e-9 {
		t.Errorf("expected 0.51s, got %v", got)
	}

	send(t, conn, protocol.TypeStop, nil)
	readState(t, conn)
	session.Process(make([]float32, 480*2), 2)
	if session.Playing() {
		t.Error("expected session stopped")
	}
}

func TestVolumeAndMetronome(t *testing.T) {
	_, session, conn := newTestServer(t)

	pan := float32(-0.5)
	send(t, conn, protocol.TypeVolume, protocol.Volume{Track: "left", Volume: 0.25, Pan: &pan})
	state := readState(t, conn)
	if state.Volumes["left"] != 0.25 {
		t.Errorf("expected left volume 0.25, got %v", state.Volumes["left"])
	}

	send(t, conn, protocol.TypeMetronome, protocol.Metronome{Enabled: true})
	state = readState(t, conn)
	if !state.MetronomeEnabled || !session.MetronomeEnabled() {
		t.Error("expected metronome enabled")
	}
}

func TestRejectedCommands(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		payload interface{}
	}{
		{"unknown track", protocol.TypeVolume, protocol.Volume{Track: "drums", Volume: 1}},
		{"decode failure", protocol.TypeLoad, protocol.Load{Track: "song", Path: "missing.wav"}},
		{"preview without song", protocol.TypePreview, protocol.Preview{Tick: 480, Duration: 240}},
		{"preview is not loadable", protocol.TypeLoad, protocol.Load{Track: "preview", Path: "song.wav"}},
		{"unknown type", "control/rewind", nil},
	}

	_, _, conn := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msgType, tt.payload)
			e := readError(t, conn)
			if e.Message == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandshakeRequired(t *testing.T) {
	session, err := playback.NewSession(playback.Config{}, nil)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	ts := httptest.NewServer(New(Config{}, session).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+Path, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	send(t, conn, protocol.TypePlay, protocol.Play{})
	if e := readError(t, conn); e.Error != "handshake_required" {
		t.Errorf("expected handshake_required, got %s", e.Error)
	}
}

func TestDuplicateClientRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+Path, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	send(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: "c1", Name: "second"})
	if e := readError(t, conn); e.Error != "duplicate_client_id" {
		t.Errorf("expected duplicate_client_id, got %s", e.Error)
	}
}
