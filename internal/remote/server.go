// ABOUTME: WebSocket remote control server for a playback session
// ABOUTME: Accepts transport, preview and mixer commands and pushes engine state
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/notreaper/nrplayback/internal/protocol"
	"github.com/notreaper/nrplayback/pkg/audio"
	"github.com/notreaper/nrplayback/pkg/audio/decode"
	"github.com/notreaper/nrplayback/pkg/playback"
	"github.com/notreaper/nrplayback/pkg/timing"
)

const (
	// Path is the websocket endpoint
	Path = "/control"

	// DefaultStateInterval is how often engine/state is pushed
	DefaultStateInterval = 50 * time.Millisecond

	sendBuffer    = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

var errBufferFull = errors.New("client send buffer full")

// Config holds server configuration
type Config struct {
	Port          int
	Name          string
	Debug         bool
	StateInterval time.Duration
	// Decode loads a file for control/load; decode.File when nil
	Decode func(path string) (audio.PCM, error)
}

// Server exposes a playback session over a websocket
type Server struct {
	config   Config
	serverID string
	session  *playback.Session

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is a connected controller
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	sendChan chan interface{}
}

// New creates a server for session
func New(config Config, session *playback.Session) *Server {
	if config.StateInterval <= 0 {
		config.StateInterval = DefaultStateInterval
	}
	if config.Decode == nil {
		config.Decode = decode.File
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		session:  session,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin != "" && config.Debug {
					log.Printf("[DEBUG] Accepting control socket from origin: %s", origin)
				}
				// the editor front-end runs on the same host
				return true
			},
		},
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control socket
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Remote control listening on %s%s (ID: %s)", addr, Path, s.serverID)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.stateLoop(ctx)
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Remote control shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	s.closeClients()

	s.wg.Wait()
	log.Printf("Remote control stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// stateLoop pushes engine/state to every client at the configured interval
func (s *Server) stateLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.StateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastState()
		}
	}
}

// closeClients closes hijacked connections that Shutdown does not track
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New control connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}
	if msg.Type != protocol.TypeClientHello {
		log.Printf("Expected %s, got %s", protocol.TypeClientHello, msg.Type)
		writeDirect(conn, protocol.TypeServerError, protocol.ServerError{
			Error:   "handshake_required",
			Message: "first message must be client/hello",
		})
		return
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		log.Printf("Error unmarshaling client hello: %v", err)
		return
	}
	if hello.ClientID == "" {
		hello.ClientID = uuid.New().String()
	}
	if hello.Name == "" {
		hello.Name = "controller"
	}

	log.Printf("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, sendBuffer),
	}

	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)
		writeDirect(conn, protocol.TypeServerError, protocol.ServerError{
			Error:   "duplicate_client_id",
			Message: "Client ID already connected",
		})
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		close(client.sendChan)
		s.clientsMu.Unlock()
		log.Printf("Client disconnected: %s", client.Name)
	}()

	cfg := s.session.Config()
	if err := s.sendMessage(client, protocol.TypeServerHello, protocol.ServerHello{
		ServerID:   s.serverID,
		SessionID:  s.session.ID(),
		Name:       s.config.Name,
		Version:    protocol.ProtocolVersion,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}
	s.sendMessage(client, protocol.TypeEngineState, s.engineState())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleClientMessage(client, data)
	}
}

// clientWriter sends queued messages and keeps the connection alive
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage dispatches one control message
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.sendError(client, "bad_message", err)
		return
	}

	if s.config.Debug {
		log.Printf("[DEBUG] %s from %s", msg.Type, client.Name)
	}

	var err error
	switch msg.Type {
	case protocol.TypeLoad:
		err = s.handleLoad(msg.Payload)
	case protocol.TypePlay:
		err = s.handlePlay(msg.Payload)
	case protocol.TypeStop:
		s.session.Stop()
	case protocol.TypePreview:
		err = s.handlePreview(msg.Payload)
	case protocol.TypeVolume:
		err = s.handleVolume(msg.Payload)
	case protocol.TypeMetronome:
		err = s.handleMetronome(msg.Payload)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		s.sendError(client, msg.Type, err)
		return
	}
	s.broadcastState()
}

func (s *Server) handleLoad(payload interface{}) error {
	var req protocol.Load
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return err
	}
	kind, err := playback.ParseTrackKind(req.Track)
	if err != nil {
		return err
	}
	pcm, err := s.config.Decode(req.Path)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.Path, err)
	}
	return s.session.LoadPCM(pcm, kind)
}

func (s *Server) handlePlay(payload interface{}) error {
	var req protocol.Play
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return err
	}
	if req.Seconds != nil {
		s.session.PlaySeconds(*req.Seconds)
		return nil
	}
	s.session.Play(timing.Timestamp(req.Tick))
	return nil
}

func (s *Server) handlePreview(payload interface{}) error {
	var req protocol.Preview
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return err
	}
	if !s.session.Loaded(playback.Song) {
		return playback.ErrNoSong
	}
	s.session.PlayPreview(timing.Timestamp(req.Tick), timing.Duration(req.Duration))
	return nil
}

func (s *Server) handleVolume(payload interface{}) error {
	var req protocol.Volume
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return err
	}
	kind, err := playback.ParseTrackKind(req.Track)
	if err != nil {
		return err
	}
	if err := s.session.SetTrackVolume(kind, req.Volume); err != nil {
		return err
	}
	if req.Pan != nil {
		return s.session.SetTrackPan(kind, *req.Pan)
	}
	return nil
}

func (s *Server) handleMetronome(payload interface{}) error {
	var req protocol.Metronome
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return err
	}
	s.session.SetMetronomeEnabled(req.Enabled)
	return nil
}

// engineState converts the session status to its wire form
func (s *Server) engineState() protocol.EngineState {
	st := s.session.Status()
	return protocol.EngineState{
		Playing:          st.Playing,
		PreviewArmed:     st.PreviewArmed,
		MetronomeEnabled: st.MetronomeEnabled,
		LogicalTime:      st.LogicalTime,
		ClockTime:        st.ClockTime,
		SongLength:       st.SongLength,
		BPM:              st.BPM,
		Volumes: map[string]float32{
			playback.Song.String():         st.SongVolume,
			playback.LeftSustain.String():  st.LeftVolume,
			playback.RightSustain.String(): st.RightVolume,
			playback.Preview.String():      st.PreviewVolume,
		},
		SyncQuality: st.Quality.String(),
	}
}

// broadcastState queues engine/state for every client
func (s *Server) broadcastState() {
	state := s.engineState()

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if err := s.sendMessage(c, protocol.TypeEngineState, state); err != nil && s.config.Debug {
			log.Printf("[DEBUG] Dropping state for %s: %v", c.Name, err)
		}
	}
}

func (s *Server) sendError(client *Client, code string, err error) {
	if sendErr := s.sendMessage(client, protocol.TypeServerError, protocol.ServerError{
		Error:   code,
		Message: err.Error(),
	}); sendErr != nil {
		log.Printf("Error sending error to %s: %v", client.Name, sendErr)
	}
}

// sendMessage queues a JSON message for a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return errBufferFull
	}
}

// writeDirect writes to a connection that has no writer goroutine yet
func writeDirect(conn *websocket.Conn, msgType string, payload interface{}) {
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	conn.WriteMessage(websocket.TextMessage, data)
}
