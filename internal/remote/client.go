// ABOUTME: WebSocket client for the remote control server
// ABOUTME: Performs the handshake, sends control commands and routes engine state
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/notreaper/nrplayback/internal/protocol"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	ServerAddr string // host:port
	ClientID   string
	Name       string
}

// RemoteClient controls an engine over the control socket
type RemoteClient struct {
	config ClientConfig
	conn   *websocket.Conn
	mu     sync.Mutex

	// Hello is the server's handshake reply
	Hello protocol.ServerHello

	// Message channels
	States chan protocol.EngineState
	Errors chan protocol.ServerError

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a client; Connect dials it
func NewClient(config ClientConfig) *RemoteClient {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "nr-remote"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &RemoteClient{
		config: config,
		States: make(chan protocol.EngineState, 16),
		Errors: make(chan protocol.ServerError, 16),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes the connection and performs the handshake
func (c *RemoteClient) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *RemoteClient) handshake() error {
	hello := protocol.ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  protocol.ProtocolVersion,
	}
	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type == protocol.TypeServerError {
		var e protocol.ServerError
		protocol.DecodePayload(msg.Payload, &e)
		return fmt.Errorf("server rejected hello: %s", e.Message)
	}
	if msg.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}
	if err := protocol.DecodePayload(msg.Payload, &c.Hello); err != nil {
		return err
	}

	log.Printf("Handshake complete with %s (session %s)", c.Hello.Name, c.Hello.SessionID)
	return nil
}

// send writes a JSON message; gorilla allows one concurrent writer
func (c *RemoteClient) send(msgType string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// readMessages reads and routes incoming messages
func (c *RemoteClient) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse JSON message: %v", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeEngineState:
			var state protocol.EngineState
			if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
				log.Printf("Bad engine state: %v", err)
				continue
			}
			// keep the newest state when the reader falls behind
			select {
			case c.States <- state:
			default:
				select {
				case <-c.States:
				default:
				}
				c.States <- state
			}

		case protocol.TypeServerError:
			var e protocol.ServerError
			if err := protocol.DecodePayload(msg.Payload, &e); err != nil {
				log.Printf("Bad server error: %v", err)
				continue
			}
			select {
			case c.Errors <- e:
			case <-c.ctx.Done():
				return
			}

		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

// Load asks the engine to decode path into track
func (c *RemoteClient) Load(track, path string) error {
	return c.send(protocol.TypeLoad, protocol.Load{Track: track, Path: path})
}

// Play starts the transport at a tick
func (c *RemoteClient) Play(tick int64) error {
	return c.send(protocol.TypePlay, protocol.Play{Tick: tick})
}

// PlaySeconds starts the transport at a song time
func (c *RemoteClient) PlaySeconds(secs float64) error {
	return c.send(protocol.TypePlay, protocol.Play{Seconds: &secs})
}

// Stop halts the transport
func (c *RemoteClient) Stop() error {
	return c.send(protocol.TypeStop, nil)
}

// Preview plays a short window around tick
func (c *RemoteClient) Preview(tick, duration int64) error {
	return c.send(protocol.TypePreview, protocol.Preview{Tick: tick, Duration: duration})
}

// SetVolume sets a track volume
func (c *RemoteClient) SetVolume(track string, volume float32) error {
	return c.send(protocol.TypeVolume, protocol.Volume{Track: track, Volume: volume})
}

// SetMetronome toggles the metronome
func (c *RemoteClient) SetMetronome(enabled bool) error {
	return c.send(protocol.TypeMetronome, protocol.Metronome{Enabled: enabled})
}

// Close closes the connection
func (c *RemoteClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *RemoteClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
