// ABOUTME: WebSocket client for cartwall gateways
// ABOUTME: Handles connection, handshake, board tracking, and commands
package cartwall

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
)

// Config holds client configuration
type Config struct {
	// ServerAddr is the gateway address (host:port)
	ServerAddr string

	// ClientID identifies this pad to the gateway (default: random uuid)
	ClientID string

	// Name is the display name for this pad
	Name string

	// OnBoard is called on every board-state push
	OnBoard func(Board)

	// OnError is called when the gateway reports a failed command
	OnError func(CommandError)
}

// Client connects to a cartwall gateway
type Client struct {
	config Config

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	server    ServerInfo
	board     Board

	// gorilla allows a single concurrent writer
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a client with the given configuration
func New(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "cartwall-pad"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/cartwall"}
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

// handshake sends the hello and waits for the gateway's reply
func (c *Client) handshake() error {
	hello := clientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
	}

	if err := c.send("hello", hello); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read gateway hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse gateway hello: %w", err)
	}

	if msg.Type != "hello" {
		return fmt.Errorf("expected hello, got %s", msg.Type)
	}

	var server ServerInfo
	if err := decodePayload(msg.Payload, &server); err != nil {
		return fmt.Errorf("failed to parse gateway hello: %w", err)
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	log.Printf("Connected to gateway %s (%s %s)", server.Name, server.Product, server.Version)

	return nil
}

// readMessages reads and routes frames until the connection drops
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		c.handleMessage(data)
	}
}

// handleMessage routes one frame from the gateway
func (c *Client) handleMessage(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse message: %v", err)
		return
	}

	switch msg.Type {
	case "board":
		var board Board
		if err := decodePayload(msg.Payload, &board); err != nil {
			log.Printf("Failed to parse board: %v", err)
			return
		}

		c.mu.Lock()
		c.board = board
		c.mu.Unlock()

		if c.config.OnBoard != nil {
			c.config.OnBoard(board)
		}

	case "error":
		var cmdErr CommandError
		if err := decodePayload(msg.Payload, &cmdErr); err != nil {
			log.Printf("Failed to parse error frame: %v", err)
			return
		}

		if c.config.OnError != nil {
			c.config.OnError(cmdErr)
		} else {
			log.Printf("Gateway rejected %s: %s", cmdErr.Request, cmdErr.Reason)
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// Trigger starts a clip at full volume without looping.
// clip may be a library id or a display name.
func (c *Client) Trigger(clip string) error {
	return c.send("trigger", triggerCommand{Clip: clip})
}

// TriggerWith starts a clip with an explicit volume and loop flag
func (c *Client) TriggerWith(clip string, volume float64, loop bool) error {
	return c.send("trigger", triggerCommand{Clip: clip, Volume: &volume, Loop: loop})
}

// Stop stops one instance
func (c *Client) Stop(id uint64) error {
	return c.send("stop", instanceCommand{Instance: id})
}

// StopAll stops every active instance
func (c *Client) StopAll() error {
	return c.send("stop_all", nil)
}

// Pause pauses one instance
func (c *Client) Pause(id uint64) error {
	return c.send("pause", instanceCommand{Instance: id})
}

// Resume resumes one paused instance
func (c *Client) Resume(id uint64) error {
	return c.send("resume", instanceCommand{Instance: id})
}

// PauseAll pauses every active instance
func (c *Client) PauseAll() error {
	return c.send("pause_all", nil)
}

// ResumeAll resumes every paused instance
func (c *Client) ResumeAll() error {
	return c.send("resume_all", nil)
}

// SetVolume sets an instance's target volume (0.0 to 1.0)
func (c *Client) SetVolume(id uint64, volume float64) error {
	return c.send("set_volume", volumeCommand{Instance: id, Volume: volume})
}

// Seek repositions an instance to a frame in the clip's native rate
func (c *Client) Seek(id uint64, frame int64) error {
	return c.send("seek", seekCommand{Instance: id, Frame: frame})
}

// SetLoop toggles looping on an instance
func (c *Client) SetLoop(id uint64, loop bool) error {
	return c.send("set_loop", loopCommand{Instance: id, Loop: loop})
}

// Mute toggles the mute flag on an instance
func (c *Client) Mute(id uint64, muted bool) error {
	return c.send("mute", muteCommand{Instance: id, Muted: muted})
}

// Server returns the gateway identity captured during the handshake
func (c *Client) Server() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Board returns the most recent board push
func (c *Client) Board() Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// send writes one command frame
func (c *Client) send(msgType string, payload interface{}) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(message{Type: msgType, Payload: payload})
}

// decodePayload converts a decoded JSON payload into a typed struct
func decodePayload(payload interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
