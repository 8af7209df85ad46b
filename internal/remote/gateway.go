// ABOUTME: WebSocket gateway exposing engine commands to remote pads
// ABOUTME: Accepts JSON command frames and broadcasts board state on a fixed cadence
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cartwall/cartwall-go/internal/discovery"
	"github.com/cartwall/cartwall-go/internal/engine"
	"github.com/cartwall/cartwall-go/internal/library"
	"github.com/cartwall/cartwall-go/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultListenAddr is used when the config leaves the address empty
	DefaultListenAddr = ":8735"

	// BroadcastInterval is the board-state push cadence
	BroadcastInterval = 100 * time.Millisecond
)

// Config configures the remote gateway
type Config struct {
	// ListenAddr is the host:port to serve on (default ":8735")
	ListenAddr string

	// Name identifies this gateway to pads and in mDNS
	Name string

	// Advertise announces the gateway over mDNS
	Advertise bool

	// Debug enables verbose logging
	Debug bool
}

// Gateway serves the remote pad protocol on top of an engine and library
type Gateway struct {
	config   Config
	serverID string

	eng *engine.Engine
	lib *library.Library

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// client represents a connected pad (internal)
type client struct {
	ID   string
	Name string
	conn *websocket.Conn

	// Output channel for frames
	sendChan chan Message
}

// ClientInfo describes a connected pad
type ClientInfo struct {
	ID   string
	Name string
}

// New creates a gateway serving the given engine and library
func New(eng *engine.Engine, lib *library.Library, config Config) (*Gateway, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if lib == nil {
		return nil, fmt.Errorf("library is required")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.Name == "" {
		config.Name = "cartwall"
	}

	g := &Gateway{
		config:   config,
		serverID: uuid.New().String(),
		eng:      eng,
		lib:      lib,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For local network deployments, accept all origins
				// TODO: For production, implement proper origin validation
				return true
			},
		},
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}

	return g, nil
}

// Start serves until Stop is called or the listener fails
func (g *Gateway) Start() error {
	log.Printf("Gateway starting: %s (ID: %s)", g.config.Name, g.serverID)

	if g.config.Advertise {
		g.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: g.config.Name,
			Port:        listenPort(g.config.ListenAddr),
		})

		if err := g.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	g.mux.HandleFunc("/cartwall", g.handleWebSocket)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.broadcastBoard()
	}()

	log.Printf("Gateway listening on %s", g.config.ListenAddr)

	g.httpServer = &http.Server{
		Addr:    g.config.ListenAddr,
		Handler: g.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := g.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-g.stopChan:
		log.Printf("Gateway shutting down...")
	case err := <-errChan:
		log.Printf("Gateway HTTP server error: %v", err)
		return err
	}

	g.shutdownMu.Lock()
	g.isShutdown = true
	g.shutdownMu.Unlock()

	if g.mdnsManager != nil {
		g.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Gateway HTTP server shutdown error: %v", err)
	}

	// Shutdown does not close upgraded connections. Closing them makes
	// each read loop fail, which unregisters the client and releases its
	// writer.
	g.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(g.clients))
	for _, c := range g.clients {
		conns = append(conns, c.conn)
	}
	g.clientsMu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	g.wg.Wait()
	log.Printf("Gateway stopped cleanly")

	return nil
}

// Stop stops the gateway
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopChan)
	})
}

// Clients returns information about all connected pads
func (g *Gateway) Clients() []ClientInfo {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()

	clients := make([]ClientInfo, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, ClientInfo{ID: c.ID, Name: c.Name})
	}

	return clients
}

// broadcastBoard pushes board state to every pad on a fixed cadence
func (g *Gateway) broadcastBoard() {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.clientsMu.RLock()
			if len(g.clients) == 0 {
				g.clientsMu.RUnlock()
				continue
			}
			board := g.buildBoard()
			for _, c := range g.clients {
				if err := g.sendMessage(c, "board", board); err != nil && g.config.Debug {
					log.Printf("Error sending board to %s: %v", c.Name, err)
				}
			}
			g.clientsMu.RUnlock()
		case <-g.stopChan:
			return
		}
	}
}

// buildBoard assembles the current library and engine state
func (g *Gateway) buildBoard() BoardState {
	clips := g.lib.List()

	board := BoardState{
		Degraded:  g.eng.Degraded(),
		Clips:     make([]BoardClip, 0, len(clips)),
		Instances: make([]BoardInstance, 0),
	}

	for _, clip := range clips {
		board.Clips = append(board.Clips, BoardClip{
			ID:         clip.ID(),
			Name:       clip.Name(),
			DurationMs: clip.Duration().Milliseconds(),
		})
	}

	for _, st := range g.eng.Snapshot() {
		board.Instances = append(board.Instances, BoardInstance{
			ID:         st.ID,
			Clip:       st.Clip,
			State:      st.State.String(),
			Position:   st.Position,
			Length:     st.Length,
			SampleRate: st.SampleRate,
			Volume:     st.Volume,
			Muted:      st.Muted,
			Loop:       st.Loop,
			Failure:    st.Failure,
		})
	}

	return board
}

// handleWebSocket handles WebSocket connections
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	g.handleConnection(conn)
}

// handleConnection manages a pad connection
func (g *Gateway) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	g.shutdownMu.RLock()
	if g.isShutdown {
		g.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	g.shutdownMu.RUnlock()

	// First frame must be the hello
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != "hello" {
		log.Printf("Expected hello, got %s", msg.Type)
		return
	}

	var hello ClientHello
	if err := decodePayload(msg.Payload, &hello); err != nil {
		log.Printf("Error unmarshaling client hello: %v", err)
		return
	}

	if hello.ClientID == "" || hello.Name == "" {
		log.Printf("Client hello missing required fields")
		return
	}

	log.Printf("Pad hello: %s (ID: %s)", hello.Name, hello.ClientID)

	c := &client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		conn:     conn,
		sendChan: make(chan Message, 100),
	}

	g.clientsMu.Lock()
	if _, exists := g.clients[hello.ClientID]; exists {
		g.clientsMu.Unlock()
		log.Printf("Client ID %s already connected, rejecting duplicate", hello.ClientID)
		return
	}
	g.clients[c.ID] = c
	g.clientsMu.Unlock()

	defer func() {
		g.removeClient(c)
		log.Printf("Pad disconnected: %s", c.Name)
	}()

	serverHello := ServerHello{
		ServerID: g.serverID,
		Name:     g.config.Name,
		Product:  version.Product,
		Version:  version.Version,
	}

	if err := g.sendMessage(c, "hello", serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	// Paint the pad immediately rather than waiting for the next tick
	g.sendMessage(c, "board", g.buildBoard())

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.clientWriter(c)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		g.handleClientMessage(c, data)
	}
}

// clientWriter sends frames to the pad
func (g *Gateway) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage dispatches one command frame from a pad
func (g *Gateway) handleClientMessage(c *client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "trigger":
		g.handleTrigger(c, msg.Payload)
	case "stop":
		g.handleInstanceCommand(c, msg.Type, msg.Payload, g.eng.Stop)
	case "pause":
		g.handleInstanceCommand(c, msg.Type, msg.Payload, g.eng.Pause)
	case "resume":
		g.handleInstanceCommand(c, msg.Type, msg.Payload, g.eng.Resume)
	case "stop_all":
		g.eng.StopAll()
	case "pause_all":
		g.eng.PauseAll()
	case "resume_all":
		g.eng.ResumeAll()
	case "set_volume":
		var cmd VolumeCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			g.sendError(c, msg.Type, err)
			return
		}
		if err := g.eng.SetVolume(cmd.Instance, cmd.Volume); err != nil {
			g.sendError(c, msg.Type, err)
		}
	case "seek":
		var cmd SeekCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			g.sendError(c, msg.Type, err)
			return
		}
		if err := g.eng.Seek(cmd.Instance, cmd.Frame); err != nil {
			g.sendError(c, msg.Type, err)
		}
	case "set_loop":
		var cmd LoopCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			g.sendError(c, msg.Type, err)
			return
		}
		if err := g.eng.SetLoop(cmd.Instance, cmd.Loop); err != nil {
			g.sendError(c, msg.Type, err)
		}
	case "mute":
		var cmd MuteCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			g.sendError(c, msg.Type, err)
			return
		}
		if err := g.eng.Mute(cmd.Instance, cmd.Muted); err != nil {
			g.sendError(c, msg.Type, err)
		}
	default:
		if g.config.Debug {
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

// handleTrigger resolves the clip and spawns an instance
func (g *Gateway) handleTrigger(c *client, payload interface{}) {
	var cmd TriggerCommand
	if err := decodePayload(payload, &cmd); err != nil {
		g.sendError(c, "trigger", err)
		return
	}

	clip, ok := g.lib.Get(cmd.Clip)
	if !ok {
		clip, ok = g.lib.ByName(cmd.Clip)
	}
	if !ok {
		g.sendError(c, "trigger", fmt.Errorf("unknown clip: %q", cmd.Clip))
		return
	}

	volume := 1.0
	if cmd.Volume != nil {
		volume = *cmd.Volume
	}

	if _, err := g.eng.Trigger(clip, volume, cmd.Loop); err != nil {
		g.sendError(c, "trigger", err)
	}
}

// handleInstanceCommand runs a single-instance engine command
func (g *Gateway) handleInstanceCommand(c *client, request string, payload interface{}, run func(uint64) error) {
	var cmd InstanceCommand
	if err := decodePayload(payload, &cmd); err != nil {
		g.sendError(c, request, err)
		return
	}

	if err := run(cmd.Instance); err != nil {
		g.sendError(c, request, err)
	}
}

// removeClient removes a pad
func (g *Gateway) removeClient(c *client) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	delete(g.clients, c.ID)
	close(c.sendChan)
}

// sendMessage queues a frame for a pad
func (g *Gateway) sendMessage(c *client, msgType string, payload interface{}) error {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendError reports a failed command back to the pad
func (g *Gateway) sendError(c *client, request string, err error) {
	log.Printf("Command %s from %s failed: %v", request, c.Name, err)
	g.sendMessage(c, "error", CommandError{Request: request, Reason: err.Error()})
}

// decodePayload converts a decoded JSON payload into a typed command
func decodePayload(payload interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// listenPort extracts the TCP port from a listen address
func listenPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 8735
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 8735
	}
	return port
}
