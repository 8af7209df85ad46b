// ABOUTME: Wire types for the cartwall remote protocol, client side
// ABOUTME: JSON shapes match the gateway frame for frame
package cartwall

// message is the envelope for all WebSocket frames
type message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// clientHello opens the handshake
type clientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ServerInfo describes the gateway a client is connected to
type ServerInfo struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Product  string `json:"product"`
	Version  string `json:"version"`
}

// triggerCommand starts a new playback instance
type triggerCommand struct {
	Clip   string   `json:"clip"`
	Volume *float64 `json:"volume,omitempty"`
	Loop   bool     `json:"loop,omitempty"`
}

// instanceCommand targets one playback instance
type instanceCommand struct {
	Instance uint64 `json:"instance"`
}

type volumeCommand struct {
	Instance uint64  `json:"instance"`
	Volume   float64 `json:"volume"`
}

type seekCommand struct {
	Instance uint64 `json:"instance"`
	Frame    int64  `json:"frame"`
}

type loopCommand struct {
	Instance uint64 `json:"instance"`
	Loop     bool   `json:"loop"`
}

type muteCommand struct {
	Instance uint64 `json:"instance"`
	Muted    bool   `json:"muted"`
}

// CommandError is a failed command reported back by the gateway
type CommandError struct {
	Request string `json:"request"`
	Reason  string `json:"reason"`
}

// Board is the gateway's periodic state push
type Board struct {
	Degraded  bool       `json:"degraded"`
	Clips     []Clip     `json:"clips"`
	Instances []Instance `json:"instances"`
}

// Clip describes one library clip the gateway can trigger
type Clip struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// Instance mirrors one engine playback instance. Position and Length
// are native frames at SampleRate.
type Instance struct {
	ID         uint64  `json:"id"`
	Clip       string  `json:"clip"`
	State      string  `json:"state"`
	Position   int64   `json:"position"`
	Length     int64   `json:"length"`
	SampleRate int     `json:"sample_rate"`
	Volume     float64 `json:"volume"`
	Muted      bool    `json:"muted"`
	Loop       bool    `json:"loop"`
	Failure    string  `json:"failure,omitempty"`
}
