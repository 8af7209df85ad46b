// ABOUTME: Wire types for the cartwall remote protocol
// ABOUTME: JSON frames over WebSocket between gateway and pads
package remote

// Message is the envelope for all WebSocket frames
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientHello is the first frame a pad must send after connecting
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ServerHello is the gateway's handshake response
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Product  string `json:"product"`
	Version  string `json:"version"`
}

// TriggerCommand starts a new playback instance of a clip.
// Clip matches a library id first, then a display name.
type TriggerCommand struct {
	Clip   string   `json:"clip"`
	Volume *float64 `json:"volume,omitempty"`
	Loop   bool     `json:"loop,omitempty"`
}

// InstanceCommand targets one playback instance (stop, pause, resume)
type InstanceCommand struct {
	Instance uint64 `json:"instance"`
}

// VolumeCommand sets the target volume of an instance
type VolumeCommand struct {
	Instance uint64  `json:"instance"`
	Volume   float64 `json:"volume"`
}

// SeekCommand repositions an instance, frame in the clip's native rate
type SeekCommand struct {
	Instance uint64 `json:"instance"`
	Frame    int64  `json:"frame"`
}

// LoopCommand toggles looping on an instance
type LoopCommand struct {
	Instance uint64 `json:"instance"`
	Loop     bool   `json:"loop"`
}

// MuteCommand toggles the mute flag on an instance
type MuteCommand struct {
	Instance uint64 `json:"instance"`
	Muted    bool   `json:"muted"`
}

// CommandError reports a failed command back to the pad that sent it
type CommandError struct {
	Request string `json:"request"`
	Reason  string `json:"reason"`
}

// BoardState is the periodic state push sent to every connected pad
type BoardState struct {
	Degraded  bool            `json:"degraded"`
	Clips     []BoardClip     `json:"clips"`
	Instances []BoardInstance `json:"instances"`
}

// BoardClip describes one library clip a pad can trigger
type BoardClip struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// BoardInstance mirrors one engine instance. Position and Length are
// native frames at SampleRate.
type BoardInstance struct {
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
