// ABOUTME: Client library for the cartwall remote protocol
// ABOUTME: Lets pads trigger clips and follow board state over WebSocket
// Package cartwall provides a client for cartwall gateways.
//
// A client connects to a running gateway, receives board-state pushes,
// and sends playback commands:
//   - Client: Connect to a gateway, trigger clips, control instances
//   - Board: The clip list and live instance states pushed by the gateway
//
// Example:
//
//	client := cartwall.New(cartwall.Config{
//	    ServerAddr: "localhost:8735",
//	    Name:       "Studio Pad",
//	    OnBoard: func(b cartwall.Board) {
//	        for _, in := range b.Instances {
//	            fmt.Printf("%d %s %s\n", in.ID, in.Clip, in.State)
//	        }
//	    },
//	})
//	err := client.Connect()
//	err = client.Trigger("applause.wav")
package cartwall
