// ABOUTME: Remote pad CLI for cartwall gateways
// ABOUTME: Discovers gateways over mDNS and sends trigger and transport commands
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cartwall/cartwall-go/internal/discovery"
	"github.com/cartwall/cartwall-go/pkg/cartwall"
)

var (
	serverAddr = flag.String("server", "", "Gateway address host:port (skip mDNS discovery)")
	padName    = flag.String("name", "cartwall-pad", "Pad name shown to the gateway")
	timeout    = flag.Duration("timeout", 5*time.Second, "Discovery and confirmation timeout")

	list      = flag.Bool("list", false, "List gateways found via mDNS and exit")
	trigger   = flag.String("trigger", "", "Trigger a clip by name or id")
	volume    = flag.Float64("volume", 1.0, "Initial volume for -trigger")
	loop      = flag.Bool("loop", false, "Loop the triggered clip")
	stopID    = flag.Uint64("stop", 0, "Stop one instance by id")
	stopAll   = flag.Bool("stop-all", false, "Stop every instance")
	pauseAll  = flag.Bool("pause-all", false, "Pause every instance")
	resumeAll = flag.Bool("resume-all", false, "Resume every instance")
	watch     = flag.Bool("watch", false, "Stream board updates until interrupted")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *list {
		listGateways()
		return
	}

	addr := *serverAddr
	if addr == "" {
		addr = discoverGateway()
	}

	boards := make(chan cartwall.Board, 4)
	cmdErrs := make(chan cartwall.CommandError, 4)

	client := cartwall.New(cartwall.Config{
		ServerAddr: addr,
		Name:       *padName,
		OnBoard: func(b cartwall.Board) {
			select {
			case boards <- b:
			default:
			}
		},
		OnError: func(e cartwall.CommandError) {
			select {
			case cmdErrs <- e:
			default:
			}
		},
	})

	if err := client.Connect(); err != nil {
		log.Fatalf("connect %s: %v", addr, err)
	}
	defer client.Close()

	server := client.Server()
	fmt.Printf("Connected to %s (%s %s)\n", server.Name, server.Product, server.Version)

	board := waitBoard(boards)

	switch {
	case *trigger != "":
		run(client.TriggerWith(*trigger, *volume, *loop), cmdErrs)
		confirm(boards, len(board.Instances))
	case *stopID != 0:
		run(client.Stop(*stopID), cmdErrs)
	case *stopAll:
		run(client.StopAll(), cmdErrs)
	case *pauseAll:
		run(client.PauseAll(), cmdErrs)
	case *resumeAll:
		run(client.ResumeAll(), cmdErrs)
	case *watch:
		watchBoards(boards)
	default:
		printBoard(board)
	}
}

// listGateways browses mDNS for the discovery window and prints
// everything that answered.
func listGateways() {
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		log.Fatalf("mdns browse: %v", err)
	}

	seen := make(map[string]bool)
	deadline := time.After(*timeout)
	for {
		select {
		case gw := <-mgr.Gateways():
			addr := fmt.Sprintf("%s:%d", gw.Host, gw.Port)
			if seen[addr] {
				continue
			}
			seen[addr] = true
			fmt.Printf("%-30s %s\n", gw.Name, addr)
		case <-deadline:
			if len(seen) == 0 {
				fmt.Println("No gateways found")
			}
			return
		}
	}
}

// discoverGateway returns the first gateway mDNS turns up.
func discoverGateway() string {
	log.Printf("Looking for a gateway...")

	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		log.Fatalf("mdns browse: %v", err)
	}

	select {
	case gw := <-mgr.Gateways():
		addr := fmt.Sprintf("%s:%d", gw.Host, gw.Port)
		log.Printf("Found %s at %s", gw.Name, addr)
		return addr
	case <-time.After(*timeout):
		log.Fatalf("no gateway found after %v; pass -server host:port", *timeout)
		return ""
	}
}

// waitBoard blocks for the first broadcast so commands can be checked
// against real clip and instance state.
func waitBoard(boards <-chan cartwall.Board) cartwall.Board {
	select {
	case b := <-boards:
		return b
	case <-time.After(*timeout):
		log.Fatalf("no board state received after %v", *timeout)
		return cartwall.Board{}
	}
}

// run sends one command and reports the gateway's verdict.
func run(err error, cmdErrs <-chan cartwall.CommandError) {
	if err != nil {
		log.Fatalf("send: %v", err)
	}

	// Rejections come back asynchronously; give the gateway a moment.
	select {
	case e := <-cmdErrs:
		log.Fatalf("gateway rejected %s: %s", e.Request, e.Reason)
	case <-time.After(300 * time.Millisecond):
	}
}

// confirm waits for a broadcast showing the new instance.
func confirm(boards <-chan cartwall.Board, before int) {
	deadline := time.After(*timeout)
	for {
		select {
		case b := <-boards:
			if len(b.Instances) <= before {
				continue
			}
			in := b.Instances[len(b.Instances)-1]
			fmt.Printf("Instance %d: %s %s\n", in.ID, in.Clip, in.State)
			return
		case <-deadline:
			fmt.Println("Sent (no confirmation before timeout)")
			return
		}
	}
}

// watchBoards streams one summary line per broadcast until interrupted.
func watchBoards(boards <-chan cartwall.Board) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case b := <-boards:
			fmt.Println(summarize(b))
		case <-sigChan:
			return
		}
	}
}

// summarize renders one board broadcast as a single line.
func summarize(b cartwall.Board) string {
	if len(b.Instances) == 0 {
		return "idle"
	}

	parts := make([]string, 0, len(b.Instances))
	for _, in := range b.Instances {
		pos := "?"
		if in.SampleRate > 0 {
			pos = fmt.Sprintf("%.1fs", float64(in.Position)/float64(in.SampleRate))
		}
		parts = append(parts, fmt.Sprintf("%d:%s %s @%s", in.ID, in.Clip, in.State, pos))
	}
	line := strings.Join(parts, "  ")
	if b.Degraded {
		line += "  [degraded]"
	}
	return line
}

// printBoard dumps the clip list and live instances once.
func printBoard(b cartwall.Board) {
	fmt.Printf("\nClips (%d):\n", len(b.Clips))
	for _, c := range b.Clips {
		sec := float64(c.DurationMs) / 1000
		fmt.Printf("  %-24s %6.1fs  %s\n", c.Name, sec, c.ID)
	}

	fmt.Printf("\nInstances (%d):\n", len(b.Instances))
	for _, in := range b.Instances {
		fmt.Printf("  %3d %-24s %-8s vol %.2f\n", in.ID, in.Clip, in.State, in.Volume)
	}
	if b.Degraded {
		fmt.Println("\nGateway reports degraded audio output")
	}
}
