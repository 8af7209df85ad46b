// ABOUTME: Entry point for the cartwall board
// ABOUTME: Parses CLI flags and starts the board application
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cartwall/cartwall-go/internal/app"
	"github.com/cartwall/cartwall-go/internal/config"
)

var (
	configPath = flag.String("config", "", "Config file path (YAML)")
	clipDir    = flag.String("dir", "", "Clip directory to scan, in addition to config dirs")
	backend    = flag.String("backend", "", "Audio backend: oto, malgo, portaudio, wavfile, none")
	outputFile = flag.String("output", "", "Mix output path for the wavfile backend")
	listenAddr = flag.String("listen", "", "Gateway listen address (enables the remote gateway)")
	advertise  = flag.Bool("advertise", false, "Announce the gateway over mDNS")
	name       = flag.String("name", "", "Gateway friendly name")
	logFile    = flag.String("log-file", "", "Log file path (default: cartwall.log in TUI mode)")
	headless   = flag.Bool("headless", false, "Disable the TUI, run the gateway and logs only")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg = loaded
	}

	// Flags override the file.
	if *clipDir != "" {
		cfg.Library.Dirs = append(cfg.Library.Dirs, *clipDir)
	}
	if *backend != "" {
		cfg.Audio.Backend = config.Backend(*backend)
	}
	if *outputFile != "" {
		cfg.Audio.OutputFile = *outputFile
	}
	if *listenAddr != "" {
		cfg.Remote.Enabled = true
		cfg.Remote.ListenAddr = *listenAddr
	}
	if *advertise {
		cfg.Remote.Enabled = true
		cfg.Remote.Advertise = true
	}
	if *name != "" {
		cfg.Remote.Name = *name
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	application := app.New(cfg, *headless)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Shutdown signal received")
		application.Stop()
	}()

	if err := application.Run(); err != nil {
		log.Fatalf("cartwall: %v", err)
	}

	log.Printf("Cartwall stopped")
}
