// ABOUTME: Library probe tool for cartwall assets
// ABOUTME: Validates audio files and prints format, duration, and classified failures
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cartwall/cartwall-go/internal/library"
	"github.com/cartwall/cartwall-go/internal/version"
)

var (
	dirFlag = flag.String("dir", "", "Probe every file directly under a directory")
	quiet   = flag.Bool("quiet", false, "Print failures only")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	paths := flag.Args()
	if *dirFlag != "" {
		entries, err := os.ReadDir(*dirFlag)
		if err != nil {
			log.Fatalf("read %s: %v", *dirFlag, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(*dirFlag, e.Name()))
		}
	}

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cartwall-probe [-dir path] [-quiet] file...")
		os.Exit(2)
	}

	fmt.Printf("%s probe %s\n\n", version.Product, version.Version)

	lib := library.New()
	failed := 0
	for _, path := range paths {
		clip, err := lib.AddFile(path)
		if err != nil {
			failed++
			reason := err.Error()
			var pe *library.ProbeError
			if errors.As(err, &pe) {
				reason = pe.Reason
			}
			fmt.Printf("FAIL %-32s %s\n", filepath.Base(path), reason)
			continue
		}
		if *quiet {
			continue
		}
		fmt.Printf("ok   %-32s %d Hz, %d ch, %v, %d frames\n",
			clip.Name(), clip.SampleRate(), clip.Channels(),
			clip.Duration().Round(10*time.Millisecond), clip.Frames())
	}

	fmt.Printf("\n%d ok, %d failed\n", len(paths)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
