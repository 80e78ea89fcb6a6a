// ABOUTME: Command-line remote for a running nrplayback engine
// ABOUTME: Finds the engine via mDNS or -server and sends one control command
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/notreaper/nrplayback/internal/discovery"
	"github.com/notreaper/nrplayback/internal/protocol"
	"github.com/notreaper/nrplayback/internal/remote"
)

var (
	serverAddr = flag.String("server", "", "Engine address host:port (skip mDNS)")
	name       = flag.String("name", "nr-remote", "Client name")
	wait       = flag.Duration("wait", 2*time.Second, "How long to wait for the engine's reply")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: nr-remote [flags] <command> [args]

Commands:
  status
  load <song|left|right> <path>
  play <tick>
  play-seconds <seconds>
  stop
  preview <tick> <duration-ticks>
  volume <song|left|right|preview> <0..1>
  metronome <on|off>

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	addr := *serverAddr
	if addr == "" {
		engines, err := discovery.Browse(3 * time.Second)
		if err != nil || len(engines) == 0 {
			log.Fatalf("No engine found (use -server): %v", err)
		}
		addr = net.JoinHostPort(engines[0].Host, strconv.Itoa(engines[0].Port))
		log.Printf("Using engine %s at %s", engines[0].Name, addr)
	}

	c := remote.NewClient(remote.ClientConfig{ServerAddr: addr, Name: *name})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	// drain the state pushed on connect
	select {
	case <-c.States:
	case <-time.After(*wait):
	}

	if err := run(c, args); err != nil {
		log.Fatalf("%v", err)
	}

	select {
	case st := <-c.States:
		printState(st)
	case e := <-c.Errors:
		log.Fatalf("Engine rejected %s: %s", e.Error, e.Message)
	case <-time.After(*wait):
		log.Fatalf("No reply from engine")
	}
}

func run(c *remote.RemoteClient, args []string) error {
	need := func(n int) error {
		if len(args) != n+1 {
			return fmt.Errorf("%s takes %d argument(s)", args[0], n)
		}
		return nil
	}

	switch args[0] {
	case "status":
		return nil
	case "load":
		if err := need(2); err != nil {
			return err
		}
		return c.Load(args[1], args[2])
	case "play":
		if err := need(1); err != nil {
			return err
		}
		tick, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tick: %w", err)
		}
		return c.Play(tick)
	case "play-seconds":
		if err := need(1); err != nil {
			return err
		}
		secs, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid seconds: %w", err)
		}
		return c.PlaySeconds(secs)
	case "stop":
		return c.Stop()
	case "preview":
		if err := need(2); err != nil {
			return err
		}
		tick, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tick: %w", err)
		}
		d, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		return c.Preview(tick, d)
	case "volume":
		if err := need(2); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(args[2], 32)
		if err != nil {
			return fmt.Errorf("invalid volume: %w", err)
		}
		return c.SetVolume(args[1], float32(v))
	case "metronome":
		if err := need(1); err != nil {
			return err
		}
		return c.SetMetronome(args[1] == "on" || args[1] == "true")
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printState(st protocol.EngineState) {
	state := "stopped"
	if st.Playing {
		state = "playing"
	}
	fmt.Printf("%s at %.3fs / %.3fs, %.2f BPM, metronome %v, sync %s\n",
		state, st.LogicalTime, st.SongLength, st.BPM, st.MetronomeEnabled, st.SyncQuality)
	for _, track := range []string{"song", "left", "right", "preview"} {
		fmt.Printf("  %-8s %.2f\n", track, st.Volumes[track])
	}
}
