// ABOUTME: Headless drift report for the playback engine
// ABOUTME: Plays a silent song through the headless output and compares clock and cursor time
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/notreaper/nrplayback/pkg/audio/output"
	"github.com/notreaper/nrplayback/pkg/audio/resample"
	"github.com/notreaper/nrplayback/pkg/playback"
)

var (
	native  = flag.Int("native", 44100, "Song sample rate")
	outRate = flag.Int("output", 48000, "Device sample rate")
	minutes = flag.Float64("minutes", 10, "Minutes of playback to simulate")
	buffer  = flag.Int("buffer", 480, "Frames per callback")
	every   = flag.Float64("every", 1, "Seconds of audio between divergence samples")
	debug   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if *native <= 0 || *outRate <= 0 || *buffer <= 0 || *minutes <= 0 {
		log.Fatalf("native, output, buffer and minutes must be positive")
	}

	fmt.Println("=== Playback Drift Report ===")
	fmt.Printf("Song %dHz -> device %dHz, %d-frame callbacks, %.1f minutes\n", *native, *outRate, *buffer, *minutes)

	step := resample.Step(*native, *outRate)
	exact := float64(*native) / float64(*outRate)
	stepErr := (float64(step)/float64(uint64(1)<<resample.FracBits) - exact) / exact
	fmt.Printf("Fixed-point step %d (error %+.6f ppm)\n", step, stepErr*1e6)

	session, err := playback.NewSession(playback.Config{SampleRate: *outRate, Debug: *debug}, nil)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	// mono silence long enough to outlast the run
	songFrames := int(math.Ceil((*minutes*60 + 1) * float64(*native)))
	if err := session.LoadTrack(make([]float32, songFrames), 1, *native, playback.Song); err != nil {
		log.Fatalf("Failed to load song: %v", err)
	}

	out := output.NewHeadless()
	if err := out.Open(*outRate, playback.DefaultChannels, session.Process); err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	defer out.Close()

	session.PlaySeconds(0)

	start := time.Now()
	total := int(*minutes * 60 * float64(*outRate))
	sampleEvery := int(*every * float64(*outRate))
	nextSample := sampleEvery
	var report playback.DivergenceReport

	for rendered := 0; rendered < total; rendered += *buffer {
		out.Render(min(*buffer, total-rendered))
		if rendered+*buffer >= nextSample {
			report = session.Divergence()
			nextSample += sampleEvery
		}
	}
	report = session.Divergence()

	logical := session.GetLogicalTime()
	clock := session.ClockTime()
	oneSample := 1 / float64(*outRate)

	// the cursor is exact integer arithmetic, so it must land on the
	// closed-form position
	predicted := resample.Position(0).AdvanceN(step, total).Seconds(*native)

	fmt.Println()
	fmt.Printf("Cursor time:    %.6fs (predicted %.6fs)\n", logical, predicted)
	if logical != predicted {
		fmt.Printf("WARNING: cursor left its fixed-point path by %+.9fs\n", logical-predicted)
	}
	fmt.Printf("Clock time:     %.6fs\n", clock)
	fmt.Printf("Final delta:    %+.3fms (%.2f device samples)\n", (clock-logical)*1000, (clock-logical)/oneSample)
	fmt.Printf("Max divergence: %.3fms over %d samples\n", report.Max*1000, report.Samples)
	fmt.Printf("Smoothed drift: %+.3f ppm\n", report.Drift*1e6)
	fmt.Printf("Quality:        %v\n", report.Quality)
	fmt.Printf("Rendered in %v\n", time.Since(start).Round(time.Millisecond))
}
