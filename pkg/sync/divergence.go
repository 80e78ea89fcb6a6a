// ABOUTME: Divergence tracking between clock time and cursor time
// ABOUTME: Smooths offset and drift and grades the result
package sync

import (
	"log"
	"math"
	"sync"
)

// Quality grades how closely the two time sources agree
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

// String returns the quality name
func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

// DegradedThreshold is the divergence at which quality drops to Lost
const DegradedThreshold = 0.010 // seconds

// Stats is a snapshot of the tracker
type Stats struct {
	Last    float64 // latest clock minus cursor, seconds
	Max     float64 // largest absolute divergence seen
	Offset  float64 // smoothed divergence
	Drift   float64 // smoothed divergence per second of cursor time
	Samples int
}

// Divergence tracks clock minus cursor over a playback run
type Divergence struct {
	mu            sync.RWMutex
	last          float64
	max           float64
	offset        float64
	drift         float64
	lastCursor    float64
	sampleCount   int
	smoothingRate float64
	debug         bool
}

// NewDivergence creates a tracker
func NewDivergence() *Divergence {
	return &Divergence{smoothingRate: 0.1}
}

// SetDebug enables logging of the first observations
func (d *Divergence) SetDebug(debug bool) {
	d.mu.Lock()
	d.debug = debug
	d.mu.Unlock()
}

// Reset forgets all observations, used when the transport restarts
func (d *Divergence) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last, d.max, d.offset, d.drift, d.lastCursor = 0, 0, 0, 0, 0
	d.sampleCount = 0
}

// Observe records one pair of readings taken at the same instant
func (d *Divergence) Observe(clock, cursor float64) {
	residual := clock - cursor

	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = residual
	if a := math.Abs(residual); a > d.max {
		d.max = a
	}

	if d.sampleCount == 0 {
		d.offset = residual
		d.lastCursor = cursor
		d.sampleCount++
		if d.debug {
			log.Printf("Divergence baseline: %.6fs at %.3fs", residual, cursor)
		}
		return
	}

	dt := cursor - d.lastCursor
	if dt <= 0 {
		return
	}

	predicted := d.offset + d.drift*dt
	err := residual - predicted
	d.offset = predicted + d.smoothingRate*err
	d.drift += d.smoothingRate * err / dt
	d.lastCursor = cursor
	d.sampleCount++

	if d.debug && d.sampleCount < 10 {
		log.Printf("Divergence #%d: residual=%.6fs, offset=%.6fs, drift=%.9f",
			d.sampleCount, residual, d.offset, d.drift)
	}
}

// Stats returns a snapshot
func (d *Divergence) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Last:    d.last,
		Max:     d.max,
		Offset:  d.offset,
		Drift:   d.drift,
		Samples: d.sampleCount,
	}
}

// Quality grades the latest divergence against one output sample period
func (d *Divergence) Quality(outputRate int) Quality {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if outputRate <= 0 {
		return QualityLost
	}
	a := math.Abs(d.last)
	switch {
	case a <= 1/float64(outputRate):
		return QualityGood
	case a <= DegradedThreshold:
		return QualityDegraded
	default:
		return QualityLost
	}
}
