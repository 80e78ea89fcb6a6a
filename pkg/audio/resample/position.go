// ABOUTME: Fixed-point resampling cursor
// ABOUTME: 32.32 positions with an exact per-rate step size
package resample

import "math"

// FracBits is the number of fractional bits carried by a Position
const FracBits = 32

const fracOne = uint64(1) << FracBits

// Position is a fixed-point sample index with FracBits fractional bits
type Position uint64

// Step returns the cursor increment per output frame for a clip whose native
// rate is native played at output. Returns 0 for non-positive rates and for
// native rates that do not fit in 32 bits.
func Step(native, output int) uint64 {
	if native <= 0 || output <= 0 || uint64(native) > math.MaxUint32 {
		return 0
	}
	return uint64(native) << FracBits / uint64(output)
}

// FromSeconds returns the position of round(t*rate) with no fraction.
// Negative times clamp to zero.
func FromSeconds(t float64, rate int) Position {
	if t <= 0 || rate <= 0 || math.IsNaN(t) {
		return 0
	}
	return FromIndex(uint64(math.Round(t * float64(rate))))
}

// FromIndex returns the position of a whole sample index
func FromIndex(index uint64) Position {
	return Position(index << FracBits)
}

// Index returns the integer sample index under the cursor
func (p Position) Index() uint64 {
	return uint64(p) >> FracBits
}

// Fraction returns the fractional part in [0, 1)
func (p Position) Fraction() float64 {
	return float64(uint64(p)&(fracOne-1)) / float64(fracOne)
}

// Seconds converts the position to seconds at the given rate, keeping the fraction
func (p Position) Seconds(rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return (float64(p.Index()) + p.Fraction()) / float64(rate)
}

// Advance returns the position moved forward by step
func (p Position) Advance(step uint64) Position {
	return Position(uint64(p) + step)
}

// AdvanceN returns the position moved forward by n steps
func (p Position) AdvanceN(step uint64, n int) Position {
	if n <= 0 {
		return p
	}
	return Position(uint64(p) + step*uint64(n))
}
