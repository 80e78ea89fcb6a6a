// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders
package encode

import "errors"

// ErrUnsupportedBitDepth is returned for bit depths other than 16 and 24
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth (supported: 16, 24)")

// Encoder encodes interleaved float samples
type Encoder interface {
	// Encode converts samples to encoded audio data
	Encode(samples []float32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
