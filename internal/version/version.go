// ABOUTME: Version and product identification
// ABOUTME: Reported in logs, the TUI and the remote server hello
package version

import "fmt"

const (
	Version      = "0.3.0"
	Product      = "NR Playback"
	Manufacturer = "notreaper"
)

// String returns the product name and version, e.g. "NR Playback 0.3.0"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
