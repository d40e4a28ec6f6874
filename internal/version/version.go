// ABOUTME: Version and product identification
// ABOUTME: Reported in logs, the tap handshake and /status
package version

import "fmt"

// Version is overridden at build time with -ldflags "-X ...version.Version=x.y.z"
var Version = "0.1.0"

const (
	Product      = "LiveEffect"
	Manufacturer = "harperreed"
)

// String returns "Product Version"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
