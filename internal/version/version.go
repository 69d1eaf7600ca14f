// ABOUTME: Build and product identification
// ABOUTME: Version is overridable at link time with -ldflags "-X"
package version

import "fmt"

// Version is the release version, "dev" for local builds
var Version = "dev"

const (
	// Product names the software in logs, mDNS and metrics resources
	Product = "Airwave"

	// Manufacturer is reported alongside Product
	Manufacturer = "Resonate Protocol"
)

// String returns "Airwave <version>"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
