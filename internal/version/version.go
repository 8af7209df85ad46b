// ABOUTME: Version and product identity constants
// ABOUTME: Surfaced in logs, the remote hello, and the probe tool banner
package version

const (
	// Version is the cartwall release version
	Version = "0.1.0"

	// Product is the product name announced to remote pads
	Product = "Cartwall"

	// Manufacturer identifies the project
	Manufacturer = "Cartwall Project"
)
