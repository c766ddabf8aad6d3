// Package version exposes the build version of the sedbatch binary.
package version

// Version is set at build time via -ldflags.
var Version = "dev" //nolint:gochecknoglobals // Set by the linker at build time

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
