// Package version identifies the cardex build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the cardex release. Release builds override it with
// -ldflags "-X github.com/rubiojr/cardex/pkg/version.Version=x.y.z".
var Version = "0.4.0"

// Revision returns the short VCS revision stamped by the Go toolchain, or ""
// when the binary was built outside a checkout.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return ""
}

// String describes the build for the version command, e.g.
// "cardex 0.4.0 (3f2a9c1, go1.23.1)".
func String() string {
	if rev := Revision(); rev != "" {
		return fmt.Sprintf("cardex %s (%s, %s)", Version, rev, runtime.Version())
	}
	return fmt.Sprintf("cardex %s (%s)", Version, runtime.Version())
}

// APIVersion is the bare release number reported by the health and info
// endpoints.
func APIVersion() string {
	return Version
}
