package scheduler

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinNoHyperThreadingVersion is the first hq release with the
// `--no-hyper-threading` flag (it replaced `--cpus=no-ht`).
const MinNoHyperThreadingVersion = "v0.13.0"

// Capabilities holds version dependent behaviour of the hq binary.
// It is resolved once when a scheduler is constructed.
type Capabilities struct {
	Version              string // Canonical semver ("v0.19.0"), empty if unknown
	NoHyperThreadingFlag bool   // alloc add uses --no-hyper-threading instead of --cpus no-ht
}

// DefaultCapabilities assumes a current hq release.
func DefaultCapabilities() Capabilities {
	return Capabilities{NoHyperThreadingFlag: true}
}

// ResolveCapabilities derives Capabilities from an hq version string such as
// "0.19.0", "v0.12.1" or the output of `hq --version` ("hq 0.19.0").
// An empty version yields DefaultCapabilities.
func ResolveCapabilities(version string) (Capabilities, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return DefaultCapabilities(), nil
	}

	canonical, err := CanonicalVersion(version)
	if err != nil {
		return Capabilities{}, err
	}

	return Capabilities{
		Version:              canonical,
		NoHyperThreadingFlag: semver.Compare(canonical, MinNoHyperThreadingVersion) >= 0,
	}, nil
}

// CanonicalVersion normalizes an hq version string to canonical semver form.
func CanonicalVersion(version string) (string, error) {
	v := strings.TrimSpace(version)
	if fields := strings.Fields(v); len(fields) > 1 {
		// "hq 0.19.0"
		v = fields[len(fields)-1]
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	c := semver.Canonical(v)
	if c == "" {
		return "", fmt.Errorf("cannot parse hq version %q", version)
	}
	return c, nil
}

// MajorMinor returns "vMAJOR.MINOR" for a canonical version, empty if unknown.
func (c Capabilities) MajorMinor() string {
	if c.Version == "" {
		return ""
	}
	return semver.MajorMinor(c.Version)
}
