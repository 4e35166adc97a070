package binary

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted numeric Chromium version ("145.0.7632.109"),
// ordered by componentwise integer comparison. Chromium versions are
// not semver: there are no pre-release or build-metadata rules.
type Version []int

// ParseVersion parses a dotted numeric version string. Every component
// must be a non-negative integer; anything else is a configuration
// error.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	v := make(Version, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version format: %q", s)
		}
		v[i] = n
	}

	return v, nil
}

// String returns the dotted form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns 1 if v > other, -1 if v < other, 0 if equal.
// Missing components compare as zero, so "145.0" == "145.0.0.0".
func (v Version) Compare(other Version) int {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}

	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}

	return 0
}

// Newer returns true if v is strictly newer than other. Equal versions
// are never an update.
func (v Version) Newer(other Version) bool {
	return v.Compare(other) > 0
}

// versionNewer compares two version strings, returning false if either
// fails to parse. Used only on background paths where a malformed
// remote version must be swallowed, not raised.
func versionNewer(a, b string) bool {
	va, err := ParseVersion(a)
	if err != nil {
		return false
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return false
	}
	return va.Newer(vb)
}
