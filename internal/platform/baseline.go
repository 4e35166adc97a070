package platform

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// baselineVersions pins the minimum Chromium build shipped for each tag.
// Update these entries as new platform builds are released.
var baselineVersions = map[Tag]string{
	LinuxX64:    "145.0.7632.109",
	LinuxARM64:  "145.0.7632.109",
	DarwinARM64: "145.0.7632.109",
	DarwinX64:   "145.0.7632.109",
	Win32X64:    "145.0.7632.109",
	Win32ARM64:  "145.0.7632.109",
}

// availableTags are the tags with pre-built archives published for
// download. Narrower than the set of known tags: win32 builds and
// linux-arm64 are not published yet.
var availableTags = map[Tag]bool{
	LinuxX64:    true,
	DarwinARM64: true,
	DarwinX64:   true,
}

// BaselineVersion returns the pinned baseline Chromium version for a tag.
func BaselineVersion(tag Tag) (string, error) {
	v, ok := baselineVersions[tag]
	if !ok {
		return "", fmt.Errorf("no baseline version for platform tag %q", tag)
	}
	return v, nil
}

// IsAvailable reports whether pre-built archives are published for a tag.
func IsAvailable(tag Tag) bool {
	return availableTags[tag]
}

// AvailableTags returns the tags with published builds, sorted.
func AvailableTags() []string {
	tags := make([]string, 0, len(availableTags))
	for tag := range availableTags {
		tags = append(tags, tag.String())
	}
	sort.Strings(tags)
	return tags
}

// ArchiveName returns the release archive filename for a tag,
// e.g. "cloakbrowser-linux-x64.tar.gz".
func ArchiveName(tag Tag) string {
	return fmt.Sprintf("cloakbrowser-%s.tar.gz", tag)
}

// ExecutableRelPath returns the path of the chrome executable relative
// to a versioned install directory. Flat binary on Linux, app bundle on
// macOS, .exe on Windows.
func ExecutableRelPath(tag Tag) string {
	switch {
	case strings.HasPrefix(tag.String(), "darwin"):
		return filepath.Join("Chromium.app", "Contents", "MacOS", "Chromium")
	case strings.HasPrefix(tag.String(), "win32"):
		return "chrome.exe"
	default:
		return "chrome"
	}
}
