package binary

import (
	"path/filepath"

	"github.com/cloakhq/cloakfetch/internal/platform"
)

// On-disk names inside the cache root. These are shared with the
// CloakBrowser Python package and must not change.
const (
	versionDirPrefix = "chromium-"
	markerBaseName   = "latest_version"
	stampFileName    = ".last_update_check"
	keyringDirName   = "keys"
)

// Layout derives cache paths from (root, tag, version). Pure path
// construction: nothing here touches the filesystem. Directory creation
// happens only in the installer and marker-writing operations.
type Layout struct {
	Root string
	Tag  platform.Tag
}

// NewLayout creates a cache layout rooted at root for a platform tag.
func NewLayout(root string, tag platform.Tag) Layout {
	return Layout{Root: root, Tag: tag}
}

// BinaryDir returns the install directory for a version,
// e.g. <root>/chromium-145.0.7632.109.
func (l Layout) BinaryDir(version string) string {
	return filepath.Join(l.Root, versionDirPrefix+version)
}

// ExecutablePath returns the expected chrome executable path for a
// version: a flat binary on Linux, a nested app bundle on macOS.
func (l Layout) ExecutablePath(version string) string {
	return filepath.Join(l.BinaryDir(version), platform.ExecutableRelPath(l.Tag))
}

// MarkerPath returns the platform-scoped latest-version marker file.
func (l Layout) MarkerPath() string {
	return filepath.Join(l.Root, markerBaseName+"_"+l.Tag.String())
}

// LegacyMarkerPath returns the unscoped marker written by old releases.
// Read for backward compatibility, never written.
func (l Layout) LegacyMarkerPath() string {
	return filepath.Join(l.Root, markerBaseName)
}

// StampPath returns the rate-limit timestamp file for update checks.
func (l Layout) StampPath() string {
	return filepath.Join(l.Root, stampFileName)
}

// KeyringDir returns the directory holding the optional release signing
// key used to verify checksum manifests.
func (l Layout) KeyringDir() string {
	return filepath.Join(l.Root, keyringDirName)
}
