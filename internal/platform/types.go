// Package platform resolves the running OS and CPU architecture to a
// cloakbrowser platform tag and knows which tags have pre-built
// Chromium archives published for them.
//
// The tag is computed once per process and drives archive naming, the
// shape of the executable path inside a versioned install directory,
// and the baseline Chromium version pinned for the platform.
package platform

import "context"

// Tag identifies an OS+architecture combination used for artifact naming.
type Tag string

// Known platform tags. The win32 tags are reserved: they resolve and
// name artifacts correctly but no pre-built archives are published.
const (
	LinuxX64    Tag = "linux-x64"
	LinuxARM64  Tag = "linux-arm64"
	DarwinARM64 Tag = "darwin-arm64"
	DarwinX64   Tag = "darwin-x64"
	Win32X64    Tag = "win32-x64"
	Win32ARM64  Tag = "win32-arm64"
)

// String returns the tag as a plain string.
func (t Tag) String() string {
	return string(t)
}

// Info contains resolved platform information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // normalized: "amd64", "arm64"
	ArchRaw string // raw machine string (e.g. "x86_64", "aarch64")
	Tag     Tag    // resolved platform tag
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Detector is the interface for platform resolution.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
