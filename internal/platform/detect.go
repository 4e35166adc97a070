package platform

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// UnsupportedPlatformError indicates the (OS, architecture) pair has no
// platform tag. This is fatal and non-retryable; there is no fallback.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s %s (supported: %s)",
		e.OS, e.Arch, strings.Join(supportedList(), ", "))
}

// RealDetector implements Detector using the actual runtime platform.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect resolves the current platform to a tag. It uses runtime.GOOS
// and runtime.GOARCH as the source of truth and gopsutil for the raw
// kernel architecture string reported in diagnostics.
//
// If gopsutil fails, ArchRaw falls back to GOARCH; raw arch is
// informational only and never affects tag resolution.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		ArchRaw: runtime.GOARCH,
	}

	if raw, err := host.KernelArch(); err == nil && raw != "" {
		info.ArchRaw = strings.TrimSpace(raw)
	} else if ctx.Err() != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
	}

	tag, err := ResolveTag(info.OS, info.Arch)
	if err != nil {
		return nil, err
	}
	info.Tag = tag

	return info, nil
}

// tagTable maps (GOOS, normalized GOARCH) pairs to platform tags.
var tagTable = map[[2]string]Tag{
	{"linux", "amd64"}:   LinuxX64,
	{"linux", "arm64"}:   LinuxARM64,
	{"darwin", "arm64"}:  DarwinARM64,
	{"darwin", "amd64"}:  DarwinX64,
	{"windows", "amd64"}: Win32X64,
	{"windows", "arm64"}: Win32ARM64,
}

// ResolveTag maps an OS and architecture to a platform tag. Arch accepts
// both GOARCH and raw kernel spellings ("x86_64", "aarch64", "AMD64").
func ResolveTag(os, arch string) (Tag, error) {
	normalized, ok := normalizeArch(arch)
	if !ok {
		return "", &UnsupportedPlatformError{OS: os, Arch: arch}
	}

	tag, ok := tagTable[[2]string{os, normalized}]
	if !ok {
		return "", &UnsupportedPlatformError{OS: os, Arch: arch}
	}

	return tag, nil
}

// normalizeArch folds raw machine strings into GOARCH names.
func normalizeArch(arch string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return "amd64", true
	case "arm64", "aarch64":
		return "arm64", true
	default:
		return "", false
	}
}

// supportedList returns the known OS/arch pairs in stable order for
// error messages.
func supportedList() []string {
	pairs := make([]string, 0, len(tagTable))
	for key := range tagTable {
		pairs = append(pairs, key[0]+"/"+key[1])
	}
	sort.Strings(pairs)
	return pairs
}
