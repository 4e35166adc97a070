package binary

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

// issuesURL is pointed at in user-facing failure remediation text.
const issuesURL = "https://github.com/CloakHQ/cloakbrowser/issues"

// NoPrebuiltBinaryError indicates the platform is known but has no
// published archives. Raised before any network I/O.
type NoPrebuiltBinaryError struct {
	Tag platform.Tag
}

func (e *NoPrebuiltBinaryError) Error() string {
	return fmt.Sprintf(
		"pre-built binaries are not available for %s (currently available: %s); "+
			"run in a linux-x64 container, or set %s to a locally built Chromium",
		e.Tag, strings.Join(platform.AvailableTags(), ", "), config.EnvBinaryPath)
}

// Status is a read-only diagnostic snapshot of the installation.
type Status struct {
	Version        string `json:"version"`
	BundledVersion string `json:"bundled_version"`
	Platform       string `json:"platform"`
	ExecutablePath string `json:"executable_path"`
	Installed      bool   `json:"installed"`
	CacheDir       string `json:"cache_dir"`
	DownloadURL    string `json:"download_url"`
}

// Manager orchestrates binary download, verification, installation, and
// the background auto-update protocol.
type Manager struct {
	cfg        *config.Config
	info       *platform.Info
	layout     Layout
	store      Store
	downloader *Downloader
	releases   *ReleaseClient
	log        config.Logger
	baseline   string

	// spawn runs the fire-and-forget update check; replaced in tests
	// to run synchronously.
	spawn func(func())
}

// NewManager creates a manager for the resolved platform.
func NewManager(cfg *config.Config, info *platform.Info) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if info == nil {
		return nil, fmt.Errorf("platform info is required")
	}

	baseline, err := platform.BaselineVersion(info.Tag)
	if err != nil {
		return nil, err
	}
	if _, err := ParseVersion(baseline); err != nil {
		return nil, fmt.Errorf("baseline version for %s: %w", info.Tag, err)
	}

	log := cfg.Logger
	if log == nil {
		log = config.DefaultLogger()
	}

	layout := NewLayout(cfg.CacheDir, info.Tag)
	installer := NewInstaller(info.Tag, log)

	return &Manager{
		cfg:        cfg,
		info:       info,
		layout:     layout,
		store:      NewStore(layout, installer, log),
		downloader: NewDownloader(cfg, info.Tag, layout.KeyringDir()),
		releases:   NewReleaseClient(info.Tag, log),
		log:        log,
		baseline:   baseline,
		spawn:      func(fn func()) { go fn() },
	}, nil
}

// EnsureBinary guarantees a runnable chrome executable is on disk and
// returns its path, downloading and installing on a cache miss. On a
// hit it performs no network I/O beyond the opportunistic,
// rate-limited background update check it spawns before returning.
func (m *Manager) EnsureBinary(ctx context.Context) (string, error) {
	// Local override bypasses download, verification, and install.
	if override := m.cfg.LocalBinaryPath; override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("%s set to %q but file does not exist: %w",
				config.EnvBinaryPath, override, os.ErrNotExist)
		}
		m.log.Info("using local binary override", "path", override)
		return override, nil
	}

	// Fail fast before any network I/O if no build is published.
	if !platform.IsAvailable(m.info.Tag) {
		return "", &NoPrebuiltBinaryError{Tag: m.info.Tag}
	}

	effective := m.store.EffectiveVersion(m.baseline)
	if m.store.Has(effective) {
		m.log.Debug("binary found in cache", "version", effective)
		m.maybeSpawnUpdateCheck()
		return m.layout.ExecutablePath(effective), nil
	}

	m.log.Info("stealth chromium not found, downloading",
		"version", m.baseline, "platform", m.info.Tag)
	if err := m.downloadAndInstall(ctx, m.baseline); err != nil {
		return "", err
	}

	if !m.store.Has(m.baseline) {
		return "", fmt.Errorf(
			"download completed but binary not found at expected path %s; "+
				"this may indicate a packaging issue, please report at %s",
			m.layout.ExecutablePath(m.baseline), issuesURL)
	}

	m.maybeSpawnUpdateCheck()
	return m.layout.ExecutablePath(m.baseline), nil
}

// downloadAndInstall runs the full fetch/verify/install pipeline for a
// version. The temp archive is deleted on every exit path; the
// installed directory is only replaced once the archive is fully
// verified. An exclusive lock under the cache root serializes installs
// across processes; if another process installs the version while we
// wait, its work is reused.
func (m *Manager) downloadAndInstall(ctx context.Context, version string) error {
	lock, err := acquireInstallLock(ctx, m.layout.Root)
	if err != nil {
		return err
	}
	defer lock.Release()

	if m.store.Has(version) {
		m.log.Debug("version installed by concurrent process", "version", version)
		return nil
	}

	archivePath, err := m.downloader.FetchArchive(ctx, version)
	if err != nil {
		return err
	}
	defer os.Remove(archivePath)

	if m.cfg.VerifyChecksums {
		if err := m.downloader.VerifyArchive(ctx, archivePath, version); err != nil {
			return err
		}
	}

	if err := m.store.Install(version, archivePath); err != nil {
		return fmt.Errorf("install %s: %w", version, err)
	}

	m.log.Info("install complete", "version", version, "dir", m.layout.BinaryDir(version))
	return nil
}

// CheckForUpdate synchronously checks the release index for a build
// newer than the platform baseline, downloads and installs it if
// needed, and records it in the version marker. Returns the new
// version, or "" if no update applied. Unlike the background check,
// errors propagate to the caller.
func (m *Manager) CheckForUpdate(ctx context.Context) (string, error) {
	latest, ok := m.releases.LatestVersion(ctx)
	if !ok {
		return "", nil
	}

	latestV, err := ParseVersion(latest)
	if err != nil {
		return "", fmt.Errorf("release index returned malformed version %q: %w", latest, err)
	}
	baseV, _ := ParseVersion(m.baseline)
	if !latestV.Newer(baseV) {
		return "", nil
	}

	if !m.store.Has(latest) {
		m.log.Info("downloading chromium update", "version", latest)
		if err := m.downloadAndInstall(ctx, latest); err != nil {
			return "", err
		}
	}

	if err := m.store.MarkLatest(latest); err != nil {
		return "", err
	}
	return latest, nil
}

// Info returns a diagnostic snapshot of the current installation.
func (m *Manager) Info() Status {
	effective := m.store.EffectiveVersion(m.baseline)
	return Status{
		Version:        effective,
		BundledVersion: m.baseline,
		Platform:       m.info.Tag.String(),
		ExecutablePath: m.layout.ExecutablePath(effective),
		Installed:      m.store.Has(effective),
		CacheDir:       m.layout.BinaryDir(effective),
		DownloadURL:    m.downloader.ArchiveURL(effective),
	}
}

// ClearCache removes all cached binaries, forcing a re-download on the
// next ensure.
func (m *Manager) ClearCache() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.log.Info("cache cleared", "dir", m.layout.Root)
	return nil
}
