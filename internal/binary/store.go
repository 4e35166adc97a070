package binary

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloakhq/cloakfetch/internal/config"
)

// Store is the value-oriented repository over the shared cache
// directory tree. All mutation goes through remove-then-recreate or
// atomic rename, never in-place patching of an installed tree.
//
// The Store itself does no cross-process coordination: the manager
// serializes installs with a lock file, and marker writes are safe on
// their own because they go through rename.
type Store interface {
	// Has reports whether a version's executable is installed and runnable.
	Has(version string) bool
	// Install extracts a verified archive into the version's directory.
	Install(version, archivePath string) error
	// MarkLatest atomically records version in the platform-scoped marker.
	MarkLatest(version string) error
	// EffectiveVersion returns the newest marker-recorded version that
	// is strictly newer than baseline and actually installed, else baseline.
	EffectiveVersion(baseline string) string
	// TouchStamp records an update-check timestamp, StampAge reads it.
	TouchStamp() error
	StampAge() (time.Duration, bool)
	// Clear removes the entire cache root.
	Clear() error
}

type fsStore struct {
	layout    Layout
	installer *Installer
	log       config.Logger
}

// NewStore creates a filesystem-backed Store.
func NewStore(layout Layout, installer *Installer, log config.Logger) Store {
	if log == nil {
		log = config.DefaultLogger()
	}
	return &fsStore{layout: layout, installer: installer, log: log}
}

func (s *fsStore) Has(version string) bool {
	info, err := os.Stat(s.layout.ExecutablePath(version))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

func (s *fsStore) Install(version, archivePath string) error {
	destDir := s.layout.BinaryDir(version)
	if err := os.MkdirAll(s.layout.Root, 0755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}
	return s.installer.Install(archivePath, destDir)
}

func (s *fsStore) MarkLatest(version string) error {
	if err := os.MkdirAll(s.layout.Root, 0755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	marker := s.layout.MarkerPath()
	tmp := marker + ".tmp"
	if err := os.WriteFile(tmp, []byte(version), 0644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	if err := os.Rename(tmp, marker); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename marker: %w", err)
	}

	return nil
}

func (s *fsStore) EffectiveVersion(baseline string) string {
	// Platform-scoped marker first, then the legacy unscoped one.
	for _, marker := range []string{s.layout.MarkerPath(), s.layout.LegacyMarkerPath()} {
		data, err := os.ReadFile(marker)
		if err != nil {
			continue
		}

		version := strings.TrimSpace(string(data))
		if version == "" || !versionNewer(version, baseline) {
			continue
		}

		// Never trust a marker the filesystem doesn't back.
		if !s.Has(version) {
			s.log.Debug("ignoring marker for missing binary", "marker", marker, "version", version)
			continue
		}

		return version
	}

	return baseline
}

func (s *fsStore) TouchStamp() error {
	if err := os.MkdirAll(s.layout.Root, 0755); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(s.layout.StampPath(), []byte(ts), 0644); err != nil {
		return fmt.Errorf("write update stamp: %w", err)
	}
	return nil
}

func (s *fsStore) StampAge() (time.Duration, bool) {
	data, err := os.ReadFile(s.layout.StampPath())
	if err != nil {
		return 0, false
	}

	// The Python sibling writes the stamp as a float ("1787752391.0");
	// parse as float and truncate so both formats read identically.
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, false
	}

	age := time.Since(time.Unix(int64(secs), 0))
	if age < 0 {
		age = 0
	}
	return age, true
}

func (s *fsStore) Clear() error {
	if err := os.RemoveAll(s.layout.Root); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
