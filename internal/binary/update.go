package binary

import (
	"context"
	"time"
)

// updateCheckInterval rate-limits the opportunistic background check.
const updateCheckInterval = time.Hour

// maybeSpawnUpdateCheck kicks off the fire-and-forget background update
// check. It never blocks and never surfaces failures: the detached task
// must not worsen the experience of the caller that triggered it.
func (m *Manager) maybeSpawnUpdateCheck() {
	if !m.shouldCheckForUpdate() {
		return
	}

	m.spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Debug("background update panicked", "panic", r)
			}
		}()
		m.backgroundUpdate(context.Background())
	})
}

// shouldCheckForUpdate applies the gating checks that precede any
// network access.
func (m *Manager) shouldCheckForUpdate() bool {
	if !m.cfg.AutoUpdate {
		return false
	}
	// User supplied their own build; no update path applies.
	if m.cfg.LocalBinaryPath != "" {
		return false
	}
	// Self-hosted distributions manage their own updates.
	if m.cfg.Custom {
		return false
	}
	if age, ok := m.store.StampAge(); ok && age < updateCheckInterval {
		return false
	}
	return true
}

// backgroundUpdate checks for and installs a newer build. All failures
// are logged at debug level and swallowed. The comparison is against
// the platform baseline, not the currently effective version: an update
// more than one step ahead is still offered.
func (m *Manager) backgroundUpdate(ctx context.Context) {
	// Record the check timestamp before any network call so a crash
	// mid-check still respects the rate limit.
	if err := m.store.TouchStamp(); err != nil {
		m.log.Debug("update check skipped: cannot record stamp", "error", err)
		return
	}

	latest, ok := m.releases.LatestVersion(ctx)
	if !ok {
		return
	}
	if !versionNewer(latest, m.baseline) {
		return
	}

	if m.store.Has(latest) {
		if err := m.store.MarkLatest(latest); err != nil {
			m.log.Debug("failed to write version marker", "error", err)
		}
		return
	}

	m.log.Info("newer chromium available, downloading in background",
		"latest", latest, "current", m.baseline)

	if err := m.downloadAndInstall(ctx, latest); err != nil {
		m.log.Debug("background update failed", "error", err)
		return
	}
	if err := m.store.MarkLatest(latest); err != nil {
		m.log.Debug("failed to write version marker", "error", err)
		return
	}

	m.log.Info("background update complete, will use on next launch", "version", latest)
}
