// Package binary downloads, verifies, installs, and updates the
// patched Chromium build that CloakBrowser launches.
//
// The entry point is Manager.EnsureBinary: it returns the path to a
// runnable chrome executable, downloading and installing the archive
// for the current platform on a cache miss. Installed versions live
// under the cache root in chromium-<version>/ directories; small marker
// files record the newest auto-downloaded version per platform tag.
//
// Downloads go to a private temp file, are verified against the
// release's SHA256SUMS manifest, and only then extracted into the
// versioned directory, so a partially fetched or corrupt archive is
// never observable in the cache. After a successful ensure, a
// rate-limited background goroutine opportunistically checks the
// release index for a newer build and installs it for the next launch.
//
// Installs are serialized across processes by an exclusive lock file
// under the cache root. A process that loses the race waits for the
// winner and reuses its installed version. Locks abandoned by crashed
// processes are broken after the download timeout elapses; the break is
// best-effort, so serialization is not a hard guarantee in the
// pathological case of several waiters all observing the same stale
// lock. Installs stay safe regardless: content moves only through
// verified-archive extraction and atomic marker renames.
package binary
