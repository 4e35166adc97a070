package binary

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/cloakhq/cloakfetch/internal/platform"
)

// releaseKeyName is the optional armored signing key inside the cache
// root's keys/ directory. When present, SHA256SUMS signatures are
// checked against it.
const releaseKeyName = "release.asc"

// ChecksumError indicates the downloaded archive does not match its
// published SHA-256 digest. Fatal and never retried: the file is
// corrupted or tampered with.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed: expected %s, got %s "+
		"(file may be corrupted or tampered with; retry or report at "+
		"https://github.com/CloakHQ/cloakbrowser/issues)", e.Expected, e.Actual)
}

// VerifyArchive checks archivePath against the version's published
// SHA256SUMS manifest. An unreachable manifest or a manifest without an
// entry for this platform's archive only warns — checksum availability
// is best-effort and must never block installation. A mismatch is fatal.
func (d *Downloader) VerifyArchive(ctx context.Context, archivePath, version string) error {
	manifest, ok := d.fetchManifest(ctx, version)
	if !ok {
		d.log.Warn("SHA256SUMS not available for this release, skipping checksum verification",
			"version", version)
		return nil
	}

	name := platform.ArchiveName(d.tag)
	expected, ok := manifest[name]
	if !ok {
		d.log.Warn("SHA256SUMS has no entry for archive, skipping verification", "archive", name)
		return nil
	}

	actual, err := sha256File(archivePath)
	if err != nil {
		return fmt.Errorf("hash archive: %w", err)
	}

	if !strings.EqualFold(actual, expected) {
		return &ChecksumError{Expected: strings.ToLower(expected), Actual: actual}
	}

	d.log.Info("checksum verified", "archive", name)
	return nil
}

// fetchManifest downloads and parses the SHA256SUMS manifest for a
// version, trying primary then fallback hosts independently of the
// archive fetch. Returns ok=false on any failure.
func (d *Downloader) fetchManifest(ctx context.Context, version string) (map[string]string, bool) {
	urls := []string{manifestURL(d.cfg.DownloadBaseURL, version)}
	if !d.cfg.Custom {
		urls = append(urls, manifestURL(d.fallbackBaseURL, version))
	}

	for _, url := range urls {
		body, err := d.fetchSmall(ctx, url)
		if err != nil {
			d.log.Debug("manifest fetch failed", "url", url, "error", err)
			continue
		}
		d.verifyManifestSignature(ctx, url, body)
		return parseChecksumManifest(string(body)), true
	}

	return nil, false
}

func manifestURL(base, version string) string {
	return fmt.Sprintf("%s/%s%s/SHA256SUMS", base, releaseQualifierPrefix, version)
}

// verifyManifestSignature checks the manifest's detached signature when
// a release key is installed. Degraded-only: a missing key, missing
// signature, or failed check warns and never gates installation.
func (d *Downloader) verifyManifestSignature(ctx context.Context, url string, manifest []byte) {
	keyring, err := d.loadKeyring()
	if err != nil {
		d.log.Debug("no release key installed, skipping manifest signature check", "error", err)
		return
	}

	sig, err := d.fetchSmall(ctx, url+".asc")
	if err != nil {
		d.log.Warn("manifest signature not available", "url", url+".asc", "error", err)
		return
	}

	_, err = openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(manifest), bytes.NewReader(sig), nil)
	if err != nil {
		_, err = openpgp.CheckDetachedSignature(
			keyring, bytes.NewReader(manifest), bytes.NewReader(sig), nil)
	}
	if err != nil {
		d.log.Warn("manifest signature verification failed", "url", url, "error", err)
		return
	}

	d.log.Debug("manifest signature verified", "url", url)
}

// loadKeyring reads the optional armored release key.
func (d *Downloader) loadKeyring() (openpgp.EntityList, error) {
	if d.keyringDir == "" {
		return nil, fmt.Errorf("no keyring directory configured")
	}

	f, err := os.Open(filepath.Join(d.keyringDir, releaseKeyName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		f.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

// fetchSmall downloads a small metadata file (manifest, signature) with
// the short timeout.
func (d *Downloader) fetchSmall(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, metaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// parseChecksumManifest parses "digest whitespace filename" lines.
// A leading "*" on the filename (binary-mode marker) is stripped;
// unparsable lines are skipped, never fatal.
func parseChecksumManifest(text string) map[string]string {
	manifest := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) != 2 {
			continue
		}
		name := strings.TrimPrefix(fields[1], "*")
		manifest[name] = strings.ToLower(fields[0])
	}
	return manifest
}

// sha256File computes the lowercase hex SHA-256 of a file, streamed.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
