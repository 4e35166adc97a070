package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

const (
	// archiveTimeout bounds the archive download. The binary is large;
	// allow 10 minutes.
	archiveTimeout = 10 * time.Minute
	// metaTimeout bounds checksum-manifest and release-index fetches.
	metaTimeout = 10 * time.Second
	// userAgent is sent with every request.
	userAgent = "cloakfetch/1.0"
	// releaseQualifierPrefix prefixes the per-version path segment on
	// download hosts and the release tags on the index.
	releaseQualifierPrefix = "chromium-v"
)

// Downloader fetches release archives and checksum manifests with
// primary/fallback URL resolution.
type Downloader struct {
	cfg        *config.Config
	tag        platform.Tag
	client     *http.Client
	keyringDir string
	log        config.Logger

	// fallbackBaseURL is the secondary host tried when the primary
	// fails and no custom base URL is configured.
	fallbackBaseURL string
}

// NewDownloader creates a downloader for a platform tag. keyringDir may
// hold an optional release signing key for manifest verification.
func NewDownloader(cfg *config.Config, tag platform.Tag, keyringDir string) *Downloader {
	log := cfg.Logger
	if log == nil {
		log = config.DefaultLogger()
	}
	return &Downloader{
		cfg: cfg,
		tag: tag,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		keyringDir:      keyringDir,
		log:             log,
		fallbackBaseURL: config.GitHubDownloadBaseURL,
	}
}

// ArchiveURL returns the primary download URL for a version's archive.
func (d *Downloader) ArchiveURL(version string) string {
	return archiveURL(d.cfg.DownloadBaseURL, version, d.tag)
}

func (d *Downloader) fallbackArchiveURL(version string) string {
	return archiveURL(d.fallbackBaseURL, version, d.tag)
}

func archiveURL(base, version string, tag platform.Tag) string {
	return fmt.Sprintf("%s/%s%s/%s", base, releaseQualifierPrefix, version, platform.ArchiveName(tag))
}

// FetchArchive downloads the archive for a version to a private temp
// file and returns its path. The caller owns the file and must remove
// it on every exit path.
//
// The primary URL is tried first; on any failure the fallback host is
// tried — unless a custom download base URL is configured, in which
// case the operator's explicit endpoint choice is respected and the
// failure propagates immediately.
func (d *Downloader) FetchArchive(ctx context.Context, version string) (string, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("cloakbrowser-%s.tar.gz", uuid.NewString()))

	primary := d.ArchiveURL(version)
	if err := d.fetchToFile(ctx, primary, tmpPath, archiveTimeout); err != nil {
		if d.cfg.Custom {
			os.Remove(tmpPath)
			return "", fmt.Errorf("download %s: %w", primary, err)
		}

		d.log.Warn("primary download failed, trying fallback host", "url", primary, "error", err)
		fallback := d.fallbackArchiveURL(version)
		if err := d.fetchToFile(ctx, fallback, tmpPath, archiveTimeout); err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("download %s: %w", fallback, err)
		}
	}

	return tmpPath, nil
}

// fetchToFile downloads url to dest, reporting progress at every
// 10-percentage-point boundary when the server provides a length.
func (d *Downloader) fetchToFile(ctx context.Context, url, dest string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d.log.Info("downloading", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(out, d.progressReader(resp.Body, resp.ContentLength))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write download: %w", err)
	}

	d.log.Info("download complete", "size", humanize.Bytes(uint64(written)))
	return nil
}

// progressReader wraps a response body with 10%-boundary progress
// logging. When total is unknown, percentage reporting is omitted.
func (d *Downloader) progressReader(body io.Reader, total int64) io.Reader {
	if total <= 0 {
		return body
	}
	return &progressReader{
		r:       body,
		total:   total,
		log:     d.log,
		lastPct: -10,
	}
}

type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	lastPct int
	log     config.Logger
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	pct := int(p.read * 100 / p.total)
	if pct >= p.lastPct+10 {
		p.lastPct = pct - pct%10
		p.log.Info("download progress",
			"pct", p.lastPct,
			"done", humanize.Bytes(uint64(p.read)),
			"total", humanize.Bytes(uint64(p.total)))
	}

	return n, err
}
