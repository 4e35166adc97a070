// Package geoip manages the cached GeoLite2 city database used to
// derive timezone and locale from a proxy's exit IP. The package owns
// acquisition and freshness of the database file; the actual mmdb
// lookup is performed by a caller-supplied Reader.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cloakhq/cloakfetch/internal/config"
)

const (
	// P3TERX mirror of MaxMind GeoLite2-City, no license key needed.
	dbURL = "https://github.com/P3TERX/GeoLite.mmdb/raw/download/GeoLite2-City.mmdb"

	// DatabaseFileName is the on-disk name of the city database.
	DatabaseFileName = "GeoLite2-City.mmdb"

	// dirName is the subdirectory of the cache root holding the database.
	dirName = "geoip"

	refreshInterval = 30 * 24 * time.Hour
	downloadTimeout = 5 * time.Minute
)

// City is the subset of a GeoLite2 city record this package consumes.
type City struct {
	TimeZone   string
	CountryISO string
}

// Reader resolves an IP address to a city record. Implementations
// typically wrap a MaxMind database reader opened on the file that
// Cache.EnsureDatabase returns.
type Reader interface {
	City(ip string) (City, error)
}

// Cache downloads and refreshes the GeoLite2 database under a cache
// root. It is safe for concurrent use by independent instances since
// all writes go through temp-file-then-rename.
type Cache struct {
	dir    string
	url    string
	client *http.Client
	log    config.Logger

	// spawn runs the fire-and-forget refresh; replaced in tests to run
	// synchronously.
	spawn func(func())
}

// NewCache returns a Cache rooted at <cacheRoot>/geoip.
func NewCache(cfg *config.Config) *Cache {
	log := cfg.Logger
	if log == nil {
		log = config.DefaultLogger()
	}
	return &Cache{
		dir:    filepath.Join(cfg.CacheDir, dirName),
		url:    dbURL,
		client: &http.Client{},
		log:    log,
		spawn:  func(fn func()) { go fn() },
	}
}

// DatabasePath returns where the database lives once downloaded.
func (c *Cache) DatabasePath() string {
	return filepath.Join(c.dir, DatabaseFileName)
}

// EnsureDatabase returns the path to a usable GeoLite2-City.mmdb,
// downloading it on first use. When a copy already exists it is
// returned immediately; if it is older than thirty days a background
// re-download is kicked off, and the next call picks up the fresh copy.
func (c *Cache) EnsureDatabase(ctx context.Context) (string, error) {
	path := c.DatabasePath()

	if info, err := os.Stat(path); err == nil {
		c.maybeSpawnRefresh(info.ModTime())
		return path, nil
	}

	if err := c.download(ctx); err != nil {
		return "", fmt.Errorf("downloading GeoIP database: %w", err)
	}
	return path, nil
}

// maybeSpawnRefresh starts a background re-download when the database
// file is stale. Failures are logged and swallowed; the stale copy
// keeps serving lookups.
func (c *Cache) maybeSpawnRefresh(modTime time.Time) {
	if time.Since(modTime) < refreshInterval {
		return
	}
	c.log.Debug("geoip database is stale, refreshing in background")
	c.spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Debug("geoip refresh panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()
		if err := c.download(ctx); err != nil {
			c.log.Debug("background geoip refresh failed", "error", err)
		}
	})
}

// download fetches the database into a temp file in the destination
// directory and renames it into place, so readers never observe a
// partial file.
func (c *Cache) download(ctx context.Context) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	c.log.Info("downloading geoip database", "url", c.url)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", c.url, resp.Status)
	}

	tmp, err := os.CreateTemp(c.dir, DatabaseFileName+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), c.DatabasePath()); err != nil {
		return err
	}
	c.log.Info("geoip database ready",
		"path", c.DatabasePath(), "size", humanize.Bytes(uint64(n)))
	return nil
}
