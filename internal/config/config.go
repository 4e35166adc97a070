// Package config consolidates cloakfetch's ambient configuration —
// environment variables plus an optional TOML file in the cache root —
// into one struct resolved once at startup and threaded through
// constructors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all recognized configuration, resolved once.
type Config struct {
	// CacheDir is the cache root (default: ~/.cloakbrowser).
	CacheDir string
	// DownloadBaseURL is the archive download base. Custom reports
	// whether it was explicitly configured, which disables the GitHub
	// fallback host and auto-update.
	DownloadBaseURL string
	Custom          bool
	// LocalBinaryPath, when set, bypasses download/verify/install.
	LocalBinaryPath string
	// AutoUpdate enables the opportunistic background update check.
	AutoUpdate bool
	// VerifyChecksums enables SHA-256 verification of downloads.
	VerifyChecksums bool

	// Logger receives progress and diagnostic output. Never nil after
	// Load/FromEnv.
	Logger Logger
}

// fileConfig mirrors the optional config.toml. Pointer fields
// distinguish "absent" from zero values.
type fileConfig struct {
	CacheDir        *string `toml:"cache_dir"`
	DownloadURL     *string `toml:"download_url"`
	BinaryPath      *string `toml:"binary_path"`
	AutoUpdate      *bool   `toml:"auto_update"`
	VerifyChecksums *bool   `toml:"verify_checksums"`
}

// Load resolves configuration from defaults, then the optional
// config.toml in the cache root, then environment variables (highest
// precedence). A malformed config file is a fatal configuration error.
//
// The config file is looked up in the default or env-derived cache root
// only, before any file settings apply. A cache_dir set in the file
// relocates the cache, but the relocated root's own config.toml is
// never consulted.
func Load(logger Logger) (*Config, error) {
	if logger == nil {
		logger = DefaultLogger()
	}

	cfg := &Config{
		DownloadBaseURL: DefaultDownloadBaseURL,
		AutoUpdate:      true,
		VerifyChecksums: true,
		Logger:          logger,
	}

	root, err := resolveCacheDir()
	if err != nil {
		return nil, err
	}
	cfg.CacheDir = root

	if err := cfg.applyFile(filepath.Join(root, ConfigFileName)); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// FromEnv resolves configuration from the environment only, skipping
// the config file. Used by tests and embedders that manage their own
// file handling.
func FromEnv(logger Logger) (*Config, error) {
	if logger == nil {
		logger = DefaultLogger()
	}

	root, err := resolveCacheDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CacheDir:        root,
		DownloadBaseURL: DefaultDownloadBaseURL,
		AutoUpdate:      true,
		VerifyChecksums: true,
		Logger:          logger,
	}
	cfg.applyEnv()

	return cfg, nil
}

// resolveCacheDir returns the env override or ~/.cloakbrowser.
func resolveCacheDir() (string, error) {
	if custom := os.Getenv(EnvCacheDir); custom != "" {
		return custom, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultCacheDirName), nil
}

// applyFile merges values from the optional TOML config file.
// A missing file is fine; a file that fails to parse is not.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.CacheDir != nil && *fc.CacheDir != "" && os.Getenv(EnvCacheDir) == "" {
		c.CacheDir = *fc.CacheDir
	}
	if fc.DownloadURL != nil && *fc.DownloadURL != "" {
		c.DownloadBaseURL = strings.TrimRight(*fc.DownloadURL, "/")
		c.Custom = true
	}
	if fc.BinaryPath != nil {
		c.LocalBinaryPath = *fc.BinaryPath
	}
	if fc.AutoUpdate != nil {
		c.AutoUpdate = *fc.AutoUpdate
	}
	if fc.VerifyChecksums != nil {
		c.VerifyChecksums = *fc.VerifyChecksums
	}

	return nil
}

// applyEnv merges environment variables over whatever is already set.
func (c *Config) applyEnv() {
	if url := os.Getenv(EnvDownloadURL); url != "" {
		c.DownloadBaseURL = strings.TrimRight(url, "/")
		c.Custom = true
	}
	if path := os.Getenv(EnvBinaryPath); path != "" {
		c.LocalBinaryPath = path
	}
	if strings.EqualFold(os.Getenv(EnvAutoUpdate), "false") {
		c.AutoUpdate = false
	}
	if strings.EqualFold(os.Getenv(EnvSkipChecksum), "true") {
		c.VerifyChecksums = false
	}
}
