package config

// Environment variables recognized by cloakfetch. These are shared with
// the CloakBrowser Python package so both read the same cache.
const (
	// EnvCacheDir overrides the cache root directory.
	EnvCacheDir = "CLOAKBROWSER_CACHE_DIR"
	// EnvDownloadURL points downloads at a self-hosted mirror. Setting
	// it disables the GitHub fallback host and auto-update.
	EnvDownloadURL = "CLOAKBROWSER_DOWNLOAD_URL"
	// EnvBinaryPath points at a locally built chrome executable,
	// bypassing download, verification, and install entirely.
	EnvBinaryPath = "CLOAKBROWSER_BINARY_PATH"
	// EnvAutoUpdate disables background update checks when set to "false".
	EnvAutoUpdate = "CLOAKBROWSER_AUTO_UPDATE"
	// EnvSkipChecksum disables SHA-256 verification when set to "true".
	EnvSkipChecksum = "CLOAKBROWSER_SKIP_CHECKSUM"
)

const (
	// DefaultDownloadBaseURL is the primary download host.
	DefaultDownloadBaseURL = "https://cloakbrowser.dev"
	// GitHubDownloadBaseURL is the fallback download host.
	GitHubDownloadBaseURL = "https://github.com/CloakHQ/cloakbrowser/releases/download"
	// GitHubReleasesURL is the release index endpoint.
	GitHubReleasesURL = "https://api.github.com/repos/CloakHQ/cloakbrowser/releases"

	// DefaultCacheDirName is the cache root under the user home dir.
	DefaultCacheDirName = ".cloakbrowser"
	// ConfigFileName is the optional TOML config file inside the cache root.
	ConfigFileName = "config.toml"
)
