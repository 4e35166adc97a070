package binary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

// Release is one entry from the GitHub release index.
type Release struct {
	TagName string `json:"tag_name"`
	Draft   bool   `json:"draft"`
	Assets  []struct {
		Name string `json:"name"`
	} `json:"assets"`
}

// ReleaseClient discovers the latest published Chromium version from
// the release index. It never fetches archive content.
type ReleaseClient struct {
	client  *http.Client
	baseURL string
	tag     platform.Tag
	log     config.Logger
}

// NewReleaseClient creates a release-index client for a platform tag.
func NewReleaseClient(tag platform.Tag, log config.Logger) *ReleaseClient {
	if log == nil {
		log = config.DefaultLogger()
	}
	return &ReleaseClient{
		client:  &http.Client{},
		baseURL: config.GitHubReleasesURL,
		tag:     tag,
		log:     log,
	}
}

// LatestVersion returns the newest released version with a pre-built
// archive for this platform, so Linux-only releases are never offered
// to macOS users. "No answer" is an expected, frequent outcome: any
// failure (network, empty index, malformed tags) returns ok=false,
// never an error.
func (c *ReleaseClient) LatestVersion(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, metaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?per_page=10", nil)
	if err != nil {
		c.log.Debug("release index request failed", "error", err)
		return "", false
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("release index fetch failed", "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("release index fetch failed", "error", fmt.Sprintf("status %d", resp.StatusCode))
		return "", false
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		c.log.Debug("release index decode failed", "error", err)
		return "", false
	}

	archive := platform.ArchiveName(c.tag)
	for _, release := range releases {
		if release.Draft || !strings.HasPrefix(release.TagName, releaseQualifierPrefix) {
			continue
		}
		for _, asset := range release.Assets {
			if asset.Name == archive {
				return strings.TrimPrefix(release.TagName, releaseQualifierPrefix), true
			}
		}
	}

	return "", false
}
