// Package update checks GitHub releases for a newer certwizard build.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultAPIURL = "https://api.github.com/repos/certwizard/certwizard/releases/latest"
	cacheFileName = "update_check.json"
	cacheDuration = 1 * time.Hour
)

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
	AssetName      string
	Size           int64
}

// Checker queries the release feed with a small on-disk cache so
// repeated invocations don't hammer the API.
type Checker struct {
	APIURL     string
	CacheDir   string
	HTTPClient *http.Client
}

// NewChecker creates a checker caching under dir.
func NewChecker(dir string) *Checker {
	return &Checker{
		APIURL:     defaultAPIURL,
		CacheDir:   dir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
}

// Check returns update info when a newer release exists, nil when the
// running build is current. Dev builds (non-semver versions) always
// report the latest release so developers see what's out. force skips
// the cache.
func (c *Checker) Check(ctx context.Context, currentVersion string, force bool) (*Info, error) {
	current := canonical(currentVersion)
	dev := current == ""

	if !force {
		if cached, ok := c.loadCache(); ok {
			if !dev && semver.Compare(canonical(cached.Version), current) <= 0 {
				return nil, nil
			}
			// A cached newer version still needs fresh asset data.
		}
	}

	rel, err := c.fetchLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	c.saveCache(rel.TagName)

	if !dev && semver.Compare(canonical(rel.TagName), current) <= 0 {
		return nil, nil
	}

	info := &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  rel.TagName,
	}
	wantAsset := fmt.Sprintf("certwizard_%s_%s_%s.tar.gz",
		strings.TrimPrefix(rel.TagName, "v"), runtime.GOOS, runtime.GOARCH)
	for _, a := range rel.Assets {
		if a.Name == wantAsset {
			info.AssetName = a.Name
			info.Size = a.Size
			info.DownloadURL = a.BrowserDownloadURL
			break
		}
	}
	return info, nil
}

func (c *Checker) fetchLatest(ctx context.Context) (*release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "certwizard-update")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (c *Checker) cachePath() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

func (c *Checker) loadCache() (*cachedCheck, bool) {
	data, err := os.ReadFile(c.cachePath())
	if err != nil {
		return nil, false
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if time.Since(cached.CheckedAt) >= cacheDuration {
		return nil, false
	}
	return &cached, true
}

func (c *Checker) saveCache(version string) {
	data, err := json.Marshal(cachedCheck{CheckedAt: time.Now(), Version: version})
	if err != nil {
		return
	}
	_ = os.MkdirAll(c.CacheDir, 0o755)
	_ = os.WriteFile(c.cachePath(), data, 0o600)
}

// canonical normalizes a version string for comparison. Returns ""
// when the version is not valid semver, which marks a dev build.
func canonical(v string) string {
	v = "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
