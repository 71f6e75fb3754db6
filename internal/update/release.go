package update

import (
	"runtime"
	"strings"
)

// NoChangelog is used when a release carries no body.
const NoChangelog = "No changelog available"

// ReleaseAsset is a single downloadable file attached to a release.
type ReleaseAsset struct {
	Name        string
	DownloadURL string
	Size        int64
	ContentType string
}

// Release is a normalized release entry from an update channel.
type Release struct {
	Tag         string
	Version     string // Tag without a leading "v"
	Name        string
	Changelog   string
	PublishedAt string // ISO-8601, or empty when unknown
	Assets      []ReleaseAsset
	Prerelease  bool
	Draft       bool
}

// AssetMatcher selects the asset names relevant to the running platform.
type AssetMatcher func(name string) bool

// MatchAsset returns the first asset, in listed order, accepted by m.
func (r Release) MatchAsset(m AssetMatcher) (ReleaseAsset, bool) {
	if m == nil {
		m = AnyAsset
	}
	for _, a := range r.Assets {
		if m(a.Name) {
			return a, true
		}
	}
	return ReleaseAsset{}, false
}

// versionFromTag strips a single leading "v" from a release tag.
func versionFromTag(tag string) string {
	v := strings.TrimPrefix(tag, "v")
	if v == "" {
		return tag
	}
	return v
}

// AnyAsset accepts every asset.
func AnyAsset(string) bool { return true }

// MatchExtensions accepts asset names ending in one of exts.
// Matching is case-sensitive, so ".AppImage" must be spelled as published.
func MatchExtensions(exts ...string) AssetMatcher {
	exts = append([]string(nil), exts...)
	return func(name string) bool {
		for _, ext := range exts {
			if ext != "" && strings.HasSuffix(name, ext) {
				return true
			}
		}
		return false
	}
}

// desktopExtensions are installer formats the desktop installer knows how to open.
var desktopExtensions = []string{".msi", ".exe", ".dmg", ".AppImage", ".deb", ".rpm", ".jar"}

// DefaultAssetMatcher accepts the desktop installer formats.
func DefaultAssetMatcher() AssetMatcher {
	return MatchExtensions(desktopExtensions...)
}

// MatchPlatform accepts asset names that mention the given OS/arch pair,
// e.g. "app_linux_amd64.tar.gz" or "app-darwin-arm64".
func MatchPlatform(goos, goarch string) AssetMatcher {
	patterns := buildAssetPatterns(goos, goarch)
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

// CurrentPlatform is MatchPlatform for the running binary.
func CurrentPlatform() AssetMatcher {
	return MatchPlatform(runtime.GOOS, runtime.GOARCH)
}

// buildAssetPatterns returns patterns to match for the given OS/arch.
func buildAssetPatterns(goos, arch string) []string {
	archPatterns := []string{arch}
	switch arch {
	case "amd64":
		archPatterns = append(archPatterns, "x86_64", "x64")
	case "arm64":
		archPatterns = append(archPatterns, "aarch64")
	}

	osPatterns := []string{goos}
	switch goos {
	case "darwin":
		osPatterns = append(osPatterns, "macos", "osx")
	case "windows":
		osPatterns = append(osPatterns, "win")
	}

	var patterns []string
	for _, o := range osPatterns {
		for _, a := range archPatterns {
			patterns = append(patterns, o+"_"+a, o+"-"+a, a+"_"+o, a+"-"+o)
		}
	}
	return patterns
}
