package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"appupdater/internal/debug"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultUserAgent = "appupdater"
	DefaultPageSize  = 10
	DefaultTimeout   = 30 * time.Second

	githubAccept = "application/vnd.github+json"
	maxBodyBytes = 8 << 20
)

var logf = debug.For("update")

// githubRelease mirrors the fields consumed from the GitHub release JSON.
type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Name        *string       `json:"name"`
	Body        *string       `json:"body"`
	PublishedAt *string       `json:"published_at"`
	Prerelease  bool          `json:"prerelease"`
	Draft       bool          `json:"draft"`
	Assets      []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string  `json:"name"`
	BrowserDownloadURL string  `json:"browser_download_url"`
	Size               int64   `json:"size"`
	ContentType        *string `json:"content_type"`
}

// toRelease normalizes a GitHub release into a Release.
func (r githubRelease) toRelease() (Release, error) {
	if strings.TrimSpace(r.TagName) == "" {
		return Release{}, fmt.Errorf("%w: missing tag_name", ErrMalformedRelease)
	}

	rel := Release{
		Tag:         r.TagName,
		Version:     versionFromTag(r.TagName),
		Name:        deref(r.Name),
		Changelog:   NoChangelog,
		PublishedAt: deref(r.PublishedAt),
		Prerelease:  r.Prerelease,
		Draft:       r.Draft,
		Assets:      make([]ReleaseAsset, 0, len(r.Assets)),
	}
	if r.Body != nil {
		rel.Changelog = *r.Body
	}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, ReleaseAsset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Size:        max(a.Size, 0),
			ContentType: deref(a.ContentType),
		})
	}
	return rel, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GitHubSource is a Source backed by the GitHub Releases API.
//
// The HTTP client is owned by the source: call Close once it is no longer
// needed. A closed source fails every fetch with ErrSourceClosed.
type GitHubSource struct {
	owner              string
	repo               string
	includePreReleases bool
	baseURL            string
	userAgent          string
	token              string
	pageSize           int
	httpClient         *http.Client
	timeout            time.Duration
	closed             atomic.Bool
}

// SourceOption configures a GitHubSource.
type SourceOption func(*GitHubSource)

// WithPreReleases lists recent releases (pre-releases included) instead of
// asking for the single latest release.
func WithPreReleases(include bool) SourceOption {
	return func(s *GitHubSource) {
		s.includePreReleases = include
	}
}

// WithHTTPClient sets a custom HTTP client for the source.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *GitHubSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout. A client passed with
// WithHTTPClient is copied rather than modified.
func WithTimeout(timeout time.Duration) SourceOption {
	return func(s *GitHubSource) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithBaseURL points the source at a different API root, such as a GitHub
// Enterprise instance.
func WithBaseURL(base string) SourceOption {
	return func(s *GitHubSource) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			s.baseURL = base
		}
	}
}

// WithUserAgent overrides the User-Agent header. Blank values are ignored.
func WithUserAgent(ua string) SourceOption {
	return func(s *GitHubSource) {
		if ua = strings.TrimSpace(ua); ua != "" {
			s.userAgent = ua
		}
	}
}

// WithToken authenticates requests, which raises the API rate limit.
func WithToken(token string) SourceOption {
	return func(s *GitHubSource) {
		s.token = strings.TrimSpace(token)
	}
}

// WithPageSize sets how many releases are requested in pre-release mode.
func WithPageSize(n int) SourceOption {
	return func(s *GitHubSource) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewGitHubSource creates a source for owner/repo.
// Blank owner or repo is a configuration error.
func NewGitHubSource(owner, repo string, opts ...SourceOption) (*GitHubSource, error) {
	if err := requireNonBlank("owner", owner); err != nil {
		return nil, err
	}
	if err := requireNonBlank("repo", repo); err != nil {
		return nil, err
	}

	s := &GitHubSource{
		owner:     strings.TrimSpace(owner),
		repo:      strings.TrimSpace(repo),
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		pageSize:  DefaultPageSize,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout > 0 && s.httpClient.Timeout != s.timeout {
		c := *s.httpClient
		c.Timeout = s.timeout
		s.httpClient = &c
	}
	return s, nil
}

// Owner returns the repository owner.
func (s *GitHubSource) Owner() string { return s.owner }

// Repo returns the repository name.
func (s *GitHubSource) Repo() string { return s.repo }

// IncludesPreReleases reports whether the source lists pre-releases.
func (s *GitHubSource) IncludesPreReleases() bool { return s.includePreReleases }

// FetchReleases implements Source.
func (s *GitHubSource) FetchReleases(ctx context.Context) ([]Release, error) {
	if s.closed.Load() {
		return nil, sourceError("fetch releases", ErrSourceClosed)
	}

	if !s.includePreReleases {
		var raw githubRelease
		if err := s.getJSON(ctx, s.releasesURL()+"/latest", &raw); err != nil {
			return nil, err
		}
		rel, err := raw.toRelease()
		if err != nil {
			return nil, sourceError("parse latest release", err)
		}
		return []Release{rel}, nil
	}

	var raw []githubRelease
	listURL := fmt.Sprintf("%s?per_page=%d", s.releasesURL(), s.pageSize)
	if err := s.getJSON(ctx, listURL, &raw); err != nil {
		return nil, err
	}

	releases := make([]Release, 0, len(raw))
	for _, r := range raw {
		if r.Draft {
			continue
		}
		rel, err := r.toRelease()
		if err != nil {
			return nil, sourceError("parse release list", err)
		}
		releases = append(releases, rel)
	}
	return releases, nil
}

// Close releases the idle connections held by the source's HTTP client.
// Calling Close more than once is a no-op.
func (s *GitHubSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *GitHubSource) releasesURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/releases", s.baseURL, url.PathEscape(s.owner), url.PathEscape(s.repo))
}

// getJSON performs a GET against the API and decodes a 2xx body into out.
func (s *GitHubSource) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sourceError("create request", err)
	}
	req.Header.Set("Accept", githubAccept)
	req.Header.Set("User-Agent", s.userAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	logf("GET %s", endpoint)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return sourceError("fetch releases", fmt.Errorf("%w: %w", ErrNetworkFailure, err))
	}
	defer func() { _ = resp.Body.Close() }()
	logf("GET %s -> %d", endpoint, resp.StatusCode)

	if isRateLimited(resp) {
		if wait, ok := rateLimitWait(resp.Header, time.Now()); ok {
			return sourceError("fetch releases", fmt.Errorf("%w, try again in %s", ErrRateLimited, wait.Round(time.Second)))
		}
		return sourceError("fetch releases", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sourceError("fetch releases", fmt.Errorf("%w: status %d", ErrNetworkFailure, resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return sourceError("decode response", fmt.Errorf("%w: %v", ErrMalformedRelease, err))
	}
	return nil
}

func isRateLimited(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0"
	}
	return false
}

// rateLimitWait reads X-RateLimit-Reset (epoch seconds) and reports how long
// until the limit resets.
func rateLimitWait(h http.Header, now time.Time) (time.Duration, bool) {
	raw := strings.TrimSpace(h.Get("X-RateLimit-Reset"))
	if raw == "" {
		return 0, false
	}
	reset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	wait := time.Unix(reset, 0).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}
