package update

// githubConfig collects the knobs of NewGitHub.
type githubConfig struct {
	sourceOpts []SourceOption
	matcher    AssetMatcher
	downloader Downloader
	installer  Installer
}

// GitHubOption configures NewGitHub.
type GitHubOption func(*githubConfig)

// WithSourceOptions forwards options to the GitHubSource.
func WithSourceOptions(opts ...SourceOption) GitHubOption {
	return func(c *githubConfig) {
		c.sourceOpts = append(c.sourceOpts, opts...)
	}
}

// WithMatcher replaces the default desktop installer matcher.
func WithMatcher(m AssetMatcher) GitHubOption {
	return func(c *githubConfig) {
		if m != nil {
			c.matcher = m
		}
	}
}

// WithDownloader replaces the default HTTPDownloader.
func WithDownloader(d Downloader) GitHubOption {
	return func(c *githubConfig) {
		if d != nil {
			c.downloader = d
		}
	}
}

// WithInstaller replaces the default DesktopInstaller.
func WithInstaller(i Installer) GitHubOption {
	return func(c *githubConfig) {
		if i != nil {
			c.installer = i
		}
	}
}

// NewGitHub wires an Updater for a GitHub repository with the platform
// defaults: GitHubSource, HTTPDownloader, DesktopInstaller and
// DefaultAssetMatcher. The caller owns the result and must Close it.
func NewGitHub(owner, repo, currentVersion string, opts ...GitHubOption) (*Updater, error) {
	cfg := githubConfig{matcher: DefaultAssetMatcher()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.downloader == nil {
		cfg.downloader = NewHTTPDownloader()
	}
	if cfg.installer == nil {
		cfg.installer = NewDesktopInstaller()
	}

	source, err := NewGitHubSource(owner, repo, cfg.sourceOpts...)
	if err != nil {
		return nil, err
	}
	u, err := New(currentVersion, source, cfg.downloader, cfg.installer, WithAssetMatcher(cfg.matcher))
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return u, nil
}
