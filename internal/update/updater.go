package update

import (
	"context"
	"errors"
	"io"
)

// Updater drives the update lifecycle: Check, Download, Install, Reset.
//
// Runtime failures never escape as errors; they move the updater into the
// Failure state. Check and Download block on I/O and must not be called
// concurrently on the same Updater. State and Subscribe are safe from any
// goroutine.
type Updater struct {
	currentVersion string
	source         Source
	downloader     Downloader
	installer      Installer
	matcher        AssetMatcher
	state          *StateCell
}

// Option configures an Updater.
type Option func(*Updater)

// WithAssetMatcher sets the predicate selecting the platform's asset.
// The default accepts every asset.
func WithAssetMatcher(m AssetMatcher) Option {
	return func(u *Updater) {
		if m != nil {
			u.matcher = m
		}
	}
}

// New creates an Updater in the Idle state. A blank currentVersion or a nil
// collaborator is a configuration error.
func New(currentVersion string, source Source, downloader Downloader, installer Installer, opts ...Option) (*Updater, error) {
	if err := requireNonBlank("current version", currentVersion); err != nil {
		return nil, err
	}
	switch {
	case source == nil:
		return nil, requireNonBlank("source", "")
	case downloader == nil:
		return nil, requireNonBlank("downloader", "")
	case installer == nil:
		return nil, requireNonBlank("installer", "")
	}

	u := &Updater{
		currentVersion: currentVersion,
		source:         source,
		downloader:     downloader,
		installer:      installer,
		matcher:        AnyAsset,
		state:          NewStateCell(Idle{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// CurrentVersion returns the version the updater compares releases against.
func (u *Updater) CurrentVersion() string { return u.currentVersion }

// State returns the current state without blocking.
func (u *Updater) State() State { return u.state.Current() }

// Subscribe streams state changes starting with the current state.
// Call cancel to stop receiving; the channel is then closed.
func (u *Updater) Subscribe() (<-chan State, func()) {
	return u.state.Subscribe()
}

// Check fetches releases and selects the first one, newest first, that has
// a matching asset and is newer than the current version. It returns the
// selected release, or nil when up to date or on failure.
func (u *Updater) Check(ctx context.Context) *Release {
	u.set(Checking{})

	releases, err := u.source.FetchReleases(ctx)
	if err != nil {
		u.fail("Failed to check for updates", err)
		return nil
	}

	release, asset, ok := selectRelease(releases, u.currentVersion, u.matcher)
	if !ok {
		logf("no eligible release among %d (current %s)", len(releases), u.currentVersion)
		u.set(UpToDate{})
		return nil
	}

	u.set(UpdateAvailable{Release: release, Asset: asset})
	return &release
}

// Download fetches the asset selected by the last successful Check.
// Outside the UpdateAvailable state it does nothing and returns false.
func (u *Updater) Download(ctx context.Context) (string, bool) {
	available, ok := u.state.Current().(UpdateAvailable)
	if !ok {
		return "", false
	}

	asset := available.Asset
	u.set(Downloading{Progress: 0, BytesDone: 0, BytesTotal: asset.Size})

	path, err := u.downloader.Download(ctx, asset.DownloadURL, asset.Name, func(done, total int64) {
		u.state.Set(Downloading{
			Progress:   progressOf(done, total),
			BytesDone:  done,
			BytesTotal: total,
		})
	})
	if err != nil {
		u.fail("Download failed", err)
		return "", false
	}

	u.set(ReadyToInstall{Path: path})
	return path, true
}

// Install hands path to the installer. An empty path means the path held
// by the ReadyToInstall state; with neither available Install is a no-op.
// The state is left unchanged on success.
func (u *Updater) Install(path string) bool {
	if path == "" {
		ready, ok := u.state.Current().(ReadyToInstall)
		if !ok {
			return false
		}
		path = ready.Path
	}

	if err := u.installer.Install(path); err != nil {
		u.fail("Install failed", err)
		return false
	}
	return true
}

// Reset returns the updater to Idle.
func (u *Updater) Reset() {
	u.set(Idle{})
}

// Close releases the source when it owns resources and ends every
// subscription.
func (u *Updater) Close() error {
	u.state.closeAll()
	if c, ok := u.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (u *Updater) set(s State) {
	logf("state -> %s", s.Kind())
	u.state.Set(s)
}

func (u *Updater) fail(summary string, err error) {
	logf("%s: %v", summary, err)
	if errors.Is(err, context.Canceled) {
		summary += " (cancelled)"
	}
	u.set(Failure{Message: summary + ": " + err.Error(), Cause: err})
}

// selectRelease scans releases in order and returns the first one whose
// matched asset exists and whose version is newer than current.
func selectRelease(releases []Release, current string, matcher AssetMatcher) (Release, ReleaseAsset, bool) {
	for _, r := range releases {
		asset, ok := r.MatchAsset(matcher)
		if !ok {
			continue
		}
		if IsNewer(current, r.Version) {
			return r, asset, true
		}
	}
	return Release{}, ReleaseAsset{}, false
}
