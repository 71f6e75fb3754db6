package update

import "context"

// Source loads candidate releases from an update channel.
//
// FetchReleases returns releases newest first. Implementations must fail
// rather than return a partial or silently empty list when the channel
// cannot be read.
type Source interface {
	FetchReleases(ctx context.Context) ([]Release, error)
}
