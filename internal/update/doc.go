// Package update checks a release channel for newer versions, downloads the
// matching asset and hands it to a platform installer.
//
// This package handles:
//   - Comparing dotted version strings (Compare, IsNewer)
//   - Listing releases from GitHub (GitHubSource) behind the Source interface
//   - Selecting the first asset accepted by an AssetMatcher
//   - Driving the check/download/install lifecycle (Updater) and publishing
//     each State to any number of subscribers
//
// The package is isolated from UI concerns: observers read Updater.State or
// range over Updater.Subscribe and render however they want.
//
// Example usage:
//
//	u, err := update.NewGitHub("owner", "repo", currentVersion)
//	if err != nil {
//	    // configuration error
//	}
//	defer u.Close()
//
//	if release := u.Check(ctx); release != nil {
//	    if path, ok := u.Download(ctx); ok {
//	        u.Install(path)
//	    }
//	}
//	if f, ok := u.State().(update.Failure); ok {
//	    // show f.Message
//	}
package update
