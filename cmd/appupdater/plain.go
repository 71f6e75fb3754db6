package main

import (
	"context"
	"fmt"
	"io"

	"appupdater/internal/update"
)

// plainUpdater is the part of *update.Updater plain mode drives.
type plainUpdater interface {
	subscriber
	CurrentVersion() string
	State() update.State
	Check(ctx context.Context) *update.Release
	Download(ctx context.Context) (string, bool)
	Install(path string) bool
}

// runPlain checks once and, with --yes, downloads and installs, printing
// line output. It returns the process exit code.
func runPlain(ctx context.Context, u plainUpdater, w io.Writer, opts runtimeOptions, rec *recorder) int {
	_, _ = fmt.Fprintf(w, "Checking %s for updates...\n", opts.channel())
	u.Check(ctx)
	rec.checked(ctx, u.State())

	var avail update.UpdateAvailable
	switch s := u.State().(type) {
	case update.Failure:
		printFailure(w, s)
		return 1
	case update.UpdateAvailable:
		avail = s
	default:
		printUpToDate(w, u.CurrentVersion())
		return 0
	}

	printRelease(w, u.CurrentVersion(), avail)
	if opts.checkOnly {
		return 0
	}
	if !opts.yes {
		_, _ = fmt.Fprintln(w, "\nRun again with --yes to download and install.")
		return 0
	}

	_, _ = fmt.Fprintln(w)
	reporter := newProgressReporter(w, u, avail.Asset.Name, isTerminal(w))
	path, ok := u.Download(ctx)
	reporter.Stop()
	if !ok {
		if f, isFailure := u.State().(update.Failure); isFailure {
			printFailure(w, f)
		}
		return 1
	}
	rec.downloaded(ctx, avail, path)
	_, _ = fmt.Fprintf(w, "%s %s\n", styleSuccess.Render("Downloaded"), path)

	if !u.Install(path) {
		if f, isFailure := u.State().(update.Failure); isFailure {
			printFailure(w, f)
		}
		return 1
	}
	_, _ = fmt.Fprintln(w, "Installer launched.")
	return 0
}
