package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"appupdater/internal/config"
	"appupdater/internal/debug"
	"appupdater/internal/history"
	"appupdater/internal/ui"
	"appupdater/internal/update"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const historyListLimit = 20

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	if err := config.Initialize(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error initializing config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("appupdater", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *flags.version {
		printVersion(stdout)
		return 0
	}

	visited := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})
	opts := computeRuntimeOptions(flags, visited)

	if opts.debug {
		if err := debug.Init(true); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: debug log unavailable: %v\n", err)
		}
		defer debug.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := openHistory(ctx, stderr)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	if opts.showHistory {
		return showHistory(ctx, stdout, stderr, store)
	}

	if err := opts.validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.save {
		if err := config.SaveSource(opts.owner, opts.repo); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: could not save source: %v\n", err)
		}
	}

	if skip, last := shouldSkipCheck(ctx, store, opts); skip {
		printSkipped(stdout, last, time.Now())
		return 0
	}

	u, err := newUpdater(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = u.Close() }()

	rec := newRecorder(store, opts)
	if usePlain(opts, isTerminal(stdout)) {
		return runPlain(ctx, u, stdout, opts, rec)
	}
	return runInteractive(ctx, u, opts, rec, func(m *ui.Model) programRunner {
		return newProgram(ctx, m)
	}, stderr)
}

// newProgram starts the interactive screen. Tests replace it.
var newProgram = func(ctx context.Context, m *ui.Model) programRunner {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
}

// usePlain reports whether to skip the interactive screen. --check-only
// never opens it, since the screen waits for a key after the check.
func usePlain(opts runtimeOptions, tty bool) bool {
	return opts.plain || opts.checkOnly || !tty
}

// newUpdater builds the GitHub updater described by opts.
func newUpdater(opts runtimeOptions) (*update.Updater, error) {
	sourceOpts := []update.SourceOption{
		update.WithPreReleases(opts.preReleases),
		update.WithUserAgent("appupdater/" + Version),
	}
	if opts.baseURL != "" {
		sourceOpts = append(sourceOpts, update.WithBaseURL(opts.baseURL))
	}
	if opts.token != "" {
		sourceOpts = append(sourceOpts, update.WithToken(opts.token))
	}
	if opts.pageSize > 0 {
		sourceOpts = append(sourceOpts, update.WithPageSize(opts.pageSize))
	}
	if opts.timeout > 0 {
		sourceOpts = append(sourceOpts, update.WithTimeout(opts.timeout))
	}

	ghOpts := []update.GitHubOption{
		update.WithSourceOptions(sourceOpts...),
		update.WithDownloader(update.NewHTTPDownloader(
			update.WithDownloadDir(opts.downloadDir),
			update.WithDownloadUserAgent("appupdater/"+Version),
		)),
	}
	if m := assetMatcher(opts, update.CurrentPlatform()); m != nil {
		ghOpts = append(ghOpts, update.WithMatcher(m))
	}
	return update.NewGitHub(opts.owner, opts.repo, opts.currentVersion, ghOpts...)
}

// assetMatcher combines --match and --platform. With neither set it returns
// nil and the desktop installer default applies; --platform alone keeps
// that default's extensions.
func assetMatcher(opts runtimeOptions, platform update.AssetMatcher) update.AssetMatcher {
	var ext update.AssetMatcher
	switch {
	case len(opts.matches) > 0:
		ext = update.MatchExtensions(opts.matches...)
	case opts.platform:
		ext = update.DefaultAssetMatcher()
	default:
		return nil
	}
	if !opts.platform {
		return ext
	}
	return func(name string) bool {
		return ext(name) && platform(name)
	}
}

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(*ui.Model) programRunner

func runInteractive(ctx context.Context, u ui.Updater, opts runtimeOptions, rec *recorder, factory programFactory, stderr io.Writer) int {
	m := ui.New(u,
		ui.WithContext(ctx),
		ui.WithCheckOnStart(true),
		ui.WithChannel(opts.channel()),
		ui.WithOnCheck(func(s update.State) { rec.checked(ctx, s) }),
		ui.WithOnDownload(func(a update.UpdateAvailable, path string) { rec.downloaded(ctx, a, path) }),
	)
	defer m.Close()

	if factory == nil {
		_, _ = fmt.Fprintln(stderr, "Error: program factory is nil")
		return 1
	}
	prog := factory(m)
	if prog == nil {
		_, _ = fmt.Fprintln(stderr, "Error: program is nil")
		return 1
	}
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		_, _ = fmt.Fprintf(stderr, "Error: run UI: %v\n", err)
		return 1
	}
	if _, failed := m.State().(update.Failure); failed {
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openHistory opens the history store, warning and returning nil when it
// cannot; history is never required to check for updates.
func openHistory(ctx context.Context, stderr io.Writer) *history.Store {
	path, err := config.HistoryPath()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: history disabled: %v\n", err)
		return nil
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: history disabled: %v\n", err)
		return nil
	}
	return store
}

func showHistory(ctx context.Context, stdout, stderr io.Writer, store *history.Store) int {
	if store == nil {
		_, _ = fmt.Fprintln(stderr, "Error: history store unavailable")
		return 1
	}
	downloads, err := store.Downloads(ctx, historyListLimit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printHistory(stdout, downloads)
	return 0
}

// shouldSkipCheck reports whether the last recorded check for the channel
// is within check.interval. --force always checks.
func shouldSkipCheck(ctx context.Context, store *history.Store, opts runtimeOptions) (bool, history.Check) {
	if store == nil || opts.force || opts.checkInterval <= 0 {
		return false, history.Check{}
	}
	within, err := store.CheckedWithin(ctx, opts.owner, opts.repo, opts.checkInterval)
	if err != nil || !within {
		return false, history.Check{}
	}
	last, _, err := store.LastCheck(ctx, opts.owner, opts.repo)
	if err != nil {
		return false, history.Check{}
	}
	return true, last
}
