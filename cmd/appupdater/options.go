package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"appupdater/internal/config"
)

type cliFlags struct {
	owner          *string
	repo           *string
	currentVersion *string
	preReleases    *bool
	match          *string
	platform       *bool
	downloadDir    *string
	checkOnly      *bool
	yes            *bool
	plain          *bool
	force          *bool
	history        *bool
	save           *bool
	debug          *bool
	version        *bool
}

// defineFlags registers the CLI flags on fs with defaults taken from config.
func defineFlags(fs *flag.FlagSet) cliFlags {
	return cliFlags{
		owner:          fs.String("owner", config.GetString(config.KeySourceOwner), "GitHub repository owner (or set AU_SOURCE_OWNER)"),
		repo:           fs.String("repo", config.GetString(config.KeySourceRepo), "GitHub repository name (or set AU_SOURCE_REPO)"),
		currentVersion: fs.String("current-version", config.GetString(config.KeyCurrentVersion), "Version currently installed"),
		preReleases:    fs.Bool("pre-releases", config.GetBool(config.KeySourcePreReleases), "Consider pre-releases"),
		match:          fs.String("match", strings.Join(config.GetStringSlice(config.KeyAssetsMatch), ","), "Comma-separated asset name suffixes (default: desktop installers)"),
		platform:       fs.Bool("platform", config.GetBool(config.KeyAssetsPlatform), "Only accept assets named for this OS and architecture"),
		downloadDir:    fs.String("download-dir", config.GetString(config.KeyDownloadDir), "Directory downloads are written to"),
		checkOnly:      fs.Bool("check-only", false, "Check for an update and exit"),
		yes:            fs.Bool("yes", false, "Download and install without prompting (plain mode)"),
		plain:          fs.Bool("plain", config.GetBool(config.KeyOutputPlain), "Plain line output instead of the interactive screen"),
		force:          fs.Bool("force", false, "Check even if the last check is within check.interval"),
		history:        fs.Bool("history", false, "List past downloads and exit"),
		save:           fs.Bool("save", false, "Persist --owner and --repo to the config file"),
		debug:          fs.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.appupdater/debug.log"),
		version:        fs.Bool("version", false, "Print version information and exit"),
	}
}

type runtimeOptions struct {
	owner          string
	repo           string
	currentVersion string
	preReleases    bool
	matches        []string
	platform       bool
	downloadDir    string

	baseURL       string
	token         string
	pageSize      int
	timeout       time.Duration
	checkInterval time.Duration

	checkOnly   bool
	yes         bool
	plain       bool
	force       bool
	showHistory bool
	save        bool
	debug       bool
}

// computeRuntimeOptions merges configuration with the flags the user set
// explicitly; an unset flag never overrides config.
func computeRuntimeOptions(flags cliFlags, visited map[string]struct{}) runtimeOptions {
	opts := runtimeOptions{
		owner:          strings.TrimSpace(config.GetString(config.KeySourceOwner)),
		repo:           strings.TrimSpace(config.GetString(config.KeySourceRepo)),
		currentVersion: strings.TrimSpace(config.GetString(config.KeyCurrentVersion)),
		preReleases:    config.GetBool(config.KeySourcePreReleases),
		matches:        config.GetStringSlice(config.KeyAssetsMatch),
		platform:       config.GetBool(config.KeyAssetsPlatform),
		downloadDir:    strings.TrimSpace(config.GetString(config.KeyDownloadDir)),
		baseURL:        strings.TrimSpace(config.GetString(config.KeySourceBaseURL)),
		token:          strings.TrimSpace(config.GetString(config.KeySourceToken)),
		pageSize:       config.GetInt(config.KeySourcePageSize),
		timeout:        config.GetDuration(config.KeyHTTPTimeout),
		checkInterval:  max(config.GetDuration(config.KeyCheckInterval), 0),
		plain:          config.GetBool(config.KeyOutputPlain),
		debug:          config.GetBool(config.KeyDebug),
	}

	if flagWasSet("owner", visited) {
		opts.owner = strings.TrimSpace(*flags.owner)
	}
	if flagWasSet("repo", visited) {
		opts.repo = strings.TrimSpace(*flags.repo)
	}
	if flagWasSet("current-version", visited) {
		opts.currentVersion = strings.TrimSpace(*flags.currentVersion)
	}
	if flagWasSet("pre-releases", visited) {
		opts.preReleases = *flags.preReleases
	}
	if flagWasSet("match", visited) {
		opts.matches = splitList(*flags.match)
	}
	if flagWasSet("platform", visited) {
		opts.platform = *flags.platform
	}
	if flagWasSet("download-dir", visited) {
		opts.downloadDir = strings.TrimSpace(*flags.downloadDir)
	}
	if flagWasSet("plain", visited) {
		opts.plain = *flags.plain
	}
	if flagWasSet("debug", visited) {
		opts.debug = *flags.debug
	}

	opts.checkOnly = *flags.checkOnly
	opts.yes = *flags.yes
	opts.force = *flags.force
	opts.showHistory = *flags.history
	opts.save = *flags.save
	return opts
}

// validate reports the first missing setting needed to check for updates.
func (o runtimeOptions) validate() error {
	switch {
	case o.owner == "":
		return fmt.Errorf("repository owner is required (--owner or source.owner)")
	case o.repo == "":
		return fmt.Errorf("repository name is required (--repo or source.repo)")
	case o.currentVersion == "":
		return fmt.Errorf("current version is required (--current-version or current-version)")
	}
	return nil
}

func (o runtimeOptions) channel() string {
	return o.owner + "/" + o.repo
}

func flagWasSet(name string, visited map[string]struct{}) bool {
	_, ok := visited[name]
	return ok
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
