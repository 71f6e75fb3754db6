package main

import (
	"errors"
	"fmt"
	"io"

	apperrors "appupdater/internal/errors"
	"appupdater/internal/update"
)

// printFailure writes the failure message plus a hint for the causes a user
// can act on.
func printFailure(w io.Writer, f update.Failure) {
	_, _ = fmt.Fprintf(w, "%s %s\n", styleError.Render("Error:"), f.Message)
	if hint := failureHint(f.Cause); hint != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", styleDim.Render(hint))
	}
}

func failureHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, update.ErrRateLimited):
		return "GitHub rate limit reached. Set AU_SOURCE_TOKEN or source.token to raise the limit."
	case errors.Is(err, update.ErrUnsupportedOS):
		return "No installer launcher for this OS. Open the downloaded file manually."
	case errors.Is(err, update.ErrInvalidPath):
		return "The downloaded file is gone. Run again to download it."
	}

	switch apperrors.CodeOf(err) {
	case apperrors.CodeSource:
		return "Check --owner/--repo and your network connection."
	case apperrors.CodeDownload:
		return "Check --download-dir is writable and try again."
	}
	return ""
}
