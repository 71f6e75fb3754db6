package update

import (
	"fmt"
	"strings"

	apperrors "appupdater/internal/errors"
)

// Error variables for specific error conditions.
var (
	ErrNetworkFailure   = fmt.Errorf("network request failed")
	ErrRateLimited      = fmt.Errorf("rate limited by GitHub API")
	ErrMalformedRelease = fmt.Errorf("malformed release payload")
	ErrSourceClosed     = fmt.Errorf("update source is closed")
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrInvalidFileName  = fmt.Errorf("invalid asset file name")
	ErrInvalidPath      = fmt.Errorf("file does not exist")
	ErrUnsupportedOS    = fmt.Errorf("unsupported operating system")
)

// requireNonBlank returns a config error when value is blank.
func requireNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.New(apperrors.CodeConfig, field+" must not be blank", nil)
	}
	return nil
}

func sourceError(msg string, err error) error {
	return apperrors.New(apperrors.CodeSource, msg, err)
}

func downloadError(msg string, err error) error {
	return apperrors.New(apperrors.CodeDownload, msg, err)
}

func installError(msg string, err error) error {
	return apperrors.New(apperrors.CodeInstall, msg, err)
}
