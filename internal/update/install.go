package update

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Installer hands a downloaded asset to the platform's install flow.
// Install returns once the flow has been started; it reports no progress.
type Installer interface {
	Install(path string) error
}

// DesktopInstaller opens the asset with the desktop's default handler:
// "cmd /c start" on Windows, "open" on macOS and "xdg-open" elsewhere.
type DesktopInstaller struct {
	goos string
	// start launches the opener; replaced in tests.
	start func(name string, args ...string) error
}

// NewDesktopInstaller returns an installer for the running OS.
func NewDesktopInstaller() *DesktopInstaller {
	return &DesktopInstaller{goos: runtime.GOOS, start: startDetached}
}

// Install implements Installer.
func (d *DesktopInstaller) Install(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return installError("install", fmt.Errorf("%w: %s", ErrInvalidPath, path))
	}

	name, args, err := openerCommand(d.goos, path)
	if err != nil {
		return installError("install", err)
	}

	logf("install: %s %v", name, args)
	if err := d.start(name, args...); err != nil {
		return installError("launch "+name, err)
	}
	return nil
}

// openerCommand returns the command that opens path on goos.
func openerCommand(goos, path string) (string, []string, error) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}, nil
	case "darwin":
		return "open", []string{path}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return "xdg-open", []string{path}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
}

func startDetached(name string, args ...string) error {
	//nolint:gosec // G204: opener is fixed per OS, path is our own download
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
