package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFunc receives the bytes written so far and the expected total
// (0 when the server did not announce a length).
type ProgressFunc func(bytesDone, bytesTotal int64)

// Downloader fetches a release asset to local storage.
//
// Download must create any directory it needs, stream rather than buffer
// the payload, call onProgress at least once per received chunk and return
// the absolute path of the written file.
type Downloader interface {
	Download(ctx context.Context, url, fileName string, onProgress ProgressFunc) (string, error)
}

// DefaultChunkSize is the read size used by HTTPDownloader.
const DefaultChunkSize = 8 << 10

// HTTPDownloader streams assets over HTTP into a cache directory.
type HTTPDownloader struct {
	dir        string
	userAgent  string
	chunkSize  int
	httpClient *http.Client
}

// DownloaderOption configures an HTTPDownloader.
type DownloaderOption func(*HTTPDownloader)

// WithDownloadDir sets the directory assets are written to.
func WithDownloadDir(dir string) DownloaderOption {
	return func(d *HTTPDownloader) {
		if dir = strings.TrimSpace(dir); dir != "" {
			d.dir = dir
		}
	}
}

// WithDownloadClient sets a custom HTTP client for the downloader.
func WithDownloadClient(client *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithDownloadUserAgent overrides the User-Agent header.
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) {
		if ua = strings.TrimSpace(ua); ua != "" {
			d.userAgent = ua
		}
	}
}

// WithChunkSize sets the read buffer size.
func WithChunkSize(n int) DownloaderOption {
	return func(d *HTTPDownloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// DefaultDownloadDir is the cache directory used when none is configured.
func DefaultDownloadDir() string {
	return filepath.Join(os.TempDir(), "appupdater")
}

// NewHTTPDownloader creates a downloader writing to DefaultDownloadDir.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		dir:       DefaultDownloadDir(),
		userAgent: DefaultUserAgent,
		chunkSize: DefaultChunkSize,
		httpClient: &http.Client{
			Timeout: 0, // No timeout for downloads
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir returns the directory assets are written to.
func (d *HTTPDownloader) Dir() string { return d.dir }

// Download implements Downloader. The file is named exactly fileName inside
// the download directory; a partial file is removed on failure.
func (d *HTTPDownloader) Download(ctx context.Context, url, fileName string, onProgress ProgressFunc) (string, error) {
	if err := validateFileName(fileName); err != nil {
		return "", downloadError("download "+fileName, err)
	}
	if onProgress == nil {
		onProgress = func(int64, int64) {}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", downloadError("create request", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", downloadError("download "+fileName, fmt.Errorf("%w: %w", ErrDownloadFailed, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", downloadError("download "+fileName, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode))
	}

	dir, err := filepath.Abs(d.dir)
	if err != nil {
		return "", downloadError("resolve download directory", err)
	}
	//nolint:gosec // G301: cache directory needs standard permissions
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", downloadError("create download directory", err)
	}

	destPath := filepath.Join(dir, fileName)
	//nolint:gosec // G304: file name validated above, directory is ours
	out, err := os.Create(destPath)
	if err != nil {
		return "", downloadError("create file", err)
	}

	total := max(resp.ContentLength, 0)
	written, err := copyChunks(out, resp.Body, d.chunkSize, func(done int64) {
		onProgress(done, total)
	})
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return "", downloadError("write "+fileName, fmt.Errorf("%w: %w", ErrDownloadFailed, err))
	}

	logf("downloaded %s (%d bytes) to %s", url, written, destPath)
	return destPath, nil
}

// copyChunks copies src to dst in chunkSize reads, reporting the running
// total after every chunk written.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int, report func(done int64)) (int64, error) {
	buf := make([]byte, chunkSize)
	var done int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, werr
			}
			done += int64(n)
			report(done)
		}
		if rerr == io.EOF {
			return done, nil
		}
		if rerr != nil {
			return done, rerr
		}
	}
}

// validateFileName rejects names that would escape the download directory.
func validateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidFileName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFileName, name)
	}
	return nil
}
