package update

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	apperrors "appupdater/internal/errors"
)

func TestNewHTTPDownloaderDefaults(t *testing.T) {
	d := NewHTTPDownloader()
	if d.Dir() != DefaultDownloadDir() {
		t.Errorf("Dir() = %q, want %q", d.Dir(), DefaultDownloadDir())
	}
	if d.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d", d.chunkSize)
	}

	d = NewHTTPDownloader(WithDownloadDir("  "), WithChunkSize(0), WithDownloadClient(nil))
	if d.Dir() != DefaultDownloadDir() || d.chunkSize != DefaultChunkSize || d.httpClient == nil {
		t.Error("blank options should keep defaults")
	}
}

func TestHTTPDownloaderDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app-debug.apk" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "nested", "cache")
	d := NewHTTPDownloader(WithDownloadDir(dir), WithChunkSize(4096))

	var reports [][2]int64
	path, err := d.Download(context.Background(), server.URL+"/app-debug.apk", "app-debug.apk", func(done, total int64) {
		reports = append(reports, [2]int64{done, total})
	})
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("path %q is not absolute", path)
	}
	if filepath.Base(path) != "app-debug.apk" {
		t.Errorf("file name = %q", filepath.Base(path))
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("content length = %d, want %d", len(got), len(payload))
	}

	if len(reports) < 3 {
		t.Fatalf("got %d progress reports, want at least one per chunk", len(reports))
	}
	var last int64
	for _, r := range reports {
		if r[0] <= last {
			t.Errorf("progress not increasing: %v", reports)
			break
		}
		if r[1] != int64(len(payload)) {
			t.Errorf("total = %d, want %d", r[1], len(payload))
		}
		last = r[0]
	}
	if last != int64(len(payload)) {
		t.Errorf("final progress = %d, want %d", last, len(payload))
	}
}

func TestHTTPDownloaderOverwritesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer server.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.msi"), []byte("old content"), 0o600); err != nil {
		t.Fatal(err)
	}

	path, err := NewHTTPDownloader(WithDownloadDir(dir)).Download(context.Background(), server.URL, "a.msi", nil)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want new", got)
	}
}

func TestHTTPDownloaderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	_, err := NewHTTPDownloader(WithDownloadDir(dir)).Download(context.Background(), server.URL, "a.msi", nil)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
	if !apperrors.IsCode(err, apperrors.CodeDownload) {
		t.Errorf("code = %q", apperrors.CodeOf(err))
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.msi")); !os.IsNotExist(statErr) {
		t.Error("no file should be created on HTTP error")
	}
}

func TestHTTPDownloaderRemovesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more than we send so the client sees an unexpected EOF.
		w.Header().Set("Content-Length", "100000")
		_, _ = w.Write([]byte("partial"))
	}))
	defer server.Close()

	dir := t.TempDir()
	_, err := NewHTTPDownloader(WithDownloadDir(dir)).Download(context.Background(), server.URL, "a.msi", nil)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.msi")); !os.IsNotExist(statErr) {
		t.Error("partial file should be removed")
	}
}

func TestHTTPDownloaderCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPDownloader(WithDownloadDir(t.TempDir())).Download(ctx, server.URL, "a.msi", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHTTPDownloaderRejectsBadNames(t *testing.T) {
	d := NewHTTPDownloader(WithDownloadDir(t.TempDir()))
	for _, name := range []string{"", "  ", ".", "..", "../evil", `dir\file.exe`, "a/b"} {
		_, err := d.Download(context.Background(), "http://127.0.0.1:0", name, nil)
		if !errors.Is(err, ErrInvalidFileName) {
			t.Errorf("Download(%q) err = %v, want ErrInvalidFileName", name, err)
		}
	}
}
