package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanhydro/abimo/internal/resilience"
)

func testOptions() Options {
	return Options{
		UserAgent: "abimo-test",
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Retry:     resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	}
}

func TestHTTPFetcher_Download(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abimo-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("CODE,NUTZUNG\n"))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(testOptions()).Download(context.Background(), srv.URL+"/blocks.csv")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "CODE,NUTZUNG\n", string(data))
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(testOptions()).Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_NotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(testOptions()).Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.bin")
	n, err := NewHTTPFetcher(testOptions()).DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("CODE\n1\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := Fetch(context.Background(), srv.URL+"/data/blocks.csv?v=2", dir, testOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "blocks.csv"), path)
	assert.FileExists(t, path)

	_, err = Fetch(context.Background(), "gopher://host/x", dir, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRemote("https://example.org/blocks.dbf"))
	assert.True(t, IsRemote("HTTP://example.org/blocks.dbf"))
	assert.True(t, IsRemote("ftp://example.org/pub/blocks.zip"))
	assert.False(t, IsRemote("data/blocks.dbf"))
	assert.False(t, IsRemote("/abs/blocks.dbf"))
	assert.False(t, IsRemote(`C:\data\blocks.dbf`))
}

func TestLocalName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "blocks.dbf", localName("https://example.org/x/blocks.dbf"))
	assert.Equal(t, "download", localName("https://example.org/"))
	assert.Equal(t, "download", localName("https://example.org"))
}
