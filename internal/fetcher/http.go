package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urbanhydro/abimo/internal/resilience"
)

const (
	defaultUserAgent = "abimo/1.0"
	defaultTimeout   = 60 * time.Second
	defaultRateLimit = 5
)

// HTTPFetcher downloads over HTTP(S) with a per-host rate limit and retries
// of transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher returns an HTTPFetcher; zero options get defaults.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.LogRetries("http download")
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: map[string]*rate.Limiter{},
	}
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.RateLimit), 1)
		f.limiters[host] = lim
	}
	return lim
}

// Download returns the response body of a GET request.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "http: parse url")
	}
	lim := f.limiter(u.Host)

	return resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (io.ReadCloser, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "http: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "http: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "http: get %s", rawURL)
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		_ = resp.Body.Close()
		statusErr := eris.Errorf("http: unexpected status %d from %s", resp.StatusCode, rawURL)
		if resilience.TransientStatus(resp.StatusCode) {
			return nil, resilience.Transient(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	})
}

// DownloadToFile writes the response body to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return copyToFile(path, body)
}

func copyToFile(path string, r io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}

	n, err := io.Copy(out, r)
	if err != nil {
		_ = out.Close()
		return n, eris.Wrap(err, "write file")
	}
	if err := out.Close(); err != nil {
		return n, eris.Wrap(err, "close file")
	}

	zap.L().Debug("saved download", zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}
