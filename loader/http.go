package loader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPOption configures an HTTPLoader.
type HTTPOption func(*HTTPLoader)

// WithClient replaces the underlying HTTP client (and thereby its timeout).
func WithClient(c *http.Client) HTTPOption {
	return func(l *HTTPLoader) { l.client = c }
}

// WithTimeout sets the request timeout on the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(l *HTTPLoader) { l.client.Timeout = d }
}

// WithEnsure makes the loader probe the URL with a HEAD request before the
// GET, failing early when the resource does not exist or is not JSON.
func WithEnsure() HTTPOption {
	return func(l *HTTPLoader) { l.ensure = true }
}

// WithMaxRetries bounds the retry attempts for transient transport failures.
func WithMaxRetries(n uint64) HTTPOption {
	return func(l *HTTPLoader) { l.maxRetries = n }
}

// HTTPLoader fetches a schema over HTTP(S) with a GET, retrying transient
// failures with exponential backoff.
type HTTPLoader struct {
	url        string
	client     *http.Client
	ensure     bool
	maxRetries uint64
}

// NewHTTPLoader returns a loader for an http(s) URL.
func NewHTTPLoader(url string, opts ...HTTPOption) *HTTPLoader {
	l := &HTTPLoader{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *HTTPLoader) Location() string { return l.url }

func (l *HTTPLoader) Load(ctx context.Context) (any, error) {
	if l.ensure {
		if err := l.head(ctx); err != nil {
			return nil, err
		}
	}
	var body any
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrBadLocation, l.url, err))
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, l.url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s: status %d", ErrUnavailable, l.url, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w: %s: status %d", ErrUnavailable, l.url, resp.StatusCode))
		}
		body, err = decodeJSON(resp.Body, l.url)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), l.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}

func (l *HTTPLoader) head(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, l.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadLocation, l.url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, l.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, l.url, resp.StatusCode)
	}
	return nil
}
