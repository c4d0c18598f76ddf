package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// fetchThrottle caps outbound request rate across all users so a burst
// of lookups does not hammer the upstream.
var fetchThrottle = rate.NewLimiter(rate.Every(200*time.Millisecond), 5)

// NewFetchClient creates an HTTP client with proper settings for web
// scraping: redirect cap, idle connection reuse, and a cookie jar so
// upstream session cookies survive across strategy attempts.
func NewFetchClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// httpFetcher adapts the plain client to the PageFetcher interface.
// Used when no BrowserClient is configured, and in tests.
type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps client as a PageFetcher.
func NewHTTPFetcher(client *http.Client) PageFetcher {
	return &httpFetcher{client: client}
}

func (f *httpFetcher) Get(ctx context.Context, fetchURL string) ([]byte, int, error) {
	resp, err := fetchWithRetry(ctx, f.client, fetchURL)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// fetchWithRetry performs an HTTP GET with retry logic using exponential backoff.
// Non-retryable statuses and transport errors are marked permanent.
func fetchWithRetry(ctx context.Context, client *http.Client, fetchURL string) (*http.Response, error) {
	if err := fetchThrottle.Wait(ctx); err != nil {
		return nil, err
	}

	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		for k, v := range browserHeaders() {
			req.Header.Set(k, v)
		}
		req.Header.Set("Accept-Encoding", "gzip, deflate")

		resp, err := client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
}

// postForm sends a form-encoded POST and returns the body bytes.
// The aggregation API strategies use this; no retry, a failed attempt
// just moves the chain along.
func postForm(ctx context.Context, client *http.Client, postURL string, form url.Values) ([]byte, error) {
	if err := fetchThrottle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return readResponseBody(resp)
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	const maxBody = 4 << 20
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(io.LimitReader(gz, maxBody))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// isRetryableStatus returns true for HTTP status codes worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
