package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxRedirects bounds redirect-following the same way a browser would, to
// avoid an unbounded chain driven by a malicious or misconfigured site.
const maxRedirects = 10

// FetchResult carries the response body (already truncated) and the status
// code that produced it.
type FetchResult struct {
	StatusCode int
	Body       []byte
}

// Fetch retrieves domain's page over HTTPS (or HTTP if the domain argument
// is itself prefixed "http://"), truncating the body to maxKB kilobytes and
// making at most three attempts on transient failures, sleeping 500ms and
// then 1000ms between them.
func Fetch(ctx context.Context, domain string, timeout time.Duration, maxKB int) (FetchResult, error) {
	url := domain
	if len(url) < 7 || (url[:7] != "http://" && (len(url) < 8 || url[:8] != "https://")) {
		url = "https://" + domain
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("classify: stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	var result FetchResult
	attempt := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = 2 * time.Second
	bo.RandomizationFactor = 0 // fixed 500ms/1000ms sleeps, not jittered
	bo.MaxElapsedTime = 0      // the retry count below, not elapsed time, bounds the attempts

	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("classify: build request: %w", err))
		}

		resp, err := client.Do(req)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) {
				return backoff.Permanent(fmt.Errorf("dns_resolution_failed: %s", domain))
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("classify: fetch timeout: %w", err)
			}
			return fmt.Errorf("classify: fetch: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxKB)*1024))
		if err != nil {
			return fmt.Errorf("classify: read body: %w", err)
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("http_fetch_failed: %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("http_fetch_failed: %d", resp.StatusCode)
		}

		result = FetchResult{StatusCode: resp.StatusCode, Body: body}
		return nil
	}

	// Two retries after the first attempt: exactly three attempts in total.
	if err := backoff.Retry(op, backoff.WithMaxRetries(bo, 2)); err != nil {
		return FetchResult{}, err
	}
	return result, nil
}

// IsTimeoutError reports whether err represents the fetch exceeding its
// per-attempt deadline, to let the caller map it to ErrDomainFetchTimeout.
func IsTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
