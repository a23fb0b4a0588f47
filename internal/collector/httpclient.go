package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HTTPStatusError represents an unexpected HTTP status from a data provider.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, truncate(e.Body, 256))
}

// retryable reports whether the status is worth another attempt.
func (e *HTTPStatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// httpClient wraps http.Client with a request limiter and exponential retries.
type httpClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

func newHTTPClient(proxyURL string, timeout time.Duration, requestsPerSec int, maxRetries uint64) *httpClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 2
	}
	return &httpClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSec)), requestsPerSec),
		maxRetries: maxRetries,
	}
}

// get performs a GET and returns the body of a 200 response.
func (c *httpClient) get(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(data)}
			if statusErr.retryable() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("url", endpoint).Dur("retry_in", wait).Msg("provider request failed")
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
