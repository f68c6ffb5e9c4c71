package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/evdash/internal/httputil"
	"github.com/lox/evdash/internal/metrics"
)

// HTTPSource downloads a dataset, retrying transient failures.
type HTTPSource struct {
	url        string
	client     *http.Client
	maxElapsed time.Duration
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:        url,
		client:     httputil.NewClientWithTimeout(httputil.DownloadTimeout),
		maxElapsed: 2 * time.Minute,
	}
}

func (h *HTTPSource) String() string {
	return h.url
}

func (h *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := h.client.Do(req)
		if err != nil {
			metrics.FetchAttemptsTotal.WithLabelValues("http", "error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return fmt.Errorf("fetch dataset: %w", err)
		}
		defer resp.Body.Close()
		metrics.FetchAttemptsTotal.WithLabelValues("http", strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = h.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}
