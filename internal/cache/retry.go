package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/utils"
)

// HTTP statuses worth retrying: timeouts, throttling and upstream failures.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// httpStatusError marks a non-2xx response so the retry predicate can tell
// retryable statuses from terminal ones.
type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("fetch %s failed with status %d", e.url, e.status)
}

// RetryFetcher performs fetches with exponential backoff and routes requests
// that fail while offline into the offline queue.
type RetryFetcher struct {
	client    httpDoer
	policy    config.RetryConfig
	monitor   ConnectivityMonitor
	queue     *OfflineQueue
	retryable func(error) bool
	logger    *logrus.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRetryFetcher creates a fetcher with the given retry policy and offline
// queue configuration. A nil monitor means the network is assumed online.
func NewRetryFetcher(policy config.RetryConfig, queueCfg config.OfflineQueueConfig, monitor ConnectivityMonitor, logger *logrus.Logger) *RetryFetcher {
	if monitor == nil {
		monitor = AlwaysOnline{}
	}
	f := &RetryFetcher{
		client:    &http.Client{},
		policy:    policy,
		monitor:   monitor,
		retryable: defaultRetryablePredicate,
		logger:    logger,
		sleep:     sleepWithContext,
	}
	f.queue = NewOfflineQueue(queueCfg, f.attempt, logger)
	return f
}

// WithClient overrides the HTTP client, mainly for tests.
func (f *RetryFetcher) WithClient(client httpDoer) *RetryFetcher {
	f.client = client
	return f
}

// WithRetryablePredicate replaces the error-message retry predicate.
func (f *RetryFetcher) WithRetryablePredicate(predicate func(error) bool) *RetryFetcher {
	f.retryable = predicate
	return f
}

// Queue exposes the offline queue for inspection and teardown.
func (f *RetryFetcher) Queue() *OfflineQueue {
	return f.queue
}

// Start launches the drain loop: every online transition replays queued
// requests in FIFO order. Runs until the context is canceled.
func (f *RetryFetcher) Start(ctx context.Context) {
	events := f.monitor.Events()
	if events == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case online, ok := <-events:
				if !ok {
					return
				}
				if online {
					f.queue.Drain(ctx)
				}
			}
		}
	}()
}

// FetchWithRetry fetches a URL with up to maxRetries+1 attempts and
// exponential backoff between them. If the network is offline the attempt
// loop is skipped and, after exhaustion, the request is parked in the
// offline queue; the call then blocks until the queued request is replayed,
// expires, or the context is canceled. Online exhaustion surfaces the last
// error.
func (f *RetryFetcher) FetchWithRetry(ctx context.Context, url string, opts *RequestOptions) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.backoffDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		if !f.monitor.Online() {
			lastErr = &utils.OfflineError{URL: url}
			break
		}

		body, err := f.attempt(ctx, url, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !f.retryable(err) {
			return nil, err
		}
		f.logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Fetch failed, retrying")
	}

	if !f.monitor.Online() {
		results, err := f.queue.Enqueue(url, opts)
		if err != nil {
			return nil, err
		}
		select {
		case result := <-results:
			return result.Body, result.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// attempt performs a single bounded fetch. Each attempt gets its own abort
// timeout.
func (f *RetryFetcher) attempt(ctx context.Context, url string, opts *RequestOptions) ([]byte, error) {
	timeout := f.policy.AttemptTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := http.MethodGet
	var body io.Reader
	if opts != nil {
		if opts.Method != "" {
			method = opts.Method
		}
		if len(opts.Body) > 0 {
			body = bytes.NewReader(opts.Body)
		}
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts != nil {
		for name, values := range opts.Header {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{status: resp.StatusCode, url: url}
	}
	return respBody, nil
}

// backoffDelay is min(maxDelay, baseDelay * 2^exponent).
func (f *RetryFetcher) backoffDelay(exponent int) time.Duration {
	delay := f.policy.BaseDelay()
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := f.policy.MaxDelay()
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	for i := 0; i < exponent; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// defaultRetryablePredicate retries retryable statuses plus errors whose
// message carries a transient network signature.
func defaultRetryablePredicate(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return retryableStatuses[statusErr.status]
	}
	message := strings.ToLower(err.Error())
	for _, signature := range []string{"timeout", "connection refused", "connection reset", "network", "no such host", "fetch", "eof"} {
		if strings.Contains(message, signature) {
			return true
		}
	}
	return false
}

// sleepWithContext waits for the delay unless the context ends first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
