package shared

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BrowserUserAgent is sent by every outbound request so exchange sites serve the full page
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// HTTPClientFactory creates pooled HTTP clients keyed by timeout
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[time.Duration]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[time.Duration]*http.Client),
	}
}

// Client returns a cached client for the timeout, creating it on first use
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	f.mutex.RLock()
	client, exists := f.clients[timeout]
	f.mutex.RUnlock()
	if exists {
		return client
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if client, exists = f.clients[timeout]; exists {
		return client
	}

	client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
	f.clients[timeout] = client

	logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"timeout":   timeout,
	}).Debug("Created HTTP client")

	return client
}

// CloseIdleConnections releases pooled connections of every cached client
func (f *HTTPClientFactory) CloseIdleConnections() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for timeout, client := range f.clients {
		client.CloseIdleConnections()
		delete(f.clients, timeout)
	}
}

// SetBrowserLikeHeaders configures request headers to mimic a browser
func SetBrowserLikeHeaders(header http.Header, acceptHeader string) {
	header.Set("User-Agent", BrowserUserAgent)
	header.Set("Accept", acceptHeader)
	header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	header.Set("Cache-Control", "no-cache")
}

// BackoffDuration returns the exponential delay before the given retry attempt
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// RetryWithBackoff runs operation until it succeeds, returns a non-retryable error,
// or maxRetryAttempts retries are exhausted
func RetryWithBackoff(ctx context.Context, maxRetryAttempts int, operation func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := BackoffDuration(attempt)
			logrus.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": delay,
				"error":   lastErr,
			}).Debug("Retrying after backoff")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = operation(attempt)
		if lastErr == nil {
			return nil
		}
		if !IsRetryableError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetryAttempts+1, lastErr)
}
