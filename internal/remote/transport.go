package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportOptions configures BuildTransport.
type TransportOptions struct {
	HTTPClient *http.Client
	Retries    int
	BaseDelay  time.Duration // backoff base
	MaxDelay   time.Duration // backoff ceiling
	Logger     logrus.FieldLogger
}

// BuildTransport wraps the HTTP client in a retry layer when retries are enabled.
func BuildTransport(opts TransportOptions) (Doer, error) {
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("remote: HTTPClient is nil")
	}
	if opts.Retries < 0 {
		return nil, fmt.Errorf("remote: Retries must be >= 0")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 300 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 8 * time.Second
	}
	if opts.Retries == 0 {
		return opts.HTTPClient, nil
	}
	return &RetryTransport{
		Base:       opts.HTTPClient,
		MaxRetries: opts.Retries,
		BaseDelay:  opts.BaseDelay,
		MaxDelay:   opts.MaxDelay,
		Log:        opts.Logger,
	}, nil
}

// NewHTTPClient returns a client with the given overall request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// RetryTransport retries network errors, 429 and 5xx responses with jittered exponential backoff.
type RetryTransport struct {
	Base       Doer
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Log        logrus.FieldLogger
}

func (r *RetryTransport) Do(req *http.Request) (*http.Response, error) {
	l := r.Log
	if l == nil {
		l = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}

		curReq, err := cloneForRetry(req)
		if err != nil {
			return nil, err
		}

		resp, err := r.Base.Do(curReq)
		if err == nil && resp != nil {
			if !shouldRetryStatus(resp.StatusCode) {
				return resp, nil
			}

			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32*1024))
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("retryable status=%d", resp.StatusCode)

			l.WithFields(logrus.Fields{
				"attempt":      attempt + 1,
				"max_attempts": r.MaxRetries + 1,
				"status":       resp.StatusCode,
				"url":          req.URL.String(),
			}).Warn("retryable status")

			if resp.StatusCode == http.StatusTooManyRequests && attempt < r.MaxRetries {
				if d := retryAfterDelay(resp); d > 0 {
					if err := sleepCtx(req.Context(), d); err != nil {
						return nil, err
					}
					continue
				}
			}
		} else {
			if err != nil && !shouldRetryError(err) {
				return nil, err
			}
			lastErr = err

			l.WithFields(logrus.Fields{
				"attempt":      attempt + 1,
				"max_attempts": r.MaxRetries + 1,
				"url":          req.URL.String(),
			}).WithError(err).Warn("retryable error")
		}

		if attempt == r.MaxRetries {
			break
		}
		if err := sleepCtx(req.Context(), backoff(r.BaseDelay, r.MaxDelay, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func shouldRetryStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

func shouldRetryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > ceiling || d <= 0 {
		d = ceiling
	}
	j := 0.5 + rand.Float64()
	return time.Duration(float64(d) * j)
}

func retryAfterDelay(resp *http.Response) time.Duration {
	sec, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || sec <= 0 {
		return 0
	}
	return time.Duration(min(sec, 60)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneForRetry(req *http.Request) (*http.Request, error) {
	cloned := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return cloned, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry request with body: GetBody is nil")
	}
	b, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("cannot retry request with body: GetBody failed: %w", err)
	}
	cloned.Body = b
	return cloned, nil
}
