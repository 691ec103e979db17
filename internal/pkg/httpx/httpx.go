// Package httpx holds the retry policy shared by the Runware and OpenAI
// clients. Both vendors throttle with 429s and shed load with 5xxs during
// long video jobs, so the two do/doOnce loops defer to one set of
// predicates here instead of drifting apart.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by both clients' wire errors so the status
// survives wrapping with scene or prompt context.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus treats request timeouts, throttling, and any server
// error as transient. Vendor 4xx rejections (bad prompt, bad key) are not.
func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError decides whether a failed vendor call is worth another
// attempt: context expiry (the caller's own deadline budgets the retries),
// transport-level timeouts, or a retryable status carried on the error chain.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() || netErr.Temporary() {
			return true
		}
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// RetryAfterDuration converts a Retry-After header (delta seconds or an
// HTTP-date) into a sleep, falling back when absent and clamping to max so a
// hostile or clock-skewed vendor cannot park a scene worker.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			} else if at, err := http.ParseTime(ra); err == nil {
				if until := time.Until(at); until > 0 {
					sleepFor = until
				}
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// JitterSleep spreads a base backoff by +/-20% so four scene workers that
// were throttled together do not retry together.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := 0.4*rand.Float64() - 0.2
	d := time.Duration(float64(base) * (1 + spread))
	if d < 0 {
		d = 0
	}
	return d
}
