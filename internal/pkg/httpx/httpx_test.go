package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type wireError struct {
	status int
}

func (e *wireError) Error() string       { return fmt.Sprintf("status %d", e.status) }
func (e *wireError) HTTPStatusCode() int { return e.status }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"throttled", &wireError{status: http.StatusTooManyRequests}, true},
		{"server error", &wireError{status: http.StatusBadGateway}, true},
		{"bad prompt", &wireError{status: http.StatusBadRequest}, false},
		{"wrapped status", fmt.Errorf("poll scene: %w", &wireError{status: http.StatusServiceUnavailable}), true},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := func(v string) *http.Response {
		r := &http.Response{Header: http.Header{}}
		if v != "" {
			r.Header.Set("Retry-After", v)
		}
		return r
	}

	if got := RetryAfterDuration(resp("3"), time.Second, time.Minute); got != 3*time.Second {
		t.Fatalf("delta seconds: got=%v", got)
	}
	if got := RetryAfterDuration(resp(""), time.Second, time.Minute); got != time.Second {
		t.Fatalf("fallback: got=%v", got)
	}
	if got := RetryAfterDuration(resp("120"), time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("clamp: got=%v", got)
	}

	date := time.Now().Add(4 * time.Second).UTC().Format(http.TimeFormat)
	got := RetryAfterDuration(resp(date), time.Second, time.Minute)
	if got <= time.Second || got > 5*time.Second {
		t.Fatalf("http-date: got=%v, want a few seconds", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := RetryAfterDuration(resp(past), time.Second, time.Minute); got != time.Second {
		t.Fatalf("past http-date should keep fallback: got=%v", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := JitterSleep(base)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jitter %v outside +/-20%% of %v", d, base)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatalf("zero base should not sleep")
	}
}
