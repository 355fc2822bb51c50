package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Errorf("err=%v calls=%d, want permanent error after 1 call", err, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: errors.New("503")}
	})
	if calls != 3 || !IsRetryable(err) {
		t.Errorf("err=%v calls=%d, want retryable error after 3 calls", err, calls)
	}
}

func TestRetryZeroAttempts(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffCapsDelay(t *testing.T) {
	b := Backoff{Attempts: 4, Delay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond}
	var stamps []time.Time
	_ = b.Do(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		return &RetryableError{Err: errors.New("timeout")}
	})
	if len(stamps) != 4 {
		t.Fatalf("calls = %d, want 4", len(stamps))
	}
	// Uncapped the waits would be 10, 20, 40ms.
	if total := stamps[3].Sub(stamps[0]); total >= 70*time.Millisecond {
		t.Errorf("total wait %v, MaxDelay not applied", total)
	}
}

func TestBackoffCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Backoff{Attempts: 3, Delay: time.Hour}.Do(ctx, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("reset")}
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err=%v calls=%d, want context.Canceled after 1 call", err, calls)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("image-bytes"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 100)))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, err := Download(ctx, srv.Client(), srv.URL+"/ok", 0)
	if err != nil || string(data) != "image-bytes" {
		t.Errorf("ok: %q, %v", data, err)
	}

	if _, err := Download(ctx, srv.Client(), srv.URL+"/big", 10); !errors.Is(err, ErrTooLarge) {
		t.Errorf("big: err = %v, want ErrTooLarge", err)
	}
	if data, err := Download(ctx, srv.Client(), srv.URL+"/big", 100); err != nil || len(data) != 100 {
		t.Errorf("exact limit: len=%d err=%v", len(data), err)
	}

	_, err = Download(ctx, srv.Client(), srv.URL+"/missing", 0)
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Status != http.StatusNotFound || IsRetryable(err) {
		t.Errorf("missing: err = %v, want non-retryable 404", err)
	}

	if _, err := Download(ctx, srv.Client(), srv.URL+"/flaky", 0); !IsRetryable(err) {
		t.Errorf("5xx: err = %v, want retryable", err)
	}
}
