package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yiyinbot/yiyin/pkg/httputil"
)

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return &httputil.RetryableError{Err: errors.New("connection reset")}
		}
		return nil
	})
	fmt.Println("attempts:", attempts)
	fmt.Println("error:", err)
	// Output:
	// attempts: 3
	// error: <nil>
}

func ExampleIsRetryable() {
	transient := fmt.Errorf("fetch avatar: %w", &httputil.RetryableError{Err: errors.New("timeout")})
	fmt.Println(httputil.IsRetryable(transient))
	fmt.Println(httputil.IsRetryable(errors.New("bad request")))
	// Output:
	// true
	// false
}
