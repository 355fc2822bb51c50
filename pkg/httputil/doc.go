// Package httputil holds HTTP helpers shared by the bot's upstream clients
// and plugins.
//
//   - [Backoff], [Retry] and [RetryWithBackoff]: retry transient failures
//     with capped exponential backoff. Only errors wrapped in
//     [RetryableError] are retried.
//   - [Download]: fetch a URL with a size limit, used for images that
//     arrive as links inside chat messages.
//
// Typical use from a client:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    data, err = httputil.Download(ctx, client, url, 10<<20)
//	    return err
//	})
//
// Response caching lives in package cache.
package httputil
