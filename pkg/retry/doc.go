// Package retry runs a function with exponential backoff and jitter.
//
//	cfg := retry.DefaultConfig()
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//	    log.Warn("retrying", slog.Int("attempt", attempt), slog.Any("error", err))
//	}
//	err := retry.DoWithRetryable(ctx, cfg, writeBatch, shared.IsDependencyFailure)
//
// For HTTP requests use internal/platform/httpclient, which also honours
// status codes and Retry-After.
package retry
