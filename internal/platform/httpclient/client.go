package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	randv2 "math/rand/v2"
	"net"
	stdhttp "net/http"
	"net/url"
	"os"
	"strconv"
	"syscall"
	"time"

	"imdb-titles/internal/shared"
)

// Client wraps http.Client with logging and retries of idempotent requests.
type Client struct {
	hc               *stdhttp.Client
	log              *slog.Logger
	retries          int
	baseBackoff      time.Duration
	maxBackoff       time.Duration
	maxRetryDuration time.Duration
	headers          map[string]string
	retryPolicy      func(*stdhttp.Response, error) (time.Duration, bool)
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the whole-request timeout, body included. Zero disables
// it, which large downloads need; they are bounded by their context instead.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables n retries with exponential backoff and jitter.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithMaxRetryDuration limits total time spent on retries.
func WithMaxRetryDuration(d time.Duration) Option {
	return func(c *Client) { c.maxRetryDuration = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConnsPerHost = 10
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:         slog.Default(),
		baseBackoff: 200 * time.Millisecond,
		retryPolicy: retryInfo,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is returned by Get for a final non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Get fetches rawURL and returns the response only for a 2xx status; the
// caller closes the body. A 404 is marked shared.KindNotFound, every other
// failure shared.KindDependencyFailure.
func (c *Client) Get(ctx context.Context, rawURL string) (*stdhttp.Response, error) {
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, rawURL, nil)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindValidation)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		if shared.IsCanceled(err) || shared.IsTimeout(err) {
			return nil, err
		}
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainAndClose(resp.Body)
		serr := &StatusError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		if resp.StatusCode == stdhttp.StatusNotFound {
			return nil, shared.MarkKind(serr, shared.KindNotFound)
		}
		return nil, shared.MarkKind(serr, shared.KindDependencyFailure)
	}
	return resp, nil
}

// Do sends an idempotent request with logging and retries. Requests with a
// body are sent once.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	retries := c.retries
	if req.Body != nil && req.Body != stdhttp.NoBody {
		retries = 0
	}

	var lastErr error
	start := time.Now()
	for attempt := 1; attempt <= retries+1; attempt++ {
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}

		u := r.URL.Redacted()
		st := time.Now()
		resp, err := c.hc.Do(r)
		dur := time.Since(st)

		delay, retry := c.retryPolicy(resp, err)
		if !retry || attempt > retries {
			if err != nil {
				c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Any("error", err))
				return nil, err
			}
			if retry {
				// retryPolicy already drained the body of a retryable status.
				return nil, &StatusError{Method: r.Method, URL: u, StatusCode: resp.StatusCode}
			}
			c.log.Info("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Int("attempt", attempt))
			return resp, nil
		}

		wait := c.backoff(attempt, delay)
		if deadline, ok := ctx.Deadline(); ok && wait > time.Until(deadline) {
			return nil, context.DeadlineExceeded
		}
		if c.maxRetryDuration > 0 && time.Since(start)+wait > c.maxRetryDuration {
			if err == nil {
				err = &StatusError{Method: r.Method, URL: u, StatusCode: resp.StatusCode}
			}
			return nil, fmt.Errorf("retry budget exceeded: %w", err)
		}

		if err != nil {
			lastErr = err
			c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		} else {
			lastErr = &StatusError{Method: r.Method, URL: u, StatusCode: resp.StatusCode}
			c.log.Warn("http request status", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Int("status", resp.StatusCode))
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	wait := retryAfter
	if wait <= 0 {
		wait = c.baseBackoff * time.Duration(1<<uint(attempt-1))
		if wait > 0 {
			wait += time.Duration(randv2.Int64N(int64(wait)))
		}
	}
	if c.maxBackoff > 0 && wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	return wait
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		if ne, ok := ue.Err.(net.Error); ok && ne.Timeout() {
			return true
		}
		if oe, ok := ue.Err.(*net.OpError); ok {
			if se, ok := oe.Err.(*os.SyscallError); ok {
				switch se.Err {
				case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
					syscall.ENETDOWN, syscall.ENETUNREACH, syscall.EPIPE,
					syscall.EHOSTUNREACH, syscall.ETIMEDOUT:
					return true
				}
			}
		}
		var dnsErr *net.DNSError
		if errors.As(ue.Err, &dnsErr) && dnsErr.IsTemporary {
			return true
		}
	}
	return false
}

// retryInfo reports whether a response or error is worth retrying and the
// server-requested delay, if any. Retryable responses are drained and closed.
func retryInfo(resp *stdhttp.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, isRetryableError(err)
	}
	switch {
	case resp.StatusCode == 408, resp.StatusCode == 425:
		drainAndClose(resp.Body)
		return 0, true
	case resp.StatusCode == 429, resp.StatusCode >= 500:
		delay := retryAfter(resp.Header.Get("Retry-After"))
		drainAndClose(resp.Body)
		return delay, true
	default:
		return 0, false
	}
}
