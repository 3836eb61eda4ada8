// Package fetch wraps outbound HTTP calls to scraped sources with
// minimum-interval pacing and exponential-backoff retry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Error is a classified fetch failure. Terminal errors signal that the
// request itself is invalid (the resource does not exist under this
// identifier) and must not be retried; transient errors are retried with
// backoff until the attempt cap.
type Error struct {
	URL        string
	StatusCode int
	Terminal   bool
	Err        error
}

func (e *Error) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s failure (status %d)", e.URL, kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s failure: %v", e.URL, kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err is a fetch failure that must not be retried.
func IsTerminal(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Terminal
	}
	return false
}

// Config controls pacing and retry behavior.
type Config struct {
	MinInterval    time.Duration // minimum gap between any two requests
	RequestTimeout time.Duration // per-attempt HTTP timeout
	InitialBackoff time.Duration // first retry delay; doubles each attempt
	MaxRetries     uint64        // retries after the initial attempt
	UserAgent      string
}

// DefaultConfig matches the archive source's scraping etiquette.
func DefaultConfig() Config {
	return Config{
		MinInterval:    2 * time.Second,
		RequestTimeout: 15 * time.Second,
		InitialBackoff: time.Second,
		MaxRetries:     3,
		UserAgent:      defaultUserAgent,
	}
}

// Fetcher serializes all requests through a single pacing gate and retries
// transient failures with exponential backoff. The gate is shared by every
// caller so the effective request rate stays bounded regardless of how many
// logical games are in flight.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	cfg       Config
	userAgent string
	logger    *zap.Logger
}

// New creates a Fetcher. Redirects are not followed: the archive source
// redirects requests for unknown identifiers, so a 3xx is a terminal signal,
// not navigation.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter:   rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:       cfg,
		userAgent: ua,
		logger:    logger,
	}
}

// Fetch retrieves the body at url, pacing and retrying per the config.
// Terminal classification: 404, any redirect status, or an unbuildable
// request. Everything else (timeouts, 5xx, connection resets) is retried up
// to MaxRetries, after which the last error is surfaced.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.cfg.InitialBackoff
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, f.cfg.MaxRetries), ctx)

	attempt := 0
	body, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		data, err := f.attempt(ctx, url)
		if err != nil {
			if IsTerminal(err) {
				return nil, backoff.Permanent(err)
			}
			f.logger.Warn("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, err
		}
		return data, nil
	}, policy)

	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: url, Terminal: true, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Terminal: true, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{URL: url, StatusCode: resp.StatusCode, Err: err}
		}
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Terminal: true}
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// The archive redirects lookups for invalid identifiers to its index
		// page; retrying would burn quota against a known-missing resource.
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Terminal: true}
	default:
		return nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}
}
