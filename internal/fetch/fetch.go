package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout      = 20 * time.Second
	DefaultMaxRedirects = 5

	DefaultMaxBodyBytes = 10 << 20
)

// FetchError reports a failed upstream request. StatusCode is zero when no
// response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBodyTooLarge     = errors.New("response body too large")
)

type Options struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	MaxRedirects     int
	MaxBodyBytes     int64
	RatePerSecond    float64
	CloudflareBypass bool
	Transport        http.RoundTripper
	Logger           *slog.Logger
}

type Fetcher struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	maxBody   int64
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	if opts.CloudflareBypass {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Fetcher{
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		maxBody:   opts.MaxBodyBytes,
		client:    client,
		limiter:   limiter,
		logger:    opts.Logger,
	}
}

// FetchMarkup GETs target and returns the body decoded to UTF-8. A timeout of
// zero uses the fetcher default. Failures are never retried here.
func (f *Fetcher) FetchMarkup(ctx context.Context, target string, timeout time.Duration) (string, error) {
	ctx, cancel := f.withTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	req, err := f.newRequest(ctx, http.MethodGet, target)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	if err := f.wait(ctx); err != nil {
		return "", &FetchError{URL: target, Err: err}
	}

	res, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("fetch failed", "url", target, "error", err, "duration", time.Since(started))
		return "", &FetchError{URL: target, Err: err}
	}
	defer res.Body.Close()

	f.logger.Debug("fetch done", "url", target, "status", res.StatusCode, "duration", time.Since(started))

	if !acceptableStatus(res.StatusCode) {
		return "", &FetchError{URL: target, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status: %d", res.StatusCode)}
	}

	reader, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		reader = res.Body
	}

	rawBody, err := io.ReadAll(io.LimitReader(reader, f.maxBody+1))
	if err != nil {
		return "", &FetchError{URL: target, Err: fmt.Errorf("read response body: %w", err)}
	}
	if int64(len(rawBody)) > f.maxBody {
		f.logger.Warn("fetch body over limit", "url", target, "limit", f.maxBody)
		return "", &FetchError{URL: target, Err: errBodyTooLarge}
	}

	return string(rawBody), nil
}

// ProbeExists checks target with HEAD and falls back to a one-byte ranged GET.
// It reports false on any error.
func (f *Fetcher) ProbeExists(ctx context.Context, target string, timeout time.Duration) bool {
	ctx, cancel := f.withTimeout(ctx, timeout)
	defer cancel()

	if f.probe(ctx, http.MethodHead, target) {
		return true
	}
	return f.probe(ctx, http.MethodGet, target)
}

func (f *Fetcher) probe(ctx context.Context, method string, target string) bool {
	req, err := f.newRequest(ctx, method, target)
	if err != nil {
		return false
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	if err := f.wait(ctx); err != nil {
		return false
	}

	res, err := f.client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1024))
	_ = res.Body.Close()

	return acceptableStatus(res.StatusCode)
}

func (f *Fetcher) newRequest(ctx context.Context, method string, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "fa-IR,fa;q=0.9,en-US;q=0.8,en;q=0.7")
	if f.baseURL != "" {
		req.Header.Set("Referer", f.baseURL+"/")
	}
	return req, nil
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

func (f *Fetcher) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = f.timeout
	}
	return context.WithTimeout(ctx, timeout)
}

func acceptableStatus(code int) bool {
	return code >= 200 && code < 400
}
