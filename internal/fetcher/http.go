// Package fetcher retrieves retailer pages over HTTP with rate limiting
// and an opt-in insecure TLS fallback for retailers with broken certificate
// chains.
package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// defaultHeaders imitate a desktop browser requesting Turkish content.
// Several retailers serve reduced or blocked markup to non-browser agents.
var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept-Language":           "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Encoding":           "gzip, deflate",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// HTTPOptions configures the page fetcher.
type HTTPOptions struct {
	Timeout      time.Duration
	RateLimiters map[string]*rate.Limiter
}

// PageOptions configure a single page fetch.
type PageOptions struct {
	// Query is appended to the URL as query parameters.
	Query url.Values
	// Headers are sent in addition to (or instead of) the defaults.
	Headers map[string]string
	// IncludeDefaultHeaders controls whether the browser header set is sent.
	IncludeDefaultHeaders bool
	// AllowInsecureFallback retries once without certificate validation
	// when the initial attempt fails on a certificate error.
	AllowInsecureFallback bool
}

// PageFetcher retrieves a page body and reports the final URL after
// redirects. Implementations must return an error for network failures,
// error statuses, and empty bodies.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string, opts PageOptions) (body string, finalURL string, err error)
}

// HTTPFetcher implements PageFetcher using net/http.
type HTTPFetcher struct {
	client         *http.Client
	insecureClient *http.Client
	limiters       map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	insecureTransport := transport.Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		insecureClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: insecureTransport,
		},
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return f.limiters[u.Host]
}

// FetchPage retrieves the page at rawURL and returns its body with the
// final URL after redirects.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string, opts PageOptions) (string, string, error) {
	if lim := f.limiterFor(rawURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", "", eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}

	body, finalURL, err := f.fetch(ctx, f.client, rawURL, opts)
	if err != nil && opts.AllowInsecureFallback && isCertificateError(err) {
		zap.L().Warn("fetcher: certificate validation failed, retrying without verification",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		body, finalURL, err = f.fetch(ctx, f.insecureClient, rawURL, opts)
	}
	return body, finalURL, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, client *http.Client, rawURL string, opts PageOptions) (string, string, error) {
	target := rawURL
	if len(opts.Query) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", eris.Wrapf(err, "fetcher: parse url %s", rawURL)
		}
		q := u.Query()
		for key, values := range opts.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", eris.Wrap(err, "fetcher: create request")
	}
	if opts.IncludeDefaultHeaders {
		for k, v := range defaultHeaders {
			req.Header.Set(k, v)
		}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", "", eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetcher: read body from %s", rawURL)
	}
	if len(data) == 0 {
		return "", "", eris.Errorf("fetcher: empty response body from %s", rawURL)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return string(data), finalURL, nil
}

// isCertificateError reports whether err stems from TLS certificate
// validation, as opposed to other transport failures.
func isCertificateError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}
