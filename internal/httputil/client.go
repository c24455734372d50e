// Package httputil provides the hardened HTTP client used for release
// listings and archive downloads.
package httputil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/chaosctl/chaos/internal/buildinfo"
)

// ClientOptions configures the client. Zero values take defaults.
type ClientOptions struct {
	// Timeout is the overall request timeout, including reading the body.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers. Default: 15s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth. Default: 10.
	MaxRedirects int

	// UserAgent overrides the default "chaos/<version>".
	UserAgent string
}

// NewSecureClient creates an HTTP client that only follows HTTPS redirects
// to public addresses and never negotiates transparent compression.
func NewSecureClient(opts ClientOptions) *http.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 30 * time.Second
	}
	if opts.ResponseHeaderTimeout == 0 {
		opts.ResponseHeaderTimeout = 15 * time.Second
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "chaos/" + buildinfo.Version()
	}

	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		DisableCompression: true,
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Timeout:       opts.Timeout,
		Transport:     &userAgentTransport{base: transport, agent: opts.UserAgent},
		CheckRedirect: redirectChecker(opts.MaxRedirects, net.LookupIP),
	}
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}

// redirectChecker rejects HTTPS downgrades, deep chains and redirects whose
// host resolves to a non-public address.
func redirectChecker(maxRedirects int, lookup func(string) ([]net.IP, error)) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}

		host := req.URL.Hostname()
		if ip := net.ParseIP(host); ip != nil {
			return ValidateIP(ip, host)
		}
		ips, err := lookup(host)
		if err != nil {
			return fmt.Errorf("failed to resolve redirect host %s: %w", host, err)
		}
		for _, ip := range ips {
			if err := ValidateIP(ip, host); err != nil {
				return err
			}
		}
		return nil
	}
}

var blockedRanges = []struct {
	name string
	test func(net.IP) bool
}{
	{"private", net.IP.IsPrivate},
	{"loopback", net.IP.IsLoopback},
	{"link-local", net.IP.IsLinkLocalUnicast},
	{"link-local multicast", net.IP.IsLinkLocalMulticast},
	{"multicast", net.IP.IsMulticast},
	{"unspecified", net.IP.IsUnspecified},
}

// ValidateIP returns an error when ip is not a public unicast address.
func ValidateIP(ip net.IP, host string) error {
	for _, r := range blockedRanges {
		if r.test(ip) {
			return fmt.Errorf("refusing redirect to %s address: %s (%s)", r.name, host, ip)
		}
	}
	return nil
}

// Get issues a GET for url and returns the response when the status is 200.
// The caller closes the body.
func Get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected content encoding %q", url, enc)
	}
	return resp, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}
