package probe

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/arguslabs/argus-go/internal/types"
)

// URLExecutor implements the HTTP/HTTPS GET test ofTLS
// certificate verification is disabled: this is a reachability monitor,
// not a trust decision.
type URLExecutor struct{}

func (URLExecutor) Execute(test types.TestConfig, timeoutMS int) types.ProbeOutcome {
	return timed(func() (bool, string) {
		if test.URL == "" {
			return false, "url is required for url test"
		}
		parsed, err := url.Parse(test.URL)
		if err != nil {
			return false, "invalid url: " + err.Error()
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return false, "url scheme must be http or https"
		}

		timeout := time.Duration(timeoutMS) * time.Millisecond
		client := newURLClient(timeout, test.Proxy)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, test.URL, nil)
		if err != nil {
			return false, err.Error()
		}
		req.Header.Set("User-Agent", "Argus/1.0 (Network Monitor)")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Connection", "close")

		resp, err := client.Do(req)
		if err != nil {
			return false, err.Error()
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true, ""
		}
		return false, http.StatusText(resp.StatusCode)
	})
}

func newURLClient(timeout time.Duration, proxy string) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // reachability probe, not a trust decision
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
