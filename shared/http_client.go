package shared

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// BrowserUserAgent is the Chrome-like user agent sent on every portal request.
// Government portals serve reduced or blocked markup to obvious bots.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// NewBrowserTransport returns an HTTP transport with connection pooling
// tuned for repeated fetches against a small set of portal hosts.
func NewBrowserTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		DisableKeepAlives:     false,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    false,
	}
}

// NewBrowserHTTPClient creates an HTTP client with browser-like transport
// settings and the given overall request timeout.
func NewBrowserHTTPClient(timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout:   timeout,
		Transport: NewBrowserTransport(),
	}

	logrus.WithFields(logrus.Fields{
		"component": "BrowserHTTPClient",
		"timeout":   timeout,
	}).Debug("Created browser-like HTTP client")

	return client
}

// SetBrowserLikeHeaders configures HTTP request headers to mimic browser behavior
func SetBrowserLikeHeaders(request *http.Request) {
	request.Header.Set("User-Agent", BrowserUserAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	request.Header.Set("Accept-Language", "en-US,en;q=0.5")
	request.Header.Set("Connection", "keep-alive")
	request.Header.Set("Upgrade-Insecure-Requests", "1")
}
