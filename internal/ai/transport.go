package ai

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TransportConfig is the network egress of a single provider.
type TransportConfig struct {
	ProxyURL string // empty means direct
	Timeout  time.Duration
}

// NewHTTPClient builds a client whose proxy setting belongs to this client
// alone. Proxy environment variables are ignored.
func NewHTTPClient(cfg TransportConfig) (*http.Client, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		t.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: t, Timeout: cfg.Timeout}, nil
}
