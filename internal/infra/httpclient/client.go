// Package httpclient builds the pooled, traced HTTP client used for payment
// gateway calls.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/infra/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// New creates an HTTP client with the given pool settings. responseTimeout
// bounds a single request including reading the body; zero means no limit.
func New(cfg config.HTTPClientConfig, responseTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   responseTimeout,
	}
}
