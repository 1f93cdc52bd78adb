// Package httpclient configures the HTTP client used to call GeoServer.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// UpstreamTimeout bounds one proxied exchange, body included.
const UpstreamTimeout = 30 * time.Second

// NewOutbound creates a new outbound http client
func NewOutbound() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   UpstreamTimeout,
	}
}
