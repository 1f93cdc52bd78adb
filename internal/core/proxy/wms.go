// Package proxy forwards WMS requests to GeoServer and streams the responses back.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/mohammed-shakir/wms-gateway/internal/core/httpclient"
	"github.com/mohammed-shakir/wms-gateway/internal/core/observability"
	"github.com/mohammed-shakir/wms-gateway/internal/core/respond"
	mylog "github.com/mohammed-shakir/wms-gateway/internal/logger"
)

const (
	DefaultContentType = "application/octet-stream"
	userAgent          = "wms-gateway"
)

// Credentials are injected on every upstream request; clients never supply them.
type Credentials struct {
	User     string
	Password string
}

type startKey struct{}

type WMS struct {
	logger   *slog.Logger
	target   *url.URL
	creds    Credentials
	timeout  time.Duration
	proxy    *httputil.ReverseProxy
	startNow func() time.Time // for tests
}

// New builds a proxy to target (the workspace WMS url). The client's transport
// carries the requests and its Timeout bounds each whole exchange.
func New(logger *slog.Logger, client *http.Client, target string, creds Credentials) (*WMS, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse wms url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("wms url %q: scheme and host required", target)
	}
	if logger == nil {
		logger = slog.Default()
	}

	rt := http.RoundTripper(http.DefaultTransport)
	timeout := httpclient.UpstreamTimeout
	if client != nil {
		if client.Transport != nil {
			rt = client.Transport
		}
		if client.Timeout > 0 {
			timeout = client.Timeout
		}
	}

	p := &WMS{
		logger:   logger,
		target:   u,
		creds:    creds,
		timeout:  timeout,
		startNow: time.Now,
	}
	p.proxy = &httputil.ReverseProxy{
		Transport:      rt,
		FlushInterval:  -1,
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
	}
	return p, nil
}

// ServeHTTP proxies GET /wms. The deadline covers the upstream round trip and
// the body copy.
func (p *WMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, startKey{}, p.startNow())
	ctx = mylog.WithUpstream(ctx, observability.UpstreamGeoServer)

	p.logger.DebugContext(ctx, "forward WMS",
		"geoserver_wms", p.target.String(),
		"request", r.URL.Query().Get("REQUEST"))

	p.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (p *WMS) rewrite(pr *httputil.ProxyRequest) {
	pr.Out.Method = http.MethodGet
	pr.Out.URL.Scheme = p.target.Scheme
	pr.Out.URL.Host = p.target.Host
	pr.Out.URL.Path = p.target.Path
	pr.Out.URL.RawPath = p.target.EscapedPath()
	// forwarded byte for byte: order and repeated keys survive
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.Out.Host = p.target.Host

	// nothing from the client travels upstream except the query
	pr.Out.Header = make(http.Header)
	pr.Out.Header.Set("User-Agent", userAgent)
	pr.Out.SetBasicAuth(p.creds.User, p.creds.Password)
	pr.SetXForwarded()
}

func (p *WMS) modifyResponse(resp *http.Response) error {
	ctx := resp.Request.Context()
	dur := p.elapsed(ctx)

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = DefaultContentType
	}
	resp.Header = http.Header{}
	resp.Header.Set("Content-Type", ct)
	resp.Header.Set("Cache-Control", "no-cache")
	resp.Trailer = nil

	observability.ObserveUpstreamLatency(observability.UpstreamGeoServer, dur.Seconds())
	observability.ObserveUpstreamResponse(observability.UpstreamGeoServer, resp.StatusCode)
	p.logger.DebugContext(ctx, "forward done",
		"status", resp.StatusCode,
		"content_type", ct,
		"duration", dur.String())
	return nil
}

func (p *WMS) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	observability.IncUpstreamError(observability.UpstreamGeoServer)
	p.logger.ErrorContext(ctx, "reverse proxy error",
		"err", err,
		"duration", p.elapsed(ctx).String())
	respond.Error(w, http.StatusBadGateway, "Proxy error: "+err.Error())
}

func (p *WMS) elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
