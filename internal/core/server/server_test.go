package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/wms-gateway/internal/core/config"
	"github.com/mohammed-shakir/wms-gateway/internal/core/httpclient"
	"github.com/mohammed-shakir/wms-gateway/internal/core/layers"
	"github.com/mohammed-shakir/wms-gateway/internal/core/model"
	"github.com/mohammed-shakir/wms-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/wms-gateway/internal/core/proxy"
)

type fixedExtent model.BBox

func (f fixedExtent) Extent(context.Context) (model.BBox, error) { return model.BBox(f), nil }
func (f fixedExtent) Ping(context.Context) error                 { return nil }

func testConfig(geoserver string) config.Config {
	return config.Config{
		Addr:           ":0",
		ServiceName:    "GIS Test API",
		PublicAPIBase:  "http://localhost:8000",
		MetricsEnabled: true,
		GeoServer: config.GeoServerCfg{
			BaseURL:   geoserver,
			Workspace: "gis_test",
			User:      "admin",
			Password:  "geoserver",
		},
	}
}

func newGateway(t *testing.T, geoserver string) *httptest.Server {
	t.Helper()
	cfg := testConfig(geoserver)
	src := fixedExtent{MinX: 10, MinY: 20, MaxX: 30, MaxY: 40}

	wms, err := proxy.New(slog.Default(), httpclient.NewOutbound(),
		ogc.UpstreamWMS(cfg.GeoServer.BaseURL, cfg.GeoServer.Workspace),
		proxy.Credentials{User: cfg.GeoServer.User, Password: cfg.GeoServer.Password})
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	h := Handlers{
		Layers: layers.NewResolver(slog.Default(), src, cfg.PublicAPIBase, cfg.GeoServer.Workspace).Handler(),
		WMS:    wms,
		DB:     src,
	}
	gw := httptest.NewServer(NewRouter(cfg, slog.Default(), h))
	t.Cleanup(gw.Close)
	return gw
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp, b
}

func TestGateway_LayersThenWMS(t *testing.T) {
	var upstreamURI string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamURI = r.URL.RequestURI()
		if u, p, ok := r.BasicAuth(); !ok || u != "admin" || p != "geoserver" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "tile-bytes")
	}))
	defer up.Close()

	gw := newGateway(t, up.URL+"/geoserver/")

	resp, body := get(t, gw.URL+"/layers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/layers status=%d body=%s", resp.StatusCode, body)
	}
	var desc model.LayerDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if desc.BBox != [4]float64{10, 20, 30, 40} {
		t.Fatalf("bbox=%v", desc.BBox)
	}
	if desc.WMS.Layer != "gis_test:regions" || desc.WMS.URL != "http://localhost:8000/wms" {
		t.Fatalf("wms=%+v", desc.WMS)
	}

	query := "service=WMS&request=GetMap&layers=gis_test:regions&bbox=10,20,30,40&width=256&height=256"
	resp, body = get(t, gw.URL+"/wms?"+query)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("/wms status=%d want upstream 202", resp.StatusCode)
	}
	if string(body) != "tile-bytes" {
		t.Fatalf("body=%q", body)
	}
	if upstreamURI != "/geoserver/gis_test/wms?"+query {
		t.Fatalf("upstream uri=%q", upstreamURI)
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Fatalf("cache-control=%q", resp.Header.Get("Cache-Control"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestGateway_RootHealthAndMetrics(t *testing.T) {
	gw := newGateway(t, "http://127.0.0.1:1/geoserver")

	resp, body := get(t, gw.URL+"/")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"ok":true,"service":"GIS Test API"}` {
		t.Fatalf("root status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = get(t, gw.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status=%d", resp.StatusCode)
	}
	resp, _ = get(t, gw.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}

	resp, body = get(t, gw.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `route="/"`) {
		t.Fatalf("expected route label for /, got:\n%s", body)
	}
}

func TestGateway_WMSOnlyAcceptsGet(t *testing.T) {
	gw := newGateway(t, "http://127.0.0.1:1/geoserver")

	resp, err := http.Post(gw.URL+"/wms", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", resp.StatusCode)
	}
}

func TestGateway_UpstreamDownIsBadGateway(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	base := up.URL
	up.Close()

	gw := newGateway(t, base)
	resp, body := get(t, gw.URL+"/wms?service=WMS&request=GetCapabilities")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Proxy error: ") {
		t.Fatalf("body=%s", body)
	}
}
