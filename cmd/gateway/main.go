package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/wms-gateway/internal/core/config"
	"github.com/mohammed-shakir/wms-gateway/internal/core/httpclient"
	"github.com/mohammed-shakir/wms-gateway/internal/core/layers"
	"github.com/mohammed-shakir/wms-gateway/internal/core/observability"
	"github.com/mohammed-shakir/wms-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/wms-gateway/internal/core/proxy"
	"github.com/mohammed-shakir/wms-gateway/internal/core/server"
	"github.com/mohammed-shakir/wms-gateway/internal/core/store/postgis"
	"github.com/mohammed-shakir/wms-gateway/internal/logger"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// optional; real env vars win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		Service:   cfg.ServiceName,
		Component: "gateway",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)

	upstreamWMS := ogc.UpstreamWMS(cfg.GeoServer.BaseURL, cfg.GeoServer.Workspace)
	appLog.Info("starting gateway",
		"addr", cfg.Addr,
		"version", Version,
		"geoserver_wms", upstreamWMS,
		"public_api_base", cfg.PublicAPIBase,
		"postgres_host", cfg.Postgres.Host)

	db, err := postgis.New(appLog, cfg.Postgres.ConnString())
	if err != nil {
		appLog.Error("failed to initialize postgis source", "err", err)
		return 1
	}

	wms, err := proxy.New(appLog, httpclient.NewOutbound(), upstreamWMS, proxy.Credentials{
		User:     cfg.GeoServer.User,
		Password: cfg.GeoServer.Password,
	})
	if err != nil {
		appLog.Error("failed to initialize wms proxy", "err", err)
		return 1
	}

	resolver := layers.NewResolver(appLog, db, cfg.PublicAPIBase, cfg.GeoServer.Workspace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, appLog, server.Handlers{
		Layers: resolver.Handler(),
		WMS:    wms,
		DB:     db,
	}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
