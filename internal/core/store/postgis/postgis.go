// Package postgis reads layer extents from PostGIS with one connection per call.
package postgis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mohammed-shakir/wms-gateway/internal/core/model"
	"github.com/mohammed-shakir/wms-gateway/internal/core/observability"
	mylog "github.com/mohammed-shakir/wms-gateway/internal/logger"
)

// ErrNoExtent means the aggregate returned no row at all.
// An empty table still yields one row and maps to model.WorldBBox.
var ErrNoExtent = errors.New("postgis: extent query returned no row")

const extentSQL = `
SELECT
	COALESCE(ST_XMin(ext), -180) AS minx,
	COALESCE(ST_YMin(ext), -90)  AS miny,
	COALESCE(ST_XMax(ext), 180)  AS maxx,
	COALESCE(ST_YMax(ext), 90)   AS maxy
FROM (SELECT ST_Extent(geom) AS ext FROM public.regions) q`

const closeTimeout = 5 * time.Second

type Source struct {
	logger *slog.Logger
	cfg    *pgx.ConnConfig
}

// New parses connString eagerly so a malformed DSN fails at startup.
func New(logger *slog.Logger, connString string) (*Source, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres conn string: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger, cfg: cfg}, nil
}

// withConn opens a dedicated connection, runs fn and always closes it.
func (s *Source) withConn(ctx context.Context, fn func(*pgx.Conn) error) error {
	conn, err := pgx.ConnectConfig(ctx, s.cfg.Copy())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := conn.Close(closeCtx); cerr != nil {
			s.logger.DebugContext(ctx, "postgis close failed", "err", cerr)
		}
	}()
	return fn(conn)
}

// Extent computes the bounding box of every geometry in public.regions.
func (s *Source) Extent(ctx context.Context) (model.BBox, error) {
	ctx = mylog.WithUpstream(ctx, observability.UpstreamPostGIS)
	start := time.Now()

	var bb model.BBox
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(ctx, extentSQL).Scan(&bb.MinX, &bb.MinY, &bb.MaxX, &bb.MaxY)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNoExtent
		case err != nil:
			return fmt.Errorf("query extent: %w", err)
		}
		return nil
	})

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(observability.UpstreamPostGIS, dur.Seconds())
	if err != nil {
		if !errors.Is(err, ErrNoExtent) {
			observability.IncUpstreamError(observability.UpstreamPostGIS)
		}
		return model.BBox{}, err
	}

	s.logger.DebugContext(ctx, "extent computed",
		"bbox", bb.Array(),
		"duration", dur)
	return bb, nil
}

// Ping opens and closes a connection; used by readiness.
func (s *Source) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *pgx.Conn) error {
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	})
}
