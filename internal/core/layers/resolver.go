// Package layers describes the single published layer for map clients.
package layers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/wms-gateway/internal/core/model"
	"github.com/mohammed-shakir/wms-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/wms-gateway/internal/core/respond"
	"github.com/mohammed-shakir/wms-gateway/internal/core/store/postgis"
)

// ExtentSource computes the current extent of the layer's geometries.
// Implementations return postgis.ErrNoExtent when no row is produced.
type ExtentSource interface {
	Extent(ctx context.Context) (model.BBox, error)
}

type Resolver struct {
	logger    *slog.Logger
	src       ExtentSource
	publicWMS string
	layer     string
}

func NewResolver(logger *slog.Logger, src ExtentSource, publicBase, workspace string) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger:    logger,
		src:       src,
		publicWMS: ogc.PublicWMS(publicBase),
		layer:     ogc.QualifiedLayer(workspace, model.LayerName),
	}
}

// Describe builds the descriptor from a freshly computed extent.
func (r *Resolver) Describe(ctx context.Context) (model.LayerDescriptor, error) {
	bb, err := r.src.Extent(ctx)
	if err != nil {
		return model.LayerDescriptor{}, err
	}
	return model.LayerDescriptor{
		Name:  model.LayerName,
		Title: model.LayerTitle,
		SRS:   model.LayerSRS,
		BBox:  bb.Array(),
		WMS: model.WMSRef{
			URL:   r.publicWMS,
			Layer: r.layer,
		},
	}, nil
}

// Handler serves GET /layers.
func (r *Resolver) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		desc, err := r.Describe(ctx)
		switch {
		case errors.Is(err, postgis.ErrNoExtent):
			r.logger.WarnContext(ctx, "no bbox available", "layer", r.layer)
			respond.Error(w, http.StatusNotFound, "No bbox available")
			return
		case err != nil:
			r.logger.ErrorContext(ctx, "describe layer failed", "layer", r.layer, "err", err)
			respond.Error(w, http.StatusInternalServerError, "DB error: "+err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, desc)
	}
}
