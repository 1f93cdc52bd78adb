// Package model defines core domain types shared across the service.
package model

const (
	LayerName  = "regions"
	LayerTitle = "Regions"
	LayerSRS   = "EPSG:4326"
)

// BBox is an axis-aligned extent in EPSG:4326.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// WorldBBox is reported when the spatial table holds no geometry.
var WorldBBox = BBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}

// Array returns the extent in wms/openlayers order: minx, miny, maxx, maxy.
func (b BBox) Array() [4]float64 {
	return [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

func (b BBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

type WMSRef struct {
	URL   string `json:"url"`
	Layer string `json:"layer"`
}

type LayerDescriptor struct {
	Name  string     `json:"name"`
	Title string     `json:"title"`
	SRS   string     `json:"srs"`
	BBox  [4]float64 `json:"bbox"`
	WMS   WMSRef     `json:"wms"`
}
