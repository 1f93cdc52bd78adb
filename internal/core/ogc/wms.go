// Package ogc builds the WMS endpoint urls and layer names exchanged with GeoServer.
package ogc

import "strings"

// UpstreamWMS is the workspace-scoped GeoServer endpoint, e.g. http://gs/geoserver/ws/wms.
func UpstreamWMS(geoServerBase, workspace string) string {
	return strings.TrimRight(geoServerBase, "/") + "/" + workspace + "/wms"
}

// PublicWMS is the gateway's own /wms url as seen by browsers.
func PublicWMS(publicBase string) string {
	return strings.TrimRight(publicBase, "/") + "/wms"
}

func QualifiedLayer(workspace, name string) string {
	return workspace + ":" + name
}
