package protocol

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

// searchGeometry is the GeoJSON-like envelope a search URL returns. The
// server encodes the sweep polyline as the geometry of a single feature.
type searchGeometry struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ParseWaypoints decodes a search's sweep polyline. The features array
// must contain exactly one element; any other cardinality, and any body
// that does not parse, is logged and yields zero waypoints. Callers
// receive the shortfall as an empty slice, not an error, and must check
// the count. Coordinate pairs arrive as [lon, lat] and are returned as
// (lat, lon) waypoints in server order.
func ParseWaypoints(body []byte, logger *zap.Logger) []models.Waypoint {
	var envelope searchGeometry
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.Warn("malformed waypoint geometry", zap.Error(err))
		return nil
	}
	if len(envelope.Features) != 1 {
		logger.Warn("unexpected feature count in waypoint geometry",
			zap.Int("features", len(envelope.Features)))
		return nil
	}

	coords := envelope.Features[0].Geometry.Coordinates
	waypoints := make([]models.Waypoint, 0, len(coords))
	for _, pair := range coords {
		var wp models.Waypoint
		if len(pair) >= 2 {
			wp.Longitude = pair[0]
			wp.Latitude = pair[1]
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints
}
