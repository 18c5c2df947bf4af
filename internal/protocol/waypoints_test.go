package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

func TestParseWaypoints(t *testing.T) {
	body := []byte(`{"features":[{"geometry":{"coordinates":[[172.0,-43.0],[172.1,-43.1]]}}]}`)
	waypoints := ParseWaypoints(body, zap.NewNop())

	require.Len(t, waypoints, 2)
	assert.Equal(t, models.Waypoint{Latitude: -43.0, Longitude: 172.0}, waypoints[0])
	assert.Equal(t, models.Waypoint{Latitude: -43.1, Longitude: 172.1}, waypoints[1])
}

func TestParseWaypointsFeatureCardinality(t *testing.T) {
	empty := []byte(`{"features":[]}`)
	assert.Empty(t, ParseWaypoints(empty, zap.NewNop()))

	two := []byte(`{"features":[{"geometry":{"coordinates":[[1.0,2.0]]}},{"geometry":{"coordinates":[[3.0,4.0]]}}]}`)
	assert.Empty(t, ParseWaypoints(two, zap.NewNop()))
}

func TestParseWaypointsMalformed(t *testing.T) {
	assert.Empty(t, ParseWaypoints([]byte("<html>"), zap.NewNop()))
	assert.Empty(t, ParseWaypoints([]byte(`{"no_features":true}`), zap.NewNop()))
}
