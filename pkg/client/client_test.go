package client

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparlane/smm-asset-api/internal/testutil"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

func connect(t *testing.T, srv *testutil.SMMServer) *Connection {
	t.Helper()
	c := Connect(srv.URL, srv.Username(), srv.Password())
	t.Cleanup(c.Close)
	require.Equal(t, models.StateConnected, c.State())
	return c
}

func firstAsset(t *testing.T, c *Connection) *Asset {
	t.Helper()
	assets, err := c.Assets()
	require.NoError(t, err)
	require.NotEmpty(t, assets)
	return assets[0]
}

func TestConnectStates(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	good := Connect(srv.URL, srv.Username(), srv.Password())
	defer good.Close()
	assert.Equal(t, models.StateConnected, good.State())

	bad := Connect(srv.URL, srv.Username(), "not-the-password")
	defer bad.Close()
	assert.Equal(t, models.StateAuthenticationFailure, bad.State())

	invalid := Connect("not a url", "user", "pass")
	defer invalid.Close()
	assert.Equal(t, models.StateHostInvalid, invalid.State())
}

func TestRelogin(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	c := Connect(srv.URL, srv.Username(), "not-the-password")
	defer c.Close()
	require.Equal(t, models.StateAuthenticationFailure, c.State())

	// A failure state clears on the next successful login.
	srv.SetPassword("not-the-password")
	assert.True(t, c.Login())
	assert.Equal(t, models.StateConnected, c.State())
}

func TestAssets(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)

	assets, err := c.Assets()
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "rescue-one", assets[0].Name())
	assert.Equal(t, "helicopter", assets[0].TypeName())
	assert.Equal(t, int64(7), assets[0].ID())
	assert.Equal(t, int64(2), assets[0].TypeID())
	assert.Equal(t, "shore-team", assets[1].Name())
	assert.Equal(t, models.CommandNone, assets[0].LastCommand())
}

func TestReportPositionContinue(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	require.NoError(t, asset.ReportPosition(-43.5, 172.6, 500, 270, 3))
	assert.Equal(t, models.CommandContinue, asset.LastCommand())

	pos := srv.LastPosition()
	require.NotNil(t, pos)
	assert.Equal(t, "-43.500000", pos.Get("lat"))
	assert.Equal(t, "172.600000", pos.Get("lon"))
	assert.Equal(t, "500", pos.Get("alt"))
	assert.Equal(t, "270", pos.Get("bearing"))
	assert.Equal(t, "3", pos.Get("fix"))

	_, _, ok := asset.LastGotoPosition()
	assert.False(t, ok)
}

func TestReportPositionGoto(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	srv.SetCommandBody(`{"action":"GOTO","latitude":-43.1,"longitude":172.9}`)
	require.NoError(t, asset.ReportPosition(-43.5, 172.6, 500, 0, 3))

	assert.Equal(t, models.CommandGoto, asset.LastCommand())
	lat, lon, ok := asset.LastGotoPosition()
	require.True(t, ok)
	assert.Equal(t, -43.1, lat)
	assert.Equal(t, 172.9, lon)

	// A later non-GOTO command invalidates the target.
	srv.SetCommandBody(`{"action":"RTL"}`)
	require.NoError(t, asset.ReportPosition(-43.4, 172.7, 500, 0, 3))
	assert.Equal(t, models.CommandRTL, asset.LastCommand())
	_, _, ok = asset.LastGotoPosition()
	assert.False(t, ok)
}

func TestReportPositionOtherBodies(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	srv.SetPlainBody("standby")
	require.NoError(t, asset.ReportPosition(0, 0, 0, 0, 0))
	assert.Equal(t, models.CommandNone, asset.LastCommand())

	srv.SetCommandBody(`{"action":"DANCE"}`)
	require.NoError(t, asset.ReportPosition(0, 0, 0, 0, 0))
	assert.Equal(t, models.CommandUnknown, asset.LastCommand())
}

func TestSearchFlow(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	srv.SetSearchBody(`{"object_url":"/search/sector/42/json/","distance":850,"length":12000,"sweep_width":200}`)
	srv.SetWaypointsBody(`{"features":[{"geometry":{"coordinates":[[172.0,-43.0],[172.1,-43.1]]}}]}`)

	search, err := asset.Search(-43.5, 172.6)
	require.NoError(t, err)
	require.NotNil(t, search)
	assert.Equal(t, int64(850), search.Distance())
	assert.Equal(t, int64(12000), search.Length())
	assert.Equal(t, int64(200), search.SweepWidth())

	waypoints, err := search.Waypoints()
	require.NoError(t, err)
	require.Len(t, waypoints, 2)
	assert.Equal(t, models.Waypoint{Latitude: -43.0, Longitude: 172.0}, waypoints[0])
	assert.Equal(t, models.Waypoint{Latitude: -43.1, Longitude: 172.1}, waypoints[1])

	require.NoError(t, search.Accept())
	assert.Equal(t, []string{"7"}, srv.BegunBy())

	require.NoError(t, search.Complete())
	assert.Equal(t, []string{"7"}, srv.FinishedBy())
}

func TestSearchNoneAvailable(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	search, err := asset.Search(-43.5, 172.6)
	assert.NoError(t, err)
	assert.Nil(t, search)
}

func TestSearchWaypointShapeShortfall(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	srv.SetSearchBody(`{"object_url":"/search/sector/42/json/","distance":1,"length":2,"sweep_width":3}`)
	srv.SetWaypointsBody(`{"features":[]}`)

	search, err := asset.Search(0, 0)
	require.NoError(t, err)
	require.NotNil(t, search)

	// Shape shortfall reports success with zero waypoints; the count is
	// the only signal.
	waypoints, err := search.Waypoints()
	assert.NoError(t, err)
	assert.Empty(t, waypoints)
}

func TestSearchActionRequiresJSONSegment(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()
	c := connect(t, srv)
	asset := firstAsset(t, c)

	srv.SetSearchBody(`{"object_url":"/search/sector/42/","distance":1,"length":2,"sweep_width":3}`)
	search, err := asset.Search(0, 0)
	require.NoError(t, err)
	require.NotNil(t, search)

	assert.ErrorIs(t, search.Accept(), models.ErrNoActionSegment)
	assert.ErrorIs(t, search.Complete(), models.ErrNoActionSegment)
}

func TestMetricsRegistration(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := Connect(srv.URL, srv.Username(), srv.Password(), WithMetrics(reg))
	defer c.Close()
	require.Equal(t, models.StateConnected, c.State())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["smm_asset_exchanges_total"])
	assert.True(t, names["smm_asset_login_attempts_total"])
}
