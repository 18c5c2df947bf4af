package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

func TestParseSearchInfo(t *testing.T) {
	body := []byte(`{"object_url":"/search/sector/42/json/","distance":850,"length":12000,"sweep_width":200}`)
	info := ParseSearchInfo(body, zap.NewNop())

	require.NotNil(t, info)
	assert.Equal(t, "/search/sector/42/json/", info.ObjectURL)
	assert.Equal(t, int64(850), info.Distance)
	assert.Equal(t, int64(12000), info.Length)
	assert.Equal(t, int64(200), info.SweepWidth)
}

func TestParseSearchInfoMalformed(t *testing.T) {
	assert.Nil(t, ParseSearchInfo([]byte("not json"), zap.NewNop()))
}

func TestActionURL(t *testing.T) {
	accept, err := ActionURL("/search/sector/42/json/", ActionBegin, 7)
	require.NoError(t, err)
	assert.Equal(t, "/search/sector/42/begin/?asset_id=7", accept)

	complete, err := ActionURL("/search/sector/42/json/", ActionFinished, 7)
	require.NoError(t, err)
	assert.Equal(t, "/search/sector/42/finished/?asset_id=7", complete)
}

func TestActionURLWithoutJSONSegment(t *testing.T) {
	_, err := ActionURL("/search/sector/42/", ActionBegin, 7)
	assert.ErrorIs(t, err, models.ErrNoActionSegment)
}
