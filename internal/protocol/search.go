package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

// Search action segments substituted for /json/ in a search URL.
const (
	ActionBegin    = "begin"
	ActionFinished = "finished"
)

// ParseSearchInfo decodes the descriptor returned by the closest-search
// endpoint. A body that does not parse yields nil.
func ParseSearchInfo(body []byte, logger *zap.Logger) *models.SearchInfo {
	var info models.SearchInfo
	if err := json.Unmarshal(body, &info); err != nil {
		logger.Warn("malformed search descriptor", zap.Error(err))
		return nil
	}
	return &info
}

// ActionURL derives a search action endpoint from the search's URL by
// truncating at the /json/ segment and appending the action plus the
// acting asset's id, e.g. .../search/42/json/ -> .../search/42/begin/?asset_id=7.
// A search URL without a /json/ segment cannot be acted on.
func ActionURL(searchURL, action string, assetID int64) (string, error) {
	base, _, found := strings.Cut(searchURL, "/json/")
	if !found {
		return "", fmt.Errorf("%w: %s", models.ErrNoActionSegment, searchURL)
	}
	return fmt.Sprintf("%s/%s/?asset_id=%d", base, action, assetID), nil
}
