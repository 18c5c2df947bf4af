package protocol

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

// ParseAssetList decodes the asset listing envelope. Shape problems are
// lenient: a body without an assets array, or one that does not parse
// at all, is logged and yields an empty list rather than an error.
func ParseAssetList(body []byte, logger *zap.Logger) []models.AssetRecord {
	var list models.AssetList
	if err := json.Unmarshal(body, &list); err != nil {
		logger.Warn("malformed asset list", zap.Error(err))
		return nil
	}
	if list.Assets == nil {
		logger.Warn("asset list has no assets array")
	}
	return list.Assets
}
