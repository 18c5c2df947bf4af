// Package protocol decodes the response bodies of the Search Management
// Map server: asset listings, command responses to position reports,
// search descriptors and waypoint geometry. All functions are pure with
// respect to the connection; transport lives in internal/session.
package protocol

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

// commandResponse is the JSON body the server returns from a position
// report when it has an instruction for the asset.
type commandResponse struct {
	Action    string   `json:"action"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// actionCommands maps the server's action codes to commands. GOTO is
// handled separately because it carries a target position.
var actionCommands = map[string]models.Command{
	"RON": models.CommandContinue,
	"RTL": models.CommandRTL,
	"CIR": models.CommandCircle,
	"AS":  models.CommandAbandonSearch,
	"MC":  models.CommandMissionComplete,
}

// IsJSON reports whether a response content type declares a JSON body.
func IsJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// DecodeCommand interprets the body of a position-report response.
// JSON bodies are decoded through the action table; malformed JSON and
// unrecognised or missing actions decode to CommandUnknown. Non-JSON
// bodies decode to CommandContinue for the literal "Continue" and
// CommandNone otherwise. Decode problems are logged, never returned:
// a position report that reached the server has succeeded.
func DecodeCommand(contentType string, body []byte, logger *zap.Logger) models.CommandUpdate {
	if !IsJSON(contentType) {
		if string(body) == "Continue" {
			return models.CommandUpdate{Command: models.CommandContinue}
		}
		return models.CommandUpdate{Command: models.CommandNone}
	}

	var resp commandResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Warn("malformed command response", zap.Error(err))
		return models.CommandUpdate{Command: models.CommandUnknown}
	}

	if resp.Action == "GOTO" {
		update := models.CommandUpdate{Command: models.CommandGoto}
		if resp.Latitude != nil && resp.Longitude != nil {
			update.Latitude = *resp.Latitude
			update.Longitude = *resp.Longitude
			update.HasPosition = true
		}
		return update
	}
	if cmd, ok := actionCommands[resp.Action]; ok {
		return models.CommandUpdate{Command: cmd}
	}
	return models.CommandUpdate{Command: models.CommandUnknown}
}
