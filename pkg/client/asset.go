package client

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/sparlane/smm-asset-api/internal/protocol"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

// Asset is one field unit the connected user may act as. Its last
// command is updated by every position report.
type Asset struct {
	conn   *Connection
	record models.AssetRecord

	mu          sync.Mutex
	lastCommand models.Command
	gotoLat     float64
	gotoLon     float64
}

// Name returns the asset's display name.
func (a *Asset) Name() string { return a.record.Name }

// TypeName returns the asset's type label.
func (a *Asset) TypeName() string { return a.record.TypeName }

// ID returns the asset's numeric id.
func (a *Asset) ID() int64 { return a.record.ID }

// TypeID returns the asset's numeric type id.
func (a *Asset) TypeID() int64 { return a.record.TypeID }

// LastCommand returns the command the server most recently issued to
// this asset.
func (a *Asset) LastCommand() models.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastCommand == "" {
		return models.CommandNone
	}
	return a.lastCommand
}

// LastGotoPosition returns the target of the last GOTO command. ok is
// false whenever the last command was anything else.
func (a *Asset) LastGotoPosition() (lat, lon float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastCommand != models.CommandGoto {
		return 0, 0, false
	}
	return a.gotoLat, a.gotoLon, true
}

// ReportPosition reports the asset's current position and absorbs the
// server's response into the asset's last command. Decode problems in
// the response never fail the report; only transport or HTTP failures
// return an error.
func (a *Asset) ReportPosition(lat, lon float64, altitude uint32, bearing uint16, fix uint8) error {
	path := fmt.Sprintf("/data/assets/%s/position/add/?lat=%f&lon=%f&alt=%d&bearing=%d&fix=%d",
		url.PathEscape(a.record.Name), lat, lon, altitude, bearing, fix)

	var body bytes.Buffer
	res, err := a.conn.sess.Retrieve(path, "", &body)
	if err != nil {
		return err
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: position report returned %d", models.ErrRequestFailed, res.StatusCode)
	}

	update := protocol.DecodeCommand(res.ContentType, body.Bytes(), a.conn.logger)
	a.mu.Lock()
	a.lastCommand = update.Command
	if update.HasPosition {
		a.gotoLat = update.Latitude
		a.gotoLon = update.Longitude
	}
	a.mu.Unlock()
	return nil
}

// Search asks the server for the closest search to the given position.
// A nil Search with a nil error means the server had none to offer.
func (a *Asset) Search(lat, lon float64) (*Search, error) {
	path := fmt.Sprintf("/search/find/closest/?asset_id=%d&latitude=%f&longitude=%f",
		a.record.ID, lat, lon)

	var body bytes.Buffer
	res, err := a.conn.sess.Retrieve(path, "", &body)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: closest search returned %d", models.ErrRequestFailed, res.StatusCode)
	}
	if !protocol.IsJSON(res.ContentType) {
		return nil, nil
	}

	info := protocol.ParseSearchInfo(body.Bytes(), a.conn.logger)
	if info == nil {
		return nil, nil
	}
	return &Search{asset: a, info: *info}, nil
}
