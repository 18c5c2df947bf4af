package client

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/sparlane/smm-asset-api/internal/protocol"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

// Search is a sweep task the server offered to an asset. It is accepted
// with Accept and later marked done with Complete; both act through the
// asset it was offered to.
type Search struct {
	asset *Asset
	info  models.SearchInfo
}

// Distance returns the metres from the asset's reported position to the
// start of the sweep, as snapshot when the search was offered.
func (s *Search) Distance() int64 { return s.info.Distance }

// Length returns the total sweep length in metres.
func (s *Search) Length() int64 { return s.info.Length }

// SweepWidth returns the lateral coverage width in metres.
func (s *Search) SweepWidth() int64 { return s.info.SweepWidth }

// URL returns the server path identifying this search.
func (s *Search) URL() string { return s.info.ObjectURL }

// Waypoints fetches the sweep polyline, in sweep order. A response of
// unexpected shape yields an empty slice and no error — the historical
// contract — so callers must check the count, not just the error.
func (s *Search) Waypoints() ([]models.Waypoint, error) {
	var body bytes.Buffer
	res, err := s.asset.conn.sess.Retrieve(s.info.ObjectURL, "", &body)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: waypoint fetch returned %d", models.ErrRequestFailed, res.StatusCode)
	}
	return protocol.ParseWaypoints(body.Bytes(), s.asset.conn.logger), nil
}

// Accept claims the search for this asset. The server may refuse, which
// surfaces as a non-200 error.
func (s *Search) Accept() error {
	return s.action(protocol.ActionBegin)
}

// Complete marks the search finished by this asset.
func (s *Search) Complete() error {
	return s.action(protocol.ActionFinished)
}

func (s *Search) action(action string) error {
	path, err := protocol.ActionURL(s.info.ObjectURL, action, s.asset.record.ID)
	if err != nil {
		return err
	}
	res, err := s.asset.conn.sess.Retrieve(path, "", nil)
	if err != nil {
		return err
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: search %s returned %d", models.ErrRequestFailed, action, res.StatusCode)
	}
	return nil
}
