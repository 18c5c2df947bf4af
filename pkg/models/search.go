package models

// SearchInfo describes a search the server offered to an asset. The
// distance and length are metres, snapshot at request time, and may be
// stale by the time the search is accepted.
type SearchInfo struct {
	// ObjectURL is the server path identifying the search. Its
	// begin/finished action endpoints are derived from it.
	ObjectURL  string `json:"object_url"`
	Distance   int64  `json:"distance"`
	Length     int64  `json:"length"`
	SweepWidth int64  `json:"sweep_width"`
}

// Waypoint is a single point on a search sweep polyline. Waypoint order
// within a search is significant: it defines the sweep path.
type Waypoint struct {
	Latitude  float64
	Longitude float64
}
