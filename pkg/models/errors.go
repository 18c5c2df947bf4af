package models

import "errors"

var (
	// ErrRequestFailed reports a request that did not complete with the
	// expected HTTP status.
	ErrRequestFailed = errors.New("request failed")
	// ErrNotConnected reports an operation on a closed connection.
	ErrNotConnected = errors.New("not connected")
	// ErrNoActionSegment reports a search URL without the /json/ segment
	// the begin/finished endpoints are derived from.
	ErrNoActionSegment = errors.New("search URL has no /json/ segment")
)
