package session

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Result records the outcome of a single HTTP exchange. It exists for
// the duration of one retrieval and is never persisted.
type Result struct {
	// Success is transport-level: a response was obtained and its status
	// was below 400. It says nothing about whether the status was the
	// one the caller wanted.
	Success    bool
	StatusCode int
	// URL is the absolute URL the request was issued against.
	URL string
	// RedirectURL is the resolved redirect target, set only for
	// 301/302/303 responses that carried one.
	RedirectURL string
	// ContentType is set only for 200 responses.
	ContentType string
}

// exchange performs one request against host+path. An empty form means
// GET; otherwise the form is POSTed url-encoded with the Referer set to
// the request URL, which the server's CSRF check requires. The body is
// written into sink, which is reset first so a retried exchange never
// appends to a stale one. Cookies persist across exchanges through the
// session's jar. Always returns a non-nil Result; on a transport error
// the Result is unsuccessful and the error says why.
func (s *Session) exchange(path, form string, sink *bytes.Buffer) (*Result, error) {
	fullURL := s.host + path
	res := &Result{URL: fullURL}

	var req *http.Request
	var err error
	if form != "" {
		req, err = http.NewRequest(http.MethodPost, fullURL, bytes.NewBufferString(form))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Referer", fullURL)
		}
	} else {
		req, err = http.NewRequest(http.MethodGet, fullURL, nil)
	}
	if err != nil {
		s.metrics.Exchange(0)
		return res, fmt.Errorf("build request for %s: %w", fullURL, err)
	}

	s.logger.Debug("fetching", zap.String("url", fullURL), zap.Bool("post", form != ""))
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.Exchange(0)
		return res, fmt.Errorf("exchange with %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	var out io.Writer = io.Discard
	if sink != nil {
		sink.Reset()
		out = sink
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		s.metrics.Exchange(0)
		res.StatusCode = resp.StatusCode
		return res, fmt.Errorf("read body from %s: %w", fullURL, err)
	}

	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode < http.StatusBadRequest
	switch resp.StatusCode {
	case http.StatusOK:
		res.ContentType = resp.Header.Get("Content-Type")
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		if loc, err := resp.Location(); err == nil {
			res.RedirectURL = loc.String()
		}
	}
	s.metrics.Exchange(resp.StatusCode)
	s.logger.Debug("fetched", zap.String("url", fullURL), zap.Int("status", res.StatusCode))

	return res, nil
}
