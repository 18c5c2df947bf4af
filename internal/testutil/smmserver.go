// Package testutil provides a scripted Search Management Map server for
// tests: Django-style form login with CSRF, cookie sessions, and the
// asset/search endpoints the client consumes.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/labstack/echo/v4"
)

const sessionCookie = "sessionid"

// SMMServer is a fake SMM instance. The response-shaping state is
// guarded by a lock so tests can reconfigure it between requests while
// the server goroutines read it.
type SMMServer struct {
	*httptest.Server

	mu       sync.Mutex
	username string
	password string
	token    string

	// commandBody, when set, is returned as JSON from position reports;
	// otherwise plainBody is returned as text.
	commandBody string
	plainBody   string
	// searchBody, when set, is returned as JSON from the closest-search
	// endpoint; otherwise a plain-text no-search response is returned.
	searchBody    string
	waypointsBody string

	loginCount   int
	lastPosition url.Values
	beginAssets  []string
	finishAssets []string
}

// NewSMMServer starts a fake server with one known user.
func NewSMMServer() *SMMServer {
	s := &SMMServer{
		username:  "rescue-one",
		password:  "flare-red",
		token:     "c5rf-t0k3n",
		plainBody: "Continue",
	}

	e := echo.New()
	e.HideBanner = true
	e.GET("/accounts/login/", s.loginForm)
	e.POST("/accounts/login/", s.loginSubmit)
	e.GET("/assets/mine/json/", s.withAuth(s.assetList))
	e.GET("/data/assets/:name/position/add/", s.withAuth(s.positionAdd))
	e.GET("/search/find/closest/", s.withAuth(s.findSearch))
	e.GET("/search/sector/:id/json/", s.withAuth(s.searchGeometry))
	e.GET("/search/sector/:id/begin/", s.withAuth(s.searchBegin))
	e.GET("/search/sector/:id/finished/", s.withAuth(s.searchFinished))

	s.Server = httptest.NewServer(e)
	return s
}

// Username returns the accepted username.
func (s *SMMServer) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Password returns the accepted password.
func (s *SMMServer) Password() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password
}

// Token returns the CSRF token the login form embeds.
func (s *SMMServer) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetPassword changes the password the server accepts.
func (s *SMMServer) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

// SetCommandBody scripts a JSON command response for position reports.
func (s *SMMServer) SetCommandBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandBody = body
}

// SetPlainBody scripts the plain-text response for position reports,
// used when no JSON command is scripted.
func (s *SMMServer) SetPlainBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plainBody = body
}

// SetSearchBody scripts the JSON descriptor the closest-search endpoint
// returns.
func (s *SMMServer) SetSearchBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchBody = body
}

// SetWaypointsBody scripts the GeoJSON geometry a search URL returns.
func (s *SMMServer) SetWaypointsBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waypointsBody = body
}

// LoginCount reports how many credential submissions the server has seen.
func (s *SMMServer) LoginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCount
}

// LastPosition returns the query parameters of the most recent position
// report, or nil if none arrived.
func (s *SMMServer) LastPosition() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPosition
}

// BegunBy returns the asset_id values that accepted a search.
func (s *SMMServer) BegunBy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.beginAssets...)
}

// FinishedBy returns the asset_id values that completed a search.
func (s *SMMServer) FinishedBy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.finishAssets...)
}

func (s *SMMServer) withAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil || cookie.Value != "authenticated" {
			target := "/accounts/login/?next=" + url.QueryEscape(c.Request().URL.Path)
			return c.Redirect(http.StatusFound, target)
		}
		return next(c)
	}
}

func (s *SMMServer) loginForm(c echo.Context) error {
	token := s.Token()
	c.SetCookie(&http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
	// Decoy inputs around the token, and an unclosed paragraph the
	// parser has to repair.
	page := fmt.Sprintf(`<html><body>
<form method="post" action="/accounts/login/">
<input type="text" name="username">
<input type="password" name="password">
<input type="hidden" name="csrfmiddlewaretoken" value="%s">
<input type="submit" value="login">
<p>Sign in to Search Management Map
</form></body></html>`, token)
	return c.HTML(http.StatusOK, page)
}

func (s *SMMServer) loginSubmit(c echo.Context) error {
	s.mu.Lock()
	s.loginCount++
	username, password, token := s.username, s.password, s.token
	s.mu.Unlock()

	if c.FormValue("csrfmiddlewaretoken") != token ||
		c.FormValue("username") != username ||
		c.FormValue("password") != password {
		// The real server re-renders the form with a 200 on bad
		// credentials.
		return s.loginForm(c)
	}
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: "authenticated", Path: "/"})
	return c.Redirect(http.StatusFound, "/")
}

func (s *SMMServer) assetList(c echo.Context) error {
	return c.JSONBlob(http.StatusOK, []byte(`{"assets":[
		{"id":7,"type_id":2,"name":"rescue-one","type_name":"helicopter"},
		{"id":9,"type_id":3,"name":"shore-team","type_name":"ground party"}]}`))
}

func (s *SMMServer) positionAdd(c echo.Context) error {
	s.mu.Lock()
	s.lastPosition = c.QueryParams()
	command, plain := s.commandBody, s.plainBody
	s.mu.Unlock()

	if command != "" {
		return c.JSONBlob(http.StatusOK, []byte(command))
	}
	return c.String(http.StatusOK, plain)
}

func (s *SMMServer) findSearch(c echo.Context) error {
	s.mu.Lock()
	body := s.searchBody
	s.mu.Unlock()

	if body != "" {
		return c.JSONBlob(http.StatusOK, []byte(body))
	}
	return c.String(http.StatusOK, "No search available")
}

func (s *SMMServer) searchGeometry(c echo.Context) error {
	s.mu.Lock()
	body := s.waypointsBody
	s.mu.Unlock()
	return c.JSONBlob(http.StatusOK, []byte(body))
}

func (s *SMMServer) searchBegin(c echo.Context) error {
	s.mu.Lock()
	s.beginAssets = append(s.beginAssets, c.QueryParam("asset_id"))
	s.mu.Unlock()
	return c.String(http.StatusOK, "accepted")
}

func (s *SMMServer) searchFinished(c echo.Context) error {
	s.mu.Lock()
	s.finishAssets = append(s.finishAssets, c.QueryParam("asset_id"))
	s.mu.Unlock()
	return c.String(http.StatusOK, "completed")
}
