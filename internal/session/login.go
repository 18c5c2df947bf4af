package session

import (
	"bytes"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/models"
)

const loginPath = "/accounts/login/"

// Login authenticates against the server's form-based login and reports
// whether the session ended up authenticated. The connection state is
// updated to reflect the outcome.
func (s *Session) Login() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.login()
}

// login runs the fetch-form, extract-token, submit-credentials ladder
// with the session lock already held. The login branch of the retrieve
// loop is disabled for both inner retrievals (the https upgrade still
// applies), so a server that redirects the login page to itself cannot
// recurse.
//
// The extracted token is cached on the session and deliberately kept
// across failures: if a later form fetch yields no token, the cached
// one is submitted, which recovers from transient form changes.
func (s *Session) login() bool {
	s.metrics.LoginAttempt()

	var page bytes.Buffer
	res, err := s.retrieve(loginPath, "", &page, false)
	if err != nil || !res.Success || res.StatusCode != http.StatusOK {
		s.logger.Warn("login page unreachable",
			zap.String("host", s.host), zap.Error(err))
		s.state = models.StateNoHostConnection
		s.metrics.LoginFailure()
		return false
	}

	if token, ok := extractCSRFToken(&page); ok && token != "" {
		s.csrfToken = token
	}
	if s.csrfToken == "" {
		s.logger.Warn("login form has no csrfmiddlewaretoken")
		s.metrics.LoginFailure()
		return false
	}

	form := url.Values{
		"csrfmiddlewaretoken": {s.csrfToken},
		"username":            {s.username},
		"password":            {s.password},
	}
	res, err = s.retrieve(loginPath, form.Encode(), nil, false)
	// The server always redirects after a successful login, so 302 is
	// the success condition, not 200.
	if err == nil && res.Success && res.StatusCode == http.StatusFound {
		s.state = models.StateConnected
		s.logger.Info("authenticated", zap.String("host", s.host))
		return true
	}

	s.logger.Warn("authentication rejected", zap.String("host", s.host))
	s.state = models.StateAuthenticationFailure
	s.metrics.LoginFailure()
	return false
}
