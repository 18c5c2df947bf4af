// Package session implements the authenticated transport to a Search
// Management Map server: single HTTP exchanges with cookie persistence,
// the bounded redirect/retry loop around them, and the form-based login
// with CSRF token extraction. One Session serializes all of its
// exchanges behind a mutex so the shared cookie jar and host rewrite
// are never observed mid-flight; independent Sessions are unrelated.
package session

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/internal/metrics"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

// maxAttempts bounds the redirect/retry loop. The counter increments on
// every iteration regardless of which corrective branch fired, so the
// loop terminates even under a pathological redirect chain.
const maxAttempts = 3

// Config carries the optional knobs for a Session.
type Config struct {
	// Logger receives the session's structured logging. Nil means no
	// logging.
	Logger *zap.Logger
	// Timeout bounds each HTTP exchange. Zero means no timeout; callers
	// needing bounded latency should set one.
	Timeout time.Duration
	// InsecureTLS disables certificate verification. Certificates are
	// verified by default.
	InsecureTLS bool
	// Metrics receives transport counters. Nil counts nothing.
	Metrics *metrics.Metrics
}

// Session owns the HTTP client, cookie jar, credentials and connection
// state for one server. The host may be rewritten in place when the
// server redirects http to https.
type Session struct {
	mu        sync.Mutex
	host      string
	username  string
	password  string
	csrfToken string
	state     models.ConnectionState
	closed    bool
	client    *http.Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a Session for host. The host must carry an http or https
// scheme; anything else leaves the session in StateHostInvalid.
func New(host, username, password string, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// The jar only errors on a non-nil, invalid PublicSuffixList.
	jar, _ := cookiejar.New(nil)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	s := &Session{
		host:     host,
		username: username,
		password: password,
		state:    models.StateUnknown,
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
			// Redirects are handled by the retrieve loop, not the client.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger,
		metrics: cfg.Metrics,
	}
	if !validHost(host) {
		s.state = models.StateHostInvalid
	}
	return s
}

func validHost(host string) bool {
	u, err := url.Parse(host)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// State returns the advisory connection state.
func (s *Session) State() models.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Host returns the current host URL, reflecting any https upgrade.
func (s *Session) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// Close releases the transport and zeroes the credentials. It is
// idempotent; a closed Session refuses further exchanges.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.client.CloseIdleConnections()
	s.username = ""
	s.password = ""
	s.csrfToken = ""
	s.state = models.StateUnknown
}

// Retrieve performs one logical retrieval of path: the raw exchange
// plus the redirect corrections around it. An empty form means GET;
// otherwise a url-encoded POST. The response body of the final attempt
// is left in sink (nil discards it). The session lock is held for the
// whole loop, including any login it triggers.
func (s *Session) Retrieve(path, form string, sink *bytes.Buffer) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrNotConnected
	}
	return s.retrieve(path, form, sink, true)
}

// retrieve runs the bounded retry loop. Only a successful exchange that
// came back 302 with a redirect target is ever corrected: an https
// upgrade rewrites the host and retries, a redirect to the login page
// authenticates and retries, and anything else is returned to the
// caller as-is. allowLogin is cleared while the login procedure itself
// is retrieving, which bounds the recursion at depth one.
func (s *Session) retrieve(path, form string, sink *bytes.Buffer, allowLogin bool) (*Result, error) {
	res, err := s.exchange(path, form, sink)
	retries := 0
	for retry := true; retry && retries < maxAttempts; {
		retry = false
		retries++
		if res.Success && res.StatusCode == http.StatusFound && res.RedirectURL != "" {
			switch {
			case !strings.HasPrefix(s.host, "https://") && strings.HasPrefix(res.RedirectURL, "https://"):
				s.host = upgradeHost(s.host)
				s.metrics.Upgrade()
				s.logger.Debug("upgrading to https", zap.String("host", s.host))
				retry = true
			case strings.Contains(res.RedirectURL, "accounts/login"):
				s.logger.Debug("login required", zap.String("path", path))
				if allowLogin && s.login() {
					retry = true
				}
			default:
				s.logger.Debug("unhandled redirect",
					zap.String("path", path),
					zap.String("target", res.RedirectURL))
			}
		}
		if retry && retries < maxAttempts {
			s.metrics.Retry()
			res, err = s.exchange(path, form, sink)
		}
	}
	return res, err
}

// upgradeHost rewrites a host URL onto the https scheme, stripping a
// leading http:// or prefixing bare hosts.
func upgradeHost(host string) string {
	if rest, ok := strings.CutPrefix(host, "http://"); ok {
		return "https://" + rest
	}
	return "https://" + host
}
