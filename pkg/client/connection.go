// Package client lets a mobile or ground asset participate in a search
// operation coordinated by a Search Management Map server: it
// authenticates, reports positions, receives movement commands and
// negotiates search tasks. All operations on one Connection go through
// a shared, serialized session so server cookies and transparent
// re-authentication work across calls.
package client

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/internal/metrics"
	"github.com/sparlane/smm-asset-api/internal/protocol"
	"github.com/sparlane/smm-asset-api/internal/session"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

const assetsPath = "/assets/mine/json/"

type options struct {
	logger      *zap.Logger
	timeout     time.Duration
	insecureTLS bool
	registerer  prometheus.Registerer
}

// Option configures a Connection at construction.
type Option func(*options)

// WithLogger routes the connection's structured logging to l. The
// default is no logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds each HTTP exchange. There is no default timeout;
// callers needing bounded latency should set one or wrap calls in their
// own cancellation.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithInsecureTLS disables server certificate verification. This
// matches the historical client behaviour but leaves the connection
// open to interception; certificates are verified unless this option is
// given.
func WithInsecureTLS() Option {
	return func(o *options) { o.insecureTLS = true }
}

// WithMetrics registers the connection's transport counters with reg.
// The counter names are fixed, so one registry serves one connection.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Connection is an authenticated session with one server. Exactly one
// Connection exists per asset session; it may be shared between
// goroutines, with operations serialized internally.
type Connection struct {
	sess   *session.Session
	logger *zap.Logger
}

// Connect builds a Connection to host and attempts an initial login.
// A Connection is always returned; callers observe the outcome through
// State.
func Connect(host, username, password string, opts ...Option) *Connection {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	sess := session.New(host, username, password, session.Config{
		Logger:      o.logger,
		Timeout:     o.timeout,
		InsecureTLS: o.insecureTLS,
		Metrics:     metrics.New(o.registerer),
	})
	c := &Connection{sess: sess, logger: o.logger}
	if sess.State() != models.StateHostInvalid {
		sess.Login()
	}
	return c
}

// State reports the advisory connection state. Individual operations
// re-authenticate on demand, so a failure state clears itself on the
// next successful login.
func (c *Connection) State() models.ConnectionState {
	return c.sess.State()
}

// Login re-runs authentication and reports whether the connection ended
// up authenticated.
func (c *Connection) Login() bool {
	return c.sess.Login()
}

// Host returns the server URL currently in use, reflecting any
// transparent https upgrade.
func (c *Connection) Host() string {
	return c.sess.Host()
}

// Close releases the transport and zeroes the held credentials. The
// Connection must not be used afterwards.
func (c *Connection) Close() {
	c.sess.Close()
}

// Assets lists the assets this user may act as. Shape problems in the
// listing are lenient, matching the server's loose contract: a body
// without the expected array yields an empty list and no error.
func (c *Connection) Assets() ([]*Asset, error) {
	var body bytes.Buffer
	res, err := c.sess.Retrieve(assetsPath, "", &body)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: asset list returned %d", models.ErrRequestFailed, res.StatusCode)
	}

	records := protocol.ParseAssetList(body.Bytes(), c.logger)
	assets := make([]*Asset, 0, len(records))
	for _, record := range records {
		assets = append(assets, &Asset{conn: c, record: record})
	}
	return assets, nil
}
