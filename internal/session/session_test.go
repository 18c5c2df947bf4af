package session

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparlane/smm-asset-api/internal/testutil"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

func TestLoginSuccess(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	s := New(srv.URL, srv.Username(), srv.Password(), Config{})
	defer s.Close()

	assert.True(t, s.Login())
	assert.Equal(t, models.StateConnected, s.State())
	assert.Equal(t, srv.Token(), s.csrfToken)
	assert.Equal(t, 1, srv.LoginCount())
}

func TestLoginBadCredentials(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	s := New(srv.URL, srv.Username(), "wrong-password", Config{})
	defer s.Close()

	assert.False(t, s.Login())
	assert.Equal(t, models.StateAuthenticationFailure, s.State())
	// The token stays cached for a later retry.
	assert.Equal(t, srv.Token(), s.csrfToken)
}

func TestLoginUnreachableHost(t *testing.T) {
	srv := testutil.NewSMMServer()
	srv.Close()

	s := New(srv.URL, srv.Username(), srv.Password(), Config{})
	defer s.Close()

	assert.False(t, s.Login())
	assert.Equal(t, models.StateNoHostConnection, s.State())
}

func TestLoginFormWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form><input type="text" name="username"></form>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL, "user", "pass", Config{})
	defer s.Close()

	assert.False(t, s.Login())
	// Token extraction failing silently leaves the state alone.
	assert.Equal(t, models.StateUnknown, s.State())
}

func TestRetrieveTriggersLoginOnce(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	s := New(srv.URL, srv.Username(), srv.Password(), Config{})
	defer s.Close()

	var body bytes.Buffer
	res, err := s.Retrieve("/assets/mine/json/", "", &body)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body.String(), "rescue-one")
	assert.Equal(t, 1, srv.LoginCount())
	assert.Equal(t, models.StateConnected, s.State())
}

func TestRetrieveCookiePersistence(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	s := New(srv.URL, srv.Username(), srv.Password(), Config{})
	defer s.Close()

	var body bytes.Buffer
	_, err := s.Retrieve("/assets/mine/json/", "", &body)
	require.NoError(t, err)
	_, err = s.Retrieve("/assets/mine/json/", "", &body)
	require.NoError(t, err)

	// The session cookie from the first login covers the second call.
	assert.Equal(t, 1, srv.LoginCount())
}

func TestRetrieveRedirectLoopBounded(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<form><input name="csrfmiddlewaretoken" value="tok"></form>`)
	})
	mux.HandleFunc("/stuck/", func(w http.ResponseWriter, r *http.Request) {
		// Login always "succeeds" but this resource never stops
		// demanding it.
		requests++
		http.Redirect(w, r, "/accounts/login/?next=/stuck/", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL, "user", "pass", Config{})
	defer s.Close()

	res, err := s.Retrieve("/stuck/", "", nil)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, maxAttempts, requests)
}

func TestRetrieveUnhandledRedirectReturned(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/moved/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere/", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.URL, "user", "pass", Config{})
	defer s.Close()

	res, err := s.Retrieve("/moved/", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, srv.URL+"/elsewhere/", res.RedirectURL)
}

func TestUpgradeHost(t *testing.T) {
	assert.Equal(t, "https://smm.example.com", upgradeHost("http://smm.example.com"))
	assert.Equal(t, "https://smm.example.com", upgradeHost("smm.example.com"))
	assert.Equal(t, "https://smm.example.com:8080", upgradeHost("http://smm.example.com:8080"))
}

func TestHostValidation(t *testing.T) {
	s := New("ftp://smm.example.com", "user", "pass", Config{})
	defer s.Close()
	assert.Equal(t, models.StateHostInvalid, s.State())

	s2 := New("http://smm.example.com", "user", "pass", Config{})
	defer s2.Close()
	assert.Equal(t, models.StateUnknown, s2.State())
}

func TestClosedSession(t *testing.T) {
	srv := testutil.NewSMMServer()
	defer srv.Close()

	s := New(srv.URL, srv.Username(), srv.Password(), Config{})
	s.Close()

	assert.False(t, s.Login())
	_, err := s.Retrieve("/assets/mine/json/", "", nil)
	assert.ErrorIs(t, err, models.ErrNotConnected)

	// Closing twice is fine.
	s.Close()
}
