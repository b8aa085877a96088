package regclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Full challenge/response flow: an unauthenticated GET to a protected
// resource receives a 401 with a Bearer challenge, exchanges it for a
// token against the realm, and the retried request carries that token.
func TestDo_ChallengeAndTokenExchange(t *testing.T) {
	var tokenSrv *httptest.Server
	var regSrv *httptest.Server

	tokenSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "registry.example.com", r.URL.Query().Get("service"))
		require.Equal(t, "repository:library/debian:pull", r.URL.Query().Get("scope"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "alice", user)
		require.Equal(t, "hunter2", pass)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "mock-bearer-token"}`))
	}))
	defer tokenSrv.Close()

	calls := 0
	regSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer mock-bearer-token" {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf(
				`Bearer realm="%s",service="registry.example.com",scope="repository:library/debian:pull"`,
				tokenSrv.URL))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer regSrv.Close()

	c := newTestClient(t, regSrv, WithCredentials("alice", "hunter2"))
	resp, err := c.do(context.Background(), http.MethodGet, regSrv.URL+"/v2/library/debian/tags/list",
		"repository:library/debian:pull", nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, calls, "expected exactly one retry after the 401")
}

func TestAuthenticateFromChallenge_MissingRealm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Bearer service="registry.example.com"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Authenticate(context.Background(), "repository:library/debian:pull")
	require.Error(t, err)
	var regErr *Error
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, KindAuth, regErr.Kind)
}

func TestAuthenticateFromChallenge_UnsupportedScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="registry.example.com"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Authenticate(context.Background(), "repository:library/debian:pull")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unsupported auth scheme"))
}

// Authenticate against a plain 200 /v2/ is a no-op: no challenge, no
// credentials sent anywhere.
func TestAuthenticate_NoChallengeRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Authenticate(context.Background(), "repository:library/debian:pull")
	require.NoError(t, err)
}

func TestExchangeToken_PrefersTokenOverAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token": "primary", "access_token": "secondary"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.exchangeToken(context.Background(), srv.URL, "svc", "scope")
	require.NoError(t, err)
	tok := c.token.Load()
	require.NotNil(t, tok)
	require.Equal(t, "primary", *tok)
}

func TestExchangeToken_FallsBackToAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "secondary"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.exchangeToken(context.Background(), srv.URL, "svc", "scope")
	require.NoError(t, err)
	tok := c.token.Load()
	require.NotNil(t, tok)
	require.Equal(t, "secondary", *tok)
}
