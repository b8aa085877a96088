package regclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCatalog_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/_catalog", r.URL.Path)
		require.Equal(t, "n=50", r.URL.RawQuery)
		w.Write([]byte(`{"repositories": ["library/alpine", "library/debian"]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	repos, err := c.GetCatalog(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, []string{"library/alpine", "library/debian"}, repos)
}

func TestGetCatalog_NoPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "", r.URL.RawQuery)
		w.Write([]byte(`{"repositories": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	repos, err := c.GetCatalog(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, repos)
}

func TestGetCatalog_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetCatalog(context.Background(), 0)
	require.Error(t, err)
	var regErr *Error
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, KindServer, regErr.Kind)
}
