package regclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// S7 — blob digest mismatch: the server returns bytes whose true digest
// does not match the digest named in the request.
func TestGetBlob_DigestMismatch(t *testing.T) {
	claimed := "sha256:" + sha256Hex([]byte("expected bytes"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("these are not the bytes you're looking for"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetBlob(context.Background(), "repo", claimed)
	require.Error(t, err)

	var regErr *Error
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, KindDigestMismatch, regErr.Kind)
}

// Invariant 4: a successful GetBlob always verifies.
func TestGetBlob_Success(t *testing.T) {
	payload := []byte("layer contents")
	expected := "sha256:" + sha256Hex(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/repo/blobs/"+expected, r.URL.Path)
		w.Write(payload)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.GetBlob(context.Background(), "repo", expected)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestHasBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ok, err := c.HasBlob(context.Background(), "repo", "sha256:"+sha256Hex([]byte("x")))
	require.NoError(t, err)
	require.True(t, ok)
}
