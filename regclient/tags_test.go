package regclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// S3 — single page of tags.
func TestGetTags_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/repo/tags/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "repo", "tags": [ "t1", "t2" ]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	stream := c.GetTags("repo", 0)

	var got []string
	for {
		tag, ok := stream.Next(context.Background())
		if !ok {
			break
		}
		got = append(got, tag)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, []string{"t1", "t2"}, got)
}

// S4 — tag list pagination via Link: rel="next".
func TestGetTags_Paginate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.RawQuery {
		case "n=1":
			w.Header().Set("Link", `</v2/repo/tags/list?n=1&next_page=t1>; rel="next"`)
			w.Write([]byte(`{"name": "repo", "tags": [ "t1" ]}`))
		case "n=1&next_page=t1":
			w.Write([]byte(`{"name": "repo", "tags": [ "t2" ]}`))
		default:
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	stream := c.GetTags("repo", 1)

	tag1, ok := stream.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "t1", tag1)

	tag2, ok := stream.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "t2", tag2)

	_, ok = stream.Next(context.Background())
	require.False(t, ok)
	require.NoError(t, stream.Err())
}

// S6 — 404 on tags/list surfaces as an error, stream terminates.
func TestGetTags_404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	stream := c.GetTags("repo", 0)

	_, ok := stream.Next(context.Background())
	require.False(t, ok)
	require.Error(t, stream.Err())

	var regErr *Error
	require.ErrorAs(t, stream.Err(), &regErr)
	require.Equal(t, KindNotFound, regErr.Kind)
}

// S5 — missing Content-Type on tags/list is a malformed-response error.
func TestGetTags_MissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "repo", "tags": [ "t1", "t2" ]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	stream := c.GetTags("repo", 0)

	_, ok := stream.Next(context.Background())
	require.False(t, ok)
	require.Error(t, stream.Err())

	var regErr *Error
	require.ErrorAs(t, stream.Err(), &regErr)
	require.Equal(t, KindMalformed, regErr.Kind)
}

func TestParseNextLink(t *testing.T) {
	require.Equal(t, "/v2/_tags?n=1&next_page=t1",
		parseNextLink(`</v2/_tags?n=1&next_page=t1>; rel="next"`))
	require.Equal(t, "", parseNextLink(""))
	require.Equal(t, "", parseNextLink(`</v2/_tags>; rel="prev"`))
}
