package regclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// tagsPage is the wire body of a tags/list response.
type tagsPage struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// TagStream is a single-pass, lazily-paginated sequence of tag strings for
// one repository, chained across HTTP responses via RFC 5988
// "Link: rel=next" headers. It is not restartable.
type TagStream struct {
	c        *Client
	name     string
	scope    string
	nextURL  string
	buf      []string
	pos      int
	done     bool
	err      error
}

// GetTags starts a lazy tag stream for name. pageSize, if positive, is
// sent as "?n=" on the first request only — subsequent pages are driven
// entirely by the server-provided Link header.
func (c *Client) GetTags(name string, pageSize int) *TagStream {
	u := c.url("/v2/%s/tags/list", name)
	if pageSize > 0 {
		u += "?n=" + strconv.Itoa(pageSize)
	}
	return &TagStream{
		c:       c,
		name:    name,
		scope:   "repository:" + name + ":pull",
		nextURL: u,
	}
}

// Next returns the next tag and true, or ("", false) once the stream is
// exhausted. Check Err() after a false return to distinguish a clean end
// from a failure.
func (s *TagStream) Next(ctx context.Context) (string, bool) {
	for s.pos >= len(s.buf) {
		if s.done || s.err != nil {
			return "", false
		}
		if !s.fetchPage(ctx) {
			return "", false
		}
	}
	tag := s.buf[s.pos]
	s.pos++
	return tag, true
}

// Err returns the error that ended the stream, if any.
func (s *TagStream) Err() error {
	return s.err
}

func (s *TagStream) fetchPage(ctx context.Context) bool {
	resp, err := s.c.do(ctx, http.MethodGet, s.nextURL, s.scope, nil, nil)
	if err != nil {
		s.err = err
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readAll(resp)
		s.err = errForStatus(resp, body)
		return false
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		s.err = newErr(KindMalformed, "tags/list response missing Content-Type: application/json")
		return false
	}

	body, err := readAll(resp)
	if err != nil {
		s.err = wrapErr(KindMalformed, err, "reading tags response body")
		return false
	}

	var page tagsPage
	if err := json.Unmarshal(body, &page); err != nil {
		s.err = wrapErr(KindMalformed, err, "decoding tags response body")
		return false
	}

	s.buf = page.Tags
	s.pos = 0

	if next := parseNextLink(resp.Header.Get("Link")); next != "" {
		s.nextURL = resolveLink(s.c.baseURL, next)
	} else {
		s.done = true
	}
	return true
}

// parseNextLink extracts the URL from a `<url>; rel="next"` Link header,
// returning "" if there's no rel=next entry. The header can carry several
// comma-separated link-values; each is handled independently.
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		urlPart := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(urlPart, "<") || !strings.HasSuffix(urlPart, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			if strings.Contains(attr, `rel="next"`) || strings.Contains(attr, "rel=next") {
				return strings.Trim(urlPart, "<>")
			}
		}
	}
	return ""
}

// resolveLink resolves a Link header URL relative to base, handling both
// absolute URLs and bare path+query continuations.
func resolveLink(base, link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return base + link
}
