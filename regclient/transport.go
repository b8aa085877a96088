package regclient

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// doRaw issues a single request, injecting User-Agent and, if a token is
// cached, the Authorization header. It performs no retries and no auth
// negotiation — that's layered on by do(). Any I/O/DNS/TLS failure is
// wrapped as a KindTransport error with the remote host preserved.
func (c *Client) doRaw(ctx context.Context, method, rawURL string, headers http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, wrapErr(KindMalformed, err, "building request for %s", rawURL)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if tok := c.token.Load(); tok != nil && *tok != "" {
		req.Header.Set("Authorization", "Bearer "+*tok)
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"url":    rawURL,
	}).Trace("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapErr(KindTransport, err, "request to %s failed", c.index)
	}
	return resp, nil
}

// do issues a request and, on a 401 carrying a Bearer challenge, performs
// exactly one auth exchange and re-issues the request. It never retries
// more than once. Any other status is returned as-is for the caller to
// classify.
func (c *Client) do(ctx context.Context, method, rawURL, scope string, headers http.Header, body io.Reader) (*http.Response, error) {
	resp, err := c.doRaw(ctx, method, rawURL, headers, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || scope == "" {
		return resp, nil
	}
	if err := c.authenticateFromChallenge(ctx, resp, scope); err != nil {
		resp.Body.Close()
		return nil, err
	}
	resp.Body.Close()
	return c.doRaw(ctx, method, rawURL, headers, body)
}
