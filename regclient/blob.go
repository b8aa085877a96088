package regclient

import (
	"context"
	"net/http"
)

// HasBlob reports whether a blob exists via HEAD.
func (c *Client) HasBlob(ctx context.Context, name, digest string) (bool, error) {
	u := c.url("/v2/%s/blobs/%s", name, escapePath(digest))
	scope := "repository:" + name + ":pull"

	resp, err := c.do(ctx, http.MethodHead, u, scope, nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// GetBlob downloads a blob and verifies its digest before returning it.
// Verification is never optional: a successful return always means the
// bytes hashed to the requested digest.
func (c *Client) GetBlob(ctx context.Context, name, digestStr string) ([]byte, error) {
	d, err := ParseDigest(digestStr)
	if err != nil {
		return nil, err
	}

	u := c.url("/v2/%s/blobs/%s", name, escapePath(digestStr))
	scope := "repository:" + name + ":pull"

	resp, err := c.do(ctx, http.MethodGet, u, scope, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readAll(resp)
	if err != nil {
		return nil, wrapErr(KindMalformed, err, "reading blob body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errForStatus(resp, body)
	}

	if err := d.Verify(body); err != nil {
		return nil, err
	}
	return body, nil
}
