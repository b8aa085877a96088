package regclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type catalogResponse struct {
	Repositories []string `json:"repositories"`
}

// GetCatalog lists repository names known to the registry. n, if positive,
// requests a page size via "?n="; it does not follow Link pagination
// beyond the first page.
func (c *Client) GetCatalog(ctx context.Context, n int) ([]string, error) {
	u := c.url("/v2/_catalog")
	if n > 0 {
		u += "?n=" + strconv.Itoa(n)
	}

	resp, err := c.do(ctx, http.MethodGet, u, "", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readAll(resp)
		return nil, errForStatus(resp, body)
	}

	body, err := readAll(resp)
	if err != nil {
		return nil, wrapErr(KindMalformed, err, "reading catalog response body")
	}

	var cat catalogResponse
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, wrapErr(KindMalformed, err, "decoding catalog response body")
	}
	return cat.Repositories, nil
}
