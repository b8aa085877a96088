package regclient

import (
	"io"
	"net/http"
)

// readAll drains a response body into memory. Callers are still
// responsible for closing resp.Body.
func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}
