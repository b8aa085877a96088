package regclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/docker/distribution/registry/client/auth/challenge"
	"github.com/sirupsen/logrus"
)

// tokenResponse mirrors the JSON body of a successful token-service
// exchange: {"token": "...", "access_token": "...", "expires_in": N}.
// token takes precedence over access_token when both are present.
type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate performs the full probe-challenge-exchange flow: GET /v2/,
// and if it's a 401, parse the challenge and exchange credentials for a
// token.
func (c *Client) authenticate(ctx context.Context, scope string) error {
	resp, err := c.doRaw(ctx, http.MethodGet, c.baseURL+"/v2/", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &Error{Kind: KindUnsupportedV2, Host: c.index, Message: "registry does not support v2"}
	case http.StatusUnauthorized:
		return c.authenticateFromChallenge(ctx, resp, scope)
	default:
		return &Error{Kind: KindAuth, Host: c.index, Status: resp.StatusCode, Message: "unexpected status during v2 probe"}
	}
}

// authenticateFromChallenge parses the WWW-Authenticate header on resp and
// performs the token exchange. The caller-supplied scope always wins over
// the scope the challenge itself echoes.
func (c *Client) authenticateFromChallenge(ctx context.Context, resp *http.Response, scope string) error {
	challenges := challenge.ResponseChallenges(resp)
	if len(challenges) == 0 {
		return &Error{Kind: KindAuth, Host: c.index, Message: "no WWW-Authenticate challenge present"}
	}

	var bearer *challenge.Challenge
	for i := range challenges {
		if challenges[i].Scheme == "bearer" {
			bearer = &challenges[i]
			break
		}
	}
	if bearer == nil {
		return &Error{Kind: KindAuth, Host: c.index, Message: "unsupported auth scheme: " + challenges[0].Scheme}
	}

	realm, ok := bearer.Parameters["realm"]
	if !ok || realm == "" {
		return &Error{Kind: KindAuth, Host: c.index, Message: "challenge is missing realm"}
	}
	service := bearer.Parameters["service"]
	if scope == "" {
		scope = bearer.Parameters["scope"]
	}

	return c.exchangeToken(ctx, realm, service, scope)
}

// exchangeToken performs GET {realm}?service=...&scope=... with HTTP Basic
// credentials if configured, and stores the resulting bearer token.
func (c *Client) exchangeToken(ctx context.Context, realm, service, scope string) error {
	realmURL, err := url.Parse(realm)
	if err != nil {
		return wrapErr(KindMalformed, err, "parsing auth realm %q", realm)
	}
	q := realmURL.Query()
	if service != "" {
		q.Set("service", service)
	}
	if scope != "" {
		q.Set("scope", scope)
	}
	realmURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, realmURL.String(), nil)
	if err != nil {
		return wrapErr(KindMalformed, err, "building token request")
	}
	if c.credentials != nil {
		req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.log.WithFields(logrus.Fields{
		"realm":   realm,
		"service": service,
		"scope":   scope,
	}).Trace("exchanging token")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapErr(KindTransport, err, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapErr(KindMalformed, err, "reading token response body")
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Body: body, Message: "token exchange failed"}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return wrapErr(KindMalformed, err, "decoding token response")
	}
	token := tr.Token
	if token == "" {
		token = tr.AccessToken
	}
	if token == "" {
		return &Error{Kind: KindMalformed, Message: "malformed token response: missing token and access_token"}
	}

	c.token.Store(&token)
	return nil
}
