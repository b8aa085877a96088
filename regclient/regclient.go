// Package regclient is a client for the Docker Registry HTTP API v2: probing
// v2 support, listing catalogs and tags, fetching and checking manifests,
// and downloading digest-verified blobs.
package regclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/docker/distribution/reference"
	"github.com/sirupsen/logrus"
)

// USERAgent is the default identifier sent on every request unless
// overridden with WithUserAgent.
const USERAgent = "dkreg-regclient/1.0"

// Credentials holds a username/password pair for HTTP Basic auth during
// token exchange. Either field may be empty.
type Credentials struct {
	Username string
	Password string
}

// Client is a handle to one registry endpoint, shared by pointer; a *Client
// is safe for concurrent use. The only field that changes after
// construction is the cached token, which is stored behind an atomic
// pointer so concurrent readers observe either the old or the new value,
// never a torn one. A Client value must not be copied after first use.
type Client struct {
	baseURL     string
	index       string
	credentials *Credentials
	userAgent   string
	insecure    bool
	httpClient  *http.Client
	log         *logrus.Logger

	token atomic.Pointer[string]
}

// Opt configures a Client at construction time.
type Opt func(*Client)

// New builds a Client for the given registry host ("docker.io",
// "quay.io", "registry.example.com:5000", ...).
func New(registry string, opts ...Opt) *Client {
	c := &Client{
		index:     normalizeIndex(registry),
		userAgent: USERAgent,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	scheme := "https"
	if c.insecure {
		scheme = "http"
	}
	c.baseURL = scheme + "://" + c.index
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: c.insecure,
				},
				TLSHandshakeTimeout:   10 * time.Second,
				IdleConnTimeout:       30 * time.Second,
				ExpectContinueTimeout: 5 * time.Second,
			},
		}
	}
	return c
}

// normalizeIndex maps the well-known Docker Hub aliases to the host the
// registry actually serves from.
func normalizeIndex(registry string) string {
	switch registry {
	case "docker.io", "index.docker.io":
		return "registry-1.docker.io"
	default:
		return registry
	}
}

// WithCredentials sets the username/password used for HTTP Basic auth
// during token exchange.
func WithCredentials(username, password string) Opt {
	return func(c *Client) {
		c.credentials = &Credentials{Username: username, Password: password}
	}
}

// WithUserAgent overrides the default User-Agent sent on every request.
func WithUserAgent(ua string) Opt {
	return func(c *Client) { c.userAgent = ua }
}

// WithInsecure demotes the client to plain http:// and disables TLS
// certificate verification, for test/insecure registries.
func WithInsecure() Opt {
	return func(c *Client) { c.insecure = true }
}

// WithHTTPClient overrides the underlying HTTP client (connection pool).
// The provided client must be safe for concurrent use.
func WithHTTPClient(hc *http.Client) Opt {
	return func(c *Client) { c.httpClient = hc }
}

// WithLog sets the logger used for trace/debug output. Defaults to
// logrus.StandardLogger().
func WithLog(l *logrus.Logger) Opt {
	return func(c *Client) { c.log = l }
}

// Ref is a parsed image coordinate: registry, repository, and either a tag
// or a digest.
type Ref struct {
	Registry   string
	Repository string
	Tag        string
	Digest     string
}

// NewRef parses a "host/repo:tag" or "host/repo@sha256:..." string using
// docker/distribution's normalized reference parser.
func NewRef(s string) (Ref, error) {
	parsed, err := reference.ParseNormalizedNamed(s)
	if err != nil {
		return Ref{}, wrapErr(KindMalformed, err, "parsing reference %q", s)
	}
	r := Ref{
		Registry:   reference.Domain(parsed),
		Repository: reference.Path(parsed),
	}
	if tagged, ok := parsed.(reference.Tagged); ok {
		r.Tag = tagged.Tag()
	}
	if canonical, ok := parsed.(reference.Canonical); ok {
		r.Digest = canonical.Digest().String()
	}
	return r, nil
}

// Version returns the digest if set, else the tag. When both are set, the
// digest wins.
func (r Ref) Version() string {
	if r.Digest != "" {
		return r.Digest
	}
	return r.Tag
}

// CommonName renders a parsable "registry/repo:tag" (or "@digest") string.
func (r Ref) CommonName() string {
	if r.Repository == "" {
		return ""
	}
	cn := r.Repository
	if r.Registry != "" {
		cn = r.Registry + "/" + cn
	}
	if r.Tag != "" {
		cn += ":" + r.Tag
	}
	if r.Digest != "" {
		cn += "@" + r.Digest
	}
	return cn
}

// apiVersionHeader and apiVersionValue are the headers the v2 spec requires
// registries to set on both the success and the challenge path of the
// /v2/ probe.
const apiVersionHeader = "Docker-Distribution-API-Version"
const apiVersionValue = "registry/2.0"

// IsV2Supported probes /v2/ and reports whether the registry advertises v2
// support. The version header is treated as authoritative on either a 200
// or a 401 response — some registries only set it on the challenge path.
func (c *Client) IsV2Supported(ctx context.Context) (bool, error) {
	resp, err := c.doRaw(ctx, http.MethodGet, c.baseURL+"/v2/", nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized:
		supported := resp.Header.Get(apiVersionHeader) == apiVersionValue
		c.log.WithFields(logrus.Fields{
			"registry":  c.index,
			"status":    resp.StatusCode,
			"supported": supported,
		}).Trace("v2 probe")
		return supported, nil
	default:
		c.log.WithFields(logrus.Fields{
			"registry": c.index,
			"status":   resp.StatusCode,
		}).Trace("v2 probe: unexpected status")
		return false, nil
	}
}

// EnsureV2Registry fails unless the remote supports the v2 API.
func (c *Client) EnsureV2Registry(ctx context.Context) error {
	ok, err := c.IsV2Supported(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: KindUnsupportedV2, Host: c.index, Message: "remote does not support docker registry v2 API"}
	}
	return nil
}

// Authenticate performs the challenge/response token exchange for the
// given scope (e.g. "repository:library/debian:pull") and caches the
// resulting bearer token on the client. If the registry doesn't require
// auth for this scope, it is a no-op.
func (c *Client) Authenticate(ctx context.Context, scope string) error {
	return c.authenticate(ctx, scope)
}

func (c *Client) url(format string, parts ...interface{}) string {
	return c.baseURL + fmt.Sprintf(format, parts...)
}

// escapePath percent-encodes a single path segment (a digest, a tag) the
// way the stdlib's url.URL would when composing the request.
func escapePath(s string) string {
	u := url.URL{Path: s}
	return u.EscapedPath()
}
