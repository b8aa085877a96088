package regclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// Manifest media types, exact wire strings as the registry serves them.
const (
	MediaTypeSchema1Signed = "application/vnd.docker.distribution.manifest.v1+prettyjws"
	MediaTypeSchema2       = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeManifestList  = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// acceptedManifestTypes is sent as a comma-joined Accept header on every
// manifest fetch/check, OCI variants included alongside the Docker ones.
var acceptedManifestTypes = []string{
	MediaTypeSchema1Signed,
	MediaTypeSchema2,
	MediaTypeManifestList,
	ociv1.MediaTypeImageManifest,
	ociv1.MediaTypeImageIndex,
}

// Descriptor is a typed pointer to a blob: its media type, digest, and
// size. Reused from the OCI image-spec rather than redeclared.
type Descriptor = ociv1.Descriptor

// ManifestKind discriminates the three manifest shapes the registry may
// serve for the same logical resource.
type ManifestKind int

const (
	ManifestKindUnknown ManifestKind = iota
	ManifestKindSchema1Signed
	ManifestKindSchema2
	ManifestKindManifestList
)

// Manifest is a tagged variant over the three manifest wire shapes. Exactly
// one of Schema1, Schema2, or List is populated, matching Content-Type.
type Manifest struct {
	Kind     ManifestKind
	Schema1  *ManifestSchema1Signed
	Schema2  *ManifestSchema2
	List     *ManifestList
	mtype    string
}

// ContentType returns the media type of this manifest: the Content-Type the
// server reported, or, when that header was absent, the type inferred from
// the body. It always matches Kind.
func (m *Manifest) ContentType() string { return m.mtype }

// GetLayers returns the ordered, base-first list of layer digests. Not
// defined for a ManifestList — callers must resolve to a child manifest
// first.
func (m *Manifest) GetLayers() ([]string, error) {
	switch m.Kind {
	case ManifestKindSchema1Signed:
		return m.Schema1.GetLayers(), nil
	case ManifestKindSchema2:
		return m.Schema2.GetLayers(), nil
	default:
		return nil, newErr(KindMalformed, "layer enumeration undefined for manifest kind %v", m.Kind)
	}
}

// GetLabels returns the image config's labels for a Schema1Signed manifest
// at the given history index. Schema2 and ManifestList require an
// additional config-blob fetch, left to the caller — GetConfigDigest
// exposes the digest to fetch for Schema2; a ManifestList has no config
// digest of its own and must first be resolved to a child manifest.
func (m *Manifest) GetLabels(historyIndex int) (map[string]string, bool) {
	if m.Kind != ManifestKindSchema1Signed {
		return nil, false
	}
	return m.Schema1.GetLabels(historyIndex)
}

// GetConfigDigest returns the config blob digest for a Schema2 manifest,
// the follow-up fetch a caller needs to extract its labels.
func (m *Manifest) GetConfigDigest() (string, bool) {
	if m.Kind != ManifestKindSchema2 {
		return "", false
	}
	return m.Schema2.Config.Digest.String(), true
}

// --- Schema 1 (historical, signed) ---

type fsLayer struct {
	BlobSum string `json:"blobSum"`
}

type history struct {
	V1Compatibility string `json:"v1Compatibility"`
}

// ManifestSchema1Signed is the legacy signed manifest format: a top-down
// fsLayers list, a history entry of JSON-encoded-string v1Compatibility
// blobs (one of which carries image config including Labels), and a JWS
// signatures array (verified by the caller if content trust is needed).
type ManifestSchema1Signed struct {
	Name         string          `json:"name"`
	Tag          string          `json:"tag"`
	Architecture string          `json:"architecture"`
	FSLayers     []fsLayer       `json:"fsLayers"`
	History      []history       `json:"history"`
	Signatures   json.RawMessage `json:"signatures"`
	SchemaV      int             `json:"schemaVersion"`
}

// GetLayers returns fsLayers reversed to base-first order: the wire format
// lists layers top-down, but every other operation assumes base-first.
func (m *ManifestSchema1Signed) GetLayers() []string {
	out := make([]string, len(m.FSLayers))
	for i, l := range m.FSLayers {
		out[len(m.FSLayers)-1-i] = l.BlobSum
	}
	return out
}

type v1CompatConfig struct {
	Config struct {
		Labels map[string]string `json:"Labels"`
	} `json:"config"`
}

// GetLabels parses history[historyIndex].v1Compatibility as JSON and
// returns its config.Labels map. Out-of-range indices return (nil, false).
func (m *ManifestSchema1Signed) GetLabels(historyIndex int) (map[string]string, bool) {
	if historyIndex < 0 || historyIndex >= len(m.History) {
		return nil, false
	}
	var v v1CompatConfig
	if err := json.Unmarshal([]byte(m.History[historyIndex].V1Compatibility), &v); err != nil {
		return nil, false
	}
	return v.Config.Labels, true
}

// --- Schema 2 ---

// ManifestSchema2 is the modern single-platform manifest: a config
// descriptor and an ordered list of layer descriptors.
type ManifestSchema2 struct {
	SchemaVersion int          `json:"schemaVersion"`
	MediaType     string       `json:"mediaType"`
	Config        Descriptor   `json:"config"`
	Layers        []Descriptor `json:"layers"`
}

// GetLayers returns layer digests in the order the manifest lists them.
func (m *ManifestSchema2) GetLayers() []string {
	out := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		out[i] = l.Digest.String()
	}
	return out
}

// --- Manifest list (schema 2 multi-arch list) ---

// PlatformManifest is one entry of a ManifestList: a child digest plus the
// platform it targets.
type PlatformManifest struct {
	Digest   string `json:"digest"`
	Platform struct {
		OS           string `json:"os"`
		Architecture string `json:"architecture"`
	} `json:"platform"`
}

// ManifestList is a schema2 multi-arch manifest list. Resolving it to a
// concrete manifest requires a follow-up GetManifest on the chosen child
// digest; it is not resolved automatically.
type ManifestList struct {
	SchemaVersion int                `json:"schemaVersion"`
	MediaType     string             `json:"mediaType"`
	Manifests     []PlatformManifest `json:"manifests"`
}

// detectKind dispatches on Content-Type, falling back to the body's
// schemaVersion/mediaType fields when Content-Type is absent.
func detectKind(contentType string, body []byte) (ManifestKind, string) {
	switch contentType {
	case MediaTypeSchema1Signed:
		return ManifestKindSchema1Signed, contentType
	case MediaTypeSchema2, ociv1.MediaTypeImageManifest:
		return ManifestKindSchema2, contentType
	case MediaTypeManifestList, ociv1.MediaTypeImageIndex:
		return ManifestKindManifestList, contentType
	}
	if contentType == "" {
		var probe struct {
			SchemaVersion int    `json:"schemaVersion"`
			MediaType     string `json:"mediaType"`
		}
		if err := json.Unmarshal(body, &probe); err == nil {
			switch {
			case probe.MediaType == MediaTypeManifestList:
				return ManifestKindManifestList, probe.MediaType
			case probe.MediaType == MediaTypeSchema2:
				return ManifestKindSchema2, probe.MediaType
			case probe.SchemaVersion == 1:
				return ManifestKindSchema1Signed, MediaTypeSchema1Signed
			case probe.SchemaVersion == 2:
				return ManifestKindSchema2, MediaTypeSchema2
			}
		}
	}
	return ManifestKindUnknown, contentType
}

func decodeManifest(kind ManifestKind, mtype string, body []byte) (*Manifest, error) {
	m := &Manifest{Kind: kind, mtype: mtype}
	var err error
	switch kind {
	case ManifestKindSchema1Signed:
		m.Schema1 = &ManifestSchema1Signed{}
		err = json.Unmarshal(body, m.Schema1)
	case ManifestKindSchema2:
		m.Schema2 = &ManifestSchema2{}
		err = json.Unmarshal(body, m.Schema2)
	case ManifestKindManifestList:
		m.List = &ManifestList{}
		err = json.Unmarshal(body, m.List)
	default:
		return nil, newErr(KindUnknownMediaType, "unrecognized manifest content-type %q", mtype)
	}
	if err != nil {
		return nil, wrapErr(KindMalformed, err, "decoding %s manifest body", mtype)
	}
	return m, nil
}

// GetManifest fetches and decodes the manifest at name:ref.
func (c *Client) GetManifest(ctx context.Context, name, ref string) (*Manifest, error) {
	rawURL := c.url("/v2/%s/manifests/%s", name, escapePath(ref))
	headers := http.Header{"Accept": {strings.Join(acceptedManifestTypes, ", ")}}
	scope := "repository:" + name + ":pull"

	resp, err := c.do(ctx, http.MethodGet, rawURL, scope, headers, nil)
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
		return nil, wrapErr(KindMalformed, err, "reading manifest body")
	}

	kind, mtype := detectKind(resp.Header.Get("Content-Type"), body)
	return decodeManifest(kind, mtype, body)
}

// HasManifest issues a HEAD and reports the recognized media type, if any.
// A 404 or a 200 with an unrecognized type both yield (nil, nil) — the
// latter traced but not treated as an error.
func (c *Client) HasManifest(ctx context.Context, name, ref string) (*string, error) {
	rawURL := c.url("/v2/%s/manifests/%s", name, escapePath(ref))
	headers := http.Header{"Accept": {strings.Join(acceptedManifestTypes, ", ")}}
	scope := "repository:" + name + ":pull"

	resp, err := c.do(ctx, http.MethodHead, rawURL, scope, headers, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		ct := resp.Header.Get("Content-Type")
		kind, mtype := detectKind(ct, nil)
		if kind == ManifestKindUnknown {
			c.log.WithField("content-type", ct).Trace("has_manifest: unrecognized media type")
			return nil, nil
		}
		return &mtype, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		body, _ := readAll(resp)
		return nil, errForStatus(resp, body)
	}
}
