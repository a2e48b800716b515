package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/carlmjohnson/requests"
	"github.com/djcass44/npm-get/pkg/semver"
	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
)

const DefaultURL = "https://registry.npmjs.org"

var (
	ErrNotFound    = errors.New("package not found")
	ErrUnavailable = errors.New("registry unavailable")
	ErrNoMatch     = errors.New("no version matching specifier")
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// Resolve turns a package name and version specifier into the metadata
// record for a single concrete version.
//
// Plain three-part numeric specifiers are looked up directly. Anything
// else (ranges, partial versions, "latest") fetches the full version
// list and hands it to the matcher. For "latest" the packument's
// dist-tag wins when present, since the registry maintains it for
// exactly this purpose.
func (c *Client) Resolve(ctx context.Context, name, specifier string) (*PackageVersion, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", name, "specifier", specifier)

	if isExactVersion(specifier) {
		pkg, err := c.getVersion(ctx, name, strings.TrimSpace(specifier))
		if err != nil {
			return nil, err
		}
		// some registries answer the versioned path with the full
		// packument. If we didn't get a single-version record, fall
		// through to list resolution.
		if pkg.Version != "" {
			return pkg, nil
		}
		log.V(2).Info("direct lookup returned no version record, listing versions")
	}

	packument, err := c.getPackument(ctx, name)
	if err != nil {
		return nil, err
	}

	if specifier == "latest" || specifier == "" {
		if tagged, ok := packument.Versions[packument.DistTags["latest"]]; ok {
			log.V(1).Info("resolved via dist-tag", "version", tagged.Version)
			return &tagged, nil
		}
		specifier = "*"
	}

	match, ok := semver.ResolveHighest(specifier, maps.Keys(packument.Versions))
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrNoMatch, name, specifier)
	}
	log.V(1).Info("resolved version", "version", match)

	pkg := packument.Versions[match]
	return &pkg, nil
}

func (c *Client) getVersion(ctx context.Context, name, version string) (*PackageVersion, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", name, "version", version)
	log.V(2).Info("fetching version metadata")

	var out PackageVersion
	err := requests.URL(c.baseURL).
		Pathf("/%s/%s", url.PathEscape(name), version).
		Client(c.client).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return nil, classify(err, name, version)
	}
	return &out, nil
}

func (c *Client) getPackument(ctx context.Context, name string) (*Packument, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", name)
	log.V(2).Info("fetching package metadata")

	var out Packument
	err := requests.URL(c.baseURL).
		Pathf("/%s", url.PathEscape(name)).
		Client(c.client).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return nil, classify(err, name, "")
	}
	return &out, nil
}

func classify(err error, name, version string) error {
	target := name
	if version != "" {
		target = fmt.Sprintf("%s@%s", name, version)
	}
	if requests.HasStatusErr(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if errors.Is(err, requests.ErrValidator) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, target, err)
	}
	return fmt.Errorf("fetching metadata for %s: %w", target, err)
}

// isExactVersion reports whether the specifier is a plain three-part
// numeric version that can be looked up directly.
func isExactVersion(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && !unicode.IsSpace(r) {
			return false
		}
	}
	return len(strings.Split(strings.TrimSpace(s), ".")) == 3
}
