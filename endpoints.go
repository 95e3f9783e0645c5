package dummyauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/tomnomnom/linkheader"
	"golang.org/x/net/html"
)

const (
	// DefaultMaxRedirects is the number of redirects a Spider created with
	// NewSpider will follow.
	DefaultMaxRedirects = 5

	// maxDocumentSize is the most that will be read of a profile page when
	// looking for <link> elements.
	maxDocumentSize = 1 << 20

	relAuthorization = "authorization_endpoint"
	relToken         = "token_endpoint"
)

// Endpoints are the endpoints a profile URL declares. A nil field means the
// profile did not declare that endpoint.
type Endpoints struct {
	Authorization *url.URL
	Token         *url.URL
}

func (e Endpoints) complete() bool {
	return e.Authorization != nil && e.Token != nil
}

// Discovery is the outcome of discovering the endpoints for a profile URL. It
// must not be modified.
type Discovery struct {
	// CanonicalURL is the URL to treat as the user's identity. It is the URL
	// discovery started with, unless it was permanently redirected.
	CanonicalURL string

	// TargetURL is the URL at the end of the redirect chain, where the
	// endpoints were found.
	TargetURL string

	Endpoints Endpoints
}

// A Spider discovers the endpoints declared by a profile URL. It follows
// redirects itself, looks for Link headers in response to a HEAD request, and
// only if they do not declare both endpoints reads the page's HTML for <link>
// elements. Link headers take priority over <link> elements.
//
// A Spider makes its requests the first time Discover is called, later calls
// return the same result.
type Spider struct {
	// URL is the profile URL to start from.
	URL string

	// MaxRedirects is the longest redirect chain that will be followed.
	MaxRedirects int

	// Client is used to make requests, if nil a client from NewClient is used.
	// The Spider never lets Client follow redirects.
	Client *http.Client

	Logger hclog.Logger

	mu        sync.Mutex
	fetched   bool
	discovery *Discovery
	err       error
}

// NewSpider returns a Spider for the profile URL, or "me", given that follows
// up to DefaultMaxRedirects redirects.
func NewSpider(me string) *Spider {
	return &Spider{
		URL:          me,
		MaxRedirects: DefaultMaxRedirects,
	}
}

// Fetched returns true if Discover has completed.
func (s *Spider) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetched
}

// Discover returns the endpoints for the Spider's URL. If the redirect chain is
// too long a *TooManyRedirectsError is returned.
//
// If ctx is cancelled before discovery completes nothing is remembered, so
// Discover may be called again.
func (s *Spider) Discover(ctx context.Context) (*Discovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetched {
		return s.discovery, s.err
	}

	discovery, err := s.discover(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	s.fetched = true
	s.discovery, s.err = discovery, err
	return discovery, err
}

func (s *Spider) discover(ctx context.Context) (*Discovery, error) {
	client := noFollow(s.Client)
	logger := orNull(s.Logger).With("me", s.URL)

	current, err := url.Parse(s.URL)
	if err != nil {
		return nil, err
	}

	var (
		target    = s.URL
		canonical string
		remaining = s.MaxRedirects
		resp      *http.Response
	)

	for {
		resp, err = s.head(ctx, client, target)
		if err != nil {
			return nil, err
		}

		if !isRedirect(resp.StatusCode) {
			break
		}

		if remaining <= 0 {
			return nil, &TooManyRedirectsError{URL: target, Limit: s.MaxRedirects}
		}

		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("%w: %s responded %d", ErrMissingLocation, target, resp.StatusCode)
		}

		next, err := current.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("bad location from %s: %w", target, err)
		}

		// The first temporary redirect pins the identity to the URL that
		// issued it, whatever happens further along the chain.
		if canonical == "" && isTemporaryRedirect(resp.StatusCode) {
			canonical = target
		}

		logger.Debug("following redirect", "from", target, "to", next.String(), "status", resp.StatusCode)
		current, target = next, next.String()
		remaining--
	}

	if canonical == "" {
		canonical = target
	}

	discovery := &Discovery{
		CanonicalURL: canonical,
		TargetURL:    target,
	}

	links := linkheader.ParseMultiple(resp.Header["Link"])
	discovery.Endpoints.Authorization = findHeaderLink(current, links, relAuthorization)
	discovery.Endpoints.Token = findHeaderLink(current, links, relToken)

	if discovery.Endpoints.complete() {
		logger.Debug("found endpoints in headers", "target", target)
		return discovery, nil
	}

	root, err := s.document(ctx, client, target, resp.StatusCode)
	if err != nil {
		return nil, err
	}

	if discovery.Endpoints.Authorization == nil {
		discovery.Endpoints.Authorization = findDocumentLink(current, root, relAuthorization)
	}
	if discovery.Endpoints.Token == nil {
		discovery.Endpoints.Token = findDocumentLink(current, root, relToken)
	}

	logger.Debug("discovered endpoints",
		"target", target,
		"canonical", canonical,
		"authorization_endpoint", urlString(discovery.Endpoints.Authorization),
		"token_endpoint", urlString(discovery.Endpoints.Token))

	return discovery, nil
}

func (s *Spider) head(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}

	orNull(s.Logger).Trace("requesting", "method", http.MethodHead, "url", target)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", target, err)
	}
	resp.Body.Close()

	return resp, nil
}

// document reads the HTML at target, which when last requested with HEAD
// responded with headStatus. At most maxDocumentSize bytes are read, anything
// after is abandoned.
func (s *Spider) document(ctx context.Context, client *http.Client, target string, headStatus int) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	orNull(s.Logger).Trace("requesting", "method", http.MethodGet, "url", target)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != headStatus {
		return nil, fmt.Errorf("%w: %s responded %d to HEAD but %d to GET",
			ErrInconsistentResponse, target, headStatus, resp.StatusCode)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", target, err)
	}

	return root, nil
}

func findHeaderLink(base *url.URL, links linkheader.Links, rel string) *url.URL {
	for _, link := range links {
		for _, candidate := range strings.Fields(link.Rel) {
			if !strings.EqualFold(candidate, rel) {
				continue
			}

			if linkURL, err := base.Parse(link.URL); err == nil {
				return linkURL
			}
		}
	}

	return nil
}

func findDocumentLink(base *url.URL, root *html.Node, rel string) *url.URL {
	href, ok := findLink(root, rel)
	if !ok {
		return nil
	}

	linkURL, err := base.Parse(href)
	if err != nil {
		return nil
	}

	return linkURL
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func isTemporaryRedirect(status int) bool {
	return status == http.StatusFound || status == http.StatusTemporaryRedirect
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}

	return u.String()
}
