// Package fetch retrieves a single remote object into a local file and wraps
// that in a bounded retry policy.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tanq16/imgdl/internal/utils"
)

// Fetcher performs one attempt to retrieve link into dest. On success exactly
// one file exists at dest; on failure dest is left untouched.
type Fetcher interface {
	Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error
}

type FetcherFunc func(ctx context.Context, link, dest string, progress utils.ProgressFunc) error

func (f FetcherFunc) Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
	return f(ctx, link, dest, progress)
}

// Router dispatches on URL scheme.
type Router struct {
	schemes map[string]Fetcher
}

func NewRouter(httpFetcher, s3Fetcher Fetcher) *Router {
	r := &Router{schemes: make(map[string]Fetcher)}
	if httpFetcher != nil {
		r.schemes["http"] = httpFetcher
		r.schemes["https"] = httpFetcher
	}
	if s3Fetcher != nil {
		r.schemes["s3"] = s3Fetcher
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
	f, err := r.fetcherFor(link)
	if err != nil {
		return err
	}
	return f.Fetch(ctx, link, dest, progress)
}

// Supports reports whether link can be dispatched, returning a config error
// when it cannot.
func (r *Router) Supports(link string) error {
	_, err := r.fetcherFor(link)
	return err
}

func (r *Router) fetcherFor(link string) (Fetcher, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, utils.NewConfigError("url", fmt.Errorf("invalid URL %q: %w", link, err))
	}
	f, ok := r.schemes[strings.ToLower(parsed.Scheme)]
	if !ok || parsed.Host == "" {
		return nil, utils.NewConfigError("url", fmt.Errorf("unsupported URL %q", link))
	}
	return f, nil
}
