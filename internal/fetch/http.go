package fetch

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/utils"
)

type HTTPFetcher struct {
	client *utils.ImgHTTPClient
}

func NewHTTPFetcher(client *utils.ImgHTTPClient) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch performs one streaming GET of link into dest.
func (f *HTTPFetcher) Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
	resp, err := f.client.Get(ctx, link)
	if err != nil {
		return transientError(ctx, link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(link, resp.StatusCode)
	}
	log.Debug().Str("op", "fetch/http").Str("url", link).Int64("contentLength", resp.ContentLength).Msg("Streaming response body")
	return streamToFile(ctx, link, resp.Body, resp.ContentLength, dest, progress)
}
