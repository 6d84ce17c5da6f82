package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/telegram"
)

// maxStickerBytes caps a single download. Telegram video stickers stay
// well under this.
const maxStickerBytes = 16 << 20

// ClientFetcher downloads stickers by file ID through the API client, so
// loads share its rate limit and init data.
func ClientFetcher(c *api.Client) Fetcher {
	return func(ctx context.Context, req Request) (Resource, error) {
		data, ct, err := c.GetSticker(ctx, req.FileID)
		if err != nil {
			return Resource{}, err
		}
		return Resource{Data: data, ContentType: ct, Kind: req.Kind}, nil
	}
}

// HTTPFetcher downloads req.URL directly. initData, when set, is sent in
// the Telegram init data header.
func HTTPFetcher(hc *http.Client, initData string) Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return func(ctx context.Context, req Request) (Resource, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
		if err != nil {
			return Resource{}, fmt.Errorf("building request: %w", err)
		}
		if initData != "" {
			httpReq.Header.Set(telegram.HeaderInitData, initData)
		}

		resp, err := hc.Do(httpReq)
		if err != nil {
			return Resource{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return Resource{}, fmt.Errorf("GET %s: status %d", req.URL, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxStickerBytes))
		if err != nil {
			return Resource{}, fmt.Errorf("reading %s: %w", req.URL, err)
		}
		return Resource{Data: data, ContentType: resp.Header.Get("Content-Type"), Kind: req.Kind}, nil
	}
}
