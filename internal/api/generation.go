package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const DefaultGenerationPollInterval = 2 * time.Second

func (c *Client) StartGeneration(ctx context.Context, req GenerationRequest) (*GenerationTask, error) {
	var out GenerationTask
	if err := c.doJSON(ctx, http.MethodPost, "/generation/generate", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetGenerationStatus(ctx context.Context, taskID string) (*GenerationStatus, error) {
	var out GenerationStatus
	if err := c.doJSON(ctx, http.MethodGet, "/generation/status/"+url.PathEscape(taskID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	return &out, nil
}

func (c *Client) SaveImageToStickerSet(ctx context.Context, req SaveImageRequest) (*SaveImageResponse, error) {
	var out SaveImageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/stickersets/save-image", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForGeneration polls a task until it reaches a terminal status or ctx
// is done. onUpdate, when set, sees every status that differs from the
// previous one.
func (c *Client) WaitForGeneration(ctx context.Context, taskID string, interval time.Duration, onUpdate func(GenerationStatus)) (*GenerationStatus, error) {
	if interval <= 0 {
		interval = DefaultGenerationPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	var last string
	for {
		st, err := c.GetGenerationStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil && st.Status != last {
			onUpdate(*st)
		}
		last = st.Status
		if st.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
