package api

import (
	"log"
	"net/http"

	"golang.org/x/time/rate"
)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithInitData sets the X-Telegram-Init-Data header sent on every request.
func WithInitData(raw string) Option {
	return func(c *Client) { c.initData = raw }
}

// WithRateLimit caps outgoing requests at rpm per minute. Zero disables it.
func WithRateLimit(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}
