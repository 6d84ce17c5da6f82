package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/stixly/stixly/internal/telegram"
)

const DefaultBaseURL = "http://localhost:8080/api"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client talks to the Stixly REST API.
type Client struct {
	http     *http.Client
	baseURL  string
	limiter  *rate.Limiter
	logger   *log.Logger
	validate *validator.Validate

	mu       sync.RWMutex
	initData string
}

func New(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  DefaultBaseURL,
		logger:   log.Default(),
		validate: newValidator(),
	}
	for _, o := range opts {
		o(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetInitData replaces the init data sent with each request.
func (c *Client) SetInitData(raw string) {
	c.mu.Lock()
	c.initData = raw
	c.mu.Unlock()
}

// ClearInitData stops sending init data.
func (c *Client) ClearInitData() {
	c.SetInitData("")
}

// InitData returns the init data currently attached to requests.
func (c *Client) InitData() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initData
}

// doJSON sends body as JSON (when non-nil) and decodes the response into
// out (when non-nil). It maps 404 to ErrNotFound, retries once on 429 with
// a Retry-After in seconds, and returns *APIError for other failures.
func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		if err := c.validate.StructCtx(ctx, body); err != nil {
			if _, ok := err.(*validator.InvalidValidationError); !ok {
				return fmt.Errorf("%w: %s %s: %s", ErrInvalidRequest, method, path, FormatValidationError(err))
			}
		}
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = b
	}

	res, err := c.send(ctx, method, path, q, payload, "application/json", true)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// doRaw returns the body of a successful response as bytes.
func (c *Client) doRaw(ctx context.Context, method, path string, q url.Values) ([]byte, string, error) {
	res, err := c.send(ctx, method, path, q, nil, "*/*", true)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return b, res.Header.Get("Content-Type"), nil
}

// send performs the request and returns a 2xx response whose body the
// caller must close.
func (c *Client) send(ctx context.Context, method, path string, q url.Values, payload []byte, accept string, retry bool) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if initData := c.InitData(); initData != "" {
		req.Header.Set(telegram.HeaderInitData, initData)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stixly http: %w", err)
	}

	if res.StatusCode == http.StatusTooManyRequests && retry {
		if sec, _ := strconv.Atoi(res.Header.Get("Retry-After")); sec > 0 {
			res.Body.Close()
			c.logger.Printf("api: %s %s rate limited, retrying in %ds", method, path, sec)
			select {
			case <-time.After(time.Duration(sec) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return c.send(ctx, method, path, q, payload, accept, false)
		}
	}

	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil, ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		res.Body.Close()
		return nil, &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return res, nil
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}
