package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "threadsdl/pkg/errors"
	"threadsdl/pkg/logger"
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves a single URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// Client fetches media over HTTP. One attempt per URL; failures come back
// as typed errors.
type Client struct {
	httpClient  *http.Client
	headers     map[string]string
	maxFileSize int64
	logger      logger.Logger
}

// NewClient creates a client. A zero maxFileSize disables the size limit.
func NewClient(timeout time.Duration, userAgent string, maxFileSize int64, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"Accept":          "image/avif,image/webp,image/apng,video/*,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		headers:     headers,
		maxFileSize: maxFileSize,
		logger:      log,
	}
}

// SetHeader sets a custom request header
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Fetch performs a GET and reads the whole body
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeUnsupported, Message: "malformed URL", URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnsupported,
			Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
			URL:     rawURL,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeUnsupported, Message: "failed to create request", URL: rawURL, Err: err}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: "request failed", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, rawURL, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &errs.Error{
			Type:    errs.ErrorTypeStatus,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Code:    resp.StatusCode,
			URL:     rawURL,
		}
	}

	if c.maxFileSize > 0 && resp.ContentLength > c.maxFileSize {
		return nil, c.tooLarge(rawURL, resp.ContentLength)
	}

	var body io.Reader = resp.Body
	if c.maxFileSize > 0 {
		body = io.LimitReader(resp.Body, c.maxFileSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeRead,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			URL:     rawURL,
			Err:     err,
		}
	}
	if c.maxFileSize > 0 && int64(len(data)) > c.maxFileSize {
		return nil, c.tooLarge(rawURL, int64(len(data)))
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func (c *Client) tooLarge(rawURL string, size int64) error {
	return &errs.Error{
		Type:    errs.ErrorTypeTooLarge,
		Message: fmt.Sprintf("body of %d bytes exceeds limit of %d", size, c.maxFileSize),
		URL:     rawURL,
	}
}
