package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// DefaultUserAgent identifies the collector to upstream feeds.
const DefaultUserAgent = "alertetl/1.0 (+https://github.com/david-j-lopez-m/RF)"

// Response is the raw result of one upstream GET.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Client performs single upstream HTTP calls. It never retries; a failed call
// is reported as a domain.TransportError carrying the status when one was
// received.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates an upstream client. Per-call deadlines come from the
// context passed to each request.
func NewClient(userAgent string, logger *slog.Logger) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := resty.New().
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)
	return &Client{http: c, logger: logger}
}

// Get fetches url with the given headers, bounded by timeout. Any non-2xx
// status is a TransportError.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		status := 0
		if resp != nil && resp.RawResponse != nil {
			status = resp.StatusCode()
		}
		return nil, &domain.TransportError{URL: url, Status: status, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &domain.TransportError{
			URL:    url,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(resp.Status())),
		}
	}

	c.logger.Debug("upstream response",
		"url", url,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"duration", time.Since(start),
	)
	return &Response{
		URL:         url,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// GetJSON fetches url and requires a JSON content type when the server sends one.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Response, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	resp, err := c.Get(ctx, url, headers, timeout)
	if err != nil {
		return nil, err
	}
	if !IsJSONContentType(resp.ContentType) {
		return nil, &domain.FormatError{URL: url, Reason: fmt.Sprintf("content type %q is not JSON", resp.ContentType)}
	}
	return resp, nil
}

// IsJSONContentType accepts application/json and +json suffixes. An absent
// header is accepted; the body decode decides.
func IsJSONContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") || mediaType == "text/json"
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
