// Package pin submits canonical record bytes to a content-addressed pinning
// service and returns the identifier the network assigns.
package pin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ipfs/go-cid"

	"github.com/daniela/profile-archiver/internal/record"
)

// DefaultTimeout bounds a single pin request.
const DefaultTimeout = 30 * time.Second

// Result is a successful publish: the assigned content identifier and the
// gateway URL the content is retrievable at.
type Result struct {
	CID        string
	GatewayURL string
}

// Config holds pinning service connection settings.
type Config struct {
	// Endpoint is the pinning service base URL.
	Endpoint string
	// APIKey authenticates pin requests.
	APIKey string
	// GatewayBase is the public gateway used to build retrieval URLs.
	GatewayBase string
	// Timeout bounds each request; zero means DefaultTimeout.
	Timeout time.Duration
	// Retries is the number of additional attempts after a transport or
	// service failure. Zero means a single attempt.
	Retries int
	// RetryWait is the fixed wait between attempts.
	RetryWait time.Duration
	Verbose   bool
}

// Client talks to the pinning service over HTTP.
type Client struct {
	http        *resty.Client
	gatewayBase string
	verbose     bool
}

type pinRequest struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
}

type pinResponse struct {
	CID string `json:"cid"`
}

// NewClient builds a pinning client from config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})

	return &Client{
		http:        httpClient,
		gatewayBase: strings.TrimRight(cfg.GatewayBase, "/"),
		verbose:     cfg.Verbose,
	}
}

// Publish submits canonical bytes and returns the assigned identifier. It
// always resolves to a result or an *UploadError; it never panics across the
// orchestration boundary.
func (c *Client) Publish(ctx context.Context, canonical []byte, label string) (*Result, error) {
	var parsed pinResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pinRequest{Name: label, Content: json.RawMessage(canonical)}).
		SetResult(&parsed).
		Post("/pins")
	if err != nil {
		return nil, &UploadError{Label: label, Message: "pin request failed", Cause: err}
	}
	if resp.IsError() {
		return nil, &UploadError{
			Label:   label,
			Message: fmt.Sprintf("pin service returned HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}
	if parsed.CID == "" {
		return nil, &UploadError{Label: label, Message: "pin service response missing cid"}
	}
	if _, err := cid.Decode(parsed.CID); err != nil {
		return nil, &UploadError{Label: label, Message: fmt.Sprintf("pin service returned malformed cid %q", parsed.CID), Cause: err}
	}

	if c.verbose {
		if predicted, err := record.PredictCID(canonical); err == nil && predicted != parsed.CID {
			// Informational only: the service may wrap content before hashing.
			log.Printf("[pin] %s: assigned cid %s differs from locally predicted %s", label, parsed.CID, predicted)
		}
	}

	return &Result{
		CID:        parsed.CID,
		GatewayURL: c.GatewayURL(parsed.CID),
	}, nil
}

// GatewayURL builds the public retrieval URL for a content identifier.
func (c *Client) GatewayURL(contentID string) string {
	return fmt.Sprintf("%s/ipfs/%s", c.gatewayBase, contentID)
}
