// Package ledger records identity-to-profile pointers in an external
// registry, consumed only through register and lookup operations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned by Lookup when no record exists for the key.
var ErrNotFound = errors.New("ledger: record not found")

// DefaultTimeout bounds a single registry call.
const DefaultTimeout = 15 * time.Second

// Entry is one registry record: an identity key pointing at published
// profile content.
type Entry struct {
	Key        string `json:"key"`
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
}

// TxHandle identifies a completed registration in the registry's own terms.
type TxHandle string

// Registry is the external ledger surface the pipeline consumes.
type Registry interface {
	Register(ctx context.Context, e Entry) (TxHandle, error)
	Lookup(ctx context.Context, key string) (*Entry, error)
}

// RegistryError reports a failed registry call. Registration failure is
// surfaced to the caller distinctly and never retracts a successful publish.
type RegistryError struct {
	Op    string
	Key   string
	Cause error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("ledger %s failed for %s: %v", e.Op, e.Key, e.Cause)
}

func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Config holds registry connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPRegistry is a Registry over a key/value registry service's REST API.
type HTTPRegistry struct {
	http *resty.Client
}

type registerResponse struct {
	Tx string `json:"tx"`
}

// NewHTTPRegistry builds a registry client from config.
func NewHTTPRegistry(cfg Config) *HTTPRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPRegistry{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
			SetTimeout(timeout).
			SetAuthToken(cfg.APIKey),
	}
}

// Register writes the entry and returns the registry's transaction handle.
func (r *HTTPRegistry) Register(ctx context.Context, e Entry) (TxHandle, error) {
	var parsed registerResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(e).
		SetResult(&parsed).
		Post("/records")
	if err != nil {
		return "", &RegistryError{Op: "register", Key: e.Key, Cause: err}
	}
	if resp.IsError() {
		return "", &RegistryError{
			Op:    "register",
			Key:   e.Key,
			Cause: fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}
	return TxHandle(parsed.Tx), nil
}

// Lookup reads the entry for a key, or ErrNotFound.
func (r *HTTPRegistry) Lookup(ctx context.Context, key string) (*Entry, error) {
	var parsed Entry
	resp, err := r.http.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get("/records/" + key)
	if err != nil {
		return nil, &RegistryError{Op: "lookup", Key: key, Cause: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, &RegistryError{
			Op:    "lookup",
			Key:   key,
			Cause: fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}
	return &parsed, nil
}
