// Package server provides the HTTP REST API for the profile archiver.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/daniela/profile-archiver/internal/ledger"
	"github.com/daniela/profile-archiver/internal/pipeline"
)

// ErrInvalidInput indicates request validation failure
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Client mistakes map to 400; upstream failures (scrape, publish, ledger)
// map to 502; anything else is a 500.
func HTTPStatus(err error) int {
	var invalidInput *ErrInvalidInput
	var scrapeErr *pipeline.ScrapeError
	var publishErr *pipeline.PublishError
	var registryErr *ledger.RegistryError

	switch {
	case errors.As(err, &invalidInput):
		return http.StatusBadRequest
	case errors.As(err, &scrapeErr), errors.As(err, &publishErr), errors.As(err, &registryErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
