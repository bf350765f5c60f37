package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/daniela/profile-archiver/internal/ledger"
	"github.com/daniela/profile-archiver/internal/record"
)

type scrapeRequest struct {
	ProfileURL string `json:"profileUrl"`
}

type scrapeResponse struct {
	Success           bool                `json:"success"`
	ProfileCID        string              `json:"profileCID"`
	ProfileGatewayURL string              `json:"profileGatewayURL"`
	Listings          []record.ListingRef `json:"listings"`
	LedgerTx          string              `json:"ledgerTx,omitempty"`
}

// handleScrape archives one profile URL and returns the aggregate result.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateProfileURL(req.ProfileURL); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), req.ProfileURL)
	if err != nil {
		// Registration failure after a successful publish is its own
		// outcome, independent of the publish.
		var regErr *ledger.RegistryError
		if errors.As(err, &regErr) && res != nil {
			log.Printf("[scrape] published %s but ledger registration failed: %v", res.ProfileCID, err)
		} else {
			log.Printf("[scrape] %s failed: %v", req.ProfileURL, err)
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	listings := res.Listings
	if listings == nil {
		listings = []record.ListingRef{}
	}
	s.jsonResponse(w, http.StatusOK, scrapeResponse{
		Success:           true,
		ProfileCID:        res.ProfileCID,
		ProfileGatewayURL: res.ProfileGatewayURL,
		Listings:          listings,
		LedgerTx:          res.LedgerTx,
	})
}

// validateProfileURL rejects missing or malformed URLs before any side
// effect happens.
func validateProfileURL(raw string) error {
	if raw == "" {
		return &ErrInvalidInput{Field: "profileUrl", Message: "is required"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ErrInvalidInput{Field: "profileUrl", Message: "must be an absolute http(s) URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ErrInvalidInput{Field: "profileUrl", Message: "must be an absolute http(s) URL"}
	}
	return nil
}
