package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/jonathan/profile-images/internal/scrape"
	"github.com/jonathan/profile-images/internal/types"
)

const exampleUsage = "/api/all?url=https://www.facebook.com/username"

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": s.history != nil,
	})
}

// handleServiceInfo describes the API and reports uptime.
func (s *Server) handleServiceInfo(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.ServiceInfo{
		Message:     types.ServiceName,
		Description: "Extract profile pictures, cover photos, and other images from Facebook profiles",
		Endpoint:    "/api/all",
		Usage:       exampleUsage,
		Parameters:  map[string]string{"url": "Facebook profile URL (required)"},
		Version:     types.Version,
		Uptime:      s.uptime(),
	})
}

// handleExtract scrapes the profile given in ?url= and returns its images.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := types.ExtractRequest{URL: strings.TrimSpace(r.URL.Query().Get("url"))}

	if req.URL == "" {
		s.jsonResponse(w, http.StatusBadRequest, types.ErrorResponse{
			Error:     "No URL provided",
			Message:   "Please provide a Facebook profile URL using ?url=parameter",
			Example:   exampleUsage,
			TimeTaken: types.FormatSeconds(time.Since(start)),
		})
		return
	}
	if err := req.Validate(); err != nil {
		s.extractError(w, &ErrValidation{Field: "url", Message: err.Error()}, start)
		return
	}

	log.Printf("[SCRAPE] Processing all images request: %s", req.URL)

	out, err := s.extractor.ScrapeProfile(r.Context(), req.URL)
	if err != nil {
		s.extractError(w, err, start)
		return
	}

	resp := types.NewExtractResponse(out.ProfileURL, out.Result, out.FromCache, time.Since(start))
	resp.APIUptime = s.uptime()
	s.jsonResponse(w, http.StatusOK, resp)
}

// extractError writes the error body for a failed extraction.
func (s *Server) extractError(w http.ResponseWriter, err error, start time.Time) {
	status := HTTPStatus(err)
	body := types.ErrorResponse{TimeTaken: types.FormatSeconds(time.Since(start))}

	switch status {
	case http.StatusBadRequest:
		body.Error = "Invalid URL"
		body.Message = "Please provide a valid Facebook profile URL"
		body.Example = exampleUsage
	case http.StatusNotFound:
		body.Error = "Failed to scrape profile"
		body.Message = "Could not extract data from the provided URL (maybe private/login required or blocked)"
	case http.StatusGatewayTimeout:
		body.Error = "Request timed out"
		body.Message = "The profile page did not respond in time"
	default:
		log.Printf("Error processing request: %v", err)
		body.Error = "Processing failed"
		body.Message = "Unable to process the request"
	}
	s.jsonResponse(w, status, body)
}

// handleHistory lists stored extractions for ?url=, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.errorResponse(w, ErrHistoryUnavailable)
		return
	}

	query := r.URL.Query()
	req := types.HistoryRequest{URL: strings.TrimSpace(query.Get("url")), Limit: s.historyLimit}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.errorResponse(w, &ErrValidation{Field: "limit", Message: "must be an integer"})
			return
		}
		req.Limit = limit
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "url", Message: err.Error()})
		return
	}

	profileURL, err := fetch.NormalizeProfileURL(req.URL)
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "url", Message: err.Error()})
		return
	}

	records, err := s.history.ListExtractions(r.Context(), profileURL, req.Limit)
	if err != nil {
		log.Printf("Error listing extractions for %s: %v", profileURL, err)
		s.errorResponse(w, err)
		return
	}
	if len(records) == 0 {
		s.jsonResponse(w, http.StatusNotFound, types.ErrorResponse{
			Error:   "Not found",
			Message: "No stored extractions for " + profileURL,
		})
		return
	}

	resp := types.HistoryResponse{
		ProfileURL:  profileURL,
		Count:       len(records),
		Extractions: make([]types.HistoryEntry, 0, len(records)),
	}
	for i := range records {
		rec := &records[i]
		resp.Extractions = append(resp.Extractions, types.NewHistoryEntry(
			rec.ID.String(), scrape.FromExtraction(rec), rec.FromCache, rec.DurationMS, rec.CreatedAt))
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// errorResponse writes an error JSON response with the status HTTPStatus picks.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Unable to process the request"
	}
	s.jsonResponse(w, status, types.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
