// Package types provides request and response definitions for the profile image API.
package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/profile-images/internal/images"
)

// ServiceName is reported by the API description endpoint.
const ServiceName = "Profile Image Extractor API"

// Version is the API version string.
const Version = "2.3.0"

// ExtractRequest holds the query parameters of an extraction request.
type ExtractRequest struct {
	URL string `json:"url" validate:"required,url,max=2048"`
}

// HistoryRequest holds the query parameters of a history lookup.
type HistoryRequest struct {
	URL   string `json:"url" validate:"required,url,max=2048"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// ImageVariants pairs the standard and high-resolution URL of one image.
// Null marks an image that was not found.
type ImageVariants struct {
	Standard *string `json:"standard"`
	HD       *string `json:"hd"`
}

// ExtractResponse is the success body of an extraction.
type ExtractResponse struct {
	Success        bool          `json:"success"`
	ProfileURL     string        `json:"profile_url,omitempty"`
	ProfilePicture ImageVariants `json:"profile_picture"`
	CoverPhoto     ImageVariants `json:"cover_photo"`
	Photos         []string      `json:"photos"`
	AllImages      []string      `json:"all_images"`
	TotalCount     int           `json:"total_count"`
	FromCache      bool          `json:"from_cache"`
	TimeTaken      string        `json:"time_taken"`
	APIUptime      string        `json:"api_uptime,omitempty"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Example   string `json:"example,omitempty"`
	TimeTaken string `json:"time_taken,omitempty"`
}

// ServiceInfo describes the API.
type ServiceInfo struct {
	Message     string            `json:"message"`
	Description string            `json:"description"`
	Endpoint    string            `json:"endpoint"`
	Usage       string            `json:"usage"`
	Parameters  map[string]string `json:"parameters"`
	Version     string            `json:"version"`
	Uptime      string            `json:"uptime"`
}

// Validate validates the ExtractRequest using the validator.
func (r *ExtractRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the HistoryRequest using the validator.
func (r *HistoryRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// NewExtractResponse builds the response body for a successful extraction.
func NewExtractResponse(profileURL string, result *images.Result, fromCache bool, elapsed time.Duration) *ExtractResponse {
	photos := result.PhotoImages
	if photos == nil {
		photos = []string{}
	}
	all := result.AllImages
	if all == nil {
		all = []string{}
	}

	return &ExtractResponse{
		Success:    true,
		ProfileURL: profileURL,
		ProfilePicture: ImageVariants{
			Standard: optional(result.ProfilePicture),
			HD:       optional(result.ProfilePictureHD),
		},
		CoverPhoto: ImageVariants{
			Standard: optional(result.CoverPhoto),
			HD:       optional(result.CoverPhotoHD),
		},
		Photos:     photos,
		AllImages:  all,
		TotalCount: len(all),
		FromCache:  fromCache,
		TimeTaken:  FormatSeconds(elapsed),
	}
}

// FormatSeconds renders a duration as seconds with two decimals, e.g. "1.25s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// HistoryEntry is one stored extraction in a history listing.
type HistoryEntry struct {
	ID             string        `json:"id"`
	ProfilePicture ImageVariants `json:"profile_picture"`
	CoverPhoto     ImageVariants `json:"cover_photo"`
	Photos         []string      `json:"photos"`
	TotalCount     int           `json:"total_count"`
	FromCache      bool          `json:"from_cache"`
	DurationMS     int64         `json:"duration_ms"`
	CreatedAt      string        `json:"created_at"` // RFC 3339
}

// HistoryResponse lists stored extractions of one profile, newest first.
type HistoryResponse struct {
	ProfileURL  string         `json:"profile_url"`
	Count       int            `json:"count"`
	Extractions []HistoryEntry `json:"extractions"`
}

// NewHistoryEntry builds a history entry from a stored result.
func NewHistoryEntry(id string, result *images.Result, fromCache bool, durationMS int64, createdAt time.Time) HistoryEntry {
	resp := NewExtractResponse("", result, fromCache, 0)
	return HistoryEntry{
		ID:             id,
		ProfilePicture: resp.ProfilePicture,
		CoverPhoto:     resp.CoverPhoto,
		Photos:         resp.Photos,
		TotalCount:     resp.TotalCount,
		FromCache:      fromCache,
		DurationMS:     durationMS,
		CreatedAt:      createdAt.UTC().Format(time.RFC3339),
	}
}
