package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const extractionColumns = `id, profile_url, page_id, profile_picture, profile_picture_hd,
	cover_photo, cover_photo_hd, photo_images, all_images, from_cache, duration_ms, created_at`

// SaveExtraction stores an extraction result and fills in its ID and CreatedAt.
func (db *DB) SaveExtraction(ctx context.Context, e *Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.PhotoImages == nil {
		e.PhotoImages = []string{}
	}
	if e.AllImages == nil {
		e.AllImages = []string{}
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO extractions (id, profile_url, page_id, profile_picture, profile_picture_hd,
		                          cover_photo, cover_photo_hd, photo_images, all_images, from_cache, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		e.ID, e.ProfileURL, e.PageID, e.ProfilePicture, e.ProfilePictureHD,
		e.CoverPhoto, e.CoverPhotoHD, e.PhotoImages, e.AllImages, e.FromCache, e.DurationMS,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save extraction for %s: %w", e.ProfileURL, err)
	}
	return nil
}

// GetLatestExtraction returns the newest extraction for a profile URL, or nil if there is none.
func (db *DB) GetLatestExtraction(ctx context.Context, profileURL string) (*Extraction, error) {
	var e Extraction
	err := db.pool.QueryRow(ctx,
		`SELECT `+extractionColumns+`
		 FROM extractions WHERE profile_url = $1
		 ORDER BY created_at DESC LIMIT 1`,
		profileURL,
	).Scan(&e.ID, &e.ProfileURL, &e.PageID, &e.ProfilePicture, &e.ProfilePictureHD,
		&e.CoverPhoto, &e.CoverPhotoHD, &e.PhotoImages, &e.AllImages, &e.FromCache, &e.DurationMS, &e.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}
	return &e, nil
}

// ListExtractions returns recent extractions for a profile URL, newest first.
func (db *DB) ListExtractions(ctx context.Context, profileURL string, limit int) ([]Extraction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+extractionColumns+`
		 FROM extractions WHERE profile_url = $1
		 ORDER BY created_at DESC LIMIT $2`,
		profileURL, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	defer rows.Close()

	var extractions []Extraction
	for rows.Next() {
		var e Extraction
		if err := rows.Scan(&e.ID, &e.ProfileURL, &e.PageID, &e.ProfilePicture, &e.ProfilePictureHD,
			&e.CoverPhoto, &e.CoverPhotoHD, &e.PhotoImages, &e.AllImages, &e.FromCache, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", err)
		}
		extractions = append(extractions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	return extractions, nil
}
