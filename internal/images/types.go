// Package images extracts profile, cover and gallery image URLs from a fetched profile page
// and picks the highest-resolution variant of each image.
package images

// Role is the semantic slot an image URL is assigned to.
type Role string

const (
	// RoleProfile is a profile picture URL
	RoleProfile Role = "profile"
	// RoleCover is a cover photo URL
	RoleCover Role = "cover"
	// RoleGeneric is an image URL with no recognized asset-type marker
	RoleGeneric Role = "generic"
	// RoleRejected is a string that failed the image URL validity checks
	RoleRejected Role = "rejected"
)

// Limits and thresholds used by the pipeline.
const (
	// MaxURLLength is the longest candidate accepted as an image URL.
	MaxURLLength = 2000
	// MaxStructuralElements caps how many image elements the structural pass visits.
	MaxStructuralElements = 500
	// MinPhotoScore is the minimum size score for a cover-type URL to enter the photo list.
	MinPhotoScore = 320
	// MaxPhotos is the maximum length of the photo list.
	MaxPhotos = 10
)

// Size score sentinels. Ranking depends only on ScoreOriginal > ScoreDefault > any
// thumbnail size the CDN encodes.
const (
	// ScoreOriginal is assigned when the URL carries no size transform at all.
	ScoreOriginal = 9999
	// ScoreDefault is assigned when a size transform is present but unreadable.
	ScoreDefault = 500
)

// ImageReference is a classified candidate URL.
type ImageReference struct {
	URL       string `json:"url"`
	Role      Role   `json:"role"`
	SizeScore int    `json:"size_score"`
	AssetID   string `json:"asset_id,omitempty"` // Empty when the URL has no numeric image id
}

// Rejected reports whether the reference failed validation.
func (r ImageReference) Rejected() bool {
	return r.Role == RoleRejected
}

// Result is the outcome of one extraction pass over a single document.
// Empty string fields mean the slot was not found.
type Result struct {
	ProfilePicture   string   `json:"profile_picture,omitempty"`
	ProfilePictureHD string   `json:"profile_picture_hd,omitempty"`
	CoverPhoto       string   `json:"cover_photo,omitempty"`
	CoverPhotoHD     string   `json:"cover_photo_hd,omitempty"`
	PhotoImages      []string `json:"photo_images"`
	AllImages        []string `json:"all_images"`
}

// HasProfilePicture reports whether a profile picture was selected.
func (r *Result) HasProfilePicture() bool {
	return r.ProfilePicture != ""
}

// HasCoverPhoto reports whether a cover photo was selected.
func (r *Result) HasCoverPhoto() bool {
	return r.CoverPhoto != ""
}

// Empty reports whether no valid image URL was found at all.
func (r *Result) Empty() bool {
	return len(r.AllImages) == 0
}
