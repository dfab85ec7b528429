package images

import (
	"sort"
)

// variantGroup holds the references sharing one asset id within a role family.
type variantGroup struct {
	assetID string
	members []ImageReference
}

// best returns the highest-ranked member.
func (g *variantGroup) best() ImageReference {
	return g.members[0]
}

// byRank orders references by size score descending, then URL ascending.
func byRank(refs []ImageReference) func(i, j int) bool {
	return func(i, j int) bool {
		if refs[i].SizeScore != refs[j].SizeScore {
			return refs[i].SizeScore > refs[j].SizeScore
		}
		return refs[i].URL < refs[j].URL
	}
}

// groupVariants groups the references of one role that carry an asset id.
// Members of each group are sorted best-first.
func groupVariants(refs []ImageReference, role Role) []*variantGroup {
	index := make(map[string]*variantGroup)
	var groups []*variantGroup

	for _, ref := range refs {
		if ref.Role != role || ref.AssetID == "" {
			continue
		}
		g, ok := index[ref.AssetID]
		if !ok {
			g = &variantGroup{assetID: ref.AssetID}
			index[ref.AssetID] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, ref)
	}

	for _, g := range groups {
		sort.SliceStable(g.members, byRank(g.members))
	}
	return groups
}

// selectWinner returns the best variant of the group whose best member scores highest.
// Ties between groups go to the lexicographically smallest best URL.
func selectWinner(groups []*variantGroup) (ImageReference, bool) {
	if len(groups) == 0 {
		return ImageReference{}, false
	}

	winner := groups[0].best()
	for _, g := range groups[1:] {
		candidate := g.best()
		if candidate.SizeScore > winner.SizeScore ||
			(candidate.SizeScore == winner.SizeScore && candidate.URL < winner.URL) {
			winner = candidate
		}
	}
	return winner, true
}

// selectPhotos returns up to MaxPhotos cover-type URLs of at least MinPhotoScore, best
// first, with at most one URL per asset id. URLs without an asset id are skipped.
func selectPhotos(refs []ImageReference) []string {
	var candidates []ImageReference
	for _, ref := range refs {
		if ref.Role == RoleCover && ref.SizeScore >= MinPhotoScore {
			candidates = append(candidates, ref)
		}
	}
	sort.SliceStable(candidates, byRank(candidates))

	photos := make([]string, 0, MaxPhotos)
	seen := make(map[string]bool)
	for _, ref := range candidates {
		if ref.AssetID == "" || seen[ref.AssetID] {
			continue
		}
		seen[ref.AssetID] = true
		photos = append(photos, ref.URL)
		if len(photos) >= MaxPhotos {
			break
		}
	}
	return photos
}

// Rank sanitizes and classifies candidates and selects the profile picture, cover photo
// and photo list. It never fails; missing slots are left empty.
func Rank(candidates []string) *Result {
	var refs []ImageReference
	for _, ref := range ClassifyAll(candidates) {
		if !ref.Rejected() {
			refs = append(refs, ref)
		}
	}

	result := &Result{
		PhotoImages: []string{},
		AllImages:   make([]string, 0, len(refs)),
	}
	for _, ref := range refs {
		result.AllImages = append(result.AllImages, ref.URL)
	}
	sort.Strings(result.AllImages)

	if best, ok := selectWinner(groupVariants(refs, RoleProfile)); ok {
		result.ProfilePicture = best.URL
		result.ProfilePictureHD = best.URL
	}
	if best, ok := selectWinner(groupVariants(refs, RoleCover)); ok {
		result.CoverPhoto = best.URL
		result.CoverPhotoHD = best.URL
	}
	result.PhotoImages = selectPhotos(refs)

	return result
}

// Extract runs the full pipeline over one markup document.
func Extract(document string) *Result {
	return Rank(Collect(document))
}

// ClassifyAll returns the classification of every distinct sanitized candidate,
// rejected ones included, in candidate order.
func ClassifyAll(candidates []string) []ImageReference {
	seen := make(map[string]bool)
	refs := make([]ImageReference, 0, len(candidates))
	for _, c := range candidates {
		u := Sanitize(c)
		if seen[u] {
			continue
		}
		seen[u] = true
		refs = append(refs, Classify(u))
	}
	return refs
}
