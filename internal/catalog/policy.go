package catalog

import "github.com/Clark-Hu/media-catalog/internal/domain"

// CanView decides whether identity (nil for anonymous) may read entry.
func CanView(entry domain.Entry, identity *domain.Identity) bool {
	if entry.Deleted() {
		return false
	}
	if entry.Approved() {
		return true
	}
	return identity != nil && (identity.Role == domain.RoleAdmin || identity.UserID == entry.CreatedByID)
}

// CanModify is the single owner-or-admin predicate shared by update and delete.
func CanModify(identity *domain.Identity, entry domain.Entry) bool {
	if identity == nil {
		return false
	}
	return identity.Role == domain.RoleAdmin || identity.UserID == entry.CreatedByID
}
