// Package auth holds the authorization predicates: pure decision functions
// over an identity and an entity. They never touch storage; callers resolve
// ownership and linkage with fresh reads before asking.
package auth

import "markethub/internal/models"

// Reason codes carried by denials.
const (
	ReasonNotOwner           = "not_owner"
	ReasonNotAdmin           = "not_admin"
	ReasonNotCompany         = "not_company"
	ReasonCompanyNotVerified = "company_not_verified"
	ReasonAnonymous          = "anonymous"
	ReasonPrivateFile        = "private_file"
)

// Decision is an explicit allow/deny with a reason code on the deny side.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// IsOwner allows iff the entity's owner is userID.
func IsOwner(ownerUserID, userID int64) Decision {
	if ownerUserID == userID {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// IsAdmin allows iff the identity carries the admin role.
func IsAdmin(identity *models.Identity) Decision {
	if identity == nil {
		return Deny(ReasonAnonymous)
	}
	if identity.Role == models.RoleAdmin {
		return Allow()
	}
	return Deny(ReasonNotAdmin)
}

// IsVerifiedCompany allows iff the identity is a company that passed review.
func IsVerifiedCompany(identity *models.Identity) Decision {
	if identity == nil {
		return Deny(ReasonAnonymous)
	}
	if !identity.IsCompany {
		return Deny(ReasonNotCompany)
	}
	if !identity.IsVerifiedCompany {
		return Deny(ReasonCompanyNotVerified)
	}
	return Allow()
}

// CanMutateListing allows the owner or an admin.
func CanMutateListing(identity *models.Identity, ownerUserID int64) Decision {
	if identity == nil {
		return Deny(ReasonAnonymous)
	}
	if d := IsOwner(ownerUserID, identity.ID); d.Allowed {
		return d
	}
	if d := IsAdmin(identity); d.Allowed {
		return d
	}
	return Deny(ReasonNotOwner)
}

// CanPostListing gates job posting behind verified-company status.
func CanPostListing(identity *models.Identity, category models.Category) Decision {
	if identity == nil {
		return Deny(ReasonAnonymous)
	}
	if category == models.CategoryJob {
		return IsVerifiedCompany(identity)
	}
	return Allow()
}

// CanAccessFile decides file visibility. linkedPublished is the published
// flag of the listing the file is linked to, resolved by the caller with a
// fresh read; it is ignored unless the file is linked. User-type files are
// always public. Anonymous callers get only the public and linked-published
// branches.
func CanAccessFile(f *models.File, identity *models.Identity, linkedPublished bool) Decision {
	if f.IsPublic {
		return Allow()
	}
	if identity != nil && f.OwnerUserID == identity.ID {
		return Allow()
	}
	if f.EntityType != nil {
		if *f.EntityType == models.EntityUser {
			return Allow()
		}
		if f.EntityID != nil && linkedPublished {
			return Allow()
		}
	}
	if identity == nil {
		return Deny(ReasonAnonymous)
	}
	return Deny(ReasonPrivateFile)
}
