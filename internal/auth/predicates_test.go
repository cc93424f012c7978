package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"markethub/internal/models"
)

func ident(id int64) *models.Identity {
	return &models.Identity{ID: id, Username: "user", Role: models.RoleUser}
}

func admin(id int64) *models.Identity {
	return &models.Identity{ID: id, Username: "admin", Role: models.RoleAdmin}
}

func company(id int64, verified bool) *models.Identity {
	return &models.Identity{ID: id, Username: "acme", Role: models.RoleUser, IsCompany: true, IsVerifiedCompany: verified}
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(7, 7).Allowed)

	d := IsOwner(7, 8)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(admin(1)).Allowed)

	d := IsAdmin(ident(1))
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAdmin, d.Reason)

	d = IsAdmin(nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAnonymous, d.Reason)
}

func TestIsVerifiedCompany(t *testing.T) {
	tests := []struct {
		name     string
		identity *models.Identity
		allowed  bool
		reason   string
	}{
		{"verified company", company(1, true), true, ""},
		{"unverified company", company(1, false), false, ReasonCompanyNotVerified},
		{"plain user", ident(1), false, ReasonNotCompany},
		{"anonymous", nil, false, ReasonAnonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := IsVerifiedCompany(tt.identity)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCanMutateListing(t *testing.T) {
	tests := []struct {
		name     string
		identity *models.Identity
		owner    int64
		allowed  bool
	}{
		{"owner", ident(5), 5, true},
		{"admin over someone else's listing", admin(1), 5, true},
		{"stranger", ident(9), 5, false},
		{"anonymous", nil, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanMutateListing(tt.identity, tt.owner).Allowed)
		})
	}
}

func TestCanPostListing(t *testing.T) {
	// Non-job categories only require an identity.
	for _, cat := range []models.Category{models.CategoryHouse, models.CategoryCar, models.CategoryItem} {
		assert.True(t, CanPostListing(ident(1), cat).Allowed, "category %s", cat)
	}
	assert.False(t, CanPostListing(nil, models.CategoryItem).Allowed)

	// Jobs are gated on verified-company status. Admin role does not bypass it.
	assert.True(t, CanPostListing(company(1, true), models.CategoryJob).Allowed)
	assert.Equal(t, ReasonCompanyNotVerified, CanPostListing(company(1, false), models.CategoryJob).Reason)
	assert.Equal(t, ReasonNotCompany, CanPostListing(ident(1), models.CategoryJob).Reason)
	assert.Equal(t, ReasonNotCompany, CanPostListing(admin(1), models.CategoryJob).Reason)
}

func TestCanAccessFile(t *testing.T) {
	entityType := func(e models.EntityType) *models.EntityType { return &e }
	id := func(v int64) *int64 { return &v }

	private := &models.File{ID: 1, OwnerUserID: 5}
	public := &models.File{ID: 2, OwnerUserID: 5, IsPublic: true}
	avatar := &models.File{ID: 3, OwnerUserID: 5, EntityType: entityType(models.EntityUser), EntityID: id(5)}
	carPhoto := &models.File{ID: 4, OwnerUserID: 5, EntityType: entityType(models.EntityCar), EntityID: id(10)}

	tests := []struct {
		name            string
		file            *models.File
		identity        *models.Identity
		linkedPublished bool
		allowed         bool
		reason          string
	}{
		{"public file, anonymous", public, nil, false, true, ""},
		{"owner sees own private file", private, ident(5), false, true, ""},
		{"stranger denied private file", private, ident(9), false, false, ReasonPrivateFile},
		{"anonymous denied private file", private, nil, false, false, ReasonAnonymous},
		{"user-entity file is always visible", avatar, nil, false, true, ""},
		{"file on published listing, anonymous", carPhoto, nil, true, true, ""},
		{"file on unpublished listing, stranger", carPhoto, ident(9), false, false, ReasonPrivateFile},
		{"file on unpublished listing, owner", carPhoto, ident(5), false, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanAccessFile(tt.file, tt.identity, tt.linkedPublished)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}
