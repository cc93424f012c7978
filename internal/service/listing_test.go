package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markethub/internal/models"
	"markethub/internal/repository"
)

func newListingService(t *testing.T) (*ListingService, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock := newMockConn(t)
	return NewListingService(conn,
		repository.NewListingRepository(conn),
		repository.NewFileRepository(conn),
		repository.NewUserRepository(conn),
	), mock
}

func TestCreateJobRequiresVerifiedCompany(t *testing.T) {
	svc, _ := newListingService(t)
	ctx := context.Background()
	job := &models.Listing{Title: "Backend engineer", Location: "Remote"}

	_, err := svc.Create(ctx, plainUser(1), models.CategoryJob, job)
	assert.Equal(t, KindForbidden, KindOf(err))

	unverified := &models.Identity{ID: 2, IsCompany: true}
	_, err = svc.Create(ctx, unverified, models.CategoryJob, &models.Listing{Title: "Backend engineer", Location: "Remote"})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.Create(ctx, nil, models.CategoryHouse, &models.Listing{Title: "Cottage"})
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newListingService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity *models.Identity
		cat      models.Category
		listing  *models.Listing
		field    string
	}{
		{"empty title", plainUser(1), models.CategoryItem, &models.Listing{Title: "  "}, "title"},
		{"negative price", plainUser(1), models.CategoryItem, &models.Listing{Title: "Lamp", Price: -5}, "price"},
		{"job without location", verifiedCompany(1), models.CategoryJob, &models.Listing{Title: "Engineer"}, "location"},
		{
			"external job without url", verifiedCompany(1), models.CategoryJob,
			&models.Listing{Title: "Engineer", Location: "Remote", ApplicationType: strPtr(models.ApplicationTypeExternal)},
			"external_application_url",
		},
		{
			"bogus application type", verifiedCompany(1), models.CategoryJob,
			&models.Listing{Title: "Engineer", Location: "Remote", ApplicationType: strPtr("carrier pigeon")},
			"application_type",
		},
		{"car without make", plainUser(1), models.CategoryCar, &models.Listing{Title: "Coupe"}, "make"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.identity, tt.cat, tt.listing)
			require.Equal(t, KindValidation, KindOf(err))
			var svcErr *Error
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.field, svcErr.Field)
		})
	}
}

func TestCreateIgnoresClientOwnerAndPrimaryImage(t *testing.T) {
	svc, mock := newListingService(t)

	mock.ExpectQuery(`INSERT INTO houses`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(11, testTime(), testTime()))

	l := &models.Listing{
		Title:          "Cottage",
		Price:          120000,
		OwnerUserID:    999, // forged
		PrimaryImageID: intPtr(5),
	}
	created, err := svc.Create(context.Background(), plainUser(7), models.CategoryHouse, l)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.OwnerUserID)
	assert.Nil(t, created.PrimaryImageID)
	assert.Equal(t, int64(11), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHidesUnpublishedFromNonOwners(t *testing.T) {
	svc, mock := newListingService(t)
	ctx := context.Background()
	hidden := models.Listing{ID: 3, OwnerUserID: 5, Title: "Draft", IsPublished: false}

	// Anonymous, stranger: indistinguishable from absent.
	for _, who := range []*models.Identity{nil, plainUser(9)} {
		mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(hidden))
		_, err := svc.Get(ctx, who, models.CategoryHouse, 3)
		assert.Equal(t, KindNotFound, KindOf(err))
	}

	// Owner and admin see it.
	for _, who := range []*models.Identity{plainUser(5), adminUser(1)} {
		mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(hidden))
		got, err := svc.Get(ctx, who, models.CategoryHouse, 3)
		require.NoError(t, err)
		assert.Equal(t, "Draft", got.Title)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownCategoryIsNotFound(t *testing.T) {
	svc, _ := newListingService(t)
	_, err := svc.Get(context.Background(), nil, models.Category("boats"), 1)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateRequiresOwnership(t *testing.T) {
	svc, mock := newListingService(t)
	current := models.Listing{ID: 3, OwnerUserID: 5, Title: "Cottage", IsPublished: true}

	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(current))

	_, err := svc.Update(context.Background(), plainUser(9), models.CategoryHouse, 3,
		map[string]interface{}{"title": "Mine now"})
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateKeepsExternalJobConsistent(t *testing.T) {
	svc, mock := newListingService(t)
	job := models.Listing{
		ID: 4, OwnerUserID: 5, Title: "Engineer", Location: "Remote", IsPublished: true,
		ApplicationType: strPtr(models.ApplicationTypeInternal),
	}

	// Flipping to external without supplying a URL must fail after the
	// ownership read.
	mock.ExpectQuery(`SELECT .+ FROM jobs WHERE id = \$1`).WithArgs(int64(4)).WillReturnRows(jobRows(job))

	_, err := svc.Update(context.Background(), plainUser(5), models.CategoryJob, 4,
		map[string]interface{}{"application_type": models.ApplicationTypeExternal})
	require.Equal(t, KindValidation, KindOf(err))
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "external_application_url", svcErr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRejectsCrossCategoryColumn(t *testing.T) {
	svc, mock := newListingService(t)
	current := models.Listing{ID: 3, OwnerUserID: 5, Title: "Cottage"}

	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(current))

	_, err := svc.Update(context.Background(), plainUser(5), models.CategoryHouse, 3,
		map[string]interface{}{"mileage": 5000})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestUpdateWritesOnlySuppliedFields(t *testing.T) {
	svc, mock := newListingService(t)
	current := models.Listing{ID: 3, OwnerUserID: 5, Title: "Cottage", Price: 100}
	updated := current
	updated.Price = 250

	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(current))
	mock.ExpectExec(`UPDATE houses SET price = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs(float64(250), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(updated))

	got, err := svc.Update(context.Background(), plainUser(5), models.CategoryHouse, 3,
		map[string]interface{}{"price": float64(250)})
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTwiceReportsNotFound(t *testing.T) {
	svc, mock := newListingService(t)
	current := models.Listing{ID: 3, OwnerUserID: 5, Title: "Cottage"}

	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(current))
	mock.ExpectExec(`DELETE FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Delete(context.Background(), plainUser(5), models.CategoryHouse, 3))

	// Second delete: the row is gone, so the ownership read already misses.
	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnError(errNoRows())

	err := svc.Delete(context.Background(), plainUser(5), models.CategoryHouse, 3)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchClampsLimit(t *testing.T) {
	svc, mock := newListingService(t)

	mock.ExpectQuery(`SELECT .+ FROM items WHERE is_published = true ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := svc.Search(context.Background(), models.CategoryItem, repository.SearchFilters{}, 5000, -3)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddGalleryImageRequiresLinkedFile(t *testing.T) {
	svc, mock := newListingService(t)
	listing := models.Listing{ID: 3, OwnerUserID: 5, Title: "Cottage"}
	// Linked to a different listing.
	et := models.EntityHouse
	file := models.File{ID: 8, OwnerUserID: 5, EntityType: &et, EntityID: intPtr(99)}

	mock.ExpectQuery(`SELECT .+ FROM houses WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(houseRows(listing))
	mock.ExpectQuery(`SELECT .+ FROM files WHERE id = \$1`).WithArgs(int64(8)).WillReturnRows(fileRows(file))

	err := svc.AddGalleryImage(context.Background(), plainUser(5), models.CategoryHouse, 3, 8, 0)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
