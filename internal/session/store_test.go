package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markethub/internal/models"
	"markethub/internal/repository"
)

// mapKV is an in-memory KV for tests; TTLs are recorded but never enforced.
type mapKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMapKV() *mapKV {
	return &mapKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNoSession
	}
	return v, nil
}

func (m *mapKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func newStoreWithMock(t *testing.T) (*Store, *mapKV, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	kv := newMapKV()
	users := repository.NewUserRepository(sqlx.NewDb(raw, "sqlmock"))
	return NewStore(kv, users, time.Hour), kv, mock
}

func identityRows(ident *models.Identity) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "name", "is_company", "is_verified_company"}).
		AddRow(ident.ID, ident.Username, ident.Email, ident.Role, ident.IsCompany, ident.IsVerifiedCompany)
}

func TestResolveUnknownTokenIsAnonymous(t *testing.T) {
	store, _, _ := newStoreWithMock(t)

	ident, err := store.Resolve(context.Background(), "no-such-token")
	assert.NoError(t, err)
	assert.Nil(t, ident)
}

func TestResolveRefreshesSnapshot(t *testing.T) {
	store, kv, mock := newStoreWithMock(t)
	ctx := context.Background()

	token, err := store.Create(ctx, &models.Identity{ID: 7, Username: "acme", Role: models.RoleUser})
	require.NoError(t, err)

	// Out-of-band change: the user was verified after login.
	fresh := &models.Identity{ID: 7, Username: "acme", Role: models.RoleUser, IsCompany: true, IsVerifiedCompany: true}
	mock.ExpectQuery("SELECT u.id, u.username").WithArgs(int64(7)).WillReturnRows(identityRows(fresh))

	got, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, got.IsVerifiedCompany)

	// The refreshed snapshot is what a later read sees.
	raw, err := kv.Get(ctx, keyPrefix+token)
	require.NoError(t, err)
	assert.Contains(t, raw, `"is_verified_company":true`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDestroysSessionOfDeletedUser(t *testing.T) {
	store, kv, mock := newStoreWithMock(t)
	ctx := context.Background()

	token, err := store.Create(ctx, &models.Identity{ID: 7, Username: "gone"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT u.id, u.username").WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)

	got, err := store.Resolve(ctx, token)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = kv.Get(ctx, keyPrefix+token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveServesStaleSnapshotOnDBError(t *testing.T) {
	store, _, mock := newStoreWithMock(t)
	ctx := context.Background()

	token, err := store.Create(ctx, &models.Identity{ID: 7, Username: "acme", Role: models.RoleUser})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT u.id, u.username").WithArgs(int64(7)).WillReturnError(errors.New("db down"))

	got, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acme", got.Username)
}

func TestResolveDropsCorruptSnapshot(t *testing.T) {
	store, kv, _ := newStoreWithMock(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, keyPrefix+"bad-token", "{not json", time.Hour))

	got, err := store.Resolve(ctx, "bad-token")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = kv.Get(ctx, keyPrefix+"bad-token")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDestroyIsIdempotent(t *testing.T) {
	store, _, _ := newStoreWithMock(t)
	ctx := context.Background()

	token, err := store.Create(ctx, &models.Identity{ID: 7})
	require.NoError(t, err)

	assert.NoError(t, store.Destroy(ctx, token))
	assert.NoError(t, store.Destroy(ctx, token))
	assert.NoError(t, store.Destroy(ctx, ""))
}
