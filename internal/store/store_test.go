package store

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lexfrei/midgard/internal/provision"
)

func newTestRepository(t *testing.T) *CredentialRepository {
	t.Helper()

	db, err := OpenFromURL("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	return NewCredentialRepository(db)
}

func TestOpenFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dbURL   string
		wantErr bool
	}{
		{name: "sqlite scheme", dbURL: "sqlite::memory:", wantErr: false},
		{name: "sqlite3 scheme", dbURL: "sqlite3::memory:", wantErr: false},
		{name: "unsupported scheme", dbURL: "postgres://localhost/midgard", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, err := OpenFromURL(tt.dbURL)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, db)
		})
	}
}

func TestGetMiss(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	_, err := repo.Get(t.Context(), "unknown")
	require.ErrorIs(t, err, provision.ErrCredentialNotFound)
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	cred := &provision.TenantCredential{
		RequesterID: "42",
		Secret:      "s3cret",
		ProjectName: "midgard_42",
	}

	require.NoError(t, repo.Put(t.Context(), cred))
	assert.False(t, cred.CreatedAt.IsZero())

	got, err := repo.Get(t.Context(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.RequesterID)
	assert.Equal(t, "s3cret", got.Secret)
	assert.Equal(t, "midgard_42", got.ProjectName)
}

func TestPutUpserts(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	require.NoError(t, repo.Put(t.Context(), &provision.TenantCredential{
		RequesterID: "42",
		Secret:      "old",
		ProjectName: "midgard_42",
	}))

	require.NoError(t, repo.Put(t.Context(), &provision.TenantCredential{
		RequesterID: "42",
		Secret:      "new",
		ProjectName: "midgard_42",
	}))

	got, err := repo.Get(t.Context(), "42")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Secret)

	var count int64

	require.NoError(t, repo.db.Model(&TenantCredentialRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetWrapsUnexpectedErrors(t *testing.T) {
	t.Parallel()

	db, err := OpenFromURL("sqlite::memory:")
	require.NoError(t, err)

	// No migration: the query fails with a real database error, not a miss.
	repo := NewCredentialRepository(db)

	_, err = repo.Get(t.Context(), "42")
	require.Error(t, err)
	assert.False(t, errors.Is(err, provision.ErrCredentialNotFound))
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
