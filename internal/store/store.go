// Package store persists tenant credentials in a relational database.
//
// The engine treats this cache as authoritative once populated; the store
// only needs get/put by requester ID.
package store

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lexfrei/midgard/internal/provision"
)

// OpenFromURL opens a GORM DB based on a simple db-url string.
// Supported:
//   - sqlite:<dsn>   e.g., sqlite:./midgard.db or sqlite::memory:
//   - sqlite3:<dsn>  alias of sqlite
func OpenFromURL(dbURL string) (*gorm.DB, error) {
	var dsn string

	switch {
	case strings.HasPrefix(dbURL, "sqlite:"):
		dsn = strings.TrimPrefix(dbURL, "sqlite:")
	case strings.HasPrefix(dbURL, "sqlite3:"):
		dsn = strings.TrimPrefix(dbURL, "sqlite3:")
	default:
		return nil, errors.Newf("unsupported db scheme: %s", dbURL)
	}

	if dsn == "" {
		dsn = "./midgard.db"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	return db, nil
}

// AutoMigrate applies schema migrations for all persistence models.
func AutoMigrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(&TenantCredentialRecord{}), "failed to migrate schema")
}

// CredentialRepository implements provision.CredentialStore on GORM.
type CredentialRepository struct{ db *gorm.DB }

// NewCredentialRepository creates a repository over db.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func credentialToRecord(c *provision.TenantCredential) *TenantCredentialRecord {
	return &TenantCredentialRecord{
		RequesterID: c.RequesterID,
		Secret:      c.Secret,
		ProjectName: c.ProjectName,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func credentialToDomain(r *TenantCredentialRecord) *provision.TenantCredential {
	return &provision.TenantCredential{
		RequesterID: r.RequesterID,
		Secret:      r.Secret,
		ProjectName: r.ProjectName,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Get returns the cached credential for requesterID, or
// provision.ErrCredentialNotFound on a miss.
func (r *CredentialRepository) Get(ctx context.Context, requesterID string) (*provision.TenantCredential, error) {
	var rec TenantCredentialRecord

	err := r.db.WithContext(ctx).First(&rec, "requester_id = ?", requesterID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, provision.ErrCredentialNotFound
		}

		return nil, errors.Wrap(err, "failed to query tenant credential")
	}

	return credentialToDomain(&rec), nil
}

// Put upserts the credential record. The write-through happens after the
// remote side is in its final state, so a replayed Put is harmless.
func (r *CredentialRepository) Put(ctx context.Context, cred *provision.TenantCredential) error {
	rec := credentialToRecord(cred)

	err := r.db.WithContext(ctx).Save(rec).Error
	if err != nil {
		return errors.Wrap(err, "failed to store tenant credential")
	}

	cred.CreatedAt = rec.CreatedAt
	cred.UpdatedAt = rec.UpdatedAt

	return nil
}

var _ provision.CredentialStore = (*CredentialRepository)(nil)
