package database

import (
	"errors"

	"verwaltung-backend/apperr"
	"verwaltung-backend/models"

	"gorm.io/gorm"
)

// IdempotencyStore persists first-response records for idempotent routes.
// Records live outside the per-request handler transaction on purpose: a
// stored record must survive even when a later request's transaction rolls
// back.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Find(tenantID, key, handler string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := s.db.Where("tenant_id = ? AND key = ? AND handler = ?", tenantID, key, handler).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *IdempotencyStore) Create(record *models.IdempotencyRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate()
		}
		return err
	}
	return nil
}
