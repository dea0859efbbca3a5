package database

import (
	"errors"
	"time"

	"verwaltung-backend/models"

	"gorm.io/gorm"
)

// CredentialStore backs the authentication middleware.
type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// APIKeyByHash loads an API key by its stored digest along with the
// capability keys on its allow-list. Returns (nil, nil, nil) when absent.
func (s *CredentialStore) APIKeyByHash(hash string) (*models.APIKey, []string, error) {
	var key models.APIKey
	if err := s.db.Where("hash = ?", hash).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var actionKeys []string
	err := s.db.Model(&models.APIKeyToolAction{}).
		Joins("JOIN tool_actions ON tool_actions.id = api_key_tool_actions.tool_action_id").
		Where("api_key_tool_actions.api_key_id = ?", key.ID).
		Pluck("tool_actions.key", &actionKeys).Error
	if err != nil {
		return nil, nil, err
	}
	return &key, actionKeys, nil
}

// TouchAPIKeyUsage stamps last_used_at on every successful authentication.
func (s *CredentialStore) TouchAPIKeyUsage(id string) error {
	now := time.Now().UTC()
	return s.db.Model(&models.APIKey{}).Where("id = ?", id).
		Update("last_used_at", &now).Error
}

func (s *CredentialStore) TenantByID(id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// UserByID loads a user scoped to its tenant. Soft-deleted users are
// excluded by gorm's DeletedAt handling.
func (s *CredentialStore) UserByID(tenantID, id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
