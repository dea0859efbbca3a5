package database

import (
	"verwaltung-backend/models"

	"gorm.io/gorm"
)

// PermissionStore answers capability checks for user actors.
type PermissionStore struct {
	db *gorm.DB
}

func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// UserHasCapability reports whether any group the user belongs to carries a
// permission row for exactly this capability key within the same tenant.
// Cross-tenant permission rows never grant access.
func (s *PermissionStore) UserHasCapability(tenantID, userID, capabilityKey string) (bool, error) {
	var count int64
	err := s.db.Model(&models.GroupPermission{}).
		Joins("JOIN tool_actions ON tool_actions.id = group_permissions.tool_action_id").
		Joins("JOIN user_groups ON user_groups.group_id = group_permissions.group_id AND user_groups.tenant_id = group_permissions.tenant_id").
		Where("group_permissions.tenant_id = ?", tenantID).
		Where("user_groups.user_id = ?", userID).
		Where("tool_actions.key = ?", capabilityKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
