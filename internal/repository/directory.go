package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/models"
)

// DirectoryRepository defines data access for the role and tag catalogs.
// The engine references these entries by name only.
type DirectoryRepository interface {
	CreateRole(ctx context.Context, role *models.Role) error
	FindAllRoles(ctx context.Context) ([]models.Role, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	FindAllTags(ctx context.Context) ([]models.Tag, error)
	TagExists(ctx context.Context, name string) (bool, error)
}

// directoryRepository implements DirectoryRepository
type directoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

// CreateRole creates a role catalog entry
func (r *directoryRepository) CreateRole(ctx context.Context, role *models.Role) error {
	err := r.db.WithContext(ctx).Create(role).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindAllRoles finds all role catalog entries
func (r *directoryRepository) FindAllRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleExists checks whether a role name is already registered
func (r *directoryRepository) RoleExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Role{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateTag creates a tag catalog entry
func (r *directoryRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	err := r.db.WithContext(ctx).Create(tag).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindAllTags finds all tag catalog entries
func (r *directoryRepository) FindAllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// TagExists checks whether a tag name is already registered
func (r *directoryRepository) TagExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
