package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/repository"
)

// ErrDuplicateName is returned when creating a role or tag whose name
// is already registered.
var ErrDuplicateName = errors.New("name already exists")

// DirectoryService manages the role and tag directories events draw from
type DirectoryService interface {
	CreateRole(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
}

type directoryService struct {
	repo repository.DirectoryRepository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(repo repository.DirectoryRepository) DirectoryService {
	return &directoryService{repo: repo}
}

func (s *directoryService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	if name == "" {
		return nil, validationErr("role name is required")
	}

	exists, err := s.repo.RoleExists(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check role name")
	}
	if exists {
		return nil, ErrDuplicateName
	}

	role := &models.Role{ID: uuid.New(), Name: name}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		// A concurrent create can still slip past the existence check
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateName
		}
		return nil, errors.Wrap(err, "failed to create role")
	}
	return role, nil
}

func (s *directoryService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.repo.FindAllRoles(ctx)
}

func (s *directoryService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	if name == "" {
		return nil, validationErr("tag name is required")
	}

	exists, err := s.repo.TagExists(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check tag name")
	}
	if exists {
		return nil, ErrDuplicateName
	}

	tag := &models.Tag{ID: uuid.New(), Name: name}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateName
		}
		return nil, errors.Wrap(err, "failed to create tag")
	}
	return tag, nil
}

func (s *directoryService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repo.FindAllTags(ctx)
}
