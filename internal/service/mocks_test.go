package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"example.com/backstage/services/events/internal/models"
)

// Mock repositories for testing
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) FindAll(ctx context.Context) ([]*models.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) UpdateVersioned(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) FindPollsPastDeadline(ctx context.Context, now time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) CreateComment(ctx context.Context, comment *models.EventComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockEventRepository) FindCommentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventComment, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]models.EventComment), args.Error(1)
}

type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	args := m.Called(ctx, registration)
	return args.Error(0)
}

func (m *MockRegistrationRepository) Update(ctx context.Context, registration *models.Registration) error {
	args := m.Called(ctx, registration)
	return args.Error(0)
}

func (m *MockRegistrationRepository) GetActive(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindPendingForConfirmedEvents(ctx context.Context, limit int) ([]models.Registration, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Registration), args.Error(1)
}

type MockDirectoryRepository struct {
	mock.Mock
}

func (m *MockDirectoryRepository) CreateRole(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockDirectoryRepository) FindAllRoles(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockDirectoryRepository) RoleExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectoryRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockDirectoryRepository) FindAllTags(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockDirectoryRepository) TagExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}
