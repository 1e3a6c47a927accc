package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/models"
)

// RegistrationRepository defines data access for registrations
type RegistrationRepository interface {
	// Create inserts a registration. The unique index on active_key makes
	// a concurrent duplicate join surface as ErrDuplicateKey.
	Create(ctx context.Context, registration *models.Registration) error
	Update(ctx context.Context, registration *models.Registration) error
	GetActive(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	FindByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	FindPendingForConfirmedEvents(ctx context.Context, limit int) ([]models.Registration, error)
}

// registrationRepository implements RegistrationRepository
type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Create creates a new registration
func (r *registrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	err := r.db.WithContext(ctx).Create(registration).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update updates a registration
func (r *registrationRepository) Update(ctx context.Context, registration *models.Registration) error {
	return r.db.WithContext(ctx).Save(registration).Error
}

// GetActive gets the active (pending or confirmed) registration for an
// event and user pair
func (r *registrationRepository) GetActive(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ? AND status IN (?)",
			eventID, userID,
			[]models.RegistrationStatus{models.RegistrationStatusPending, models.RegistrationStatusConfirmed}).
		First(&registration).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &registration, nil
}

// FindByEvent finds all registrations for an event, including cancelled
// ones, oldest first
func (r *registrationRepository) FindByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	var registrations []models.Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("joined_at").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

// FindActiveByUser finds a user's active registrations across all events
func (r *registrationRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	var registrations []models.Registration
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN (?)",
			userID,
			[]models.RegistrationStatus{models.RegistrationStatusPending, models.RegistrationStatusConfirmed}).
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

// FindPendingForConfirmedEvents finds pending registrations whose event
// has since been confirmed. Used by the worker fallback reconciliation.
func (r *registrationRepository) FindPendingForConfirmedEvents(ctx context.Context, limit int) ([]models.Registration, error) {
	var registrations []models.Registration
	err := r.db.WithContext(ctx).
		Joins("JOIN events ON events.id = registrations.event_id").
		Where("registrations.status = ? AND events.status = ?",
			models.RegistrationStatusPending, models.EventStatusConfirmed).
		Limit(limit).
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}
