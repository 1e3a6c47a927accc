package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/models"
)

// EventRepository defines data access for events and their child rows
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	FindAll(ctx context.Context) ([]*models.Event, error)
	// UpdateVersioned persists the event and replaces its child rows,
	// guarded by the optimistic version check. Returns
	// ErrConcurrentModification when the stored version moved on.
	UpdateVersioned(ctx context.Context, event *models.Event) error
	FindPollsPastDeadline(ctx context.Context, now time.Time) ([]*models.Event, error)
	CreateComment(ctx context.Context, comment *models.EventComment) error
	FindCommentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventComment, error)
}

// eventRepository implements EventRepository
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// preloadEvent attaches the event's child collections in display order
func preloadEvent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Roles").
		Preload("Tags").
		Preload("CandidateDates", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("FeeSettings", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		})
}

// Create creates a new event with its child rows
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID gets an event by ID
func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := preloadEvent(r.db.WithContext(ctx)).First(&event, "id = ?", id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// FindAll finds all events, newest first
func (r *eventRepository) FindAll(ctx context.Context) ([]*models.Event, error) {
	var events []*models.Event
	err := preloadEvent(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateVersioned updates an event with an optimistic concurrency check
func (r *eventRepository) UpdateVersioned(ctx context.Context, event *models.Event) error {
	current := event.Version
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).
			Where("id = ? AND version = ?", event.ID, current).
			Updates(versionedColumns(event, current+1, now))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		// Replace child collections wholesale; their ordering lives in
		// the position columns.
		if err := replaceChildren(tx, event); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	bumpVersion(event, current+1, now)
	return nil
}

// versionedColumns is the write set of a guarded update
func versionedColumns(event *models.Event, next uint, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"title":             event.Title,
		"description":       event.Description,
		"venue":             event.Venue,
		"status":            event.Status,
		"schedule_deadline": event.ScheduleDeadline,
		"finalized_date":    event.FinalizedDate,
		"version":           next,
		"updated_at":        now,
	}
}

// bumpVersion mirrors the guarded update onto the in-memory struct so
// callers keep holding a row-accurate event after the write
func bumpVersion(event *models.Event, next uint, now time.Time) {
	event.Version = next
	event.UpdatedAt = now
}

// replaceChildren rewrites the event's child rows inside the transaction
func replaceChildren(tx *gorm.DB, event *models.Event) error {
	if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventRole{}).Error; err != nil {
		return err
	}
	if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("event_id = ?", event.ID).Delete(&models.CandidateDate{}).Error; err != nil {
		return err
	}
	if err := tx.Where("event_id = ?", event.ID).Delete(&models.FeeSetting{}).Error; err != nil {
		return err
	}

	if len(event.Roles) > 0 {
		if err := tx.Create(&event.Roles).Error; err != nil {
			return err
		}
	}
	if len(event.Tags) > 0 {
		if err := tx.Create(&event.Tags).Error; err != nil {
			return err
		}
	}
	if len(event.CandidateDates) > 0 {
		if err := tx.Create(&event.CandidateDates).Error; err != nil {
			return err
		}
	}
	if len(event.FeeSettings) > 0 {
		if err := tx.Create(&event.FeeSettings).Error; err != nil {
			return err
		}
	}

	return nil
}

// FindPollsPastDeadline finds polling events whose advisory deadline passed
func (r *eventRepository) FindPollsPastDeadline(ctx context.Context, now time.Time) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND schedule_deadline IS NOT NULL AND schedule_deadline < ?",
			models.EventStatusSchedulePolling, now).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateComment creates an event comment
func (r *eventRepository) CreateComment(ctx context.Context, comment *models.EventComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// FindCommentsByEvent finds an event's comments, oldest first
func (r *eventRepository) FindCommentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.EventComment, error) {
	var comments []models.EventComment
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
