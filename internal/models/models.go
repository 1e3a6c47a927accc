package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EventStatus defines the lifecycle status of an event
type EventStatus string

const (
	// EventStatusDraft represents a newly created, unscheduled event
	EventStatusDraft EventStatus = "DRAFT"
	// EventStatusSchedulePolling represents an event polling candidate dates
	EventStatusSchedulePolling EventStatus = "SCHEDULE_POLLING"
	// EventStatusConfirmed represents an event with a finalized date
	EventStatusConfirmed EventStatus = "CONFIRMED"
	// EventStatusCancelled represents a cancelled event (terminal)
	EventStatusCancelled EventStatus = "CANCELLED"
	// EventStatusFinished is a read-time view of a confirmed event whose
	// finalized date has passed. It is never stored.
	EventStatusFinished EventStatus = "FINISHED"
)

// IsValid checks whether the status is one of the persisted states
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusSchedulePolling, EventStatusConfirmed, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the status admits no further transitions
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCancelled
}

// String returns the string representation of the status
func (s EventStatus) String() string {
	return string(s)
}

// RegistrationStatus defines the status of a participation registration
type RegistrationStatus string

const (
	// RegistrationStatusPending represents a registration awaiting event confirmation
	RegistrationStatusPending RegistrationStatus = "PENDING"
	// RegistrationStatusConfirmed represents a confirmed registration
	RegistrationStatusConfirmed RegistrationStatus = "CONFIRMED"
	// RegistrationStatusCancelled represents a cancelled registration
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
)

// IsActive checks whether the registration status counts against the
// one-active-registration-per-user rule
func (s RegistrationStatus) IsActive() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusConfirmed
}

// String returns the string representation of the status
func (s RegistrationStatus) String() string {
	return string(s)
}

// DefaultCurrency is applied when a fee setting leaves currency unset
const DefaultCurrency = "JPY"

// Money represents a monetary amount in a single currency
type Money struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

// JPY creates a Money value in the default currency
func JPY(amount int) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// Participant is the caller identity threaded through engine operations.
// It carries everything eligibility and fee resolution need; no ambient
// session state is consulted anywhere below the API layer.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	Roles      []string  `json:"roles"`
	Generation int       `json:"generation"`
}

// HasRole checks whether the participant holds the given role
func (p Participant) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks whether the participant holds at least one of the given roles
func (p Participant) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// RoleScope distinguishes what an event role grant permits
type RoleScope string

const (
	// RoleScopeParticipation permits joining the event
	RoleScopeParticipation RoleScope = "participation"
	// RoleScopeEdit permits editing the event
	RoleScopeEdit RoleScope = "edit"
)

// Event represents a plannable gathering and its scheduling state
type Event struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	Version          uint           `gorm:"not null;default:0" json:"version"`
	Title            string         `gorm:"not null" json:"title"`
	Description      string         `json:"description"`
	Venue            string         `json:"venue"`
	Status           EventStatus    `gorm:"type:varchar(32);not null;index" json:"status"`
	OrganizerID      uuid.UUID      `gorm:"type:uuid;not null" json:"organizer_id"`
	ScheduleDeadline *time.Time     `json:"schedule_deadline"`
	FinalizedDate    *time.Time     `json:"finalized_date"`
	Roles            []EventRole    `gorm:"foreignKey:EventID" json:"-"`
	Tags             []EventTag     `gorm:"foreignKey:EventID" json:"-"`
	CandidateDates   []CandidateDate `gorm:"foreignKey:EventID" json:"-"`
	FeeSettings      []FeeSetting   `gorm:"foreignKey:EventID" json:"-"`
	Registrations    []Registration `gorm:"foreignKey:EventID" json:"-"`
	Comments         []EventComment `gorm:"foreignKey:EventID" json:"-"`
}

// RolesInScope returns the role names granted for the given scope
func (e *Event) RolesInScope(scope RoleScope) []string {
	var names []string
	for _, r := range e.Roles {
		if r.Scope == scope {
			names = append(names, r.Role)
		}
	}
	return names
}

// ParticipationRoles returns the roles allowed to join
func (e *Event) ParticipationRoles() []string {
	return e.RolesInScope(RoleScopeParticipation)
}

// EditRoles returns the roles allowed to edit
func (e *Event) EditRoles() []string {
	return e.RolesInScope(RoleScopeEdit)
}

// TagNames returns the event's tag names
func (e *Event) TagNames() []string {
	var names []string
	for _, t := range e.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// HasAnyTag checks whether the event carries at least one of the given tags
func (e *Event) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, t := range e.Tags {
			if t.Tag == want {
				return true
			}
		}
	}
	return false
}

// CandidateTimes returns the candidate dates in insertion order
func (e *Event) CandidateTimes() []time.Time {
	var times []time.Time
	for _, c := range e.CandidateDates {
		times = append(times, c.Date)
	}
	return times
}

// HasCandidate checks whether the given timestamp is a candidate date
func (e *Event) HasCandidate(ts time.Time) bool {
	for _, c := range e.CandidateDates {
		if c.Date.Equal(ts) {
			return true
		}
	}
	return false
}

// EventRole grants a named role either participation or edit rights on an event.
// Role names are opaque identifiers owned by the role directory.
type EventRole struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Role    string    `gorm:"not null" json:"role"`
	Scope   RoleScope `gorm:"type:varchar(16);not null" json:"scope"`
}

// EventTag attaches a tag name to an event
type EventTag struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Tag     string    `gorm:"not null" json:"tag"`
}

// CandidateDate is one entry of an event's schedule poll
type CandidateDate struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID  uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Date     time.Time `gorm:"not null" json:"date"`
	Position int       `gorm:"not null" json:"position"`
}

// FeeSetting maps a role (and optionally a generation) to a fee.
// Settings are evaluated in Position order.
type FeeSetting struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID              uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Position             int       `gorm:"not null" json:"position"`
	ApplicableRole       string    `gorm:"not null" json:"applicable_role"`
	ApplicableGeneration *int      `json:"applicable_generation"`
	FeeAmount            int       `gorm:"not null;default:0" json:"fee_amount"`
	FeeCurrency          string    `gorm:"not null;default:JPY" json:"fee_currency"`
}

// Fee returns the setting's fee, defaulting the currency when unset
func (fs FeeSetting) Fee() Money {
	currency := fs.FeeCurrency
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: fs.FeeAmount, Currency: currency}
}

// Registration records a user's intent to attend an event. Cancelled
// registrations are kept for history; re-joining creates a new row.
type Registration struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	EventID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"event_id"`
	UserID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Status      RegistrationStatus `gorm:"type:varchar(16);not null" json:"status"`
	Generation  int                `json:"generation"`
	FeeAmount   int                `gorm:"not null;default:0" json:"fee_amount"`
	FeeCurrency string             `gorm:"not null;default:JPY" json:"fee_currency"`
	JoinedAt    time.Time          `gorm:"not null" json:"joined_at"`
	// ActiveKey is "<event_id>:<user_id>" while the registration is
	// PENDING or CONFIRMED and NULL once cancelled. The unique index on it
	// is what makes concurrent joins resolve to exactly one winner.
	ActiveKey *string `gorm:"uniqueIndex" json:"-"`
}

// AppliedFee returns the fee applied at join time
func (r Registration) AppliedFee() Money {
	currency := r.FeeCurrency
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: r.FeeAmount, Currency: currency}
}

// ActiveRegistrationKey builds the uniqueness key for an active registration
func ActiveRegistrationKey(eventID, userID uuid.UUID) string {
	return eventID.String() + ":" + userID.String()
}

// Role is a directory entry referenced by events by name only
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	Name        string    `gorm:"not null;uniqueIndex" json:"name"`
	Description string    `json:"description"`
	CreatedBy   uuid.UUID `gorm:"type:uuid" json:"created_by"`
}

// Tag is a directory entry referenced by events by name only
type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	CreatedBy uuid.UUID `gorm:"type:uuid" json:"created_by"`
}

// EventComment is a comment left on an event
type EventComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Event{},
		&EventRole{},
		&EventTag{},
		&CandidateDate{},
		&FeeSetting{},
		&Registration{},
		&Role{},
		&Tag{},
		&EventComment{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
