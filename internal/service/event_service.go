package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/internal/cache"
	"example.com/backstage/services/events/internal/fees"
	"example.com/backstage/services/events/internal/lifecycle"
	"example.com/backstage/services/events/internal/messaging"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/repository"
	"example.com/backstage/services/events/internal/search"
	"example.com/backstage/services/events/internal/tracing"
)

// detailCacheTTL bounds staleness of the cached detail view
const detailCacheTTL = 5 * time.Minute

// ScheduleType tags the initial schedule variant of a new event
type ScheduleType string

const (
	// ScheduleTypeConfirmed creates the event with a fixed date
	ScheduleTypeConfirmed ScheduleType = "confirmed"
	// ScheduleTypePolling creates the event with an open date poll
	ScheduleTypePolling ScheduleType = "polling"
)

// ScheduleInput is the tagged schedule variant consumed by Create. Exactly
// one of Date (confirmed) or CandidateDates (polling) applies.
type ScheduleInput struct {
	Type           ScheduleType
	Date           *time.Time
	CandidateDates []time.Time
	Deadline       *time.Time
}

// FeeSettingInput describes one fee rule in creation order
type FeeSettingInput struct {
	ApplicableRole       string
	ApplicableGeneration *int
	Amount               int
	Currency             string
}

// CreateEventRequest is the input to EventService.Create
type CreateEventRequest struct {
	Title              string
	Description        string
	Venue              string
	ParticipationRoles []string
	EditRoles          []string
	Tags               []string
	FeeSettings        []FeeSettingInput
	Schedule           ScheduleInput
}

// UpdateEventRequest carries partial updates; nil fields are left unchanged
type UpdateEventRequest struct {
	Title              *string
	Description        *string
	Venue              *string
	ParticipationRoles *[]string
	EditRoles          *[]string
	Tags               *[]string
	FeeSettings        *[]FeeSettingInput
}

// ListEventsRequest is the input to EventService.List
type ListEventsRequest struct {
	Page     int
	PageSize int
	Filter   CatalogFilter
}

// EventSummary is the catalog listing view of an event
type EventSummary struct {
	ID               uuid.UUID          `json:"id"`
	Title            string             `json:"title"`
	Status           models.EventStatus `json:"status"`
	Venue            string             `json:"venue"`
	OrganizerID      uuid.UUID          `json:"organizer_id"`
	Tags             []string           `json:"tags"`
	FinalizedDate    *time.Time         `json:"finalized_date,omitempty"`
	ScheduleDeadline *time.Time         `json:"schedule_deadline,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// FeeSettingView is the read view of one fee rule
type FeeSettingView struct {
	ApplicableRole       string       `json:"applicable_role"`
	ApplicableGeneration *int         `json:"applicable_generation,omitempty"`
	Fee                  models.Money `json:"fee"`
}

// EventDetail is the full read view of an event
type EventDetail struct {
	ID                 uuid.UUID          `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Venue              string             `json:"venue"`
	Status             models.EventStatus `json:"status"`
	OrganizerID        uuid.UUID          `json:"organizer_id"`
	ParticipationRoles []string           `json:"allowed_participation_roles"`
	EditRoles          []string           `json:"allowed_edit_roles"`
	Tags               []string           `json:"tags"`
	FeeSettings        []FeeSettingView   `json:"fee_settings"`
	CandidateDates     []time.Time        `json:"candidate_dates"`
	ScheduleDeadline   *time.Time         `json:"schedule_deadline,omitempty"`
	FinalizedDate      *time.Time         `json:"finalized_date,omitempty"`
	Version            uint               `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CommentView is the read view of an event comment
type CommentView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EventList is a page of catalog results
type EventList struct {
	Items      []EventSummary `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// EventService orchestrates event lifecycle and catalog operations
type EventService interface {
	Create(ctx context.Context, organizer models.Participant, req *CreateEventRequest) (*EventDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*EventDetail, error)
	List(ctx context.Context, caller models.Participant, req *ListEventsRequest) (*EventList, error)
	Update(ctx context.Context, caller models.Participant, id uuid.UUID, req *UpdateEventRequest) (*EventDetail, error)
	ConfirmSchedule(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error)
	OpenPoll(ctx context.Context, caller models.Participant, id uuid.UUID, candidates []time.Time, deadline *time.Time) (*EventDetail, error)
	AddCandidate(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error)
	RemoveCandidate(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error)
	Cancel(ctx context.Context, caller models.Participant, id uuid.UUID) (*EventDetail, error)
	AddComment(ctx context.Context, caller models.Participant, id uuid.UUID, content string) (*CommentView, error)
	ListComments(ctx context.Context, id uuid.UUID) ([]CommentView, error)
}

// eventService implements EventService
type eventService struct {
	repo     repository.EventRepository
	regRepo  repository.RegistrationRepository
	resolver *fees.Resolver
	cache    *cache.RedisCache
	search   *search.ElasticClient
	bus      messaging.ServiceBusClient
	tracer   tracing.Tracer
	now      func() time.Time
}

// NewEventService creates a new event service. cache, search, bus and
// tracer may be nil; the service degrades gracefully without them.
func NewEventService(
	repo repository.EventRepository,
	regRepo repository.RegistrationRepository,
	resolver *fees.Resolver,
	redisCache *cache.RedisCache,
	elasticClient *search.ElasticClient,
	bus messaging.ServiceBusClient,
	tracer tracing.Tracer,
) EventService {
	return &eventService{
		repo:     repo,
		regRepo:  regRepo,
		resolver: resolver,
		cache:    redisCache,
		search:   elasticClient,
		bus:      bus,
		tracer:   tracer,
		now:      time.Now,
	}
}

// Create creates a new event from the tagged schedule variant
func (s *eventService) Create(ctx context.Context, organizer models.Participant, req *CreateEventRequest) (*EventDetail, error) {
	if s.tracer != nil {
		txn := s.tracer.StartTransaction("create-event")
		defer s.tracer.EndTransaction(txn)
	}

	if req.Title == "" {
		return nil, validationErr("title is required")
	}
	if len(req.ParticipationRoles) == 0 {
		return nil, validationErr("at least one participation role is required")
	}
	for _, fs := range req.FeeSettings {
		if fs.Amount < 0 {
			return nil, validationErr("fee amount cannot be negative")
		}
		if fs.ApplicableRole == "" {
			return nil, validationErr("fee setting role is required")
		}
	}

	event := &models.Event{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		Status:      models.EventStatusDraft,
		OrganizerID: organizer.ID,
	}
	event.Roles = buildRoleRows(event.ID, req.ParticipationRoles, req.EditRoles)
	event.Tags = buildTagRows(event.ID, req.Tags)
	event.FeeSettings = buildFeeRows(event.ID, req.FeeSettings)

	switch req.Schedule.Type {
	case ScheduleTypeConfirmed:
		if req.Schedule.Date == nil {
			return nil, validationErr("confirmed schedule requires a date")
		}
		if err := lifecycle.ConfirmDirectly(event, *req.Schedule.Date); err != nil {
			return nil, err
		}
	case ScheduleTypePolling:
		if len(req.Schedule.CandidateDates) == 0 {
			return nil, validationErr("polling schedule requires candidate dates")
		}
		if err := lifecycle.OpenPoll(event, req.Schedule.CandidateDates, req.Schedule.Deadline, s.now()); err != nil {
			return nil, err
		}
	default:
		return nil, validationErr("schedule type must be confirmed or polling")
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to create event")
	}

	s.registerOrganizer(ctx, event, organizer)

	log.Info().
		Str("event_id", event.ID.String()).
		Str("status", event.Status.String()).
		Str("organizer_id", organizer.ID.String()).
		Msg("Event created")

	s.indexEvent(ctx, event)
	return s.buildDetail(event), nil
}

// registerOrganizer records the organizer as a confirmed participant of
// their own event. Failures are logged, never fatal to creation.
func (s *eventService) registerOrganizer(ctx context.Context, event *models.Event, organizer models.Participant) {
	fee, err := s.resolver.Resolve(event.FeeSettings, organizer)
	if err != nil {
		// The organizer joins their own event even if no fee rule covers them
		fee = models.JPY(0)
	}

	key := models.ActiveRegistrationKey(event.ID, organizer.ID)
	registration := &models.Registration{
		ID:          uuid.New(),
		EventID:     event.ID,
		UserID:      organizer.ID,
		Status:      models.RegistrationStatusConfirmed,
		Generation:  organizer.Generation,
		FeeAmount:   fee.Amount,
		FeeCurrency: fee.Currency,
		JoinedAt:    s.now(),
		ActiveKey:   &key,
	}
	if err := s.regRepo.Create(ctx, registration); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID.String()).
			Msg("Failed to register organizer as participant")
	}
}

// Get returns the detail view, read through the cache
func (s *eventService) Get(ctx context.Context, id uuid.UUID) (*EventDetail, error) {
	var cached EventDetail
	if err := s.cache.Get(ctx, cache.EventKey(id), &cached); err == nil {
		return &cached, nil
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := s.buildDetail(event)
	if err := s.cache.Set(ctx, cache.EventKey(id), detail, detailCacheTTL); err != nil {
		log.Warn().Err(err).Str("event_id", id.String()).Msg("Failed to cache event detail")
	}
	return detail, nil
}

// List applies the catalog filter and paginates the result
func (s *eventService) List(ctx context.Context, caller models.Participant, req *ListEventsRequest) (*EventList, error) {
	events, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	activeEvents := map[uuid.UUID]bool{}
	if req.Filter.Participation == ParticipationJoinable || req.Filter.Participation == ParticipationJoined {
		registrations, err := s.regRepo.FindActiveByUser(ctx, caller.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load caller registrations")
		}
		for _, r := range registrations {
			activeEvents[r.EventID] = true
		}
	}

	now := s.now()
	filtered := FilterEvents(events, req.Filter, caller, activeEvents, now)

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	items := make([]EventSummary, 0, end-start)
	for _, event := range filtered[start:end] {
		items = append(items, EventSummary{
			ID:               event.ID,
			Title:            event.Title,
			Status:           lifecycle.EffectiveStatus(event, now),
			Venue:            event.Venue,
			OrganizerID:      event.OrganizerID,
			Tags:             event.TagNames(),
			FinalizedDate:    event.FinalizedDate,
			ScheduleDeadline: event.ScheduleDeadline,
			CreatedAt:        event.CreatedAt,
		})
	}

	return &EventList{
		Items:      items,
		TotalCount: len(filtered),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Update applies a partial edit, guarded by the edit roles
func (s *eventService) Update(ctx context.Context, caller models.Participant, id uuid.UUID, req *UpdateEventRequest) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, validationErr("title cannot be empty")
		}
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.ParticipationRoles != nil || req.EditRoles != nil {
		participation := event.ParticipationRoles()
		edit := event.EditRoles()
		if req.ParticipationRoles != nil {
			participation = *req.ParticipationRoles
		}
		if req.EditRoles != nil {
			edit = *req.EditRoles
		}
		if len(participation) == 0 {
			return nil, validationErr("at least one participation role is required")
		}
		event.Roles = buildRoleRows(event.ID, participation, edit)
	}
	if req.Tags != nil {
		event.Tags = buildTagRows(event.ID, *req.Tags)
	}
	if req.FeeSettings != nil {
		for _, fs := range *req.FeeSettings {
			if fs.Amount < 0 {
				return nil, validationErr("fee amount cannot be negative")
			}
		}
		event.FeeSettings = buildFeeRows(event.ID, *req.FeeSettings)
	}

	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}
	return s.buildDetail(event), nil
}

// ConfirmSchedule finalizes one candidate date of an open poll
func (s *eventService) ConfirmSchedule(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if err := lifecycle.Finalize(event, date); err != nil {
		return nil, err
	}
	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Time("finalized_date", date).
		Msg("Event schedule confirmed")

	s.confirmPendingRegistrations(ctx, event)
	s.notify(ctx, messaging.Notification{
		Kind:          messaging.NotificationEventConfirmed,
		EventID:       event.ID.String(),
		EventTitle:    event.Title,
		FinalizedDate: formatTime(event.FinalizedDate),
		OccurredAt:    s.now(),
	})

	return s.buildDetail(event), nil
}

// OpenPoll opens (or reopens) the schedule poll
func (s *eventService) OpenPoll(ctx context.Context, caller models.Participant, id uuid.UUID, candidates []time.Time, deadline *time.Time) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if err := lifecycle.OpenPoll(event, candidates, deadline, s.now()); err != nil {
		return nil, err
	}
	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}
	return s.buildDetail(event), nil
}

// AddCandidate appends a candidate date to the open poll
func (s *eventService) AddCandidate(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if err := lifecycle.AddCandidate(event, date); err != nil {
		return nil, err
	}
	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}
	return s.buildDetail(event), nil
}

// RemoveCandidate removes a candidate date from the open poll
func (s *eventService) RemoveCandidate(ctx context.Context, caller models.Participant, id uuid.UUID, date time.Time) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if err := lifecycle.RemoveCandidate(event, date); err != nil {
		return nil, err
	}
	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}
	return s.buildDetail(event), nil
}

// Cancel cancels the event
func (s *eventService) Cancel(ctx context.Context, caller models.Participant, id uuid.UUID) (*EventDetail, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEdit(event, caller); err != nil {
		return nil, err
	}

	if err := lifecycle.Cancel(event); err != nil {
		return nil, err
	}
	if err := s.saveAndRefresh(ctx, event); err != nil {
		return nil, err
	}

	log.Info().Str("event_id", event.ID.String()).Msg("Event cancelled")

	s.notify(ctx, messaging.Notification{
		Kind:       messaging.NotificationEventCancelled,
		EventID:    event.ID.String(),
		EventTitle: event.Title,
		OccurredAt: s.now(),
	})

	return s.buildDetail(event), nil
}

// AddComment adds a comment to the event
func (s *eventService) AddComment(ctx context.Context, caller models.Participant, id uuid.UUID, content string) (*CommentView, error) {
	if content == "" {
		return nil, validationErr("comment content is required")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	comment := &models.EventComment{
		ID:      uuid.New(),
		EventID: id,
		UserID:  caller.ID,
		Content: content,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, errors.Wrap(err, "failed to create comment")
	}

	return &CommentView{
		ID:        comment.ID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}, nil
}

// ListComments lists the event's comments, oldest first
func (s *eventService) ListComments(ctx context.Context, id uuid.UUID) ([]CommentView, error) {
	comments, err := s.repo.FindCommentsByEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{
			ID:        c.ID,
			UserID:    c.UserID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		}
	}
	return views, nil
}

// saveAndRefresh persists the event under the version check, then
// invalidates the cache and reindexes the search document
func (s *eventService) saveAndRefresh(ctx context.Context, event *models.Event) error {
	if err := s.repo.UpdateVersioned(ctx, event); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, cache.EventKey(event.ID)); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to invalidate cached event")
	}
	s.indexEvent(ctx, event)
	return nil
}

// confirmPendingRegistrations promotes pending registrations once the
// event is confirmed. The worker reconciliation job backstops failures.
func (s *eventService) confirmPendingRegistrations(ctx context.Context, event *models.Event) {
	registrations, err := s.regRepo.FindByEvent(ctx, event.ID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to load registrations for confirmation")
		return
	}

	for i := range registrations {
		r := &registrations[i]
		if r.Status != models.RegistrationStatusPending {
			continue
		}
		r.Status = models.RegistrationStatusConfirmed
		if err := s.regRepo.Update(ctx, r); err != nil {
			log.Warn().Err(err).
				Str("registration_id", r.ID.String()).
				Msg("Failed to confirm pending registration, reconciliation will retry")
			continue
		}
		s.notify(ctx, messaging.Notification{
			Kind:       messaging.NotificationRegistrationConfirmed,
			EventID:    event.ID.String(),
			EventTitle: event.Title,
			UserID:     r.UserID.String(),
			OccurredAt: s.now(),
		})
	}
}

// indexEvent indexes the event for search, best effort
func (s *eventService) indexEvent(ctx context.Context, event *models.Event) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexEvent(ctx, event, lifecycle.EffectiveStatus(event, s.now())); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to index event")
	}
}

// notify publishes a notification, best effort
func (s *eventService) notify(ctx context.Context, n messaging.Notification) {
	if s.bus == nil {
		return
	}
	if err := s.bus.SendMessage(ctx, n); err != nil {
		log.Warn().Err(err).Str("kind", n.Kind).Msg("Failed to publish notification")
	}
}

// buildDetail builds the detail view with the read-time status
func (s *eventService) buildDetail(event *models.Event) *EventDetail {
	feeViews := make([]FeeSettingView, len(event.FeeSettings))
	for i, fs := range event.FeeSettings {
		feeViews[i] = FeeSettingView{
			ApplicableRole:       fs.ApplicableRole,
			ApplicableGeneration: fs.ApplicableGeneration,
			Fee:                  fs.Fee(),
		}
	}

	return &EventDetail{
		ID:                 event.ID,
		Title:              event.Title,
		Description:        event.Description,
		Venue:              event.Venue,
		Status:             lifecycle.EffectiveStatus(event, s.now()),
		OrganizerID:        event.OrganizerID,
		ParticipationRoles: event.ParticipationRoles(),
		EditRoles:          event.EditRoles(),
		Tags:               event.TagNames(),
		FeeSettings:        feeViews,
		CandidateDates:     event.CandidateTimes(),
		ScheduleDeadline:   event.ScheduleDeadline,
		FinalizedDate:      event.FinalizedDate,
		Version:            event.Version,
		CreatedAt:          event.CreatedAt,
		UpdatedAt:          event.UpdatedAt,
	}
}

// authorizeEdit checks the caller against the event's edit roles. The
// organizer can always edit their own event.
func authorizeEdit(event *models.Event, caller models.Participant) error {
	if caller.ID == event.OrganizerID {
		return nil
	}
	if caller.HasAnyRole(event.EditRoles()) {
		return nil
	}
	return ErrEditNotAllowed
}

// buildRoleRows materializes role grants for both scopes
func buildRoleRows(eventID uuid.UUID, participation, edit []string) []models.EventRole {
	rows := make([]models.EventRole, 0, len(participation)+len(edit))
	for _, role := range participation {
		rows = append(rows, models.EventRole{
			ID:      uuid.New(),
			EventID: eventID,
			Role:    role,
			Scope:   models.RoleScopeParticipation,
		})
	}
	for _, role := range edit {
		rows = append(rows, models.EventRole{
			ID:      uuid.New(),
			EventID: eventID,
			Role:    role,
			Scope:   models.RoleScopeEdit,
		})
	}
	return rows
}

// buildTagRows materializes tag rows
func buildTagRows(eventID uuid.UUID, tags []string) []models.EventTag {
	rows := make([]models.EventTag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, models.EventTag{
			ID:      uuid.New(),
			EventID: eventID,
			Tag:     tag,
		})
	}
	return rows
}

// buildFeeRows materializes fee settings preserving list order
func buildFeeRows(eventID uuid.UUID, settings []FeeSettingInput) []models.FeeSetting {
	rows := make([]models.FeeSetting, 0, len(settings))
	for i, fs := range settings {
		currency := fs.Currency
		if currency == "" {
			currency = models.DefaultCurrency
		}
		rows = append(rows, models.FeeSetting{
			ID:                   uuid.New(),
			EventID:              eventID,
			Position:             i,
			ApplicableRole:       fs.ApplicableRole,
			ApplicableGeneration: fs.ApplicableGeneration,
			FeeAmount:            fs.Amount,
			FeeCurrency:          currency,
		})
	}
	return rows
}

// formatTime formats an optional time for notification payloads
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
